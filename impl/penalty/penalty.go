// Package penalty runs the daily miss-streak state machine:
//
//	CLEAN --(miss)--> WARNED --(miss)--> SUSPENDED --(miss)--> DELETED
//	  ^                                      |
//	  |_____________(any success)____________|
//
// DELETED is terminal and purges the member row itself; group capacity and
// the anti-repeat filter depend on the member truly no longer existing.
package penalty

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emem1357/RED-PACET-SHARE/entity"
	"github.com/emem1357/RED-PACET-SHARE/internal/config"
	"github.com/emem1357/RED-PACET-SHARE/lib/clock"
	"github.com/emem1357/RED-PACET-SHARE/lib/sl"
)

// Store defines the ledger operations the machine depends on.
// Implemented by internal/database/mongo.go.
type Store interface {
	UnusedAssignmentsForDate(date string) ([]*entity.Assignment, error)
	UnconfirmedAssignmentsForDate(date string) ([]*entity.Assignment, error)
	ViewerAssignments(viewerId int64, date string) ([]*entity.Assignment, error)
	RescheduleAssignment(assignmentId, date string) error
	GetPenalty(memberId int64) (*entity.PenaltyRecord, error)
	SavePenalty(record *entity.PenaltyRecord) error
	SuspendOwnerCodes(ownerId int64, at time.Time) error
	ReactivateSuspendedBefore(cutoff time.Time) ([]int64, error)
	PurgeMember(memberId int64) error
}

type Notifier interface {
	Notify(memberId int64, kind entity.NotifyKind, params map[string]string)
}

type Machine struct {
	db       Store
	notifier Notifier
	conf     config.PenaltyConfig
	log      *slog.Logger
}

func New(db Store, notifier Notifier, conf config.PenaltyConfig, log *slog.Logger) *Machine {
	if db == nil {
		panic("penalty store is nil")
	}
	return &Machine{
		db:       db,
		notifier: notifier,
		conf:     conf,
		log:      log.With(sl.Module("penalty")),
	}
}

// Run executes the daily checkpoint: reactivate expired suspensions, carry
// yesterday's unused assignments forward, then escalate every member who
// missed — viewers who did not use a code, owners who did not confirm one.
func (m *Machine) Run(now time.Time) error {
	m.reactivate(now)

	yesterday := clock.PrevDay(now)
	today := clock.Day(now)

	unused, err := m.db.UnusedAssignmentsForDate(yesterday)
	if err != nil {
		return fmt.Errorf("load unused assignments: %w", err)
	}
	unconfirmed, err := m.db.UnconfirmedAssignmentsForDate(yesterday)
	if err != nil {
		return fmt.Errorf("load unconfirmed assignments: %w", err)
	}

	byViewer := make(map[int64][]*entity.Assignment)
	for _, a := range unused {
		byViewer[a.ViewerId] = append(byViewer[a.ViewerId], a)
	}

	// A member misses at most once per checkpoint, whichever side they
	// failed on.
	missed := make(map[int64]string)
	for viewerId, assignments := range byViewer {
		m.carryForward(viewerId, assignments, today)
		missed[viewerId] = assignments[0].GroupId
	}
	for _, a := range unconfirmed {
		if _, ok := missed[a.OwnerId]; !ok {
			missed[a.OwnerId] = a.GroupId
		}
	}

	m.log.Info("penalty checkpoint",
		slog.String("date", yesterday),
		slog.Int("unused", len(unused)),
		slog.Int("unconfirmed", len(unconfirmed)),
		slog.Int("members", len(missed)),
	)

	for memberId, groupId := range missed {
		err = m.escalate(memberId, groupId, now)
		if err != nil {
			m.log.Error("escalation failed",
				slog.Int64("member", memberId),
				sl.Err(err),
			)
		}
	}
	return nil
}

// carryForward re-presents yesterday's unused assignments by moving their
// date to today, unless the viewer already has rows for today. A date move
// keeps the lifetime one-row-per-pair property intact.
func (m *Machine) carryForward(viewerId int64, assignments []*entity.Assignment, today string) {
	current, err := m.db.ViewerAssignments(viewerId, today)
	if err != nil {
		m.log.Warn("carry-forward check failed", slog.Int64("viewer", viewerId), sl.Err(err))
		return
	}
	if len(current) > 0 {
		return
	}
	for _, a := range assignments {
		err = m.db.RescheduleAssignment(a.Id, today)
		if err != nil {
			m.log.Warn("carry-forward failed",
				slog.String("assignment", a.Id),
				sl.Err(err),
			)
			continue
		}
		m.notify(viewerId, entity.NotifyCarried, map[string]string{"date": today})
	}
}

func (m *Machine) escalate(memberId int64, groupId string, now time.Time) error {
	record, err := m.db.GetPenalty(memberId)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("load penalty record: %w", err)
	}
	if record == nil {
		record = &entity.PenaltyRecord{MemberId: memberId, GroupId: groupId}
	}

	// A restart wipes the scheduler's last-run memory and the checkpoint can
	// fire again the same day; the stored date keeps one miss one transition.
	today := clock.Day(now)
	if record.CheckedOn == today {
		m.log.Debug("already escalated today", slog.Int64("member", memberId))
		return nil
	}
	record.MissStreak++
	record.CheckedOn = today
	record.UpdatedAt = now.UTC()

	logger := m.log.With(
		slog.Int64("member", memberId),
		slog.Int("streak", record.MissStreak),
	)

	switch {
	case record.MissStreak >= m.conf.PurgeStreak:
		// Notify before the member row disappears; delivery is best-effort
		// and the purge commits regardless.
		m.notify(memberId, entity.NotifyDeleted, nil)
		err = m.db.PurgeMember(memberId)
		if err != nil {
			// The one place a partial failure is dangerous: orphaned rows
			// could reference a member that no longer acts.
			logger.Error("TERMINAL PURGE INCOMPLETE", sl.Err(err))
			return err
		}
		logger.Info("member purged")

	case record.MissStreak >= m.conf.SuspendStreak && !record.Suspended:
		err = m.db.SuspendOwnerCodes(memberId, now.UTC())
		if err != nil {
			return fmt.Errorf("suspend codes: %w", err)
		}
		record.Suspended = true
		err = m.db.SavePenalty(record)
		if err != nil {
			return fmt.Errorf("save penalty record: %w", err)
		}
		logger.Info("codes suspended")
		m.notify(memberId, entity.NotifySuspended, map[string]string{
			"days": fmt.Sprintf("%d", m.conf.SuspensionDays),
		})

	default:
		err = m.db.SavePenalty(record)
		if err != nil {
			return fmt.Errorf("save penalty record: %w", err)
		}
		if record.MissStreak < m.conf.WarnStreak {
			logger.Info("miss recorded")
			break
		}
		logger.Info("member warned")
		m.notify(memberId, entity.NotifyWarned, nil)
	}
	return nil
}

// reactivate is the time-based unlock: codes suspended longer than the
// configured window come back regardless of the streak counter's state.
func (m *Machine) reactivate(now time.Time) {
	cutoff := now.UTC().Add(-time.Duration(m.conf.SuspensionDays) * 24 * time.Hour)
	owners, err := m.db.ReactivateSuspendedBefore(cutoff)
	if err != nil {
		m.log.Error("reactivation failed", sl.Err(err))
		return
	}
	for _, ownerId := range owners {
		record, err := m.db.GetPenalty(ownerId)
		if err == nil && record != nil && record.Suspended {
			record.Suspended = false
			record.UpdatedAt = now.UTC()
			if err = m.db.SavePenalty(record); err != nil {
				m.log.Warn("clearing suspended flag", slog.Int64("member", ownerId), sl.Err(err))
			}
		}
		m.notify(ownerId, entity.NotifyReactivate, nil)
	}
	if len(owners) > 0 {
		m.log.Info("codes reactivated", slog.Int("owners", len(owners)))
	}
}

func (m *Machine) notify(memberId int64, kind entity.NotifyKind, params map[string]string) {
	if m.notifier == nil {
		return
	}
	m.notifier.Notify(memberId, kind, params)
}

func isNotFound(err error) bool {
	return errors.Is(err, entity.ErrNotFound)
}
