// Package distribution materializes the daily audience for every code that
// reaches its cycle day. Day advancement is derived from committed
// assignment rows, never from wall-clock counting, so a skipped run
// self-corrects on the next trigger.
package distribution

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/emem1357/RED-PACET-SHARE/entity"
	"github.com/emem1357/RED-PACET-SHARE/internal/config"
	"github.com/emem1357/RED-PACET-SHARE/lib/clock"
	"github.com/emem1357/RED-PACET-SHARE/lib/sl"
)

const (
	insertAttempts = 3
	retryBackoff   = 200 * time.Millisecond
)

// Store defines the ledger operations the engine depends on.
// Implemented by internal/database/mongo.go.
type Store interface {
	GroupMembers(groupId string) ([]*entity.Member, error)
	MaxAssignedDay(groupId string) (int, error)
	ActiveCodesForDay(groupId string, dayNumber int) ([]*entity.Code, error)
	HasPriorAssignment(ownerId, viewerId int64) (bool, error)
	InsertAssignment(assignment *entity.Assignment) error
	CountAssignmentsForDate(codeId, date string) (int64, error)
	HasAssignmentsOn(groupId, date string) (bool, error)
	SetCodeStatus(codeId string, status entity.CodeStatus) error
}

// Notifier delivers member notifications. Fire-and-forget: implementations
// swallow transport errors, the engine never depends on delivery.
type Notifier interface {
	Notify(memberId int64, kind entity.NotifyKind, params map[string]string)
}

type Engine struct {
	db       Store
	notifier Notifier
	defaults config.GroupDefaults
	log      *slog.Logger
}

func New(db Store, notifier Notifier, defaults config.GroupDefaults, log *slog.Logger) *Engine {
	if db == nil {
		panic("distribution store is nil")
	}
	return &Engine{
		db:       db,
		notifier: notifier,
		defaults: defaults,
		log:      log.With(sl.Module("distribution")),
	}
}

// DistributeGroup runs one distribution pass for a group. Re-triggering on
// the same calendar day is a no-op: the group's rows dated today are the
// idempotency marker.
func (e *Engine) DistributeGroup(group *entity.Group, now time.Time) error {
	settings := *group
	e.defaults.Apply(&settings)

	logger := e.log.With(slog.String("group", settings.Id))

	if !settings.Eligible() {
		logger.Debug("group not eligible",
			slog.Bool("scheduler_active", settings.SchedulerActive),
			slog.Bool("payment_mode", settings.PaymentModeActive),
		)
		return nil
	}

	today := clock.Day(now)
	done, err := e.db.HasAssignmentsOn(settings.Id, today)
	if err != nil {
		return fmt.Errorf("check run marker: %w", err)
	}
	if done {
		logger.Debug("already distributed today", slog.String("date", today))
		return nil
	}

	lastDay, err := e.db.MaxAssignedDay(settings.Id)
	if err != nil {
		return fmt.Errorf("derive next day: %w", err)
	}
	nextDay := lastDay + 1

	codes, err := e.db.ActiveCodesForDay(settings.Id, nextDay)
	if err != nil {
		return fmt.Errorf("load codes for day %d: %w", nextDay, err)
	}
	if len(codes) == 0 {
		logger.Debug("no codes scheduled", slog.Int("day", nextDay))
		return nil
	}

	members, err := e.db.GroupMembers(settings.Id)
	if err != nil {
		return fmt.Errorf("load members: %w", err)
	}

	logger.Info("distributing",
		slog.Int("day", nextDay),
		slog.Int("codes", len(codes)),
		slog.Int("members", len(members)),
	)

	// Codes are processed strictly one after another: each code's committed
	// pairs must be visible to the anti-repeat filter of the next one.
	for _, code := range codes {
		err = e.distributeCode(&settings, code, members, today)
		if err != nil {
			logger.Error("code skipped this run",
				slog.String("code", code.Id),
				sl.Err(err),
			)
		}
	}
	return nil
}

func (e *Engine) distributeCode(group *entity.Group, code *entity.Code, members []*entity.Member, date string) error {
	target := code.ViewsPerDay
	if target <= 0 {
		target = group.DailyViewLimit
	}

	existing, err := e.db.CountAssignmentsForDate(code.Id, date)
	if err != nil {
		return fmt.Errorf("count existing: %w", err)
	}

	candidates, err := e.candidates(code.OwnerId, members)
	if err != nil {
		return err
	}
	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	assigned := int(existing)
	for _, candidate := range candidates {
		if assigned >= target {
			break
		}
		assignment := &entity.Assignment{
			Id:        uuid.NewString(),
			CodeId:    code.Id,
			OwnerId:   code.OwnerId,
			ViewerId:  candidate,
			GroupId:   group.Id,
			DayNumber: code.DayNumber,
			Date:      date,
			CreatedAt: time.Now().UTC(),
		}
		err = e.insertWithRetry(assignment)
		if errors.Is(err, entity.ErrDuplicatePair) {
			// pair already satisfied, not a failure
			continue
		}
		if err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
		assigned++
		if e.notifier != nil {
			e.notifier.Notify(candidate, entity.NotifyAssigned, map[string]string{
				"code": code.Value,
				"date": date,
			})
		}
	}

	// Shortfall is natural pool exhaustion under the anti-repeat rule,
	// logged for observability only.
	e.log.Info("code distributed",
		slog.String("code", code.Id),
		slog.Int64("owner", code.OwnerId),
		slog.Int("assigned", assigned),
		slog.Int("target", target),
	)

	if assigned >= target {
		err = e.db.SetCodeStatus(code.Id, entity.CodeDistributed)
		if err != nil {
			return fmt.Errorf("mark distributed: %w", err)
		}
	}
	return nil
}

// candidates returns the member ids still allowed to see this owner's codes:
// everyone in the group except the owner and anyone ever paired with them.
func (e *Engine) candidates(ownerId int64, members []*entity.Member) ([]int64, error) {
	result := make([]int64, 0, len(members))
	for _, member := range members {
		if member.TelegramId == ownerId {
			continue
		}
		seen, err := e.db.HasPriorAssignment(ownerId, member.TelegramId)
		if err != nil {
			return nil, fmt.Errorf("prior pair check: %w", err)
		}
		if seen {
			continue
		}
		result = append(result, member.TelegramId)
	}
	return result, nil
}

// insertWithRetry retries transient write failures a bounded number of
// times. Duplicate-pair rejections are returned immediately: the invariant
// is already satisfied and a retry would never succeed.
func (e *Engine) insertWithRetry(assignment *entity.Assignment) error {
	var err error
	for attempt := 1; attempt <= insertAttempts; attempt++ {
		err = e.db.InsertAssignment(assignment)
		if err == nil || errors.Is(err, entity.ErrDuplicatePair) {
			return err
		}
		if attempt < insertAttempts {
			time.Sleep(retryBackoff * time.Duration(attempt))
		}
	}
	return err
}
