// Package core is the service facade every transport calls into: member
// registration, code uploads, usage marking and admin operations. The
// distribution and penalty engines run beside it against the same ledgers.
package core

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/emem1357/RED-PACET-SHARE/entity"
	"github.com/emem1357/RED-PACET-SHARE/internal/config"
	"github.com/emem1357/RED-PACET-SHARE/lib/clock"
	"github.com/emem1357/RED-PACET-SHARE/lib/sl"
)

// Database defines the storage operations the facade depends on.
// Implemented by internal/database/mongo.go.
type Database interface {
	GetGroup(groupId string) (*entity.Group, error)
	GetGroups() ([]*entity.Group, error)
	SaveGroup(group *entity.Group) error
	GetMember(telegramId int64) (*entity.Member, error)
	CountGroupMembers(groupId string) (int64, error)
	CountMembers() (int64, error)
	AddMember(member *entity.Member) error
	InsertCodes(codes []*entity.Code) error
	CodesByOwner(ownerId int64) ([]*entity.Code, error)
	GetAssignment(assignmentId string) (*entity.Assignment, error)
	ViewerAssignments(viewerId int64, date string) ([]*entity.Assignment, error)
	OwnerUnconfirmed(ownerId int64) ([]*entity.Assignment, error)
	MarkUsed(assignmentId string) error
	MarkVerified(assignmentId string) error
	MarkPaused(assignmentId string) error
	GetPenalty(memberId int64) (*entity.PenaltyRecord, error)
	ResetPenalty(memberId int64) error
	PurgeMember(memberId int64) error
	GetOperator(token string) (*entity.Operator, error)
}

type Core struct {
	db      Database
	conf    *config.Config
	log     *slog.Logger
	started string
}

func New(db Database, conf *config.Config, log *slog.Logger) *Core {
	if db == nil {
		panic("database is nil")
	}
	return &Core{
		db:      db,
		conf:    conf,
		log:     log.With(sl.Module("core")),
		started: clock.Now(),
	}
}

// AuthenticateByToken resolves an admin API caller from a Bearer token.
func (c *Core) AuthenticateByToken(token string) (*entity.Operator, error) {
	return c.db.GetOperator(token)
}

// RegisterMember places a new member into a group. Group assignment is
// immutable afterwards; the display name must be free within the group and
// the group must have capacity.
func (c *Core) RegisterMember(telegramId int64, groupId, displayName string) (*entity.Member, error) {
	if _, err := c.db.GetMember(telegramId); err == nil {
		return nil, fmt.Errorf("member %d already registered", telegramId)
	}

	group, err := c.GroupSettings(groupId)
	if err != nil {
		return nil, err
	}

	count, err := c.db.CountGroupMembers(groupId)
	if err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}
	if count >= int64(group.MaxMembers) {
		return nil, entity.ErrGroupFull
	}

	member := &entity.Member{
		TelegramId:   telegramId,
		GroupId:      groupId,
		DisplayName:  strings.TrimSpace(displayName),
		RegisteredAt: time.Now().UTC(),
	}
	err = c.db.AddMember(member)
	if err != nil {
		return nil, err
	}
	c.log.Info("member registered",
		slog.Int64("member", telegramId),
		slog.String("group", groupId),
	)
	return member, nil
}

// UploadCodes creates one full cycle batch for the owner: exactly
// distributionDays values, numbered 1..N in upload order, each freezing the
// group's current daily view limit.
func (c *Core) UploadCodes(ownerId int64, values []string) ([]*entity.Code, error) {
	member, err := c.db.GetMember(ownerId)
	if err != nil {
		return nil, err
	}
	group, err := c.GroupSettings(member.GroupId)
	if err != nil {
		return nil, err
	}
	if len(values) != group.DistributionDays {
		return nil, fmt.Errorf("expected %d codes, got %d", group.DistributionDays, len(values))
	}

	now := time.Now().UTC()
	codes := make([]*entity.Code, 0, len(values))
	for i, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			return nil, fmt.Errorf("code %d is empty", i+1)
		}
		codes = append(codes, &entity.Code{
			Id:          uuid.NewString(),
			OwnerId:     ownerId,
			GroupId:     member.GroupId,
			Value:       value,
			DayNumber:   i + 1,
			Status:      entity.CodeActive,
			ViewsPerDay: group.DailyViewLimit,
			CreatedAt:   now,
		})
	}
	err = c.db.InsertCodes(codes)
	if err != nil {
		return nil, fmt.Errorf("insert codes: %w", err)
	}
	c.log.Info("codes uploaded",
		slog.Int64("owner", ownerId),
		slog.Int("count", len(codes)),
	)
	return codes, nil
}

// MarkUsed records the viewer's consumption claim and resets their miss
// streak to zero. Forgiveness applies on compliance, never retroactively.
func (c *Core) MarkUsed(viewerId int64, assignmentId string) error {
	assignment, err := c.db.GetAssignment(assignmentId)
	if err != nil {
		return err
	}
	if assignment.ViewerId != viewerId {
		return entity.ErrNotFound
	}
	err = c.db.MarkUsed(assignmentId)
	if err != nil {
		return err
	}
	if err = c.db.ResetPenalty(viewerId); err != nil {
		return fmt.Errorf("reset streak: %w", err)
	}
	return nil
}

// Confirm is the owner acknowledging that a claimed usage really happened.
// Confirming resets the owner's own streak.
func (c *Core) Confirm(ownerId int64, assignmentId string) error {
	assignment, err := c.db.GetAssignment(assignmentId)
	if err != nil {
		return err
	}
	if assignment.OwnerId != ownerId {
		return entity.ErrNotFound
	}
	err = c.db.MarkVerified(assignmentId)
	if err != nil {
		return err
	}
	if err = c.db.ResetPenalty(ownerId); err != nil {
		return fmt.Errorf("reset streak: %w", err)
	}
	return nil
}

// MarkPaused records a viewer's opt-out for an assignment; the flag feeds
// future selection odds and does not count as a miss by itself.
func (c *Core) MarkPaused(viewerId int64, assignmentId string) error {
	assignment, err := c.db.GetAssignment(assignmentId)
	if err != nil {
		return err
	}
	if assignment.ViewerId != viewerId {
		return entity.ErrNotFound
	}
	return c.db.MarkPaused(assignmentId)
}

// Confirmations lists usage claims on the owner's codes that still need
// confirming, oldest first as stored.
func (c *Core) Confirmations(ownerId int64) ([]*entity.Assignment, error) {
	return c.db.OwnerUnconfirmed(ownerId)
}

func (c *Core) MemberStatus(memberId int64, now time.Time) (*entity.MemberStatus, error) {
	member, err := c.db.GetMember(memberId)
	if err != nil {
		return nil, err
	}
	today, err := c.db.ViewerAssignments(memberId, clock.Day(now))
	if err != nil {
		return nil, err
	}
	codes, err := c.db.CodesByOwner(memberId)
	if err != nil {
		return nil, err
	}
	suspended := 0
	for _, code := range codes {
		if code.Status == entity.CodeSuspended {
			suspended++
		}
	}
	status := &entity.MemberStatus{
		Member:     member,
		Today:      today,
		OwnedCodes: len(codes),
		Suspended:  suspended,
	}
	record, err := c.db.GetPenalty(memberId)
	if err != nil && !errors.Is(err, entity.ErrNotFound) {
		return nil, err
	}
	if record != nil {
		status.MissStreak = record.MissStreak
		status.IsSuspended = record.Suspended
	}
	return status, nil
}

// GroupSettings returns the group with fallback defaults applied. A missing
// group row is an error here; missing fields are not.
func (c *Core) GroupSettings(groupId string) (*entity.Group, error) {
	group, err := c.db.GetGroup(groupId)
	if err != nil {
		return nil, err
	}
	settings := *group
	c.conf.Defaults.Apply(&settings)
	return &settings, nil
}

func (c *Core) Groups() ([]*entity.Group, error) {
	groups, err := c.db.GetGroups()
	if err != nil {
		return nil, err
	}
	for _, group := range groups {
		c.conf.Defaults.Apply(group)
	}
	return groups, nil
}

func (c *Core) UpdateGroupSettings(group *entity.Group) error {
	if group.SendTime != "" && !clock.ValidSlot(group.SendTime) {
		return fmt.Errorf("invalid send time: %s", group.SendTime)
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}
	err := c.db.SaveGroup(group)
	if err != nil {
		return fmt.Errorf("save group: %w", err)
	}
	c.log.Info("group settings saved", slog.String("group", group.Id))
	return nil
}

// PurgeMember is the admin-initiated variant of the terminal deletion.
func (c *Core) PurgeMember(memberId int64) error {
	err := c.db.PurgeMember(memberId)
	if err != nil {
		c.log.Error("purge incomplete", slog.Int64("member", memberId), sl.Err(err))
		return err
	}
	c.log.Info("member purged", slog.Int64("member", memberId))
	return nil
}

func (c *Core) EngineStatus() (*entity.EngineStatus, error) {
	groups, err := c.db.GetGroups()
	if err != nil {
		return nil, err
	}
	members, err := c.db.CountMembers()
	if err != nil {
		return nil, err
	}
	return &entity.EngineStatus{
		Env:         c.conf.Env,
		Groups:      len(groups),
		Members:     members,
		UptimeHours: clock.DurationHours(c.started, clock.Now()),
	}, nil
}
