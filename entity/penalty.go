package entity

import "time"

// PenaltyRecord tracks a member's consecutive misses. MissStreak resets to
// zero on any successful mark-used or confirmation. Suspended marks that the
// member's own codes were already pulled for the current streak, so the
// daily checkpoint does not suspend them twice. CheckedOn is the calendar
// date of the last checkpoint that escalated this record; it lives in the
// ledger so a checkpoint re-fired after a restart stays a no-op.
type PenaltyRecord struct {
	MemberId   int64     `json:"member_id" bson:"member_id"`
	GroupId    string    `json:"group_id" bson:"group_id"`
	MissStreak int       `json:"miss_streak" bson:"miss_streak"`
	Suspended  bool      `json:"suspended" bson:"suspended"`
	CheckedOn  string    `json:"checked_on" bson:"checked_on"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// NotifyKind selects the message template the transport layer renders for a
// member notification. The engine never formats chat text itself.
type NotifyKind string

const (
	NotifyAssigned   NotifyKind = "assigned"
	NotifyCarried    NotifyKind = "carried"
	NotifyWarned     NotifyKind = "warned"
	NotifySuspended  NotifyKind = "suspended"
	NotifyReactivate NotifyKind = "reactivated"
	NotifyDeleted    NotifyKind = "deleted"
)
