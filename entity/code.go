package entity

import "time"

// CodeStatus is the lifecycle state of an uploaded code.
// Status transitions: active → distributed (full audience materialized),
// active → suspended (penalty escalation) → active (window elapsed).
type CodeStatus string

const (
	CodeActive      CodeStatus = "active"
	CodeSuspended   CodeStatus = "suspended"
	CodeDistributed CodeStatus = "distributed"
)

// Code is one redeemable token uploaded by a member. A batch upload creates
// DistributionDays codes numbered 1..N in upload order; DayNumber is the day
// of the owner's cycle the code is scheduled on. ViewsPerDay is frozen from
// the group setting at creation time.
type Code struct {
	Id          string     `json:"id" bson:"id"`
	OwnerId     int64      `json:"owner_id" bson:"owner_id"`
	GroupId     string     `json:"group_id" bson:"group_id"`
	Value       string     `json:"value" bson:"value"`
	DayNumber   int        `json:"day_number" bson:"day_number"`
	Status      CodeStatus `json:"status" bson:"status"`
	ViewsPerDay int        `json:"views_per_day" bson:"views_per_day"`
	SuspendedAt *time.Time `json:"suspended_at,omitempty" bson:"suspended_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
}
