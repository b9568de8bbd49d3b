package entity

import "time"

// Assignment links one code to one viewer for one calendar date.
// Lifetime invariant: at most one row ever exists per (OwnerId, ViewerId)
// pair, backed by a unique index. Carrying an unused assignment forward to
// the next day therefore moves this row's Date instead of inserting a copy.
type Assignment struct {
	Id           string    `json:"id" bson:"id"`
	CodeId       string    `json:"code_id" bson:"code_id"`
	OwnerId      int64     `json:"owner_id" bson:"owner_id"`
	ViewerId     int64     `json:"viewer_id" bson:"viewer_id"`
	GroupId      string    `json:"group_id" bson:"group_id"`
	DayNumber    int       `json:"day_number" bson:"day_number"` // copied from the code at insert
	Date         string    `json:"date" bson:"date"`             // clock.DayFormat
	Used         bool      `json:"used" bson:"used"`
	Carried      bool      `json:"carried" bson:"carried"` // re-presented after a miss, not a fresh distribution
	Verified     bool      `json:"verified" bson:"verified"`
	MarkedPaused bool      `json:"marked_paused" bson:"marked_paused"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}
