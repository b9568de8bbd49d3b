package entity

import (
	"net/http"
	"time"

	"github.com/emem1357/RED-PACET-SHARE/lib/validate"
)

// Group is a capacity-bounded cohort of members sharing distribution
// settings. Groups are never hard-deleted; the monthly cycle reset wipes
// their codes and assignments only.
type Group struct {
	// Id comes from the request path on updates, so it is not validated on bind
	Id                string    `json:"id" bson:"id" validate:"omitempty"`
	Name              string    `json:"name" bson:"name" validate:"required"`
	MaxMembers        int       `json:"max_members" bson:"max_members" validate:"omitempty,min=2"`
	DistributionDays  int       `json:"distribution_days" bson:"distribution_days" validate:"omitempty,min=1"`
	DailyViewLimit    int       `json:"daily_view_limit" bson:"daily_view_limit" validate:"omitempty,min=1"`
	SendTime          string    `json:"send_time" bson:"send_time" validate:"omitempty,len=5"`
	SchedulerActive   bool      `json:"scheduler_active" bson:"scheduler_active"`
	PaymentModeActive bool      `json:"payment_mode_active" bson:"payment_mode_active"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
}

func (g *Group) Bind(_ *http.Request) error {
	return validate.Struct(g)
}

// Eligible reports whether the distribution engine may run for this group.
// Payment mode freezes distribution even while the scheduler stays active.
func (g *Group) Eligible() bool {
	return g.SchedulerActive && !g.PaymentModeActive
}
