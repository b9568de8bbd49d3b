package entity

import (
	"net/http"
	"time"

	"github.com/emem1357/RED-PACET-SHARE/lib/validate"
)

// Member belongs to exactly one group, assigned at registration and
// immutable afterwards. The Telegram id doubles as the member key so the
// bot can address members directly.
type Member struct {
	TelegramId   int64     `json:"telegram_id" bson:"telegram_id" validate:"required"`
	GroupId      string    `json:"group_id" bson:"group_id" validate:"required"`
	DisplayName  string    `json:"display_name" bson:"display_name" validate:"required"`
	RegisteredAt time.Time `json:"registered_at" bson:"registered_at"`
}

func (m *Member) Bind(_ *http.Request) error {
	return validate.Struct(m)
}

// Operator is an admin API caller authenticated by Bearer token.
type Operator struct {
	Username string `json:"username" bson:"username" validate:"required"`
	Token    string `json:"token" bson:"token" validate:"required,min=1"`
}
