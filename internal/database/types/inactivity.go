package types

import (
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"
)

var ErrInactivityNotFound = errors.New("inactivity period not found")

// InactivityPeriod records a member's declared absence. At most one row
// exists per member; re-marking replaces the row rather than extending it.
type InactivityPeriod struct {
	bun.BaseModel `bun:"table:inactivity_periods"`

	UserID       snowflake.ID   `bun:"user_id,pk"        json:"userId"`
	GuildID      snowflake.ID   `bun:"guild_id,notnull"  json:"guildId"`
	RoleSnapshot []snowflake.ID `bun:"role_snapshot,array" json:"roleSnapshot"`
	StartedAt    time.Time      `bun:",notnull"          json:"startedAt"`
	EndsAt       time.Time      `bun:",notnull"          json:"endsAt"`
	Source       string         `bun:",notnull"          json:"source"`
	Notified     bool           `bun:",notnull"          json:"notified"`
}
