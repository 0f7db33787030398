package types

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"
)

// TrackedRole marks a guild role whose population is sampled by the
// snapshot job.
type TrackedRole struct {
	bun.BaseModel `bun:"table:tracked_roles"`

	RoleID  snowflake.ID `bun:"role_id,pk"       json:"roleId"`
	GuildID snowflake.ID `bun:"guild_id,notnull" json:"guildId"`
}

// RoleStatistic is one immutable sample of a tracked role's population,
// appended per role per snapshot run. Rows are never mutated or deleted;
// consumers window by captured_at.
type RoleStatistic struct {
	bun.BaseModel `bun:"table:role_statistics"`

	ID            int64        `bun:",pk,autoincrement" json:"id"`
	GuildID       snowflake.ID `bun:"guild_id,notnull"  json:"guildId"`
	RoleID        snowflake.ID `bun:"role_id,notnull"   json:"roleId"`
	InactiveCount int          `bun:",notnull"          json:"inactiveCount"`
	ActiveCount   int          `bun:",notnull"          json:"activeCount"`
	CapturedAt    time.Time    `bun:",notnull"          json:"capturedAt"`
}
