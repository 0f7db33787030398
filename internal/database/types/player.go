package types

import (
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"
)

var (
	ErrPlayerNotFound   = errors.New("player not found")
	ErrLinkCodeNotFound = errors.New("link code not found")
)

// Player is a Minecraft account on the server roster, optionally linked to
// a Discord user.
type Player struct {
	bun.BaseModel `bun:"table:players"`

	UUID      string       `bun:",pk"                                json:"uuid"`
	Nickname  string       `bun:",notnull,unique"                    json:"nickname"`
	UserID    snowflake.ID `bun:"user_id"                            json:"userId"`
	Rank      string       `bun:",nullzero"                          json:"rank"`
	Digs      int64        `bun:",notnull,default:0"                 json:"digs"`
	CreatedAt time.Time    `bun:",notnull,default:current_timestamp" json:"createdAt"`
}

// LinkCode is a one-time code handed to a Discord user that the Minecraft
// server presents to establish the member link. Consumed atomically with
// the link creation.
type LinkCode struct {
	bun.BaseModel `bun:"table:link_codes"`

	Code      string       `bun:",pk"                                json:"code"`
	UserID    snowflake.ID `bun:"user_id,notnull"                    json:"userId"`
	CreatedAt time.Time    `bun:",notnull,default:current_timestamp" json:"createdAt"`
}
