package types

import (
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"
)

var (
	ErrTokenNotFound  = errors.New("webhook token not found")
	ErrTokenNameTaken = errors.New("webhook token name already in use")
)

// WebhookToken stores an issued webhook credential. The secret column holds
// the vault payload, never the plaintext signing secret.
type WebhookToken struct {
	bun.BaseModel `bun:"table:webhook_tokens"`

	ID          string       `bun:",pk"                                json:"id"`
	UserID      snowflake.ID `bun:"user_id,notnull"                    json:"userId"`
	Name        string       `bun:",notnull,unique"                    json:"name"`
	Secret      string       `bun:",notnull"                           json:"-"`
	Permissions []string     `bun:",array"                             json:"permissions"`
	CreatedAt   time.Time    `bun:",notnull,default:current_timestamp" json:"createdAt"`
}
