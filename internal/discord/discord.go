// Package discord exposes the narrow guild lookups and outbound sends the
// core needs. The platform SDK's object graph stays behind these
// interfaces so tests can swap in in-memory fakes.
package discord

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// Member is the slice of guild member state the core consumes.
type Member struct {
	UserID   snowflake.ID
	Username string
	RoleIDs  []snowflake.ID
}

// HasRole reports whether the member carries the given role.
func (m *Member) HasRole(roleID snowflake.ID) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}

	return false
}

// Resolver is a read-through lookup into the guild.
type Resolver interface {
	// Member resolves a guild member by user ID.
	Member(ctx context.Context, guildID, userID snowflake.ID) (*Member, error)
	// MembersWithRole lists the guild members carrying a role.
	MembersWithRole(ctx context.Context, guildID, roleID snowflake.ID) ([]Member, error)
}

// Notifier sends outbound notifications.
type Notifier interface {
	// Announce posts to the public inactivity channel.
	Announce(ctx context.Context, content string) error
	// DirectMessage sends a DM to a user.
	DirectMessage(ctx context.Context, userID snowflake.ID, content string) error
}
