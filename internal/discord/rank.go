package discord

import "github.com/disgoorg/snowflake/v2"

// RankMapping pairs a guild role with the Minecraft rank it confers.
type RankMapping struct {
	RoleID snowflake.ID
	Name   string
}

// DeriveRank returns the rank for the first mapping whose role the member
// carries. Mappings are ordered highest rank first, so the first match
// wins. Returns the empty string when no mapped role matches.
func DeriveRank(member *Member, mappings []RankMapping) string {
	for _, mapping := range mappings {
		if member.HasRole(mapping.RoleID) {
			return mapping.Name
		}
	}

	return ""
}
