package models

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/triskcraft/custodian/internal/database/dbretry"
	"github.com/triskcraft/custodian/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// RoleModel handles database operations for tracked roles and their
// population statistics.
type RoleModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewRole creates a new role model.
func NewRole(db *bun.DB, logger *zap.Logger) *RoleModel {
	return &RoleModel{
		db:     db,
		logger: logger.Named("db_role"),
	}
}

// Track puts a role under surveillance. Tracking an already tracked role
// is a no-op.
func (m *RoleModel) Track(ctx context.Context, guildID, roleID snowflake.ID) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(&types.TrackedRole{RoleID: roleID, GuildID: guildID}).
			On("CONFLICT (role_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to track role: %w", err)
		}

		return nil
	})
}

// Untrack removes a role from surveillance. Its statistics rows remain.
func (m *RoleModel) Untrack(ctx context.Context, roleID snowflake.ID) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewDelete().
			Model((*types.TrackedRole)(nil)).
			Where("role_id = ?", roleID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to untrack role: %w", err)
		}

		return nil
	})
}

// ListTracked returns the tracked role IDs for a guild.
func (m *RoleModel) ListTracked(ctx context.Context, guildID snowflake.ID) ([]snowflake.ID, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]snowflake.ID, error) {
		var roles []*types.TrackedRole

		err := m.db.NewSelect().
			Model(&roles).
			Where("guild_id = ?", guildID).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list tracked roles: %w", err)
		}

		roleIDs := make([]snowflake.ID, len(roles))
		for i, role := range roles {
			roleIDs[i] = role.RoleID
		}

		return roleIDs, nil
	})
}

// AppendStatistic appends one immutable population sample. Samples are
// never deduplicated; consumers window by captured_at.
func (m *RoleModel) AppendStatistic(ctx context.Context, stat *types.RoleStatistic) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(stat).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to append role statistic: %w", err)
		}

		return nil
	})
}

// GetStatistics returns a role's samples captured after the cutoff,
// oldest first for trend rendering.
func (m *RoleModel) GetStatistics(
	ctx context.Context, roleID snowflake.ID, since time.Time,
) ([]*types.RoleStatistic, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.RoleStatistic, error) {
		var stats []*types.RoleStatistic

		err := m.db.NewSelect().
			Model(&stats).
			Where("role_id = ?", roleID).
			Where("captured_at >= ?", since).
			Order("captured_at ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get role statistics: %w", err)
		}

		return stats, nil
	})
}
