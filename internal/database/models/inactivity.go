package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/triskcraft/custodian/internal/database/dbretry"
	"github.com/triskcraft/custodian/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ErrEndsBeforeStart is returned when a mark would create a period that
// ends before it begins.
var ErrEndsBeforeStart = errors.New("inactivity period must end after it starts")

// InactivityModel handles database operations for the inactivity ledger.
type InactivityModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewInactivity creates a new inactivity model.
func NewInactivity(db *bun.DB, logger *zap.Logger) *InactivityModel {
	return &InactivityModel{
		db:     db,
		logger: logger.Named("db_inactivity"),
	}
}

// newPeriod validates the boundary and builds the replacement row a mark
// writes. The countdown always restarts from now, the role snapshot is
// recaptured and the notified flag resets.
func newPeriod(
	guildID, userID snowflake.ID, until, now time.Time, source string, roleSnapshot []snowflake.ID,
) (*types.InactivityPeriod, error) {
	if !until.After(now) {
		return nil, ErrEndsBeforeStart
	}

	return &types.InactivityPeriod{
		UserID:       userID,
		GuildID:      guildID,
		RoleSnapshot: roleSnapshot,
		StartedAt:    now,
		EndsAt:       until,
		Source:       source,
		Notified:     false,
	}, nil
}

// markQuery builds the upsert that makes a second mark replace the
// existing row entirely instead of extending it.
func (m *InactivityModel) markQuery(period *types.InactivityPeriod) *bun.InsertQuery {
	return m.db.NewInsert().
		Model(period).
		On("CONFLICT (user_id) DO UPDATE").
		Set("guild_id = EXCLUDED.guild_id").
		Set("role_snapshot = EXCLUDED.role_snapshot").
		Set("started_at = EXCLUDED.started_at").
		Set("ends_at = EXCLUDED.ends_at").
		Set("source = EXCLUDED.source").
		Set("notified = EXCLUDED.notified")
}

// Mark upserts the inactivity period for a member. Replace semantics,
// never extend.
func (m *InactivityModel) Mark(
	ctx context.Context, guildID, userID snowflake.ID, until time.Time, source string, roleSnapshot []snowflake.ID,
) (*types.InactivityPeriod, error) {
	period, err := newPeriod(guildID, userID, until, time.Now(), source, roleSnapshot)
	if err != nil {
		return nil, err
	}

	return dbretry.Operation(ctx, func(ctx context.Context) (*types.InactivityPeriod, error) {
		if _, err := m.markQuery(period).Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to mark inactivity: %w", err)
		}

		m.logger.Debug("Marked inactivity",
			zap.Uint64("userID", uint64(userID)),
			zap.Time("endsAt", until),
			zap.String("source", source))

		return period, nil
	})
}

// Clear removes a member's inactivity period. Clearing a member without a
// period is not an error.
func (m *InactivityModel) Clear(ctx context.Context, userID snowflake.ID) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewDelete().
			Model((*types.InactivityPeriod)(nil)).
			Where("user_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear inactivity: %w", err)
		}

		return nil
	})
}

// Get retrieves a member's current inactivity period.
func (m *InactivityModel) Get(ctx context.Context, userID snowflake.ID) (*types.InactivityPeriod, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.InactivityPeriod, error) {
		period := new(types.InactivityPeriod)

		err := m.db.NewSelect().
			Model(period).
			Where("user_id = ?", userID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrInactivityNotFound
			}

			return nil, fmt.Errorf("failed to get inactivity: %w", err)
		}

		return period, nil
	})
}

// List returns all inactivity periods for a guild, soonest to expire first.
func (m *InactivityModel) List(ctx context.Context, guildID snowflake.ID) ([]*types.InactivityPeriod, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.InactivityPeriod, error) {
		var periods []*types.InactivityPeriod

		err := m.db.NewSelect().
			Model(&periods).
			Where("guild_id = ?", guildID).
			Order("ends_at ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list inactivities: %w", err)
		}

		return periods, nil
	})
}

// GetExpired returns periods that have ended but have not been processed
// by the reminder job yet.
func (m *InactivityModel) GetExpired(ctx context.Context, guildID snowflake.ID) ([]*types.InactivityPeriod, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.InactivityPeriod, error) {
		var periods []*types.InactivityPeriod

		err := m.db.NewSelect().
			Model(&periods).
			Where("guild_id = ?", guildID).
			Where("notified = FALSE").
			Where("ends_at <= ?", time.Now()).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get expired inactivities: %w", err)
		}

		return periods, nil
	})
}
