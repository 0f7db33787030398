package models

import (
	"database/sql"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"
)

// newTestModel builds a model over a connection that is never dialed;
// these tests only validate inputs and render SQL.
func newTestModel(t *testing.T) *InactivityModel {
	t.Helper()

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithAddr("localhost:0")))
	db := bun.NewDB(sqldb, pgdialect.New())

	t.Cleanup(func() {
		_ = db.Close()
	})

	return NewInactivity(db, zap.NewNop())
}

func TestNewPeriod(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)
	guildID := snowflake.ID(9000)
	userID := snowflake.ID(100)

	t.Run("second mark carries the second call's inputs", func(t *testing.T) {
		t.Parallel()

		first, err := newPeriod(
			guildID, userID, now.Add(24*time.Hour), now, "command", []snowflake.ID{1, 2},
		)
		require.NoError(t, err)

		later := now.Add(time.Hour)
		second, err := newPeriod(
			guildID, userID, later.Add(72*time.Hour), later, "modal", []snowflake.ID{3},
		)
		require.NoError(t, err)

		assert.Equal(t, first.UserID, second.UserID)
		assert.Equal(t, later, second.StartedAt)
		assert.Equal(t, later.Add(72*time.Hour), second.EndsAt)
		assert.Equal(t, "modal", second.Source)
		assert.Equal(t, []snowflake.ID{3}, second.RoleSnapshot)
		assert.False(t, second.Notified)
	})

	t.Run("notified always resets", func(t *testing.T) {
		t.Parallel()

		period, err := newPeriod(guildID, userID, now.Add(time.Hour), now, "command", nil)
		require.NoError(t, err)
		assert.False(t, period.Notified)
	})

	t.Run("period ending before now is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := newPeriod(guildID, userID, now.Add(-time.Minute), now, "command", nil)
		require.ErrorIs(t, err, ErrEndsBeforeStart)
	})

	t.Run("period ending exactly now is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := newPeriod(guildID, userID, now, now, "command", nil)
		require.ErrorIs(t, err, ErrEndsBeforeStart)
	})
}

func TestMarkRejectsPastEnd(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)

	_, err := model.Mark(
		t.Context(), snowflake.ID(9000), snowflake.ID(100),
		time.Now().Add(-time.Hour), "command", nil,
	)
	require.ErrorIs(t, err, ErrEndsBeforeStart)
}

func TestMarkQueryReplacesOnConflict(t *testing.T) {
	t.Parallel()

	model := newTestModel(t)

	period, err := newPeriod(
		snowflake.ID(9000), snowflake.ID(100),
		time.Now().Add(24*time.Hour), time.Now(), "command", []snowflake.ID{1},
	)
	require.NoError(t, err)

	query := model.markQuery(period).String()

	assert.Contains(t, query, "ON CONFLICT (user_id) DO UPDATE")

	// Every column must come from the new row so a re-mark replaces the
	// record instead of extending it.
	for _, column := range []string{
		"guild_id", "role_snapshot", "started_at", "ends_at", "source", "notified",
	} {
		assert.Contains(t, query, column+" = EXCLUDED."+column)
	}
}
