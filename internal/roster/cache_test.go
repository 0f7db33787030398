package roster_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/triskcraft/custodian/internal/database/types"
	"github.com/triskcraft/custodian/internal/roster"
	"go.uber.org/zap"
)

type fakeLister struct {
	players []*types.Player
	err     error
	calls   int
}

func (f *fakeLister) List(_ context.Context) ([]*types.Player, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	return f.players, nil
}

func setupTest(t *testing.T, lister roster.Lister) (*roster.Cache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return roster.NewCache(lister, client, zap.NewNop()), mr
}

func TestGet(t *testing.T) {
	t.Parallel()

	t.Run("first read loads from store and caches", func(t *testing.T) {
		t.Parallel()

		lister := &fakeLister{players: []*types.Player{
			{UUID: "uuid-1", Nickname: "steve", Digs: 12},
		}}
		cache, mr := setupTest(t, lister)

		players, err := cache.Get(t.Context())
		require.NoError(t, err)
		require.Len(t, players, 1)
		assert.Equal(t, "steve", players[0].Nickname)
		assert.Equal(t, 1, lister.calls)
		assert.True(t, mr.Exists(roster.RosterKey))
	})

	t.Run("second read is served from cache", func(t *testing.T) {
		t.Parallel()

		lister := &fakeLister{players: []*types.Player{
			{UUID: "uuid-1", Nickname: "steve"},
		}}
		cache, _ := setupTest(t, lister)

		_, err := cache.Get(t.Context())
		require.NoError(t, err)

		players, err := cache.Get(t.Context())
		require.NoError(t, err)
		require.Len(t, players, 1)
		assert.Equal(t, 1, lister.calls)
	})

	t.Run("expired entry falls back to the store", func(t *testing.T) {
		t.Parallel()

		lister := &fakeLister{players: []*types.Player{
			{UUID: "uuid-1", Nickname: "steve"},
		}}
		cache, mr := setupTest(t, lister)

		_, err := cache.Get(t.Context())
		require.NoError(t, err)

		mr.FastForward(roster.RosterTTL * 2)

		_, err = cache.Get(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 2, lister.calls)
	})

	t.Run("store failure surfaces on a cold cache", func(t *testing.T) {
		t.Parallel()

		lister := &fakeLister{err: errors.New("db down")}
		cache, _ := setupTest(t, lister)

		_, err := cache.Get(t.Context())
		require.Error(t, err)
	})

	t.Run("corrupt cache entry triggers a refresh", func(t *testing.T) {
		t.Parallel()

		lister := &fakeLister{players: []*types.Player{
			{UUID: "uuid-1", Nickname: "steve"},
		}}
		cache, mr := setupTest(t, lister)

		require.NoError(t, mr.Set(roster.RosterKey, "{not json"))

		players, err := cache.Get(t.Context())
		require.NoError(t, err)
		require.Len(t, players, 1)
		assert.Equal(t, 1, lister.calls)
	})
}

func TestInvalidate(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{players: []*types.Player{
		{UUID: "uuid-1", Nickname: "steve"},
	}}
	cache, mr := setupTest(t, lister)

	_, err := cache.Get(t.Context())
	require.NoError(t, err)
	require.True(t, mr.Exists(roster.RosterKey))

	cache.Invalidate(t.Context())
	assert.False(t, mr.Exists(roster.RosterKey))

	_, err = cache.Get(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, lister.calls)
}
