// Package roster caches the linked-player roster in Redis so member
// listings do not hit PostgreSQL on every request.
package roster

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	"github.com/triskcraft/custodian/internal/database/types"
	"go.uber.org/zap"
)

const (
	// RosterTTL defines how long the cached roster remains valid.
	RosterTTL = 5 * time.Minute

	// RosterKey identifies the roster entry in Redis.
	RosterKey = "roster:players"
)

// Lister loads the full roster from the backing store.
type Lister interface {
	List(ctx context.Context) ([]*types.Player, error)
}

// Cache is a read-through roster cache. Reads serve from Redis when the
// entry is fresh and fall back to the backing store otherwise. Writes
// that change the roster call Invalidate so the next read refreshes.
type Cache struct {
	players Lister
	client  rueidis.Client
	logger  *zap.Logger
}

// NewCache initializes the roster cache.
func NewCache(players Lister, client rueidis.Client, logger *zap.Logger) *Cache {
	return &Cache{
		players: players,
		client:  client,
		logger:  logger.Named("roster_cache"),
	}
}

// Get returns the roster, from cache when possible. Redis failures fall
// back to the backing store so the roster stays readable without Redis.
func (c *Cache) Get(ctx context.Context) ([]*types.Player, error) {
	data, err := c.client.Do(ctx, c.client.B().Get().Key(RosterKey).Build()).ToString()
	if err != nil {
		if !rueidis.IsRedisNil(err) {
			c.logger.Warn("Failed to read roster from Redis", zap.Error(err))
		}

		return c.Refresh(ctx)
	}

	var players []*types.Player
	if err := sonic.UnmarshalString(data, &players); err != nil {
		c.logger.Warn("Invalid roster entry in Redis, refreshing", zap.Error(err))
		return c.Refresh(ctx)
	}

	c.logger.Debug("Served roster from cache", zap.Int("players", len(players)))

	return players, nil
}

// Refresh loads the roster from the backing store and rewrites the
// cache entry. A caching failure is logged, not returned, since the
// caller already has the data.
func (c *Cache) Refresh(ctx context.Context) ([]*types.Player, error) {
	players, err := c.players.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	data, err := sonic.MarshalString(players)
	if err != nil {
		c.logger.Warn("Failed to marshal roster", zap.Error(err))
		return players, nil
	}

	err = c.client.Do(ctx,
		c.client.B().Set().Key(RosterKey).Value(data).Ex(RosterTTL).Build(),
	).Error()
	if err != nil {
		c.logger.Warn("Failed to cache roster in Redis", zap.Error(err))
	}

	return players, nil
}

// Invalidate drops the cached roster.
func (c *Cache) Invalidate(ctx context.Context) {
	err := c.client.Do(ctx, c.client.B().Del().Key(RosterKey).Build()).Error()
	if err != nil {
		c.logger.Warn("Failed to invalidate roster cache", zap.Error(err))
	}
}
