// Package digs buffers high-frequency dig count updates and flushes them
// periodically. Updates for the same player coalesce between flushes so a
// player reported many times per second costs one write per window.
package digs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultFlushInterval is the coalescing window between flushes.
const DefaultFlushInterval = 10 * time.Second

// Update is one pending dig count report. Exactly one of UUID or Nickname
// identifies the player; UUID wins when both are present.
type Update struct {
	Nickname string `json:"nickname,omitempty"`
	UUID     string `json:"uuid,omitempty"`
	Digs     int64  `json:"digs"`
}

// key returns the coalescing identity for the update.
func (u Update) key() string {
	if u.UUID != "" {
		return "uuid:" + u.UUID
	}

	return "nick:" + u.Nickname
}

// Applier persists one coalesced update.
type Applier interface {
	ApplyDigs(ctx context.Context, update Update) error
}

// Queue is the write-coalescing buffer. It exclusively owns the pending
// map; only the latest value per player survives until the next flush.
type Queue struct {
	mu       sync.Mutex
	pending  map[string]Update
	applier  Applier
	interval time.Duration
	logger   *zap.Logger

	stop chan struct{}
	done chan struct{}
}

// Option configures a Queue.
type Option func(*Queue)

// WithFlushInterval overrides the coalescing window.
func WithFlushInterval(interval time.Duration) Option {
	return func(q *Queue) {
		q.interval = interval
	}
}

// NewQueue creates a queue that persists through the given applier.
func NewQueue(applier Applier, logger *zap.Logger, opts ...Option) *Queue {
	q := &Queue{
		pending:  make(map[string]Update),
		applier:  applier,
		interval: DefaultFlushInterval,
		logger:   logger.Named("digs_queue"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Enqueue buffers a batch of updates, overwriting any pending entry for
// the same player. Returns the number of distinct players the batch
// buffered; duplicate keys within one batch coalesce and count once.
func (q *Queue) Enqueue(updates []Update) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	seen := make(map[string]struct{}, len(updates))
	for _, update := range updates {
		key := update.key()
		q.pending[key] = update
		seen[key] = struct{}{}
	}

	return len(seen)
}

// Pending returns the number of updates awaiting the next flush.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.pending)
}

// Flush swaps out the pending map and persists each entry's latest value.
// Per-entry failures are logged and skipped; ingestion is fire and forget.
func (q *Queue) Flush(ctx context.Context) {
	q.mu.Lock()
	batch := q.pending
	q.pending = make(map[string]Update)
	q.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	for key, update := range batch {
		if err := q.applier.ApplyDigs(ctx, update); err != nil {
			q.logger.Warn("Failed to apply digs update",
				zap.String("player", key),
				zap.Int64("digs", update.Digs),
				zap.Error(err))
		}
	}

	q.logger.Debug("Flushed digs updates", zap.Int("count", len(batch)))
}

// Start launches the flush loop. Stop drains one final flush before
// returning.
func (q *Queue) Start(ctx context.Context) {
	go func() {
		defer close(q.done)

		ticker := time.NewTicker(q.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				q.Flush(ctx)
			case <-q.stop:
				q.Flush(ctx)
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the flush loop after a final drain.
func (q *Queue) Stop() {
	close(q.stop)
	<-q.done
}
