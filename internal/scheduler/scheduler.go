// Package scheduler runs the periodic reconciliation jobs: expiring
// inactivity periods and sampling tracked role populations.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/triskcraft/custodian/internal/database/types"
	"github.com/triskcraft/custodian/internal/discord"
	"go.uber.org/zap"
)

// SnapshotInterval is the fixed period between role population samples.
const SnapshotInterval = 12 * time.Hour

// Ledger is the slice of the inactivity ledger the jobs consume.
type Ledger interface {
	GetExpired(ctx context.Context, guildID snowflake.ID) ([]*types.InactivityPeriod, error)
	List(ctx context.Context, guildID snowflake.ID) ([]*types.InactivityPeriod, error)
	Clear(ctx context.Context, userID snowflake.ID) error
}

// RoleStore provides tracked roles and receives population samples.
type RoleStore interface {
	ListTracked(ctx context.Context, guildID snowflake.ID) ([]snowflake.ID, error)
	AppendStatistic(ctx context.Context, stat *types.RoleStatistic) error
}

// Scheduler owns the reminder and snapshot tickers. Both jobs start and
// stop together but tick on their own goroutines, so a slow snapshot run
// never delays a reminder tick. A failing iteration is logged and the
// next tick runs independently.
type Scheduler struct {
	ledger   Ledger
	roles    RoleStore
	resolver discord.Resolver
	notifier discord.Notifier

	guildID          snowflake.ID
	reminderInterval time.Duration
	snapshotInterval time.Duration
	now              func() time.Time
	logger           *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithSnapshotInterval overrides the snapshot period.
func WithSnapshotInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		s.snapshotInterval = interval
	}
}

// New creates a scheduler for one guild.
func New(
	ledger Ledger,
	roles RoleStore,
	resolver discord.Resolver,
	notifier discord.Notifier,
	guildID snowflake.ID,
	reminderInterval time.Duration,
	logger *zap.Logger,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		ledger:           ledger,
		roles:            roles,
		resolver:         resolver,
		notifier:         notifier,
		guildID:          guildID,
		reminderInterval: reminderInterval,
		snapshotInterval: SnapshotInterval,
		now:              time.Now,
		logger:           logger.Named("scheduler"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start launches both jobs.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(2)
	go s.runJob(ctx, "reminder", s.reminderInterval, s.RunReminders)
	go s.runJob(ctx, "snapshot", s.snapshotInterval, s.CaptureSnapshots)

	s.logger.Info("Scheduler started",
		zap.Duration("reminderInterval", s.reminderInterval),
		zap.Duration("snapshotInterval", s.snapshotInterval))
}

func (s *Scheduler) runJob(
	ctx context.Context, name string, interval time.Duration, job func(context.Context) error,
) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := job(ctx); err != nil {
				s.logger.Error("Job failed",
					zap.String("job", name),
					zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels both tickers. An in-flight iteration runs to completion.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}

	s.cancel()
	s.wg.Wait()

	s.logger.Info("Scheduler stopped")
}
