package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/triskcraft/custodian/internal/database/types"
	"github.com/triskcraft/custodian/internal/discord"
	"github.com/triskcraft/custodian/internal/scheduler"
	"go.uber.org/zap"
)

const testGuildID = snowflake.ID(9000)

type fakeLedger struct {
	mu      sync.Mutex
	expired []*types.InactivityPeriod
	all     []*types.InactivityPeriod
	cleared []snowflake.ID
}

func (f *fakeLedger) GetExpired(_ context.Context, _ snowflake.ID) ([]*types.InactivityPeriod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.expired, nil
}

func (f *fakeLedger) List(_ context.Context, _ snowflake.ID) ([]*types.InactivityPeriod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.all, nil
}

func (f *fakeLedger) Clear(_ context.Context, userID snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cleared = append(f.cleared, userID)

	return nil
}

func (f *fakeLedger) clearedIDs() []snowflake.ID {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]snowflake.ID(nil), f.cleared...)
}

type fakeRoleStore struct {
	mu      sync.Mutex
	tracked []snowflake.ID
	stats   []*types.RoleStatistic
}

func (f *fakeRoleStore) ListTracked(_ context.Context, _ snowflake.ID) ([]snowflake.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.tracked, nil
}

// AppendStatistic is called from the snapshot fan-out, one goroutine per role.
func (f *fakeRoleStore) AppendStatistic(_ context.Context, stat *types.RoleStatistic) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stats = append(f.stats, stat)

	return nil
}

func (f *fakeRoleStore) statistics() []*types.RoleStatistic {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*types.RoleStatistic(nil), f.stats...)
}

type fakeResolver struct {
	members     map[snowflake.ID]*discord.Member
	roleMembers map[snowflake.ID][]discord.Member
}

func (f *fakeResolver) Member(_ context.Context, _, userID snowflake.ID) (*discord.Member, error) {
	member, ok := f.members[userID]
	if !ok {
		return nil, errors.New("unknown member")
	}
	return member, nil
}

func (f *fakeResolver) MembersWithRole(_ context.Context, _, roleID snowflake.ID) ([]discord.Member, error) {
	return f.roleMembers[roleID], nil
}

type fakeNotifier struct {
	announcements []string
	dms           map[snowflake.ID][]string
	announceErr   error
	dmErr         error
}

func (f *fakeNotifier) Announce(_ context.Context, content string) error {
	if f.announceErr != nil {
		return f.announceErr
	}
	f.announcements = append(f.announcements, content)
	return nil
}

func (f *fakeNotifier) DirectMessage(_ context.Context, userID snowflake.ID, content string) error {
	if f.dmErr != nil {
		return f.dmErr
	}
	if f.dms == nil {
		f.dms = make(map[snowflake.ID][]string)
	}
	f.dms[userID] = append(f.dms[userID], content)
	return nil
}

func expiredRecord(userID snowflake.ID) *types.InactivityPeriod {
	return &types.InactivityPeriod{
		UserID:    userID,
		GuildID:   testGuildID,
		StartedAt: time.Now().Add(-48 * time.Hour),
		EndsAt:    time.Now().Add(-time.Hour),
		Source:    "discord",
	}
}

func TestRunReminders(t *testing.T) {
	t.Parallel()

	t.Run("expired member gets notice, DM and clear", func(t *testing.T) {
		t.Parallel()

		userID := snowflake.ID(100)
		ledger := &fakeLedger{expired: []*types.InactivityPeriod{expiredRecord(userID)}}
		resolver := &fakeResolver{members: map[snowflake.ID]*discord.Member{
			userID: {UserID: userID, Username: "steve"},
		}}
		notifier := &fakeNotifier{}

		s := scheduler.New(ledger, &fakeRoleStore{}, resolver, notifier, testGuildID, time.Minute, zap.NewNop())
		require.NoError(t, s.RunReminders(context.Background()))

		require.Len(t, notifier.announcements, 1)
		assert.Contains(t, notifier.announcements[0], "<@100>")
		assert.Len(t, notifier.dms[userID], 1)
		assert.Equal(t, []snowflake.ID{userID}, ledger.cleared)
	})

	t.Run("unresolvable member is still cleared", func(t *testing.T) {
		t.Parallel()

		userID := snowflake.ID(200)
		ledger := &fakeLedger{expired: []*types.InactivityPeriod{expiredRecord(userID)}}
		resolver := &fakeResolver{members: map[snowflake.ID]*discord.Member{}}
		notifier := &fakeNotifier{}

		s := scheduler.New(ledger, &fakeRoleStore{}, resolver, notifier, testGuildID, time.Minute, zap.NewNop())
		require.NoError(t, s.RunReminders(context.Background()))

		assert.Empty(t, notifier.announcements)
		assert.Equal(t, []snowflake.ID{userID}, ledger.cleared)
	})

	t.Run("notification failures do not block clearing", func(t *testing.T) {
		t.Parallel()

		userID := snowflake.ID(300)
		ledger := &fakeLedger{expired: []*types.InactivityPeriod{expiredRecord(userID)}}
		resolver := &fakeResolver{members: map[snowflake.ID]*discord.Member{
			userID: {UserID: userID, Username: "alex"},
		}}
		notifier := &fakeNotifier{
			announceErr: errors.New("channel gone"),
			dmErr:       errors.New("dms closed"),
		}

		s := scheduler.New(ledger, &fakeRoleStore{}, resolver, notifier, testGuildID, time.Minute, zap.NewNop())
		require.NoError(t, s.RunReminders(context.Background()))

		assert.Equal(t, []snowflake.ID{userID}, ledger.cleared)
	})

	t.Run("no expired records is a no-op", func(t *testing.T) {
		t.Parallel()

		ledger := &fakeLedger{}
		notifier := &fakeNotifier{}

		s := scheduler.New(ledger, &fakeRoleStore{}, &fakeResolver{}, notifier, testGuildID, time.Minute, zap.NewNop())
		require.NoError(t, s.RunReminders(context.Background()))

		assert.Empty(t, notifier.announcements)
		assert.Empty(t, ledger.cleared)
	})
}

func TestCaptureSnapshots(t *testing.T) {
	t.Parallel()

	t.Run("partitions members into inactive and active", func(t *testing.T) {
		t.Parallel()

		roleID := snowflake.ID(42)
		inactiveUser := snowflake.ID(1)

		ledger := &fakeLedger{all: []*types.InactivityPeriod{
			{UserID: inactiveUser, GuildID: testGuildID},
		}}
		roles := &fakeRoleStore{tracked: []snowflake.ID{roleID}}
		resolver := &fakeResolver{roleMembers: map[snowflake.ID][]discord.Member{
			roleID: {
				{UserID: inactiveUser},
				{UserID: snowflake.ID(2)},
				{UserID: snowflake.ID(3)},
			},
		}}

		s := scheduler.New(ledger, roles, resolver, &fakeNotifier{}, testGuildID, time.Minute, zap.NewNop())
		require.NoError(t, s.CaptureSnapshots(context.Background()))

		require.Len(t, roles.stats, 1)
		stat := roles.stats[0]
		assert.Equal(t, roleID, stat.RoleID)
		assert.Equal(t, 1, stat.InactiveCount)
		assert.Equal(t, 2, stat.ActiveCount)
		assert.False(t, stat.CapturedAt.IsZero())
	})

	t.Run("captures every tracked role", func(t *testing.T) {
		t.Parallel()

		roleA := snowflake.ID(10)
		roleB := snowflake.ID(20)

		roles := &fakeRoleStore{tracked: []snowflake.ID{roleA, roleB}}
		resolver := &fakeResolver{roleMembers: map[snowflake.ID][]discord.Member{
			roleA: {{UserID: snowflake.ID(1)}},
			roleB: {},
		}}

		s := scheduler.New(&fakeLedger{}, roles, resolver, &fakeNotifier{}, testGuildID, time.Minute, zap.NewNop())
		require.NoError(t, s.CaptureSnapshots(context.Background()))

		assert.Len(t, roles.stats, 2)
	})

	t.Run("no tracked roles is a no-op", func(t *testing.T) {
		t.Parallel()

		roles := &fakeRoleStore{}

		s := scheduler.New(&fakeLedger{}, roles, &fakeResolver{}, &fakeNotifier{}, testGuildID, time.Minute, zap.NewNop())
		require.NoError(t, s.CaptureSnapshots(context.Background()))

		assert.Empty(t, roles.stats)
	})
}

// stallingResolver reports when a member listing starts and then blocks
// until released, standing in for a snapshot run that pages a large guild.
type stallingResolver struct {
	members map[snowflake.ID]*discord.Member
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *stallingResolver) Member(_ context.Context, _, userID snowflake.ID) (*discord.Member, error) {
	member, ok := r.members[userID]
	if !ok {
		return nil, errors.New("unknown member")
	}
	return member, nil
}

func (r *stallingResolver) MembersWithRole(ctx context.Context, _, _ snowflake.ID) ([]discord.Member, error) {
	r.once.Do(func() { close(r.started) })

	select {
	case <-r.release:
	case <-ctx.Done():
	}

	return nil, nil
}

func TestJobsTickIndependently(t *testing.T) {
	t.Parallel()

	userID := snowflake.ID(400)
	ledger := &fakeLedger{expired: []*types.InactivityPeriod{expiredRecord(userID)}}
	roles := &fakeRoleStore{tracked: []snowflake.ID{snowflake.ID(42)}}
	resolver := &stallingResolver{
		members: map[snowflake.ID]*discord.Member{
			userID: {UserID: userID, Username: "steve"},
		},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}

	s := scheduler.New(ledger, roles, resolver, &fakeNotifier{}, testGuildID, 10*time.Millisecond, zap.NewNop(),
		scheduler.WithSnapshotInterval(10*time.Millisecond))
	s.Start()

	// Wait until a snapshot run is stuck inside the member listing.
	select {
	case <-resolver.started:
	case <-time.After(5 * time.Second):
		t.Fatal("snapshot job never started")
	}

	// The reminder job must still make progress while the snapshot stalls.
	deadline := time.Now().Add(5 * time.Second)
	for len(ledger.clearedIDs()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("reminder job made no progress while snapshot was stalled")
		}

		time.Sleep(5 * time.Millisecond)
	}

	close(resolver.release)
	s.Stop()

	assert.Contains(t, ledger.clearedIDs(), userID)
}

func TestRenderRoleTrend(t *testing.T) {
	t.Parallel()

	t.Run("renders a PNG from samples", func(t *testing.T) {
		t.Parallel()

		base := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
		stats := []*types.RoleStatistic{
			{GuildID: testGuildID, RoleID: 42, InactiveCount: 1, ActiveCount: 9, CapturedAt: base},
			{GuildID: testGuildID, RoleID: 42, InactiveCount: 2, ActiveCount: 8, CapturedAt: base.Add(12 * time.Hour)},
			{GuildID: testGuildID, RoleID: 42, InactiveCount: 0, ActiveCount: 10, CapturedAt: base.Add(24 * time.Hour)},
		}

		buf, err := scheduler.RenderRoleTrend("Builder activity", stats)
		require.NoError(t, err)
		assert.NotZero(t, buf.Len())
	})

	t.Run("rejects a single sample", func(t *testing.T) {
		t.Parallel()

		stats := []*types.RoleStatistic{{GuildID: testGuildID, RoleID: 42}}

		_, err := scheduler.RenderRoleTrend("Builder activity", stats)
		require.ErrorIs(t, err, scheduler.ErrNotEnoughSamples)
	})
}
