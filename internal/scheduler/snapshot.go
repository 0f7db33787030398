package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sourcegraph/conc/pool"
	"github.com/triskcraft/custodian/internal/database/types"
	"go.uber.org/zap"
)

// CaptureSnapshots appends one population sample per tracked role:
// members carrying the role are partitioned into inactive and active
// using the current ledger contents. Samples are append-only; re-running
// within an interval simply produces extra data points.
func (s *Scheduler) CaptureSnapshots(ctx context.Context) error {
	trackedRoles, err := s.roles.ListTracked(ctx, s.guildID)
	if err != nil {
		return fmt.Errorf("failed to list tracked roles: %w", err)
	}

	if len(trackedRoles) == 0 {
		return nil
	}

	records, err := s.ledger.List(ctx, s.guildID)
	if err != nil {
		return fmt.Errorf("failed to list inactivities: %w", err)
	}

	inactive := make(map[snowflake.ID]struct{}, len(records))
	for _, record := range records {
		inactive[record.UserID] = struct{}{}
	}

	capturedAt := s.now()

	p := pool.New().WithContext(ctx)
	for _, roleID := range trackedRoles {
		p.Go(func(ctx context.Context) error {
			if err := s.captureRole(ctx, roleID, inactive, capturedAt); err != nil {
				// One failing role must not drop the other samples
				s.logger.Error("Failed to capture role snapshot",
					zap.Uint64("roleID", uint64(roleID)),
					zap.Error(err))
			}

			return nil
		})
	}

	return p.Wait()
}

func (s *Scheduler) captureRole(
	ctx context.Context, roleID snowflake.ID, inactive map[snowflake.ID]struct{}, capturedAt time.Time,
) error {
	members, err := s.resolver.MembersWithRole(ctx, s.guildID, roleID)
	if err != nil {
		return fmt.Errorf("failed to list members with role: %w", err)
	}

	inactiveCount := 0
	for _, member := range members {
		if _, ok := inactive[member.UserID]; ok {
			inactiveCount++
		}
	}

	stat := &types.RoleStatistic{
		GuildID:       s.guildID,
		RoleID:        roleID,
		InactiveCount: inactiveCount,
		ActiveCount:   len(members) - inactiveCount,
		CapturedAt:    capturedAt,
	}

	if err := s.roles.AppendStatistic(ctx, stat); err != nil {
		return fmt.Errorf("failed to append statistic: %w", err)
	}

	s.logger.Debug("Captured role snapshot",
		zap.Uint64("roleID", uint64(roleID)),
		zap.Int("inactive", inactiveCount),
		zap.Int("active", stat.ActiveCount))

	return nil
}
