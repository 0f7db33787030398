package scheduler

import (
	"context"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// RunReminders processes expired inactivity periods: the member gets a
// public notice and a best-effort DM, then the record is cleared. Expiry
// processing is cleanup, not delivery: notification failures are logged
// and the record is cleared anyway so no row can get stuck.
func (s *Scheduler) RunReminders(ctx context.Context) error {
	expired, err := s.ledger.GetExpired(ctx, s.guildID)
	if err != nil {
		return fmt.Errorf("failed to get expired inactivities: %w", err)
	}

	if len(expired) == 0 {
		return nil
	}

	for _, record := range expired {
		member, err := s.resolver.Member(ctx, s.guildID, record.UserID)
		if err != nil {
			s.logger.Warn("Could not resolve expired member, clearing anyway",
				zap.Uint64("userID", uint64(record.UserID)),
				zap.Error(err))
			s.clear(ctx, record.UserID)

			continue
		}

		notice := fmt.Sprintf(
			"<@%d>, your inactivity period has ended. You have been marked as active again.",
			member.UserID,
		)
		if err := s.notifier.Announce(ctx, notice); err != nil {
			s.logger.Warn("Failed to post expiry notice",
				zap.Uint64("userID", uint64(record.UserID)),
				zap.Error(err))
		}

		// DMs can be disabled per user; failure is expected
		dm := "Hello! Your inactivity period on **TriskCraftSMP** has ended and you can participate again."
		if err := s.notifier.DirectMessage(ctx, member.UserID, dm); err != nil {
			s.logger.Debug("Failed to DM member",
				zap.Uint64("userID", uint64(record.UserID)),
				zap.Error(err))
		}

		s.clear(ctx, record.UserID)

		s.logger.Info("Processed expired inactivity",
			zap.Uint64("userID", uint64(record.UserID)),
			zap.String("username", member.Username))
	}

	return nil
}

func (s *Scheduler) clear(ctx context.Context, userID snowflake.ID) {
	if err := s.ledger.Clear(ctx, userID); err != nil {
		s.logger.Error("Failed to clear inactivity",
			zap.Uint64("userID", uint64(userID)),
			zap.Error(err))
	}
}
