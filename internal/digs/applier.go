package digs

import (
	"context"
	"errors"

	"github.com/triskcraft/custodian/internal/database/types"
	"go.uber.org/zap"
)

// Writer persists one dig count, addressing the player by UUID when
// available and by nickname otherwise.
type Writer interface {
	UpdateDigs(ctx context.Context, uuid, nickname string, digs int64) error
}

// StoreApplier persists coalesced updates into the roster store. Reports
// for players that never linked are dropped; the game server sends the
// whole scoreboard, not just linked accounts.
type StoreApplier struct {
	players Writer
	logger  *zap.Logger
}

// NewStoreApplier creates an applier backed by the roster store.
func NewStoreApplier(players Writer, logger *zap.Logger) *StoreApplier {
	return &StoreApplier{
		players: players,
		logger:  logger.Named("digs_applier"),
	}
}

// ApplyDigs persists one update.
func (a *StoreApplier) ApplyDigs(ctx context.Context, update Update) error {
	err := a.players.UpdateDigs(ctx, update.UUID, update.Nickname, update.Digs)
	if err != nil {
		if errors.Is(err, types.ErrPlayerNotFound) {
			a.logger.Debug("Dropping digs for unlinked player",
				zap.String("uuid", update.UUID),
				zap.String("nickname", update.Nickname))

			return nil
		}

		return err
	}

	return nil
}
