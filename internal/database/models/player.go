package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/triskcraft/custodian/internal/database/dbretry"
	"github.com/triskcraft/custodian/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// PlayerModel handles database operations for the Minecraft roster.
type PlayerModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewPlayer creates a new player model.
func NewPlayer(db *bun.DB, logger *zap.Logger) *PlayerModel {
	return &PlayerModel{
		db:     db,
		logger: logger.Named("db_player"),
	}
}

// GetByUUID retrieves a player by Mojang UUID.
func (m *PlayerModel) GetByUUID(ctx context.Context, uuid string) (*types.Player, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Player, error) {
		player := new(types.Player)

		err := m.db.NewSelect().
			Model(player).
			Where("uuid = ?", uuid).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrPlayerNotFound
			}

			return nil, fmt.Errorf("failed to get player: %w", err)
		}

		return player, nil
	})
}

// List returns the full roster ordered by nickname.
func (m *PlayerModel) List(ctx context.Context) ([]*types.Player, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Player, error) {
		var players []*types.Player

		err := m.db.NewSelect().
			Model(&players).
			Order("nickname ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list players: %w", err)
		}

		return players, nil
	})
}

// UpdateDigs sets a player's dig count, addressing the row by UUID when
// available and by nickname otherwise. An unknown player surfaces as
// types.ErrPlayerNotFound.
func (m *PlayerModel) UpdateDigs(ctx context.Context, uuid, nickname string, digs int64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		query := m.db.NewUpdate().
			Model((*types.Player)(nil)).
			Set("digs = ?", digs)

		if uuid != "" {
			query = query.Where("uuid = ?", uuid)
		} else {
			query = query.Where("nickname = ?", nickname)
		}

		result, err := query.Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update digs: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}

		if affected == 0 {
			return types.ErrPlayerNotFound
		}

		return nil
	})
}

// GetLinkCode retrieves a pending link code.
func (m *PlayerModel) GetLinkCode(ctx context.Context, code string) (*types.LinkCode, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.LinkCode, error) {
		linkCode := new(types.LinkCode)

		err := m.db.NewSelect().
			Model(linkCode).
			Where("code = ?", code).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrLinkCodeNotFound
			}

			return nil, fmt.Errorf("failed to get link code: %w", err)
		}

		return linkCode, nil
	})
}

// CreateLinkCode stores a pending link code for a Discord user.
func (m *PlayerModel) CreateLinkCode(ctx context.Context, code *types.LinkCode) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(code).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create link code: %w", err)
		}

		return nil
	})
}

// Link upserts the player row for a Minecraft account and consumes the
// link code in the same transaction. Both succeed or both fail.
func (m *PlayerModel) Link(
	ctx context.Context, code string, uuid, nickname string, userID snowflake.ID, rank string,
) (*types.Player, error) {
	player := &types.Player{
		UUID:     uuid,
		Nickname: nickname,
		UserID:   userID,
		Rank:     rank,
	}

	err := dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(player).
			On("CONFLICT (uuid) DO UPDATE").
			Set("nickname = EXCLUDED.nickname").
			Set("user_id = EXCLUDED.user_id").
			Set("rank = EXCLUDED.rank").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert player: %w", err)
		}

		result, err := tx.NewDelete().
			Model((*types.LinkCode)(nil)).
			Where("code = ?", code).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to consume link code: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}

		// A concurrent link attempt already consumed the code
		if affected == 0 {
			return types.ErrLinkCodeNotFound
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("Linked player",
		zap.String("uuid", uuid),
		zap.String("nickname", nickname),
		zap.Uint64("userID", uint64(userID)))

	return player, nil
}
