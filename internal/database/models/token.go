package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/triskcraft/custodian/internal/database/dbretry"
	"github.com/triskcraft/custodian/internal/database/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"
)

// TokenModel handles database operations for webhook tokens.
type TokenModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewToken creates a new token model.
func NewToken(db *bun.DB, logger *zap.Logger) *TokenModel {
	return &TokenModel{
		db:     db,
		logger: logger.Named("db_token"),
	}
}

// Create persists a newly issued webhook token. The token name is unique;
// a conflict surfaces as types.ErrTokenNameTaken.
func (m *TokenModel) Create(ctx context.Context, token *types.WebhookToken) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(token).
			Exec(ctx)
		if err != nil {
			var pgerr *pgdriver.Error
			if errors.As(err, &pgerr) && pgerr.Field('C') == "23505" {
				return types.ErrTokenNameTaken
			}

			return fmt.Errorf("failed to create webhook token: %w", err)
		}

		return nil
	})
}

// GetByID retrieves a webhook token by its identifier.
func (m *TokenModel) GetByID(ctx context.Context, id string) (*types.WebhookToken, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.WebhookToken, error) {
		token := new(types.WebhookToken)

		err := m.db.NewSelect().
			Model(token).
			Where("id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrTokenNotFound
			}

			return nil, fmt.Errorf("failed to get webhook token: %w", err)
		}

		return token, nil
	})
}

// Delete removes a webhook token by its identifier.
func (m *TokenModel) Delete(ctx context.Context, id string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewDelete().
			Model((*types.WebhookToken)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete webhook token: %w", err)
		}

		return nil
	})
}

// List returns all issued tokens, newest first.
func (m *TokenModel) List(ctx context.Context) ([]*types.WebhookToken, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.WebhookToken, error) {
		var tokens []*types.WebhookToken

		err := m.db.NewSelect().
			Model(&tokens).
			Order("created_at DESC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list webhook tokens: %w", err)
		}

		return tokens, nil
	})
}
