package database

import (
	"github.com/triskcraft/custodian/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	token      *models.TokenModel
	inactivity *models.InactivityModel
	role       *models.RoleModel
	player     *models.PlayerModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		token:      models.NewToken(db, logger),
		inactivity: models.NewInactivity(db, logger),
		role:       models.NewRole(db, logger),
		player:     models.NewPlayer(db, logger),
	}
}

// Token returns the webhook token model repository.
func (r *Repository) Token() *models.TokenModel {
	return r.token
}

// Inactivity returns the inactivity ledger repository.
func (r *Repository) Inactivity() *models.InactivityModel {
	return r.inactivity
}

// Role returns the tracked role and statistics repository.
func (r *Repository) Role() *models.RoleModel {
	return r.role
}

// Player returns the Minecraft roster repository.
func (r *Repository) Player() *models.PlayerModel {
	return r.player
}
