// Package setup initializes the shared application components in
// dependency order and tears them down in reverse.
package setup

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/rueidis"
	"github.com/triskcraft/custodian/internal/database"
	"github.com/triskcraft/custodian/internal/setup/config"
	"github.com/triskcraft/custodian/internal/vault"
	"go.uber.org/zap"
)

// App contains the shared components every entrypoint needs.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     database.Client
	Redis  rueidis.Client
	Vault  *vault.Vault
}

// InitializeApp loads configuration and connects the backing services.
func InitializeApp(ctx context.Context) (*App, error) {
	cfg, configPath, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Debug.LogLevel)
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded configuration", zap.String("path", configPath))

	db, err := database.NewConnection(ctx, &cfg.PostgreSQL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)},
		Username:    cfg.Redis.Username,
		Password:    cfg.Redis.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	encryptKey, err := cfg.Webhook.DecodedEncryptKey()
	if err != nil {
		return nil, err
	}

	v, err := vault.New(encryptKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vault: %w", err)
	}

	return &App{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Redis:  redisClient,
		Vault:  v,
	}, nil
}

// Cleanup releases the components in reverse initialization order.
func (a *App) Cleanup() {
	a.Redis.Close()

	if err := a.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	if err := a.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}
}
