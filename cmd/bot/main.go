package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/triskcraft/custodian/internal/digs"
	"github.com/triskcraft/custodian/internal/discord"
	"github.com/triskcraft/custodian/internal/mojang"
	"github.com/triskcraft/custodian/internal/roster"
	"github.com/triskcraft/custodian/internal/scheduler"
	"github.com/triskcraft/custodian/internal/setup"
	"github.com/triskcraft/custodian/internal/webhook"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx := context.Background()

	// Initialize application with required dependencies
	app, err := setup.InitializeApp(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Cleanup()

	logger := app.Logger
	cfg := app.Config
	repo := app.DB.Model()

	guildID := snowflake.ID(cfg.Discord.GuildID)

	ranks := make([]discord.RankMapping, len(cfg.Discord.Ranks))
	for i, rank := range cfg.Discord.Ranks {
		ranks[i] = discord.RankMapping{RoleID: snowflake.ID(rank.RoleID), Name: rank.Name}
	}

	// Connect to Discord
	discordClient, err := discord.NewClient(
		cfg.Discord.Token, snowflake.ID(cfg.Discord.InactivityChannelID), logger,
	)
	if err != nil {
		logger.Fatal("Failed to create Discord client", zap.Error(err))
	}

	if err := discordClient.Open(ctx); err != nil {
		logger.Fatal("Failed to connect to Discord gateway", zap.Error(err))
	}
	defer discordClient.Close(ctx)

	// Start the write-coalescing digs queue
	applier := digs.NewStoreApplier(repo.Player(), logger)
	queue := digs.NewQueue(applier, logger,
		digs.WithFlushInterval(time.Duration(cfg.Digs.FlushIntervalSeconds)*time.Second),
	)
	queue.Start(ctx)
	defer queue.Stop()

	// Start the reconciliation jobs
	jobs := scheduler.New(
		repo.Inactivity(),
		repo.Role(),
		discordClient,
		discordClient,
		guildID,
		time.Duration(cfg.Scheduler.ReminderIntervalMinutes)*time.Minute,
		logger,
	)
	jobs.Start()
	defer jobs.Stop()

	// Assemble the webhook service
	rosterCache := roster.NewCache(repo.Player(), app.Redis, logger)
	profiles := mojang.NewClient(logger)
	verifier := webhook.NewVerifier(
		repo.Token(), app.Vault, []byte(cfg.Webhook.SigningSecret), logger,
	)

	handler := webhook.NewServer(
		verifier, queue, repo.Player(), rosterCache, profiles, repo.Role(),
		discordClient, guildID, ranks, logger,
	)

	server := &http.Server{
		Addr:              cfg.Webhook.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Webhook server listening", zap.String("addr", cfg.Webhook.ListenAddr))

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Webhook server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut everything down
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Webhook server shutdown failed", zap.Error(err))
	}
}
