package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"investorportal/internal/config"
	"investorportal/internal/database"
	"investorportal/internal/logger"
	"investorportal/internal/outbox"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Relay error: %v", err)
	}
}

func run() error {
	log := logger.Named("relay")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() { _ = dbManager.Close() }()

	producer := outbox.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer func() {
		if err := producer.Close(); err != nil {
			log.Warnw("kafka writer close failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infow("outbox relay started",
		"brokers", cfg.KafkaBrokers,
		"topic", cfg.KafkaTopic,
		"interval", cfg.OutboxPollInterval.String(),
		"batch_size", cfg.OutboxBatchSize,
		"max_attempts", cfg.OutboxMaxAttempts,
	)
	relay := outbox.NewRelay(dbManager.DB(), producer, cfg.OutboxBatchSize, cfg.OutboxPollInterval).
		WithMaxAttempts(cfg.OutboxMaxAttempts)
	if err := relay.Run(ctx); err != nil {
		return err
	}
	log.Info("outbox relay stopped")
	return nil
}
