package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"investorportal/internal/client"
	"investorportal/internal/config"
	"investorportal/internal/logger"
	"investorportal/internal/oracle"
	"investorportal/internal/provider"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()
	log := logger.Named("oracle")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if cfg.PipelineAPIKey == "" {
		fmt.Fprintln(os.Stderr, "configuration error: PIPELINE_API_KEY is required")
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	portal := client.NewPortalClient(cfg.PortalAPIURL, cfg.PipelineAPIKey, httpClient)
	providers := []provider.Provider{
		provider.NewYahooProvider(httpClient),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orc := oracle.NewOracle(portal, providers, log)
	result, err := orc.Run(ctx)
	if err != nil {
		log.Errorw("oracle run failed", "error", err)
		logger.Sync()
		os.Exit(1)
	}

	log.Infow("oracle run completed",
		"targets_fetched", result.TargetsFetched,
		"prices_recorded", result.PricesRecorded,
		"errors", len(result.Errors),
		"rejected", len(result.Rejected),
		"duration", result.Duration.String(),
	)

	for _, fetchErr := range result.Errors {
		log.Warnw("price fetch failed",
			"ticker", fetchErr.Ticker,
			"position_id", fetchErr.PositionID,
			"error", fetchErr.Err.Error(),
		)
	}
	for _, rej := range result.Rejected {
		log.Warnw("price rejected",
			"position_id", rej.PositionID,
			"code", rej.Code,
			"message", rej.Message,
		)
	}

	if result.Failed() {
		logger.Sync()
		os.Exit(2)
	}
}
