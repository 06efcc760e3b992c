// Package main serves the backtest API:
// - POST /api/backtest/run_scenario and run lookup/report endpoints
// - GET /ws/progress for live scenario progress
// - /health, /status and Prometheus /metrics
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/limeking/psa-next-hts-coin/internal/app"
	"github.com/limeking/psa-next-hts-coin/internal/config"
	"github.com/limeking/psa-next-hts-coin/internal/httpapi"
)

func main() {
	// Load .env file if exists
	if err := config.LoadDotEnv(); err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load .env")
	}

	configPath := flag.String("config", os.Getenv("COINLAB_CONFIG"), "YAML config file (optional)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	verbose := flag.Bool("verbose", false, "Log orchestrator phases")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	logger := cfg.Logging.NewLogger(os.Stderr).With().Str("service", "server").Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stores, cleanup, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open stores")
	}
	defer cleanup()

	hub := httpapi.NewHub(logger)
	go hub.Run(ctx)

	api := httpapi.NewServer(httpapi.Options{
		CandleStore: stores.Candles,
		Watchlists:  stores.Watchlists,
		ComboStore:  stores.Combos,
		ThemeStore:  stores.Themes,
		RunStore:    stores.Runs,
		Hub:         hub,
		Logger:      logger,
		Verbose:     *verbose || cfg.Engine.Verbose,
		MaxSymbols:  cfg.Engine.MaxSymbols,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("http server failed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("shutdown complete")
}
