// Package main imports parquet candle files into ClickHouse. Migrations
// are applied before the first insert; symbols already present in
// ClickHouse are skipped.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/limeking/psa-next-hts-coin/internal/config"
	"github.com/limeking/psa-next-hts-coin/internal/normalization"
	"github.com/limeking/psa-next-hts-coin/internal/observability"
	chstore "github.com/limeking/psa-next-hts-coin/internal/storage/clickhouse"
	"github.com/limeking/psa-next-hts-coin/internal/storage/migrations"
	"github.com/limeking/psa-next-hts-coin/internal/storage/parquet"
)

func main() {
	// Load .env file if exists
	if err := config.LoadDotEnv(); err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load .env")
	}

	// Parse flags
	configPath := flag.String("config", os.Getenv("COINLAB_CONFIG"), "YAML config file (optional)")
	dataDir := flag.String("data-dir", "", "Parquet data directory (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	timeframes := flag.String("timeframes", "1d", "Comma-separated timeframes to import")
	fromTime := flag.String("from-time", "", "Import bars at or after this time (RFC3339)")
	toTime := flag.String("to-time", "", "Import bars at or before this time (RFC3339)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}
	if *clickhouseDSN != "" {
		cfg.Storage.ClickHouseDSN = *clickhouseDSN
	}
	logger := cfg.Logging.NewLogger(os.Stderr).With().Str("service", "ingest").Logger()

	if cfg.Storage.ClickHouseDSN == "" {
		logger.Fatal().Msg("--clickhouse-dsn or CLICKHOUSE_DSN is required")
	}
	start, err := parseTime(*fromTime)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid --from-time")
	}
	end, err := parseTime(*toTime)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid --to-time")
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Info().Str("addr", *metricsAddr).Msg("starting metrics server")
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickHouseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("clickhouse migrations")
	}
	defer conn.Close()

	runner := normalization.NewRunner(
		parquet.NewCandleStore(cfg.Storage.DataDir),
		chstore.NewCandleStore(conn),
		logger,
	)

	failed := false
	for _, tf := range strings.Split(*timeframes, ",") {
		tf = strings.TrimSpace(tf)
		if tf == "" {
			continue
		}
		res, err := runner.Copy(ctx, tf, start, end)
		if err != nil {
			logger.Error().Err(err).Str("tf", tf).Msg("import aborted")
			failed = true
			break
		}
		logger.Info().
			Str("tf", tf).
			Int("symbols", res.Symbols).
			Int("candles", res.Candles).
			Int("skipped", res.Skipped).
			Int("failures", len(res.Failures)).
			Msg("import finished")
		if len(res.Failures) > 0 {
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
}

// parseTime converts an RFC3339 flag into unix seconds. Empty means 0.
func parseTime(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
