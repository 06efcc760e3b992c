// Package main renders a stored scenario run from PostgreSQL into a
// Markdown report and CSV ledgers.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/limeking/psa-next-hts-coin/internal/config"
	pgstore "github.com/limeking/psa-next-hts-coin/internal/storage/postgres"
	"github.com/limeking/psa-next-hts-coin/internal/reporting"
)

func main() {
	// Load .env file if exists
	if err := config.LoadDotEnv(); err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load .env")
	}

	// Parse flags
	runID := flag.String("run-id", "", "Run ID to render (default: latest run)")
	outputDir := flag.String("output-dir", "docs", "Output directory for generated files")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	flag.Parse()

	logger := config.Logging{Level: os.Getenv("LOG_LEVEL"), Format: "console"}.
		NewLogger(os.Stderr).With().Str("service", "report").Logger()

	if *postgresDSN == "" {
		logger.Fatal().Msg("--postgres-dsn or POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()
	runStore := pgstore.NewScenarioRunStore(pool)

	id := *runID
	if id == "" {
		runs, err := runStore.List(ctx, 1)
		if err != nil {
			logger.Fatal().Err(err).Msg("list runs")
		}
		if len(runs) == 0 {
			logger.Fatal().Msg("no stored runs")
		}
		id = runs[0].RunID
	}

	report, err := reporting.NewGenerator(runStore).Generate(ctx, id)
	if err != nil {
		logger.Fatal().Err(err).Str("run_id", id).Msg("generate report")
	}
	trades, err := runStore.GetTrades(ctx, id)
	if err != nil {
		logger.Fatal().Err(err).Str("run_id", id).Msg("load trades")
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Fatal().Err(err).Msg("create output dir")
	}

	files := map[string]string{
		fmt.Sprintf("REPORT_%s.md", id):          reporting.RenderMarkdown(report),
		fmt.Sprintf("trades_%s.csv", id):         reporting.RenderTradesCSV(trades),
		fmt.Sprintf("profile_metrics_%s.csv", id): reporting.RenderProfileMetricsCSV(report.ProfileMetrics),
	}
	for name, content := range files {
		path := filepath.Join(*outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			logger.Fatal().Err(err).Str("path", path).Msg("write file")
		}
		logger.Info().Str("path", path).Msg("written")
	}
}
