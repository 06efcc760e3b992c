// Package main runs one scenario request file against the configured
// candle store and prints the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/limeking/psa-next-hts-coin/internal/app"
	"github.com/limeking/psa-next-hts-coin/internal/config"
	"github.com/limeking/psa-next-hts-coin/internal/idhash"
	"github.com/limeking/psa-next-hts-coin/internal/orchestrator"
	"github.com/limeking/psa-next-hts-coin/internal/reporting"
	"github.com/limeking/psa-next-hts-coin/internal/symbols"
)

func main() {
	// Load .env file if exists
	if err := config.LoadDotEnv(); err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load .env")
	}

	// Parse flags
	requestPath := flag.String("request", "", "Scenario request file, JSON or YAML (required)")
	configPath := flag.String("config", os.Getenv("COINLAB_CONFIG"), "YAML config file (optional)")
	backend := flag.String("backend", "", "Candle backend: memory, parquet, clickhouse (overrides config)")
	dataDir := flag.String("data-dir", "", "Parquet data directory (overrides config)")
	symbolList := flag.String("symbols", "", "Comma-separated symbols (overrides request scope)")
	persist := flag.Bool("persist", false, "Persist the run to PostgreSQL")
	outputJSON := flag.Bool("json", false, "Output the result tree as JSON instead of Markdown")
	verbose := flag.Bool("verbose", false, "Log orchestrator phases")
	flag.Parse()

	// Setup config and logger
	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	if *backend != "" {
		cfg.Storage.CandleBackend = *backend
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}
	logger := cfg.Logging.NewLogger(os.Stderr).With().Str("service", "backtest").Logger()

	// Validate required flags
	if *requestPath == "" {
		logger.Fatal().Msg("--request is required")
	}
	if *persist && cfg.Storage.PostgresDSN == "" {
		logger.Fatal().Msg("--persist requires POSTGRES_DSN or storage.postgres_dsn")
	}
	if !*persist {
		cfg.Storage.PostgresDSN = ""
	}

	req, body, err := readRequest(*requestPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("read request")
	}
	if err := req.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid request")
	}

	// Create context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stores, cleanup, err := app.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open stores")
	}
	defer cleanup()

	// Resolve symbols
	var syms []string
	if *symbolList != "" {
		syms = symbols.Dedup(strings.Split(*symbolList, ","))
	} else {
		syms, err = symbols.NewResolver(stores.Watchlists, logger).Resolve(ctx, req.Scope, req.WatchlistName, req.Symbols)
		if err != nil {
			logger.Fatal().Err(err).Msg("resolve symbols")
		}
	}
	if cfg.Engine.MaxSymbols > 0 && len(syms) > cfg.Engine.MaxSymbols {
		syms = syms[:cfg.Engine.MaxSymbols]
	}
	if len(syms) == 0 {
		logger.Fatal().Msg("no symbols to run")
	}

	now := time.Now().UTC()
	runID := idhash.ComputeRunID(body, now.UnixMilli())
	sc := req.Build(syms, now)

	logger.Info().
		Str("run_id", runID).
		Int("steps", len(sc.Steps)).
		Int("symbols", len(sc.Symbols)).
		Str("chain", sc.ChainMode).
		Msg("running scenario")

	orch := orchestrator.New(orchestrator.Options{
		CandleStore: stores.Candles,
		ComboStore:  stores.Combos,
		ThemeStore:  stores.Themes,
		Logger:      &logger,
		Verbose:     *verbose || cfg.Engine.Verbose,
	})
	res, err := orch.Run(ctx, sc)
	if err != nil {
		logger.Fatal().Err(err).Msg("scenario failed")
	}
	res.RunID = runID

	run := orchestrator.NewScenarioRun(runID, now.UnixMilli(), body, res)
	if err := stores.Runs.Insert(ctx, run, orchestrator.Flatten(runID, res)); err != nil {
		logger.Fatal().Err(err).Msg("store run")
	}

	// Output result
	if *outputJSON {
		output, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			logger.Fatal().Err(err).Msg("encode result")
		}
		fmt.Println(string(output))
		return
	}

	report, err := reporting.NewGenerator(stores.Runs).Generate(ctx, runID)
	if err != nil {
		logger.Fatal().Err(err).Msg("generate report")
	}
	fmt.Print(reporting.RenderMarkdown(report))
}

// readRequest decodes a request file by extension (.yaml/.yml or JSON)
// and returns it with its canonical JSON encoding.
func readRequest(path string) (*orchestrator.Request, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var req orchestrator.Request
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &req); err != nil {
			return nil, nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, nil, fmt.Errorf("encode request: %w", err)
	}
	return &req, body, nil
}
