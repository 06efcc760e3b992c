// Package app wires configured storage backends into the store
// interfaces used by the commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/limeking/psa-next-hts-coin/internal/config"
	"github.com/limeking/psa-next-hts-coin/internal/storage"
	chstore "github.com/limeking/psa-next-hts-coin/internal/storage/clickhouse"
	"github.com/limeking/psa-next-hts-coin/internal/storage/memory"
	"github.com/limeking/psa-next-hts-coin/internal/storage/migrations"
	"github.com/limeking/psa-next-hts-coin/internal/storage/parquet"
	pgstore "github.com/limeking/psa-next-hts-coin/internal/storage/postgres"
	"github.com/limeking/psa-next-hts-coin/internal/storage/sqlite"
)

// ErrMissingDSN is returned when a backend is selected without its DSN.
var ErrMissingDSN = errors.New("missing DSN")

// Stores holds every store a scenario run needs.
type Stores struct {
	Candles    storage.CandleStore
	Combos     storage.ComboStore
	Watchlists storage.WatchlistStore
	Themes     storage.ThemeStore
	Runs       storage.ScenarioRunStore
}

// OpenStores creates the stores selected by cfg:
//   - candles: memory, parquet (DataDir) or clickhouse (migrations applied)
//   - catalog: sqlite when SQLitePath is set, memory otherwise
//   - runs: postgres when PostgresDSN is set (migrations applied), memory otherwise
//
// The returned cleanup closes every opened connection.
func OpenStores(ctx context.Context, cfg config.Storage, logger zerolog.Logger) (*Stores, func(), error) {
	log := logger.With().Str("component", "stores").Logger()
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	stores := &Stores{}

	// Candles
	switch cfg.CandleBackend {
	case config.BackendMemory:
		stores.Candles = memory.NewCandleStore()
	case config.BackendClickHouse:
		if cfg.ClickHouseDSN == "" {
			return nil, nil, fmt.Errorf("clickhouse candle backend: %w", ErrMissingDSN)
		}
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		stores.Candles = chstore.NewCandleStore(conn)
	default:
		stores.Candles = parquet.NewCandleStore(cfg.DataDir)
	}
	log.Info().Str("backend", cfg.CandleBackend).Msg("candle store ready")

	// Catalog
	if cfg.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("create catalog dir: %w", err)
		}
		cat, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { cat.Close() })
		stores.Combos, stores.Watchlists, stores.Themes = cat, cat, cat
		log.Info().Str("path", cfg.SQLitePath).Msg("sqlite catalog ready")
	} else {
		stores.Combos = memory.NewComboStore()
		stores.Watchlists = memory.NewWatchlistStore()
		stores.Themes = memory.NewThemeStore()
	}

	// Runs
	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		stores.Runs = pgstore.NewScenarioRunStore(pool)
		log.Info().Msg("postgres run store ready")
	} else {
		stores.Runs = memory.NewScenarioRunStore()
	}

	return stores, cleanup, nil
}
