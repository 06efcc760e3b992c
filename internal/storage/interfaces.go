package storage

import (
	"context"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
)

// CandleStore provides OHLCV series per (symbol, timeframe).
type CandleStore interface {
	// InsertBulk adds candles for symbol/timeframe. Memory and ClickHouse
	// stores are append-only and fail the whole batch with ErrDuplicateKey
	// when a bar time already exists; file stores merge by bar time.
	InsertBulk(ctx context.Context, symbol, timeframe string, candles []domain.Candle) error

	// GetByTimeRange returns the normalized series with start <= Time <= end.
	// end == 0 means open-ended. An unknown symbol yields an empty series.
	GetByTimeRange(ctx context.Context, symbol, timeframe string, start, end int64) (domain.Series, error)

	// Symbols lists symbols that have candles for timeframe, sorted.
	Symbols(ctx context.Context, timeframe string) ([]string, error)
}

// ComboStore provides saved condition combinations.
type ComboStore interface {
	// Save inserts or replaces a combo by name.
	Save(ctx context.Context, combo *domain.Combo) error

	// GetByName returns ErrNotFound when no combo has that name.
	GetByName(ctx context.Context, name string) (*domain.Combo, error)

	// List returns combo names, sorted.
	List(ctx context.Context) ([]string, error)
}

// WatchlistStore provides named watchlists and the full symbol universe.
type WatchlistStore interface {
	// SaveWatchlist inserts or replaces a watchlist.
	SaveWatchlist(ctx context.Context, name string, symbols []string) error

	// GetWatchlist returns the symbols in stored order. ErrNotFound if missing.
	GetWatchlist(ctx context.Context, name string) ([]string, error)

	// SetUniverse replaces the all-symbols list.
	SetUniverse(ctx context.Context, symbols []string) error

	// AllSymbols returns the universe in stored order.
	AllSymbols(ctx context.Context) ([]string, error)
}

// ThemeStore maps symbols to theme labels. A symbol may carry several.
type ThemeStore interface {
	// SetThemes replaces the themes of symbol.
	SetThemes(ctx context.Context, symbol string, themes []string) error

	// Themes returns the mapping for the given symbols. Unmapped symbols
	// are absent from the result.
	Themes(ctx context.Context, symbols []string) (map[string][]string, error)
}

// ScenarioRunStore persists scenario runs and their flattened trades.
type ScenarioRunStore interface {
	// Insert adds a run with its trades atomically. Returns ErrDuplicateKey
	// if run_id or any trade_id exists.
	Insert(ctx context.Context, run *domain.ScenarioRun, trades []domain.RunTrade) error

	// GetByID returns ErrNotFound when the run does not exist.
	GetByID(ctx context.Context, runID string) (*domain.ScenarioRun, error)

	// List returns the most recent runs first, at most limit (0 = all).
	List(ctx context.Context, limit int) ([]*domain.ScenarioRun, error)

	// GetTrades returns the trades of a run ordered by step, symbol,
	// profile, fold start and entry time.
	GetTrades(ctx context.Context, runID string) ([]domain.RunTrade, error)
}
