package normalization

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/limeking/psa-next-hts-coin/internal/observability"
	"github.com/limeking/psa-next-hts-coin/internal/storage"
)

// Runner copies normalized candles from a source store into a target
// store, symbol by symbol.
type Runner struct {
	source storage.CandleStore
	target storage.CandleStore
	logger zerolog.Logger
}

// NewRunner creates a new normalization runner.
func NewRunner(source, target storage.CandleStore, logger zerolog.Logger) *Runner {
	return &Runner{
		source: source,
		target: target,
		logger: logger.With().Str("component", "normalization").Logger(),
	}
}

// CopyResult counts what one Copy call did.
type CopyResult struct {
	Symbols  int
	Candles  int
	Skipped  int // symbols already present in the target
	Failures []string
}

// NormalizeSymbol loads one symbol's series from the source and inserts
// it into the target. Returns the number of candles written.
func (r *Runner) NormalizeSymbol(ctx context.Context, symbol, timeframe string, start, end int64) (int, error) {
	series, err := r.source.GetByTimeRange(ctx, symbol, timeframe, start, end)
	if err != nil {
		return 0, fmt.Errorf("load %s/%s: %w", symbol, timeframe, err)
	}
	if len(series) == 0 {
		return 0, nil
	}
	if err := r.target.InsertBulk(ctx, symbol, timeframe, series); err != nil {
		return 0, fmt.Errorf("store %s/%s: %w", symbol, timeframe, err)
	}
	return len(series), nil
}

// Copy normalizes every symbol the source has for timeframe. Symbols whose
// candles already exist in the target are skipped; other failures are
// collected and do not stop the batch.
func (r *Runner) Copy(ctx context.Context, timeframe string, start, end int64) (*CopyResult, error) {
	symbols, err := r.source.Symbols(ctx, timeframe)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}

	res := &CopyResult{}
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		n, err := r.NormalizeSymbol(ctx, sym, timeframe, start, end)
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			res.Skipped++
			r.logger.Debug().Str("symbol", sym).Msg("already ingested")
		case err != nil:
			res.Failures = append(res.Failures, err.Error())
			r.logger.Warn().Err(err).Str("symbol", sym).Msg("normalize failed")
		default:
			res.Symbols++
			res.Candles += n
			observability.RecordCandlesIngested(timeframe, n)
			r.logger.Info().Str("symbol", sym).Str("tf", timeframe).Int("candles", n).Msg("normalized")
		}
	}
	return res, nil
}
