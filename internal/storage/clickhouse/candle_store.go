package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/normalization"
	"github.com/limeking/psa-next-hts-coin/internal/observability"
	"github.com/limeking/psa-next-hts-coin/internal/storage"
)

// CandleStore implements storage.CandleStore using ClickHouse.
type CandleStore struct {
	conn *Conn
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(conn *Conn) *CandleStore {
	return &CandleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// InsertBulk adds candles. Fails entire batch on duplicate (symbol, tf, time).
func (s *CandleStore) InsertBulk(ctx context.Context, symbol, timeframe string, candles []domain.Candle) (err error) {
	defer observeQuery("insert_candles", time.Now(), &err)

	if symbol == "" || timeframe == "" {
		return storage.ErrInvalidInput
	}
	if len(candles) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[int64]struct{}, len(candles))
	times := make([]int64, 0, len(candles))
	for _, c := range candles {
		if _, exists := seen[c.Time]; exists {
			return storage.ErrDuplicateKey
		}
		seen[c.Time] = struct{}{}
		times = append(times, c.Time)
	}

	// MergeTree does not enforce uniqueness, so check existing rows first.
	existing, err := s.countExisting(ctx, symbol, timeframe, times)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if existing > 0 {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO candles (
			symbol, tf, time, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range candles {
		err = batch.Append(
			symbol, timeframe, c.Time,
			c.Open, c.High, c.Low, c.Close, c.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves candles within [start, end] (inclusive), ordered
// by time. end == 0 means open-ended.
func (s *CandleStore) GetByTimeRange(ctx context.Context, symbol, timeframe string, start, end int64) (_ domain.Series, err error) {
	defer observeQuery("get_candles", time.Now(), &err)

	query := `
		SELECT time, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND tf = ? AND time >= ?
		ORDER BY time ASC
	`
	args := []interface{}{symbol, timeframe, start}
	if end != 0 {
		query = `
		SELECT time, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND tf = ? AND time >= ? AND time <= ?
		ORDER BY time ASC
	`
		args = append(args, end)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	candles, err := scanCandles(rows)
	if err != nil {
		return nil, err
	}
	return normalization.Normalize(candles, 0, 0), nil
}

// Symbols lists symbols with candles for timeframe, sorted.
func (s *CandleStore) Symbols(ctx context.Context, timeframe string) (_ []string, err error) {
	defer observeQuery("list_symbols", time.Now(), &err)

	rows, err := s.conn.Query(ctx, `
		SELECT DISTINCT symbol FROM candles
		WHERE tf = ?
		ORDER BY symbol ASC
	`, timeframe)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	symbols := []string{}
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate symbol rows: %w", err)
	}
	return symbols, nil
}

// countExisting counts stored bars of symbol/timeframe at any of times.
func (s *CandleStore) countExisting(ctx context.Context, symbol, timeframe string, times []int64) (uint64, error) {
	query := `
		SELECT count(*) FROM candles
		WHERE symbol = ? AND tf = ? AND time IN (?)
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, symbol, timeframe, times).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// scanCandles scans multiple rows.
func scanCandles(rows chRows) ([]domain.Candle, error) {
	var candles []domain.Candle

	for rows.Next() {
		var c domain.Candle
		err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume)
		if err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}

	return candles, nil
}

// observeQuery records the latency and outcome of one store operation.
// Duplicate batches are rejections, not failures.
func observeQuery(op string, start time.Time, errp *error) {
	var err error
	if errp != nil && *errp != nil && !errors.Is(*errp, storage.ErrDuplicateKey) {
		err = *errp
	}
	observability.RecordDBQuery("clickhouse", op, time.Since(start).Seconds(), err)
}
