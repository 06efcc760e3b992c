package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/storage"
)

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu   sync.RWMutex
	data map[seriesKey]map[int64]domain.Candle // keyed by (symbol, timeframe), then bar time
}

type seriesKey struct {
	symbol    string
	timeframe string
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		data: make(map[seriesKey]map[int64]domain.Candle),
	}
}

// InsertBulk adds candles. Fails entire batch on duplicate bar time.
func (s *CandleStore) InsertBulk(_ context.Context, symbol, timeframe string, candles []domain.Candle) error {
	if symbol == "" || timeframe == "" {
		return storage.ErrInvalidInput
	}
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := seriesKey{symbol, timeframe}
	bars := s.data[key]

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[int64]struct{}, len(candles))
	for _, c := range candles {
		if _, exists := bars[c.Time]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[c.Time]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[c.Time] = struct{}{}
	}

	// Second pass: insert all
	if bars == nil {
		bars = make(map[int64]domain.Candle, len(candles))
		s.data[key] = bars
	}
	for _, c := range candles {
		bars[c.Time] = c
	}
	return nil
}

// GetByTimeRange returns candles within [start, end] ordered by time.
// end == 0 means open-ended.
func (s *CandleStore) GetByTimeRange(_ context.Context, symbol, timeframe string, start, end int64) (domain.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := domain.Series{}
	for t, c := range s.data[seriesKey{symbol, timeframe}] {
		if t < start || (end != 0 && t > end) {
			continue
		}
		result = append(result, c)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Time < result[j].Time
	})

	return result, nil
}

// Symbols lists symbols with candles for timeframe, sorted.
func (s *CandleStore) Symbols(_ context.Context, timeframe string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []string{}
	for k, bars := range s.data {
		if k.timeframe == timeframe && len(bars) > 0 {
			result = append(result, k.symbol)
		}
	}
	sort.Strings(result)
	return result, nil
}

var _ storage.CandleStore = (*CandleStore)(nil)
