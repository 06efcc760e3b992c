// Package parquet implements storage.CandleStore on per-symbol Parquet
// files laid out as <DataDir>/<SYMBOL>/<tf>/<YYYY>.parquet.
package parquet

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/normalization"
	"github.com/limeking/psa-next-hts-coin/internal/storage"
)

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// CandleStore implements storage.CandleStore using Parquet files on disk.
// Writes merge by bar time, newer rows winning.
type CandleStore struct {
	DataDir string

	mu sync.Mutex // serializes read-merge-write cycles
}

// NewCandleStore creates a new CandleStore rooted at dataDir.
func NewCandleStore(dataDir string) *CandleStore {
	return &CandleStore{DataDir: dataDir}
}

// CandleRecord is the on-disk schema written by this store.
type CandleRecord struct {
	Time   int64   `parquet:"time"` // Unix seconds
	Open   float64 `parquet:"open"`
	High   float64 `parquet:"high"`
	Low    float64 `parquet:"low"`
	Close  float64 `parquet:"close"`
	Volume float64 `parquet:"volume"`
}

// inputRecord accepts the column spellings found in exported candle
// files: time or timestamp, and volume, vol or Volume.
type inputRecord struct {
	Time      *int64   `parquet:"time,optional"`
	Timestamp *int64   `parquet:"timestamp,optional"`
	Open      *float64 `parquet:"open,optional"`
	High      *float64 `parquet:"high,optional"`
	Low       *float64 `parquet:"low,optional"`
	Close     *float64 `parquet:"close,optional"`
	Volume    *float64 `parquet:"volume,optional"`
	Vol       *float64 `parquet:"vol,optional"`
	VolumeCap *float64 `parquet:"Volume,optional"`
}

// InsertBulk merges candles into the per-year files of symbol/timeframe.
func (s *CandleStore) InsertBulk(_ context.Context, symbol, timeframe string, candles []domain.Candle) error {
	if symbol == "" || timeframe == "" {
		return storage.ErrInvalidInput
	}
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	groups := make(map[int][]CandleRecord)
	for _, c := range candles {
		year := time.Unix(c.Time, 0).UTC().Year()
		groups[year] = append(groups[year], CandleRecord(c))
	}

	for year, records := range groups {
		path := s.yearPath(symbol, timeframe, year)

		// Read existing records to merge.
		existing, _ := parquet.ReadFile[CandleRecord](path)
		merged := mergeRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing candles for %s/%s/%d: %w", symbol, timeframe, year, err)
		}
	}
	return nil
}

// GetByTimeRange reads every Parquet file of symbol/timeframe and returns
// the normalized series within [start, end]. end == 0 means open-ended.
func (s *CandleStore) GetByTimeRange(_ context.Context, symbol, timeframe string, start, end int64) (domain.Series, error) {
	files, err := filepath.Glob(filepath.Join(s.DataDir, symbol, timeframe, "*.parquet"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var rows []domain.Candle
	for _, f := range files {
		batch, err := readCandleFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		rows = append(rows, batch...)
	}
	return normalization.Normalize(rows, start, end), nil
}

// Symbols lists symbols that have a directory for timeframe.
func (s *CandleStore) Symbols(_ context.Context, timeframe string) ([]string, error) {
	entries, err := os.ReadDir(s.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	symbols := []string{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if info, err := os.Stat(filepath.Join(s.DataDir, e.Name(), timeframe)); err == nil && info.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (s *CandleStore) yearPath(symbol, timeframe string, year int) string {
	return filepath.Join(s.DataDir, symbol, timeframe, fmt.Sprintf("%04d.parquet", year))
}

// readCandleFile reads one file in any accepted column layout and converts
// its timestamps to epoch seconds. Rows without a time are dropped.
func readCandleFile(path string) ([]domain.Candle, error) {
	records, err := parquet.ReadFile[inputRecord](path)
	if err != nil {
		return nil, err
	}

	ts := make([]int64, 0, len(records))
	kept := make([]inputRecord, 0, len(records))
	for _, r := range records {
		switch {
		case r.Time != nil:
			ts = append(ts, *r.Time)
		case r.Timestamp != nil:
			ts = append(ts, *r.Timestamp)
		default:
			continue
		}
		kept = append(kept, r)
	}
	ts = normalization.EpochSeconds(ts)

	out := make([]domain.Candle, len(kept))
	for i, r := range kept {
		out[i] = domain.Candle{
			Time:   ts[i],
			Open:   value(r.Open),
			High:   value(r.High),
			Low:    value(r.Low),
			Close:  value(r.Close),
			Volume: value(firstSet(r.Volume, r.Vol, r.VolumeCap)),
		}
	}
	return out, nil
}

func writeParquetFile(path string, records []CandleRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, records); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// mergeRecords deduplicates by time, preferring incoming records.
func mergeRecords(existing, incoming []CandleRecord) []CandleRecord {
	seen := make(map[int64]CandleRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Time] = r
	}
	for _, r := range incoming {
		seen[r.Time] = r
	}

	merged := make([]CandleRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Time < merged[j].Time
	})
	return merged
}

// value maps a missing cell to NaN so normalization drops the row.
func value(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func firstSet(ps ...*float64) *float64 {
	for _, p := range ps {
		if p != nil {
			return p
		}
	}
	return nil
}
