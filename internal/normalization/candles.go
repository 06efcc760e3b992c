// Package normalization turns raw candle rows into clean, continuous
// series and copies them between candle stores.
package normalization

import (
	"math"
	"sort"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
)

// Time unit thresholds on the largest timestamp of a batch.
const (
	microsThreshold = 100_000_000_000_000 // > 1e14 -> microseconds
	millisThreshold = 1_000_000_000_000   // > 1e12 -> milliseconds
)

// EpochSeconds converts a batch of epoch timestamps to seconds. The unit
// is detected once from the batch maximum: above 1e14 microseconds, above
// 1e12 milliseconds, otherwise seconds.
func EpochSeconds(ts []int64) []int64 {
	var max int64
	for _, t := range ts {
		if t > max {
			max = t
		}
	}
	div := int64(1)
	switch {
	case max > microsThreshold:
		div = 1_000_000
	case max > millisThreshold:
		div = 1_000
	}
	out := make([]int64, len(ts))
	for i, t := range ts {
		out[i] = t / div
	}
	return out
}

// Normalize returns a clean series from raw rows: rows with a non-finite
// OHLCV value are dropped, duplicate times keep the first row, rows are
// sorted by time and limited to start <= Time <= end (0 = unbounded).
// Times must already be in seconds.
func Normalize(rows []domain.Candle, start, end int64) domain.Series {
	seen := make(map[int64]struct{}, len(rows))
	out := make(domain.Series, 0, len(rows))
	for _, c := range rows {
		if !finite(c.Open, c.High, c.Low, c.Close, c.Volume) {
			continue
		}
		if _, dup := seen[c.Time]; dup {
			continue
		}
		seen[c.Time] = struct{}{}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })

	if start != 0 || end != 0 {
		lo, hi := 0, len(out)
		if start != 0 {
			lo = sort.Search(len(out), func(i int) bool { return out[i].Time >= start })
		}
		if end != 0 {
			hi = sort.Search(len(out), func(i int) bool { return out[i].Time > end })
		}
		if hi < lo {
			hi = lo
		}
		out = out[lo:hi]
	}
	return out
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
