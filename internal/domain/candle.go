package domain

import "sort"

// Candle is one OHLCV bar. Time is epoch seconds.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Series is a time-ordered, deduplicated candle sequence.
// Invariant: Time is strictly increasing.
type Series []Candle

// Times returns the bar timestamps.
func (s Series) Times() []int64 {
	out := make([]int64, len(s))
	for i, c := range s {
		out[i] = c.Time
	}
	return out
}

// Closes returns close prices aligned to the series.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// Highs returns high prices aligned to the series.
func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.High
	}
	return out
}

// Lows returns low prices aligned to the series.
func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Low
	}
	return out
}

// Volumes returns volumes aligned to the series.
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Volume
	}
	return out
}

// FirstTime returns the first bar time, 0 for an empty series.
func (s Series) FirstTime() int64 {
	if len(s) == 0 {
		return 0
	}
	return s[0].Time
}

// LastTime returns the last bar time, 0 for an empty series.
func (s Series) LastTime() int64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Time
}

// Between returns the half-open index window [lo, hi) of bars with
// start <= Time <= end. lo == hi when no bar falls inside.
func (s Series) Between(start, end int64) (lo, hi int) {
	lo = sort.Search(len(s), func(i int) bool { return s[i].Time >= start })
	hi = sort.Search(len(s), func(i int) bool { return s[i].Time > end })
	if hi < lo {
		hi = lo
	}
	return lo, hi
}
