// Package metrics computes walk-forward metrics over trade ledgers and
// aggregates them across symbols.
package metrics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
)

// NoLossProfitFactor is reported when a ledger has wins but no losses.
const NoLossProfitFactor = 999.0

const secondsPerYear = 365 * 24 * 3600

// Compute calculates metrics from a trade ledger spanning [firstTs, lastTs].
// Trades are ordered by EntryTime before order-dependent metrics (MDD,
// CAGR, loss streaks). Wins are pnl > 0 and losses pnl < 0.
func Compute(trades []domain.Trade, firstTs, lastTs int64) domain.Metrics {
	n := len(trades)
	if n == 0 {
		return domain.Metrics{}
	}

	sorted := make([]domain.Trade, n)
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EntryTime < sorted[j].EntryTime
	})

	pnls := make([]float64, n)
	for i, t := range sorted {
		pnls[i] = t.PnlPct
	}

	var wins int
	var sumPos, sumNeg float64
	var posList, negList []float64
	for _, x := range pnls {
		switch {
		case x > 0:
			wins++
			sumPos += x
			posList = append(posList, x)
		case x < 0:
			sumNeg += -x
			negList = append(negList, -x)
		}
	}

	pf := 0.0
	switch {
	case sumNeg > 0:
		pf = sumPos / sumNeg
	case sumPos > 0:
		pf = NoLossProfitFactor
	}

	mean := computeMean(pnls)
	sortedPnls := make([]float64, n)
	copy(sortedPnls, pnls)
	sort.Float64s(sortedPnls)

	return domain.Metrics{
		Trades:       n,
		Wins:         wins,
		WinRate:      round(computeWinRate(wins, n), 4),
		Expectancy:   round(mean, 4),
		PF:           round(pf, 3),
		ProfitFactor: round(pf, 3),
		AvgWinPct:    round(computeMean(posList), 2),
		AvgLossPct:   round(computeMean(negList), 2),
		MDD:          round(computeMaxDrawdown(pnls), 3),
		CAGR:         round(computeCAGR(pnls, firstTs, lastTs), 4),

		MedianPnl:            round(computePercentile(sortedPnls, 0.50), 4),
		StddevPnl:            round(computeStddev(pnls, mean), 4),
		MaxConsecutiveLosses: computeMaxConsecutiveLosses(pnls),
	}
}

// computeWinRate calculates win rate as wins / total.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// computeMean calculates the arithmetic mean.
func computeMean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(xs []float64, mean float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, x := range xs {
		diff := x - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation; sorted must be ascending.
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxDrawdown is the worst peak-to-trough on the additive
// cumulative pnl curve. The first point sets the initial peak.
func computeMaxDrawdown(pnls []float64) float64 {
	cumulative := 0.0
	peak := math.Inf(-1)
	maxDrawdown := 0.0
	for _, x := range pnls {
		cumulative += x
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// computeCAGR compounds (1 + pnl/100) from an equity of 1. Equity at or
// below zero, or a non-finite result, reports -1.
func computeCAGR(pnls []float64, firstTs, lastTs int64) float64 {
	equity := 1.0
	for _, x := range pnls {
		equity *= 1 + x/100
		if equity <= 0 {
			return -1
		}
	}
	years := math.Max(float64(lastTs-firstTs)/secondsPerYear, 1e-9)
	cagr := math.Pow(equity, 1/years) - 1
	if math.IsNaN(cagr) || math.IsInf(cagr, 0) {
		return -1
	}
	return cagr
}

// computeMaxConsecutiveLosses finds the longest streak of pnl <= 0.
func computeMaxConsecutiveLosses(pnls []float64) int {
	maxStreak, current := 0, 0
	for _, x := range pnls {
		if x <= 0 {
			current++
			if current > maxStreak {
				maxStreak = current
			}
		} else {
			current = 0
		}
	}
	return maxStreak
}

// round rounds half away from zero to places decimals.
func round(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}
