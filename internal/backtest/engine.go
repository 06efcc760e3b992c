// Package backtest simulates a single long position over a candle series
// driven by entry and opposite-exit signals.
package backtest

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
)

// Result holds the trade ledger and simulator statistics of one run.
type Result struct {
	Trades []domain.Trade
	Stats  domain.SimStats
}

// Option configures Simulate.
type Option func(*config)

type config struct {
	fillNextBar bool
}

// WithFillNextBar selects whether fills happen at the next bar's open
// (default) or at the signal bar's open.
func WithFillNextBar(next bool) Option {
	return func(c *config) { c.fillNextBar = next }
}

// position is the single open position of a Simulate call.
type position struct {
	entryTime  int64
	entryPrice float64
	age        int
	peak       float64
}

// Simulate walks the series once holding at most one position.
//
// Entry on signal bar i fills at bar i+1's open; when no next bar exists
// the walk ends. While holding, exits are checked on each bar's close in
// priority order: stop loss, trailing stop, opposite signal, time limit,
// take profit. Exits fill at the next open, or at the current close on
// the last bar. A position still open at the end closes at the last close.
func Simulate(series domain.Series, entry, opposite domain.Signal, policy domain.ExitPolicy, opts ...Option) Result {
	cfg := config{fillNextBar: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	fee := policy.FeeBps / 10000
	slip := policy.SlippageBps / 10000
	n := len(series)

	var pos *position
	trades := make([]domain.Trade, 0)

	for i := 0; i < n; i++ {
		if pos == nil {
			if !entry.At(i) {
				continue
			}
			j := i
			if cfg.fillNextBar {
				j = i + 1
			}
			if j >= n {
				break
			}
			buy := series[j].Open * (1 + slip) * (1 + fee/2)
			pos = &position{
				entryTime:  series[j].Time,
				entryPrice: buy,
				peak:       buy,
			}
			continue
		}

		c := series[i]
		pos.age++
		pos.peak = math.Max(pos.peak, c.High)

		reason := exitReason(pos, c.Close, opposite.At(i), policy)
		if reason == "" {
			continue
		}

		j := i
		if cfg.fillNextBar {
			j = i + 1
		}
		var fill float64
		var exitTime int64
		if j >= n {
			fill, exitTime = c.Close, c.Time
		} else {
			fill, exitTime = series[j].Open, series[j].Time
		}
		sell := fill * (1 - slip) * (1 - fee/2)
		trades = append(trades, closeTrade(pos, sell, exitTime, reason))
		pos = nil
	}

	if pos != nil {
		last := series[n-1]
		sell := last.Close * (1 - slip) * (1 - fee/2)
		trades = append(trades, closeTrade(pos, sell, last.Time, domain.ExitReasonForceClose))
	}

	return Result{Trades: trades, Stats: ComputeStats(trades)}
}

// exitReason returns the first exit rule that fires at price px, or "".
func exitReason(pos *position, px float64, oppositeFired bool, p domain.ExitPolicy) string {
	pct := pctChange(px, pos.entryPrice)

	if p.StopLossPct != nil && pos.entryPrice > 0 && pct <= -math.Abs(*p.StopLossPct) {
		return domain.ExitReasonStopLoss
	}
	if p.TrailingPct != nil && *p.TrailingPct != 0 && px <= pos.peak*(1-math.Abs(*p.TrailingPct)/100) {
		return domain.ExitReasonTrailingStop
	}
	if p.UseOppositeSignal && oppositeFired {
		return domain.ExitReasonOppositeSignal
	}
	if p.TimeLimitBars != nil && *p.TimeLimitBars > 0 && pos.age >= *p.TimeLimitBars {
		return domain.ExitReasonTimeLimit
	}
	if p.TakeProfitPct != nil && pos.entryPrice > 0 && pct >= math.Abs(*p.TakeProfitPct) {
		return domain.ExitReasonTakeProfit
	}
	return ""
}

func closeTrade(pos *position, sell float64, exitTime int64, reason string) domain.Trade {
	return domain.Trade{
		EntryTime:  pos.entryTime,
		EntryPrice: round(pos.entryPrice, 8),
		ExitTime:   exitTime,
		ExitPrice:  round(sell, 8),
		PnlPct:     round(pctChange(sell, pos.entryPrice), 4),
		Bars:       pos.age,
		Reason:     reason,
	}
}

// ComputeStats returns the simulator ledger statistics. Losses include
// break-even trades; ProfitFactor is nil when there are no losses.
func ComputeStats(trades []domain.Trade) domain.SimStats {
	if len(trades) == 0 {
		zero := 0.0
		return domain.SimStats{ProfitFactor: &zero}
	}

	var wins, losses []float64
	for _, t := range trades {
		if t.PnlPct > 0 {
			wins = append(wins, t.PnlPct)
		} else {
			losses = append(losses, t.PnlPct)
		}
	}

	stats := domain.SimStats{
		Trades:     len(trades),
		WinRate:    round(float64(len(wins))/float64(len(trades))*100, 2),
		AvgWinPct:  round(mean(wins), 3),
		AvgLossPct: round(mean(losses), 3),
	}
	if lossSum := math.Abs(sum(losses)); len(losses) > 0 && lossSum > 0 {
		pf := round(sum(wins)/lossSum, 3)
		stats.ProfitFactor = &pf
	}
	return stats
}

func pctChange(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return (a/b - 1) * 100
}

func sum(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += v
	}
	return s
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return sum(x) / float64(len(x))
}

// round rounds half away from zero to places decimals.
func round(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}
