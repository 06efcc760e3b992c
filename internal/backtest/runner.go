package backtest

import (
	"github.com/limeking/psa-next-hts-coin/internal/domain"
)

// RunWindow simulates the bars of series with start <= Time <= end.
// Signals are computed on the full series by the caller and sliced here
// by the same index window, so indicator warm-up uses bars before start.
func RunWindow(series domain.Series, sig domain.Signals, start, end int64, policy domain.ExitPolicy, opts ...Option) (Result, domain.Series) {
	lo, hi := series.Between(start, end)
	window := series[lo:hi]
	return Simulate(window, sig.Entry.Window(lo, hi), sig.Opposite.Window(lo, hi), policy, opts...), window
}
