package metrics

import "github.com/limeking/psa-next-hts-coin/internal/domain"

// TagEOT returns a copy of trades where trades exiting on the last bar
// with no reason, or closed by the end-of-data force close, are tagged EOT.
func TagEOT(trades []domain.Trade, lastTs int64) []domain.Trade {
	out := make([]domain.Trade, len(trades))
	copy(out, trades)
	for i := range out {
		if out[i].ExitTime != lastTs {
			continue
		}
		if out[i].Reason == "" || out[i].Reason == domain.ExitReasonForceClose {
			out[i].Reason = domain.ExitReasonEOT
		}
	}
	return out
}

// WithoutEOT drops EOT-tagged trades.
func WithoutEOT(trades []domain.Trade) []domain.Trade {
	out := make([]domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Reason != domain.ExitReasonEOT {
			out = append(out, t)
		}
	}
	return out
}
