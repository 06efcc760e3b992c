package metrics

import (
	"math"
	"testing"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
)

func ledger(pnls ...float64) []domain.Trade {
	trades := make([]domain.Trade, len(pnls))
	for i, p := range pnls {
		trades[i] = domain.Trade{EntryTime: int64(i * 100), ExitTime: int64(i*100 + 50), PnlPct: p}
	}
	return trades
}

func TestCompute_ReferenceLedger(t *testing.T) {
	m := Compute(ledger(5, -2, 3, -1), 0, 365*24*3600)

	if m.Trades != 4 || m.Wins != 2 {
		t.Errorf("trades/wins = %d/%d, want 4/2", m.Trades, m.Wins)
	}
	if m.WinRate != 0.5 {
		t.Errorf("winRate = %v, want 0.5", m.WinRate)
	}
	if m.Expectancy != 1.25 {
		t.Errorf("expectancy = %v, want 1.25", m.Expectancy)
	}
	if m.PF != 2.667 || m.ProfitFactor != m.PF {
		t.Errorf("pf = %v (alias %v), want 2.667", m.PF, m.ProfitFactor)
	}
	if m.AvgWinPct != 4 || m.AvgLossPct != 1.5 {
		t.Errorf("avgWin/avgLoss = %v/%v, want 4/1.5", m.AvgWinPct, m.AvgLossPct)
	}
	if m.MDD != 2 {
		t.Errorf("mdd = %v, want 2", m.MDD)
	}
	if m.MaxConsecutiveLosses != 1 {
		t.Errorf("maxConsecutiveLosses = %d, want 1", m.MaxConsecutiveLosses)
	}
}

func TestCompute_Empty(t *testing.T) {
	m := Compute(nil, 0, 100)
	if m != (domain.Metrics{}) {
		t.Errorf("expected zero metrics, got %+v", m)
	}
}

func TestCompute_NoLossesSentinel(t *testing.T) {
	m := Compute(ledger(1, 2), 0, 100)
	if m.PF != NoLossProfitFactor {
		t.Errorf("pf = %v, want %v", m.PF, NoLossProfitFactor)
	}

	flat := Compute(ledger(0, 0), 0, 100)
	if flat.PF != 0 {
		t.Errorf("pf with no wins and no losses = %v, want 0", flat.PF)
	}
}

func TestCompute_CAGRClampOnWipeout(t *testing.T) {
	m := Compute(ledger(-100), 0, 365*24*3600)
	if m.CAGR != -1 {
		t.Errorf("cagr = %v, want -1", m.CAGR)
	}
}

func TestCompute_CAGROneYear(t *testing.T) {
	m := Compute(ledger(10), 0, 365*24*3600)
	if math.Abs(m.CAGR-0.1) > 1e-9 {
		t.Errorf("cagr = %v, want 0.1", m.CAGR)
	}
}

func TestCompute_CAGRNonFiniteIsClamped(t *testing.T) {
	// zero span -> years floored at 1e-9 -> equity^1e9 overflows
	m := Compute(ledger(10), 0, 0)
	if m.CAGR != -1 {
		t.Errorf("cagr = %v, want -1", m.CAGR)
	}
}

func TestComputeMaxDrawdown_FirstPointSetsPeak(t *testing.T) {
	// an opening loss is not a drawdown from zero
	if got := computeMaxDrawdown([]float64{-5, -1}); got != 1 {
		t.Errorf("mdd = %v, want 1", got)
	}
}

func TestComputePercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	if got := computePercentile(sorted, 0.5); got != 2.5 {
		t.Errorf("median = %v, want 2.5", got)
	}
	if got := computePercentile(nil, 0.5); got != 0 {
		t.Errorf("empty percentile = %v, want 0", got)
	}
}

func TestTagEOT(t *testing.T) {
	trades := []domain.Trade{
		{ExitTime: 100, Reason: domain.ExitReasonTimeLimit},
		{ExitTime: 200, Reason: domain.ExitReasonForceClose},
		{ExitTime: 200, Reason: ""},
		{ExitTime: 200, Reason: domain.ExitReasonStopLoss},
	}

	got := TagEOT(trades, 200)

	want := []string{
		domain.ExitReasonTimeLimit,
		domain.ExitReasonEOT,
		domain.ExitReasonEOT,
		domain.ExitReasonStopLoss,
	}
	for i := range want {
		if got[i].Reason != want[i] {
			t.Errorf("trade %d reason = %q, want %q", i, got[i].Reason, want[i])
		}
	}
	if trades[1].Reason != domain.ExitReasonForceClose {
		t.Errorf("TagEOT must not mutate its input")
	}

	if kept := WithoutEOT(got); len(kept) != 2 {
		t.Errorf("WithoutEOT kept %d trades, want 2", len(kept))
	}
}
