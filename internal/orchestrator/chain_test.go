package orchestrator

import (
	"testing"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
)

func bits(v ...int) domain.Signal {
	out := make(domain.Signal, len(v))
	for i, b := range v {
		out[i] = b == 1
	}
	return out
}

func sameBits(t *testing.T, label string, got, want domain.Signal) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: length %d, want %d", label, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s: bar %d = %v, want %v", label, i, got[i], want[i])
		}
	}
}

func TestStateMask(t *testing.T) {
	entry := bits(0, 0, 1, 0, 0, 0, 0, 1, 0, 0)
	opposite := bits(0, 0, 0, 0, 1, 0, 0, 0, 0, 0)

	sameBits(t, "opposite closes", StateMask(entry, opposite, 0),
		bits(0, 0, 1, 1, 1, 0, 0, 1, 1, 1))
	sameBits(t, "time limit closes", StateMask(entry, nil, 2),
		bits(0, 0, 1, 1, 0, 0, 0, 1, 1, 0))
	sameBits(t, "never closes", StateMask(entry, nil, 0),
		bits(0, 0, 1, 1, 1, 1, 1, 1, 1, 1))
}

func TestChainState_GatedIsMonotone(t *testing.T) {
	times := []int64{1, 2, 3, 4, 5, 6}
	entries := []domain.Signal{
		bits(1, 1, 0, 1, 1, 0),
		bits(1, 0, 1, 1, 0, 0),
		bits(0, 0, 1, 1, 1, 1),
	}
	want := []domain.Signal{
		bits(1, 1, 0, 1, 1, 0),
		bits(1, 0, 0, 1, 0, 0),
		bits(0, 0, 0, 1, 0, 0),
	}

	c := newChainState(domain.ChainGated, len(entries))
	prevCount := len(times) + 1
	var prev domain.Signal
	for step, e := range entries {
		sig, _ := c.apply(step, "BTC", times, domain.Signals{Entry: e}, domain.ExitPolicy{})
		sameBits(t, "gated entry", sig.Entry, want[step])

		carried := c.gated["BTC"].Value
		if n := carried.Count(); n > prevCount {
			t.Errorf("step %d: carried mask grew from %d to %d", step, prevCount, n)
		}
		for i := range carried {
			if carried[i] && prev != nil && !prev[i] {
				t.Errorf("step %d: bar %d set outside the previous mask", step, i)
			}
		}
		prevCount = carried.Count()
		prev = carried
	}
}

func TestChainState_GatedIsMonotoneAcrossTimeframes(t *testing.T) {
	daily := []int64{0, 86400, 172800}
	hourly := make([]int64, 48)
	for i := range hourly {
		hourly[i] = 86400 + int64(i)*3600
	}
	allHours := make(domain.Signal, len(hourly))
	for i := range allHours {
		allHours[i] = true
	}

	c := newChainState(domain.ChainGated, 3)
	c.apply(0, "BTC", daily, domain.Signals{Entry: bits(0, 1, 0)}, domain.ExitPolicy{})

	// Only the hours inside the one open daily bar may enter.
	sig, _ := c.apply(1, "BTC", hourly, domain.Signals{Entry: allHours}, domain.ExitPolicy{})
	if n := sig.Entry.Count(); n != 24 {
		t.Errorf("step 1 gated entries = %d, want 24", n)
	}
	carried := c.gated["BTC"]
	if len(carried.Times) != len(daily) {
		t.Fatalf("carried mask moved off the daily clock: %d bars", len(carried.Times))
	}
	sameBits(t, "step 1 carried", carried.Value, bits(0, 1, 0))

	// No hourly entry inside the open day closes the funnel.
	late := make(domain.Signal, len(hourly))
	late[30] = true
	sig, _ = c.apply(2, "BTC", hourly, domain.Signals{Entry: late}, domain.ExitPolicy{})
	if n := sig.Entry.Count(); n != 0 {
		t.Errorf("step 2 gated entries = %d, want 0", n)
	}
	sameBits(t, "step 2 carried", c.gated["BTC"].Value, bits(0, 0, 0))
}

func TestChainState_GatedKeepsSymbolsApart(t *testing.T) {
	times := []int64{1, 2, 3}
	c := newChainState(domain.ChainGated, 2)

	c.apply(0, "BTC", times, domain.Signals{Entry: bits(1, 0, 0)}, domain.ExitPolicy{})
	c.apply(0, "ETH", times, domain.Signals{Entry: bits(0, 0, 1)}, domain.ExitPolicy{})

	sig, gate := c.apply(1, "ETH", times, domain.Signals{Entry: bits(1, 1, 1)}, domain.ExitPolicy{})
	sameBits(t, "eth step 1", sig.Entry, bits(0, 0, 1))
	if gate == nil {
		t.Fatalf("expected a gate for tuned entries")
	}
	sameBits(t, "tuned gate", gate(bits(1, 1, 1)), bits(0, 0, 1))
}

func TestChainState_StateZeroesRegimeSteps(t *testing.T) {
	daily := []int64{0, 100, 200, 300}
	hourly := []int64{50, 100, 150, 200, 250, 300, 350, 400}

	c := newChainState(domain.ChainState, 2)
	regime := domain.Signals{
		Entry:    bits(0, 1, 0, 0),
		Opposite: bits(0, 0, 0, 1),
	}
	sig, gate := c.apply(0, "BTC", daily, regime, domain.ExitPolicy{UseOppositeSignal: true})
	if sig.Entry.Count() != 0 {
		t.Errorf("regime step must not trade, entry count %d", sig.Entry.Count())
	}
	if gate(bits(1, 1, 1, 1)).Count() != 0 {
		t.Errorf("regime gate must zero tuned entries")
	}

	// regime true on daily bars 100..300, forward-filled onto hourly bars
	final := domain.Signals{Entry: bits(1, 1, 1, 1, 1, 1, 1, 1)}
	sig, _ = c.apply(1, "BTC", hourly, final, domain.ExitPolicy{})
	sameBits(t, "final entry", sig.Entry, bits(0, 1, 1, 1, 1, 1, 1, 1))
}

func TestChainState_StateWithoutOppositeIgnoresIt(t *testing.T) {
	times := []int64{1, 2, 3, 4}
	c := newChainState(domain.ChainState, 2)

	c.apply(0, "BTC", times, domain.Signals{
		Entry:    bits(1, 0, 0, 0),
		Opposite: bits(0, 1, 0, 0),
	}, domain.ExitPolicy{UseOppositeSignal: false})

	sig, _ := c.apply(1, "BTC", times, domain.Signals{Entry: bits(1, 1, 1, 1)}, domain.ExitPolicy{})
	sameBits(t, "final entry", sig.Entry, bits(1, 1, 1, 1))
}

func TestChainState_StateWithoutRegimeZeroesFinal(t *testing.T) {
	c := newChainState(domain.ChainState, 1)
	sig, _ := c.apply(0, "BTC", []int64{1, 2}, domain.Signals{Entry: bits(1, 1)}, domain.ExitPolicy{})
	if sig.Entry.Count() != 0 {
		t.Errorf("final step without a regime must not trade")
	}
}

func TestChainState_ParallelPassesThrough(t *testing.T) {
	c := newChainState(domain.ChainParallel, 2)
	in := domain.Signals{Entry: bits(1, 0, 1)}
	sig, gate := c.apply(1, "BTC", []int64{1, 2, 3}, in, domain.ExitPolicy{})
	sameBits(t, "parallel", sig.Entry, in.Entry)
	if gate != nil {
		t.Errorf("parallel mode has no gate")
	}
}
