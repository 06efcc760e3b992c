package orchestrator

import (
	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/lookup"
)

// chainState carries cross-step masks of one Run, keyed by symbol.
// It is owned by a single Run call and never shared.
type chainState struct {
	mode   string
	last   int
	gated  map[string]lookup.Mask
	states map[string][]lookup.Mask
}

func newChainState(mode string, steps int) *chainState {
	return &chainState{
		mode:   mode,
		last:   steps - 1,
		gated:  make(map[string]lookup.Mask),
		states: make(map[string][]lookup.Mask),
	}
}

// apply transforms the entry of step for symbol and updates the carried
// masks. It returns the gated signals and the gate to re-apply to tuned
// entries of the same step.
func (c *chainState) apply(step int, symbol string, times []int64, sig domain.Signals, policy domain.ExitPolicy) (domain.Signals, func(domain.Signal) domain.Signal) {
	switch c.mode {
	case domain.ChainGated:
		return c.applyGated(step, symbol, times, sig)
	case domain.ChainState:
		return c.applyState(step, symbol, times, sig, policy)
	default:
		return sig, nil
	}
}

// applyGated gates the entry with the carried mask forward-filled onto
// this step's bars. The carried mask stays on the clock of the step that
// seeded it: a seed bar survives only while the gated entry fires within
// that bar's interval, so it never gains bars when timeframes differ.
func (c *chainState) applyGated(step int, symbol string, times []int64, sig domain.Signals) (domain.Signals, func(domain.Signal) domain.Signal) {
	prev, ok := c.gated[symbol]
	if step == 0 || !ok {
		c.gated[symbol] = lookup.Mask{Times: times, Value: sig.Entry}
		return sig, nil
	}

	carried := lookup.ForwardFill(prev.Times, prev.Value, times)
	gate := func(entry domain.Signal) domain.Signal { return entry.And(carried) }
	sig.Entry = gate(sig.Entry)

	fired := lookup.AnyWithin(times, sig.Entry, prev.Times)
	c.gated[symbol] = lookup.Mask{Times: prev.Times, Value: prev.Value.And(fired)}
	return sig, gate
}

func (c *chainState) applyState(step int, symbol string, times []int64, sig domain.Signals, policy domain.ExitPolicy) (domain.Signals, func(domain.Signal) domain.Signal) {
	zero := func(entry domain.Signal) domain.Signal { return domain.NewSignal(len(entry)) }

	if step < c.last {
		var opposite domain.Signal
		if policy.UseOppositeSignal {
			opposite = sig.Opposite
		}
		timeLimit := 0
		if policy.TimeLimitBars != nil {
			timeLimit = *policy.TimeLimitBars
		}
		regime := StateMask(sig.Entry, opposite, timeLimit)
		c.states[symbol] = append(c.states[symbol], lookup.Mask{Times: times, Value: regime})
		sig.Entry = zero(sig.Entry)
		return sig, zero
	}

	masks := c.states[symbol]
	if len(masks) == 0 {
		sig.Entry = zero(sig.Entry)
		return sig, zero
	}
	regime := lookup.Combine(masks, times)
	gate := func(entry domain.Signal) domain.Signal { return entry.And(regime) }
	sig.Entry = gate(sig.Entry)
	return sig, gate
}

// StateMask converts entry/opposite signals into a regime mask. The mask
// turns on at an entry bar and stays on through the bar where opposite
// fires or the regime has lasted timeLimit bars. A nil opposite and a
// non-positive timeLimit disable the respective close.
func StateMask(entry, opposite domain.Signal, timeLimit int) domain.Signal {
	out := domain.NewSignal(len(entry))
	open := false
	start := -1
	for i := range entry {
		if entry[i] {
			open = true
			start = i
		}
		if !open {
			continue
		}
		out[i] = true
		switch {
		case opposite.At(i):
			open = false
			start = -1
		case timeLimit > 0 && start >= 0 && i-start+1 >= timeLimit:
			open = false
			start = -1
		}
	}
	return out
}
