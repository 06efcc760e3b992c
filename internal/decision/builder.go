package decision

import (
	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/metrics"
)

// BuildInputs groups pooled (step, profile) aggregates into one Input per
// step, ordered by step. The base profile is the one named "base", or
// the first profile of the step.
func BuildInputs(aggs []metrics.RunAggregate) []Input {
	var (
		inputs []Input
		steps  = make(map[int][]metrics.RunAggregate)
		order  []int
	)
	for _, a := range aggs {
		if _, ok := steps[a.Step]; !ok {
			order = append(order, a.Step)
		}
		steps[a.Step] = append(steps[a.Step], a)
	}

	for _, step := range order {
		group := steps[step]
		base := group[0]
		for _, a := range group {
			if a.Profile == domain.CostProfileNameBase {
				base = a
				break
			}
		}

		in := Input{
			Step:            step,
			Trades:          base.Metrics.Trades,
			Symbols:         base.Symbols,
			BaseProfile:     base.Profile,
			WinRate:         base.Metrics.WinRate,
			ProfitFactor:    base.Metrics.PF,
			Expectancy:      base.Metrics.Expectancy,
			MedianPnl:       base.Metrics.MedianPnl,
			MaxDrawdown:     base.Metrics.MDD,
			MaxConsecLosses: base.Metrics.MaxConsecutiveLosses,
		}
		for _, a := range group {
			if a.Profile == base.Profile {
				continue
			}
			if in.StressedProfile == "" || a.Metrics.Expectancy < in.StressedExpectancy {
				in.StressedProfile = a.Profile
				in.StressedExpectancy = a.Metrics.Expectancy
			}
		}
		inputs = append(inputs, in)
	}
	return inputs
}

// EvaluateAll evaluates every input with the given thresholds.
func EvaluateAll(inputs []Input, th Thresholds) []*Result {
	e := NewEvaluator(th)
	out := make([]*Result, len(inputs))
	for i, in := range inputs {
		out[i] = e.Evaluate(in)
	}
	return out
}
