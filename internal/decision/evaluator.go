package decision

import "fmt"

// Evaluator evaluates decision criteria.
type Evaluator struct {
	th Thresholds
}

// NewEvaluator creates a new decision evaluator.
func NewEvaluator(th Thresholds) *Evaluator {
	return &Evaluator{th: th}
}

// Evaluate produces the verdict of one step.
// INSUFFICIENT_DATA if the step has fewer than MinTrades trades.
// GO if ALL criteria pass and NO NO-GO triggers fire, NO-GO otherwise.
func (e *Evaluator) Evaluate(input Input) *Result {
	res := &Result{
		Step:       input.Step,
		GOCriteria: e.evaluateGOCriteria(input),
		NOGOChecks: e.evaluateNOGOTriggers(input),
	}

	if input.Trades < e.th.MinTrades {
		res.Decision = DecisionInsufficientData
		return res
	}

	res.Decision = DecisionGO
	for _, c := range res.GOCriteria {
		if !c.Pass {
			res.Decision = DecisionNOGO
		}
	}
	for _, c := range res.NOGOChecks {
		if !c.Pass {
			res.Decision = DecisionNOGO
		}
	}
	return res
}

// evaluateGOCriteria evaluates the 5 GO criteria.
func (e *Evaluator) evaluateGOCriteria(input Input) []CriterionResult {
	criteria := make([]CriterionResult, 5)

	// 1. Enough out-of-sample trades
	criteria[0] = CriterionResult{
		Name:      "Sample size",
		Threshold: fmt.Sprintf(">= %d trades", e.th.MinTrades),
		Actual:    fmt.Sprintf("%d trades / %d symbols", input.Trades, input.Symbols),
		Pass:      input.Trades >= e.th.MinTrades,
	}

	// 2. Profit factor
	criteria[1] = CriterionResult{
		Name:      "Profit factor",
		Threshold: fmt.Sprintf(">= %.2f", e.th.MinProfitFactor),
		Actual:    fmt.Sprintf("%.4f", input.ProfitFactor),
		Pass:      input.ProfitFactor >= e.th.MinProfitFactor,
	}

	// 3. Positive expectancy
	criteria[2] = CriterionResult{
		Name:      "Expectancy",
		Threshold: "> 0",
		Actual:    fmt.Sprintf("%.4f", input.Expectancy),
		Pass:      input.Expectancy > 0,
	}

	// 4. Not dominated by outliers
	criteria[3] = CriterionResult{
		Name:      "Median trade",
		Threshold: "> 0",
		Actual:    fmt.Sprintf("%.4f", input.MedianPnl),
		Pass:      input.MedianPnl > 0,
	}

	// 5. Stable under costs: stressed expectancy > 0 AND ratio >= MinStressRatio.
	// A single-profile step passes.
	stable := CriterionResult{
		Name:      "Stable under costs",
		Threshold: fmt.Sprintf("stressed > 0 AND ratio >= %.2f", e.th.MinStressRatio),
		Actual:    "no stressed profile",
		Pass:      true,
	}
	if input.StressedProfile != "" {
		stable.Pass = false
		if input.Expectancy > 0 {
			ratio := input.StressedExpectancy / input.Expectancy
			stable.Pass = input.StressedExpectancy > 0 && ratio >= e.th.MinStressRatio
			stable.Actual = fmt.Sprintf("%s=%.4f, ratio=%.2f", input.StressedProfile, input.StressedExpectancy, ratio)
		} else {
			stable.Actual = fmt.Sprintf("%s=%.4f, %s=%.4f", input.StressedProfile, input.StressedExpectancy, input.BaseProfile, input.Expectancy)
		}
	}
	criteria[4] = stable

	return criteria
}

// evaluateNOGOTriggers evaluates the 3 NO-GO triggers.
// Pass=true means NOT triggered, Pass=false means triggered.
func (e *Evaluator) evaluateNOGOTriggers(input Input) []CriterionResult {
	checks := make([]CriterionResult, 3)

	// 1. Drawdown too deep
	checks[0] = CriterionResult{
		Name:      "Deep drawdown",
		Threshold: fmt.Sprintf("> %.2f", e.th.MaxDrawdown),
		Actual:    fmt.Sprintf("%.4f", input.MaxDrawdown),
		Pass:      input.MaxDrawdown <= e.th.MaxDrawdown,
	}

	// 2. Long losing streak
	checks[1] = CriterionResult{
		Name:      "Losing streak",
		Threshold: fmt.Sprintf(">= %d", e.th.MaxConsecLosses),
		Actual:    fmt.Sprintf("%d", input.MaxConsecLosses),
		Pass:      input.MaxConsecLosses < e.th.MaxConsecLosses,
	}

	// 3. Edge disappears: base > 0 && stressed <= 0
	triggered := input.StressedProfile != "" && input.Expectancy > 0 && input.StressedExpectancy <= 0
	checks[2] = CriterionResult{
		Name:      "Edge disappears under costs",
		Threshold: "base > 0 AND stressed <= 0",
		Actual:    fmt.Sprintf("base=%.4f, stressed=%.4f", input.Expectancy, input.StressedExpectancy),
		Pass:      !triggered,
	}

	return checks
}
