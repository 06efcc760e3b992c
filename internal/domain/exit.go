package domain

// ExitPolicy configures the simulator exit rules and execution costs.
// Nil optional fields disable that rule.
type ExitPolicy struct {
	UseOppositeSignal bool
	StopLossPct       *float64 // e.g. 3 = 3%
	TakeProfitPct     *float64
	TimeLimitBars     *int
	TrailingPct       *float64
	FeeBps            float64 // round-trip fee; half applied per fill
	SlippageBps       float64 // per fill
}

// WithCosts returns a copy of the policy with fee and slippage replaced.
func (p ExitPolicy) WithCosts(c CostProfile) ExitPolicy {
	p.FeeBps = c.FeeBps
	p.SlippageBps = c.SlippageBps
	return p
}

// ExitRequest is the wire form of an exit policy. Each optional rule is
// gated by its use flag.
type ExitRequest struct {
	UseOppositeSignal bool     `json:"useOppositeSignal" yaml:"useOppositeSignal"`
	UseStopLoss       bool     `json:"useStopLoss" yaml:"useStopLoss"`
	StopLossPct       *float64 `json:"stopLossPct,omitempty" yaml:"stopLossPct" validate:"omitempty,gte=0"`
	UseTakeProfit     bool     `json:"useTakeProfit" yaml:"useTakeProfit"`
	TakeProfitPct     *float64 `json:"takeProfitPct,omitempty" yaml:"takeProfitPct" validate:"omitempty,gte=0"`
	UseTimeLimit      bool     `json:"useTimeLimit" yaml:"useTimeLimit"`
	TimeLimitBars     *int     `json:"timeLimitBars,omitempty" yaml:"timeLimitBars" validate:"omitempty,gte=0"`
	UseTrailingStop   bool     `json:"useTrailingStop" yaml:"useTrailingStop"`
	TrailingPct       *float64 `json:"trailingPct,omitempty" yaml:"trailingPct" validate:"omitempty,gte=0"`
}

// Policy converts the request into an ExitPolicy without costs.
// A zero time limit or trailing percentage disables the rule.
func (r ExitRequest) Policy() ExitPolicy {
	p := ExitPolicy{UseOppositeSignal: r.UseOppositeSignal}
	if r.UseStopLoss && r.StopLossPct != nil {
		v := *r.StopLossPct
		p.StopLossPct = &v
	}
	if r.UseTakeProfit && r.TakeProfitPct != nil {
		v := *r.TakeProfitPct
		p.TakeProfitPct = &v
	}
	if r.UseTimeLimit && r.TimeLimitBars != nil && *r.TimeLimitBars > 0 {
		v := *r.TimeLimitBars
		p.TimeLimitBars = &v
	}
	if r.UseTrailingStop && r.TrailingPct != nil && *r.TrailingPct > 0 {
		v := *r.TrailingPct
		p.TrailingPct = &v
	}
	return p
}
