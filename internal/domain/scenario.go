package domain

// Chain modes
const (
	ChainParallel = "parallel"
	ChainGated    = "gated"
	ChainState    = "state"
)

// Grouping keys
const (
	GroupByTheme      = "theme"
	ThemeUnclassified = "(unclassified)"
)

// Tuning score keys
const (
	ScoreKeyPF         = "pf"
	ScoreKeyWinRate    = "winRate"
	ScoreKeyExpectancy = "expectancy"
	ScoreKeyCAGR       = "cagr"
)

// ScenarioStep is one validated stage of a scenario.
type ScenarioStep struct {
	Timeframe    string
	StrategyCode string // canonical code or alias; empty when ComboName drives the step
	ComboName    string // legacy combo alias or saved combination name
	Params       Params
	ParamGrid    ParamGrid
	PeriodKey    string
	StartTs      int64 // lookback start derived from PeriodKey
	EndTs        int64 // 0 means open-ended
	Exit         ExitPolicy
	ExitRequest  ExitRequest // echoed back in results
	RequireBoth  bool
	ScoreKey     string
}

// Scenario is the validated engine input built from a request.
type Scenario struct {
	Steps             []ScenarioStep
	Symbols           []string
	CostProfiles      []CostProfile
	ChainMode         string
	GroupBy           string
	Folds             int // 0 means one full-range fold
	Scheme            string
	TrainRatio        float64
	MinTrainSeconds   int64
	IncludeEoTInStats bool
	LimitTrades       int
}

// ScenarioResult is the nested result tree returned by one scenario run.
type ScenarioResult struct {
	OK           bool                             `json:"ok"`
	RunID        string                           `json:"runId,omitempty"`
	UsedSymbols  []string                         `json:"used_symbols"`
	Steps        []StepResult                     `json:"steps"`
	Summary      Summary                          `json:"summary"`
	Groups       map[string]map[string]GroupStats `json:"groups,omitempty"`
	ProfilesMeta []string                         `json:"profilesMeta"`
	Errors       []string                         `json:"errors,omitempty"`
}

// StepResult holds all symbol runs of one step.
type StepResult struct {
	Timeframe    string      `json:"tf"`
	Combo        string      `json:"combo"`
	StrategyCode string      `json:"strategyCode,omitempty"`
	PeriodKey    string      `json:"periodKey"`
	Exit         ExitRequest `json:"exit"`
	Runs         []SymbolRun `json:"runs"`
}

// SymbolRun holds the per-profile results of one symbol.
type SymbolRun struct {
	Symbol    string       `json:"symbol"`
	Timeframe string       `json:"tf"`
	Profiles  []ProfileRun `json:"profiles"`
}

// ProfileRun holds the fold results of one cost profile.
type ProfileRun struct {
	Name        string    `json:"name"`
	Runs        []FoldRun `json:"runs"`
	TotalTrades int       `json:"totalTrades"`
}

// FoldRun is the outcome of one test window. Stats is nil when the
// window was too short to simulate.
type FoldRun struct {
	Fold   [2]int64      `json:"fold"`
	Train  *[2]int64     `json:"train,omitempty"`
	Trades []Trade       `json:"trades"`
	Stats  *FoldStats    `json:"stats,omitempty"`
	Tuning *TuningRecord `json:"tuning,omitempty"`
}

// SimStats are the simulator's own ledger statistics.
type SimStats struct {
	Trades       int      `json:"trades"`
	WinRate      float64  `json:"winRate"` // percent
	AvgWinPct    float64  `json:"avgWinPct"`
	AvgLossPct   float64  `json:"avgLossPct"`
	ProfitFactor *float64 `json:"profitFactor"` // nil when there are no losses
}

// Metrics are the walk-forward metrics of a trade ledger.
type Metrics struct {
	Trades       int     `json:"trades"`
	Wins         int     `json:"wins"`
	WinRate      float64 `json:"winRate"` // fraction
	Expectancy   float64 `json:"expectancy"`
	PF           float64 `json:"pf"`
	ProfitFactor float64 `json:"profitFactor"` // alias of PF
	AvgWinPct    float64 `json:"avgWinPct"`
	AvgLossPct   float64 `json:"avgLossPct"`
	MDD          float64 `json:"mdd"`
	CAGR         float64 `json:"cagr"`

	MedianPnl            float64 `json:"medianPnl"`
	StddevPnl            float64 `json:"stddevPnl"`
	MaxConsecutiveLosses int     `json:"maxConsecutiveLosses"`
}

// FoldStats combines metrics with the simulator's percentage stats.
type FoldStats struct {
	Metrics
	SimWinRatePct   float64  `json:"simWinRatePct"`
	SimProfitFactor *float64 `json:"simProfitFactor"`
}

// TuningRecord describes the parameter set chosen on a fold's train range.
type TuningRecord struct {
	Params     Params  `json:"params"`
	Score      float64 `json:"score"`
	Candidates int     `json:"candidates"`
	TrainStats Metrics `json:"trainStats"`
}

// Summary is the top-level run summary.
type Summary struct {
	Symbols     int    `json:"symbols"`
	TotalTrades int    `json:"totalTrades"`
	ChainMode   string `json:"chainMode"`
}

// GroupStats is the running aggregate of one group.
type GroupStats struct {
	Count   int      `json:"count"`
	Symbols []string `json:"symbols"`
	Avg     GroupAvg `json:"avg"`
}

// GroupAvg holds running means.
type GroupAvg struct {
	PF      float64 `json:"pf"`
	WinRate float64 `json:"winRate"`
	MDD     float64 `json:"mdd"`
}

// ScenarioRun is a persisted scenario execution.
type ScenarioRun struct {
	RunID       string
	CreatedAt   int64 // unix ms
	ChainMode   string
	Symbols     int
	TotalTrades int
	Request     []byte // raw request JSON
	Result      *ScenarioResult
}

// RunTrade is one trade flattened with its position in the result tree.
type RunTrade struct {
	TradeID   string
	RunID     string
	Step      int
	Symbol    string
	Timeframe string
	Profile   string
	FoldStart int64
	FoldEnd   int64
	Trade
}

// BaseProfile returns the "base" profile run, or the first one when no
// profile is named base.
func (r SymbolRun) BaseProfile() ProfileRun {
	for _, p := range r.Profiles {
		if p.Name == CostProfileNameBase {
			return p
		}
	}
	if len(r.Profiles) == 0 {
		return ProfileRun{}
	}
	return r.Profiles[0]
}
