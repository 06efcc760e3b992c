package reporting

import (
	"time"

	"github.com/limeking/psa-next-hts-coin/internal/decision"
)

// Report is the rendered view of one stored scenario run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string
	CreatedAt   int64 // unix ms
	ChainMode   string
	Symbols     int
	TotalTrades int
	Profiles    []string

	// Steps in declared order
	Steps []StepRow

	// Pooled metrics per (step, profile), sorted by step then profile
	ProfileMetrics []ProfileMetricRow

	// Per symbol fold averages, base profile only
	SymbolMetrics []SymbolMetricRow

	// GO/NO-GO verdict per step from the pooled profile metrics
	Viability []*decision.Result

	// Theme groups, sorted by name
	Groups []GroupRow

	// Skipped units reported by the run
	Errors []string
}

// StepRow describes one scenario step.
type StepRow struct {
	Index     int
	Timeframe string
	Signal    string // strategy code or combo name
	PeriodKey string
	Symbols   int
	Trades    int // base profile
}

// ProfileMetricRow holds the metrics of all trades of one step under one
// cost profile.
type ProfileMetricRow struct {
	Step        int
	Profile     string
	Symbols     int
	Trades      int
	WinRate     float64
	Expectancy  float64
	PF          float64
	MDD         float64
	CAGR        float64
	MedianPnl   float64
	MaxConsLoss int
}

// SymbolMetricRow holds one symbol's fold-averaged stats in one step.
type SymbolMetricRow struct {
	Step    int
	Symbol  string
	Folds   int
	Trades  int
	PF      float64
	WinRate float64
	MDD     float64
}

// GroupRow is one theme group.
type GroupRow struct {
	Name    string
	Count   int
	Symbols []string
	PF      float64
	WinRate float64
	MDD     float64
}
