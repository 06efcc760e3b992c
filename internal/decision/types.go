// Package decision evaluates whether a scenario step's out-of-sample
// results justify trading it.
package decision

// Decision represents the viability verdict of one step.
type Decision string

const (
	DecisionGO               Decision = "GO"
	DecisionNOGO             Decision = "NO-GO"
	DecisionInsufficientData Decision = "INSUFFICIENT_DATA"
)

// Input contains the pooled metrics of one step. Base is the reference
// cost profile; Stressed is the profile with the lowest expectancy among
// the others, empty when the step ran a single profile.
type Input struct {
	Step    int
	Trades  int
	Symbols int

	// Base profile metrics
	BaseProfile     string
	WinRate         float64 // fraction
	ProfitFactor    float64
	Expectancy      float64 // pnl % per trade
	MedianPnl       float64
	MaxDrawdown     float64 // pnl % points
	MaxConsecLosses int

	// Harshest alternative cost profile
	StressedProfile    string
	StressedExpectancy float64
}

// Thresholds configure the criteria. Zero values are not defaults; use
// DefaultThresholds.
type Thresholds struct {
	MinTrades       int
	MinProfitFactor float64
	MinStressRatio  float64 // stressed / base expectancy
	MaxDrawdown     float64
	MaxConsecLosses int
}

// DefaultThresholds returns the thresholds used by reports.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinTrades:       30,
		MinProfitFactor: 1.2,
		MinStressRatio:  0.5,
		MaxDrawdown:     50,
		MaxConsecLosses: 10,
	}
}

// CriterionResult represents pass/fail for one criterion.
type CriterionResult struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// Result contains the verdict of one step with its checklist.
type Result struct {
	Step       int
	Decision   Decision
	GOCriteria []CriterionResult
	NOGOChecks []CriterionResult // Pass=false means triggered
}
