package domain

// CostProfile is a named fee/slippage assumption.
type CostProfile struct {
	Name        string  `json:"name" yaml:"name" validate:"required"`
	FeeBps      float64 `json:"fee_bps" yaml:"fee_bps" validate:"gte=0"`
	SlippageBps float64 `json:"slippage_bps" yaml:"slippage_bps" validate:"gte=0"`
}

// Cost profile names
const (
	CostProfileNameBase        = "base"
	CostProfileNameOptimistic  = "optimistic"
	CostProfileNamePessimistic = "pessimistic"
	CostProfileNameDegraded    = "degraded"
)

// Predefined cost profiles. Base matches the engine defaults.
var (
	CostProfileBase = CostProfile{
		Name:        CostProfileNameBase,
		FeeBps:      10,
		SlippageBps: 5,
	}

	CostProfileOptimistic = CostProfile{
		Name:        CostProfileNameOptimistic,
		FeeBps:      5,
		SlippageBps: 2,
	}

	CostProfilePessimistic = CostProfile{
		Name:        CostProfileNamePessimistic,
		FeeBps:      20,
		SlippageBps: 15,
	}

	CostProfileDegraded = CostProfile{
		Name:        CostProfileNameDegraded,
		FeeBps:      40,
		SlippageBps: 40,
	}
)

// CostProfileByName returns a predefined profile.
func CostProfileByName(name string) (CostProfile, bool) {
	switch name {
	case CostProfileNameBase:
		return CostProfileBase, true
	case CostProfileNameOptimistic:
		return CostProfileOptimistic, true
	case CostProfileNamePessimistic:
		return CostProfilePessimistic, true
	case CostProfileNameDegraded:
		return CostProfileDegraded, true
	default:
		return CostProfile{}, false
	}
}
