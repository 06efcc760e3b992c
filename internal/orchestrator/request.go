package orchestrator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/strategy"
)

// ErrInvalidRequest is returned when a scenario request fails validation.
var ErrInvalidRequest = errors.New("invalid scenario request")

// Request defaults
const (
	DefaultTimeframe   = "1d"
	DefaultCombo       = strategy.AliasMA20Breakout
	DefaultPeriodKey   = "12m"
	DefaultLimitTrades = 200
	DefaultFeeBps      = 10.0
	DefaultSlippageBps = 5.0
)

// Request is the scenario payload as it arrives over HTTP or from a file.
type Request struct {
	Scope         string   `json:"scope" yaml:"scope"`
	WatchlistName string   `json:"watchlistName" yaml:"watchlistName"`
	Symbols       []string `json:"symbols" yaml:"symbols"`

	Steps        []StepRequest        `json:"steps" yaml:"steps" validate:"dive"`
	WalkForward  WalkForwardRequest   `json:"walkForward" yaml:"walkForward"`
	CostProfiles []CostProfileRequest `json:"costProfiles" yaml:"costProfiles" validate:"dive"`

	IncludeEoTInStats *bool  `json:"includeEoTInStats" yaml:"includeEoTInStats"`
	LimitTrades       *int   `json:"limitTrades" yaml:"limitTrades" validate:"omitempty,gte=0"`
	ChainMode         string `json:"chainMode" yaml:"chainMode" validate:"omitempty,oneof=parallel gated state"`
	GroupBy           string `json:"groupBy" yaml:"groupBy"`
}

// StepRequest is one stage of a scenario request.
type StepRequest struct {
	Timeframe          string             `json:"tf" yaml:"tf"`
	ComboName          string             `json:"comboName" yaml:"comboName"`
	StrategyCode       string             `json:"strategyCode" yaml:"strategyCode"`
	StrategyParams     domain.Params      `json:"strategyParams" yaml:"strategyParams"`
	StrategyParamsGrid domain.ParamGrid   `json:"strategyParamsGrid" yaml:"strategyParamsGrid"`
	PeriodKey          string             `json:"periodKey" yaml:"periodKey"`
	Exit               domain.ExitRequest `json:"exit" yaml:"exit"`
	RequireBoth        bool               `json:"requireBoth" yaml:"requireBoth"`
	ScoreKey           string             `json:"scoreKey" yaml:"scoreKey" validate:"omitempty,oneof=pf winRate expectancy cagr"`
}

// WalkForwardRequest configures fold splitting. Folds 0 runs one
// full-range fold; 1 is clamped to 2.
type WalkForwardRequest struct {
	Folds        int      `json:"folds" yaml:"folds" validate:"gte=0"`
	Scheme       string   `json:"scheme" yaml:"scheme" validate:"omitempty,oneof=rolling anchored"`
	TrainRatio   *float64 `json:"trainRatio" yaml:"trainRatio" validate:"omitempty,gt=0,lt=1"`
	MinTrainDays *float64 `json:"minTrainDays" yaml:"minTrainDays" validate:"omitempty,gte=0"`
}

// CostProfileRequest is a named fee/slippage assumption. Missing costs
// take the engine defaults.
type CostProfileRequest struct {
	Name        string   `json:"name" yaml:"name"`
	FeeBps      *float64 `json:"fee_bps" yaml:"fee_bps" validate:"omitempty,gte=0"`
	SlippageBps *float64 `json:"slippage_bps" yaml:"slippage_bps" validate:"omitempty,gte=0"`
}

var validate = validator.New()

// Validate normalizes enum fields to lower case and checks the request.
// Failures wrap ErrInvalidRequest.
func (r *Request) Validate() error {
	r.Scope = strings.ToLower(strings.TrimSpace(r.Scope))
	r.ChainMode = strings.ToLower(strings.TrimSpace(r.ChainMode))
	r.GroupBy = strings.ToLower(strings.TrimSpace(r.GroupBy))
	r.WalkForward.Scheme = strings.ToLower(strings.TrimSpace(r.WalkForward.Scheme))

	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q (value %v)", ErrInvalidRequest, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// Build applies defaults and converts the request into an engine
// scenario. symbols is the resolved symbol list. Period keys are
// resolved against now.
func (r *Request) Build(symbols []string, now time.Time) *domain.Scenario {
	sc := &domain.Scenario{
		Symbols:           append([]string(nil), symbols...),
		ChainMode:         r.ChainMode,
		GroupBy:           r.GroupBy,
		Folds:             r.WalkForward.Folds,
		Scheme:            r.WalkForward.Scheme,
		IncludeEoTInStats: true,
		LimitTrades:       DefaultLimitTrades,
	}
	if sc.ChainMode == "" {
		sc.ChainMode = domain.ChainParallel
	}
	if sc.Scheme == "" {
		sc.Scheme = domain.SchemeRolling
	}
	if r.WalkForward.TrainRatio != nil {
		sc.TrainRatio = *r.WalkForward.TrainRatio
	}
	if r.WalkForward.MinTrainDays != nil {
		sc.MinTrainSeconds = int64(*r.WalkForward.MinTrainDays * 86400)
	}
	if r.IncludeEoTInStats != nil {
		sc.IncludeEoTInStats = *r.IncludeEoTInStats
	}
	if r.LimitTrades != nil {
		sc.LimitTrades = *r.LimitTrades
	}

	for _, p := range r.CostProfiles {
		cp := domain.CostProfile{Name: p.Name, FeeBps: DefaultFeeBps, SlippageBps: DefaultSlippageBps}
		if cp.Name == "" {
			cp.Name = domain.CostProfileNameBase
		}
		if p.FeeBps != nil {
			cp.FeeBps = *p.FeeBps
		}
		if p.SlippageBps != nil {
			cp.SlippageBps = *p.SlippageBps
		}
		sc.CostProfiles = append(sc.CostProfiles, cp)
	}
	if len(sc.CostProfiles) == 0 {
		sc.CostProfiles = []domain.CostProfile{domain.CostProfileBase}
	}

	for _, s := range r.Steps {
		step := domain.ScenarioStep{
			Timeframe:    strings.TrimSpace(s.Timeframe),
			StrategyCode: strings.TrimSpace(s.StrategyCode),
			ComboName:    strings.TrimSpace(s.ComboName),
			Params:       s.StrategyParams,
			ParamGrid:    s.StrategyParamsGrid,
			PeriodKey:    strings.TrimSpace(s.PeriodKey),
			Exit:         s.Exit.Policy(),
			ExitRequest:  s.Exit,
			RequireBoth:  s.RequireBoth,
			ScoreKey:     s.ScoreKey,
		}
		if step.Timeframe == "" {
			step.Timeframe = DefaultTimeframe
		}
		if step.StrategyCode == "" && step.ComboName == "" {
			step.ComboName = DefaultCombo
		}
		if step.PeriodKey == "" {
			step.PeriodKey = DefaultPeriodKey
		}
		if step.ScoreKey == "" {
			step.ScoreKey = domain.ScoreKeyPF
		}
		step.StartTs = PeriodStart(step.PeriodKey, now)
		sc.Steps = append(sc.Steps, step)
	}
	return sc
}

// PeriodStart converts a lookback key into a start timestamp relative to
// now: "Nm" is N*30 days, "Nd" N days, "Ny" N*365 days and "all" is 0.
// Malformed keys fall back to 365 days.
func PeriodStart(key string, now time.Time) int64 {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" {
		k = DefaultPeriodKey
	}
	if k == "all" {
		return 0
	}

	days := 365
	if len(k) > 1 {
		n, err := strconv.Atoi(k[:len(k)-1])
		if err == nil {
			switch k[len(k)-1] {
			case 'm':
				days = n * 30
			case 'd':
				days = n
			case 'y':
				days = n * 365
			}
		}
	}
	return now.Unix() - int64(days)*86400
}
