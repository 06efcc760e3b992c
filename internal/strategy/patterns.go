package strategy

import (
	"fmt"
	"math"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/indicators"
)

const (
	cupRimTolerancePct = 10.0 // max left/right rim difference, % of rim
	swingWidth         = 2    // bars each side that confirm a swing high
)

// pullbackBreakout: uptrend, a pullback from the rolling high, then a
// breakout above that high on confirmed volume.
type pullbackBreakout struct{}

func (pullbackBreakout) Code() string { return domain.StrategyPullbackBreakout }
func (pullbackBreakout) Defaults() domain.Params {
	return domain.Params{"lookback": 20, "pullback_pct": 3.0, "slope_n": 20, "vol_n": 20, "vol_mult": 1.2}
}
func (pullbackBreakout) Description() string {
	return "uptrend with a recent pullback; close breaks the prior rolling high on volume"
}
func (pullbackBreakout) HasOpposite() bool { return false }

func (pullbackBreakout) Signals(series domain.Series, p domain.Params) (domain.Signals, error) {
	lookback, err := positiveInt(p, "lookback")
	if err != nil {
		return domain.Signals{}, err
	}
	pullback, err := positive(p, "pullback_pct")
	if err != nil {
		return domain.Signals{}, err
	}
	slopeN, err := positiveInt(p, "slope_n")
	if err != nil {
		return domain.Signals{}, err
	}
	volN, volMult, err := volumeParams(p)
	if err != nil {
		return domain.Signals{}, err
	}
	if slopeN < 2 {
		return domain.Signals{}, fmt.Errorf("%w: slope_n must be >= 2", ErrInvalidParams)
	}

	closes := series.Closes()
	priorHigh := indicators.Shift(indicators.RollingMax(series.Highs(), lookback))
	priorLow := indicators.Shift(indicators.RollingMin(series.Lows(), lookback))
	slope := indicators.Slope(closes, slopeN)
	vc := volumeConfirm(series, volN, volMult)

	entry := domain.NewSignal(len(series))
	for i := range series {
		if math.IsNaN(priorHigh[i]) || math.IsNaN(priorLow[i]) || math.IsNaN(slope[i]) {
			continue
		}
		uptrend := slope[i] > 0
		pulled := priorLow[i] <= priorHigh[i]*(1-pullback/100)
		entry[i] = uptrend && pulled && edgeAbove(closes, priorHigh, i) && vc[i]
	}
	return domain.Signals{Entry: entry}, nil
}

// cupHandle: a rounded cup followed by a shallow handle, entered on the
// rim breakout.
type cupHandle struct{}

func (cupHandle) Code() string { return domain.StrategyCupHandle }
func (cupHandle) Defaults() domain.Params {
	return domain.Params{
		"cup_n": 40, "handle_n": 10,
		"depth_min_pct": 8.0, "depth_max_pct": 40.0, "handle_max_pct": 15.0,
		"vol_n": 20, "vol_mult": 1.2,
	}
}
func (cupHandle) Description() string {
	return "rounded cup with matching rims and a shallow handle; close breaks the rim on volume"
}
func (cupHandle) HasOpposite() bool { return false }

func (cupHandle) Signals(series domain.Series, p domain.Params) (domain.Signals, error) {
	cupN, err := positiveInt(p, "cup_n")
	if err != nil {
		return domain.Signals{}, err
	}
	handleN, err := positiveInt(p, "handle_n")
	if err != nil {
		return domain.Signals{}, err
	}
	depthMin, err := number(p, "depth_min_pct")
	if err != nil {
		return domain.Signals{}, err
	}
	depthMax, err := number(p, "depth_max_pct")
	if err != nil {
		return domain.Signals{}, err
	}
	handleMax, err := positive(p, "handle_max_pct")
	if err != nil {
		return domain.Signals{}, err
	}
	volN, volMult, err := volumeParams(p)
	if err != nil {
		return domain.Signals{}, err
	}
	if cupN < 3 || depthMin < 0 || depthMin >= depthMax {
		return domain.Signals{}, fmt.Errorf("%w: cup_n >= 3 and 0 <= depth_min_pct < depth_max_pct", ErrInvalidParams)
	}

	highs, lows, closes := series.Highs(), series.Lows(), series.Closes()
	vc := volumeConfirm(series, volN, volMult)
	third := cupN / 3

	entry := domain.NewSignal(len(series))
	for i := cupN + handleN; i < len(series); i++ {
		hs := i - handleN // handle [hs, i)
		cs := hs - cupN   // cup [cs, hs)

		left := maxOf(highs[cs : cs+third])
		right := maxOf(highs[hs-third : hs])
		rim := math.Max(left, right)
		if rim <= 0 || math.Abs(left-right)/rim*100 > cupRimTolerancePct {
			continue
		}

		bIdx := cs + argMin(lows[cs:hs])
		if bIdx < cs+third || bIdx >= hs-third {
			continue // bottom must sit in the middle of the cup
		}
		bottom := lows[bIdx]
		depth := (rim - bottom) / rim * 100
		if depth < depthMin || depth > depthMax {
			continue
		}

		handleLow := minOf(lows[hs:i])
		handleHigh := maxOf(highs[hs:i])
		handleDepth := (right - handleLow) / right * 100
		if handleHigh > rim || handleDepth > handleMax || handleLow <= bottom+(rim-bottom)/2 {
			continue
		}

		entry[i] = closes[i] > rim && closes[i-1] <= rim && vc[i]
	}
	return domain.Signals{Entry: entry}, nil
}

// lowerHighsReversal: a sequence of lower swing highs with falling highs,
// entered when close breaks above the latest lower high.
type lowerHighsReversal struct{}

func (lowerHighsReversal) Code() string { return domain.StrategyLowerHighsReversal }
func (lowerHighsReversal) Defaults() domain.Params {
	return domain.Params{"lookback": 20, "slope_n": 10, "vol_n": 20, "vol_mult": 1.2}
}
func (lowerHighsReversal) Description() string {
	return "down-sloping lower highs; close breaks above the last lower high on volume"
}
func (lowerHighsReversal) HasOpposite() bool { return false }

func (lowerHighsReversal) Signals(series domain.Series, p domain.Params) (domain.Signals, error) {
	lookback, err := positiveInt(p, "lookback")
	if err != nil {
		return domain.Signals{}, err
	}
	slopeN, err := positiveInt(p, "slope_n")
	if err != nil {
		return domain.Signals{}, err
	}
	volN, volMult, err := volumeParams(p)
	if err != nil {
		return domain.Signals{}, err
	}
	if slopeN < 2 {
		return domain.Signals{}, fmt.Errorf("%w: slope_n must be >= 2", ErrInvalidParams)
	}

	highs, closes := series.Highs(), series.Closes()
	swing := swingHighs(highs, swingWidth)
	slope := indicators.Shift(indicators.Slope(highs, slopeN))
	vc := volumeConfirm(series, volN, volMult)

	entry := domain.NewSignal(len(series))
	for i := 1; i < len(series); i++ {
		if math.IsNaN(slope[i]) || slope[i] >= 0 {
			continue
		}
		// latest two swing highs confirmed before bar i
		last, prev := -1, -1
		for k := i - 1 - swingWidth; k >= 0 && k >= i-lookback; k-- {
			if !swing[k] {
				continue
			}
			if last < 0 {
				last = k
				continue
			}
			prev = k
			break
		}
		if prev < 0 || highs[last] >= highs[prev] {
			continue
		}
		level := highs[last]
		entry[i] = closes[i] > level && closes[i-1] <= level && vc[i]
	}
	return domain.Signals{Entry: entry}, nil
}

func volumeParams(p domain.Params) (int, float64, error) {
	n, err := positiveInt(p, "vol_n")
	if err != nil {
		return 0, 0, err
	}
	mult, err := positive(p, "vol_mult")
	if err != nil {
		return 0, 0, err
	}
	return n, mult, nil
}

// swingHighs marks bars whose high is the maximum of the w bars on each
// side. A swing at k is only known at bar k+w.
func swingHighs(highs []float64, w int) []bool {
	out := make([]bool, len(highs))
	for k := w; k+w < len(highs); k++ {
		ok := true
		for j := k - w; j <= k+w; j++ {
			if highs[j] > highs[k] {
				ok = false
				break
			}
		}
		out[k] = ok
	}
	return out
}

func maxOf(x []float64) float64 {
	m := math.Inf(-1)
	for _, v := range x {
		m = math.Max(m, v)
	}
	return m
}

func minOf(x []float64) float64 {
	m := math.Inf(1)
	for _, v := range x {
		m = math.Min(m, v)
	}
	return m
}

func argMin(x []float64) int {
	idx := 0
	for i, v := range x {
		if v < x[idx] {
			idx = i
		}
	}
	return idx
}
