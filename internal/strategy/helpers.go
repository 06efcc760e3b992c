package strategy

import (
	"fmt"
	"math"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/indicators"
)

// positiveInt reads key as an integer >= 1.
func positiveInt(p domain.Params, key string) (int, error) {
	f, ok := p.Float(key)
	if !ok || f < 1 || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s must be a positive integer", ErrInvalidParams, key)
	}
	return int(f), nil
}

// number reads key as a finite float.
func number(p domain.Params, key string) (float64, error) {
	f, ok := p.Float(key)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidParams, key)
	}
	return f, nil
}

// positive reads key as a float > 0.
func positive(p domain.Params, key string) (float64, error) {
	f, err := number(p, key)
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, fmt.Errorf("%w: %s must be > 0", ErrInvalidParams, key)
	}
	return f, nil
}

// volumeConfirm is true where volume >= mult x SMA(volume, n) of the prior bars.
func volumeConfirm(series domain.Series, n int, mult float64) []bool {
	vol := series.Volumes()
	avg := indicators.Shift(indicators.SMA(vol, n))
	out := make([]bool, len(series))
	for i := range out {
		out[i] = !math.IsNaN(avg[i]) && vol[i] >= mult*avg[i]
	}
	return out
}

// edgeAbove is true where x crosses above level on this bar.
func edgeAbove(x, level []float64, i int) bool {
	return i > 0 && x[i] > level[i] && x[i-1] <= level[i-1]
}

func toSignal(b []bool) domain.Signal {
	return domain.Signal(b)
}
