// Package indicators computes rolling technical indicators over float
// sequences. Outputs are aligned to the input length and carry NaN where
// the window has not filled yet.
package indicators

import "math"

// SMA over the last p points; NaN until p points are available.
func SMA(x []float64, p int) []float64 {
	if p <= 0 {
		return nil
	}
	out := make([]float64, len(x))
	var sum float64
	var bad int // NaNs inside the window
	for i := range x {
		if math.IsNaN(x[i]) {
			bad++
		} else {
			sum += x[i]
		}
		if i >= p {
			if math.IsNaN(x[i-p]) {
				bad--
			} else {
				sum -= x[i-p]
			}
		}
		if i < p-1 || bad > 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(p)
	}
	return out
}

// EWM is an exponentially weighted mean with recursive weighting, seeded
// at the first finite value. Leading NaNs stay NaN.
func EWM(x []float64, alpha float64) []float64 {
	out := make([]float64, len(x))
	seeded := false
	var prev float64
	for i, v := range x {
		if math.IsNaN(v) {
			if seeded {
				out[i] = prev
			} else {
				out[i] = math.NaN()
			}
			continue
		}
		if !seeded {
			prev = v
			seeded = true
		} else {
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}

// EMA with span p (alpha 2/(p+1)), seeded at the first value.
func EMA(x []float64, p int) []float64 {
	if p <= 0 {
		return nil
	}
	return EWM(x, 2.0/float64(p+1))
}

// Shift returns x delayed by one position; the first element is NaN.
func Shift(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	out[0] = math.NaN()
	copy(out[1:], x[:len(x)-1])
	return out
}

// PctChange returns (x[i]/x[i-1]-1)*100; NaN at 0 and where x[i-1] is 0.
func PctChange(x []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		if i == 0 || x[i-1] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (x[i]/x[i-1] - 1) * 100
	}
	return out
}
