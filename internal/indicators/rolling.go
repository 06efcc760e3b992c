package indicators

import "math"

// RollingMax is the maximum of the last p points including the current one.
func RollingMax(x []float64, p int) []float64 {
	return rollingExtreme(x, p, math.Max)
}

// RollingMin is the minimum of the last p points including the current one.
func RollingMin(x []float64, p int) []float64 {
	return rollingExtreme(x, p, math.Min)
}

func rollingExtreme(x []float64, p int, pick func(a, b float64) float64) []float64 {
	if p <= 0 {
		return nil
	}
	out := make([]float64, len(x))
	for i := range x {
		if i < p-1 {
			out[i] = math.NaN()
			continue
		}
		v := x[i-p+1]
		for j := i - p + 2; j <= i; j++ {
			v = pick(v, x[j])
		}
		out[i] = v
	}
	return out
}

// Slope is the least-squares slope of the last p points against their
// index, normalized by the window mean so that series of different price
// levels compare. NaN during warm-up or when the mean is zero.
func Slope(x []float64, p int) []float64 {
	if p <= 1 {
		return nil
	}
	out := make([]float64, len(x))
	// sum of k and k^2 for k = 0..p-1
	n := float64(p)
	sx := n * (n - 1) / 2
	sxx := (n - 1) * n * (2*n - 1) / 6
	den := n*sxx - sx*sx
	for i := range x {
		if i < p-1 {
			out[i] = math.NaN()
			continue
		}
		var sy, sxy float64
		for k := 0; k < p; k++ {
			y := x[i-p+1+k]
			sy += y
			sxy += float64(k) * y
		}
		mean := sy / n
		if mean == 0 || math.IsNaN(mean) {
			out[i] = math.NaN()
			continue
		}
		out[i] = (n*sxy - sx*sy) / den / mean
	}
	return out
}
