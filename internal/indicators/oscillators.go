package indicators

import "math"

// RSI is the Wilder relative strength index of length n. Average gain and
// loss use recursive smoothing with alpha 1/n; a zero average loss is
// floored at 1e-12.
func RSI(close []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	up := make([]float64, len(close))
	down := make([]float64, len(close))
	for i := range close {
		if i == 0 {
			up[i], down[i] = math.NaN(), math.NaN()
			continue
		}
		d := close[i] - close[i-1]
		up[i] = math.Max(d, 0)
		down[i] = math.Max(-d, 0)
		if math.IsNaN(d) {
			up[i], down[i] = math.NaN(), math.NaN()
		}
	}
	alpha := 1 / float64(n)
	avgUp := EWM(up, alpha)
	avgDown := EWM(down, alpha)
	out := make([]float64, len(close))
	for i := range close {
		if math.IsNaN(avgUp[i]) || math.IsNaN(avgDown[i]) {
			out[i] = math.NaN()
			continue
		}
		rs := avgUp[i] / math.Max(avgDown[i], 1e-12)
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// MACD returns the MACD line (EMA fast - EMA slow) and its signal line.
func MACD(close []float64, fast, slow, signal int) (line, sig []float64) {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return nil, nil
	}
	ef := EMA(close, fast)
	es := EMA(close, slow)
	line = make([]float64, len(close))
	for i := range close {
		line[i] = ef[i] - es[i]
	}
	return line, EMA(line, signal)
}
