package indicators

// CrossAbove is true where a > b on this bar and a <= b on the previous
// bar. Comparisons involving NaN are false.
func CrossAbove(a, b []float64) []bool {
	out := make([]bool, len(a))
	for i := 1; i < len(a) && i < len(b); i++ {
		out[i] = a[i] > b[i] && a[i-1] <= b[i-1]
	}
	return out
}

// CrossBelow is true where a < b on this bar and a >= b on the previous bar.
func CrossBelow(a, b []float64) []bool {
	out := make([]bool, len(a))
	for i := 1; i < len(a) && i < len(b); i++ {
		out[i] = a[i] < b[i] && a[i-1] >= b[i-1]
	}
	return out
}

// Const returns a sequence of n copies of v.
func Const(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
