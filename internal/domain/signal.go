package domain

// Signal is a 0/1 indicator sequence aligned by position with a Series.
type Signal []bool

// NewSignal returns an all-false signal of length n.
func NewSignal(n int) Signal {
	return make(Signal, n)
}

// Count returns the number of true bars.
func (s Signal) Count() int {
	n := 0
	for _, v := range s {
		if v {
			n++
		}
	}
	return n
}

// At reports s[i], treating out-of-range and nil as false.
func (s Signal) At(i int) bool {
	return i >= 0 && i < len(s) && s[i]
}

// And returns a new signal true where both s and other are true.
// The result has the length of s; missing bars of other count as false.
func (s Signal) And(other Signal) Signal {
	out := make(Signal, len(s))
	for i := range s {
		out[i] = s[i] && other.At(i)
	}
	return out
}

// Or returns a new signal true where either input is true.
func (s Signal) Or(other Signal) Signal {
	out := make(Signal, len(s))
	for i := range s {
		out[i] = s[i] || other.At(i)
	}
	return out
}

// Window returns a copy of bars [lo, hi). A nil signal stays nil.
func (s Signal) Window(lo, hi int) Signal {
	if s == nil {
		return nil
	}
	out := make(Signal, hi-lo)
	for i := lo; i < hi; i++ {
		out[i-lo] = s.At(i)
	}
	return out
}

// Ints renders the signal as 0/1 integers.
func (s Signal) Ints() []int {
	out := make([]int, len(s))
	for i, v := range s {
		if v {
			out[i] = 1
		}
	}
	return out
}

// Signals is the resolver output: entry and opposite-exit sequences.
// Opposite is nil when the strategy has no native opposite signal.
type Signals struct {
	Entry    Signal
	Opposite Signal
}

// EmptySignals returns all-false entry and opposite sequences of length n.
func EmptySignals(n int) Signals {
	return Signals{Entry: NewSignal(n), Opposite: NewSignal(n)}
}
