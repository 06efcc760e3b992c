// Package lookup aligns regime masks recorded on one bar clock onto
// another by forward-fill.
package lookup

import (
	"sort"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
)

// MaskAt returns the mask value at or before target.
// Before the first recorded bar the mask is false.
func MaskAt(target int64, times []int64, mask domain.Signal) bool {
	i := sort.Search(len(times), func(i int) bool { return times[i] > target })
	return mask.At(i - 1)
}

// ForwardFill resamples mask, recorded at times, onto the timestamps in
// onto. Each output bar takes the last mask value at or before its time;
// bars before the first recorded time are false. Both time slices must be
// sorted ascending.
func ForwardFill(times []int64, mask domain.Signal, onto []int64) domain.Signal {
	out := make(domain.Signal, len(onto))
	j := -1
	for i, t := range onto {
		for j+1 < len(times) && times[j+1] <= t {
			j++
		}
		out[i] = mask.At(j)
	}
	return out
}

// Mask is a regime mask together with the bar times it was recorded on.
type Mask struct {
	Times []int64
	Value domain.Signal
}

// Combine forward-fills every mask onto onto and ANDs them in order.
// No masks yields nil.
func Combine(masks []Mask, onto []int64) domain.Signal {
	var combined domain.Signal
	for _, m := range masks {
		aligned := ForwardFill(m.Times, m.Value, onto)
		if combined == nil {
			combined = aligned
			continue
		}
		combined = combined.And(aligned)
	}
	return combined
}

// AnyWithin folds sig, recorded at times, back onto the bar clock bins.
// Bin i is true when sig fires at some time in [bins[i], bins[i+1]); the
// last bin is open-ended. Both time slices must be sorted ascending.
func AnyWithin(times []int64, sig domain.Signal, bins []int64) domain.Signal {
	out := make(domain.Signal, len(bins))
	j := 0
	for i := range bins {
		for j < len(times) && times[j] < bins[i] {
			j++
		}
		for ; j < len(times) && (i+1 == len(bins) || times[j] < bins[i+1]); j++ {
			if sig.At(j) {
				out[i] = true
			}
		}
	}
	return out
}
