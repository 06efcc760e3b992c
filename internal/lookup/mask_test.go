package lookup

import (
	"testing"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
)

func TestMaskAt_Empty(t *testing.T) {
	if MaskAt(1000, nil, nil) {
		t.Errorf("expected false for empty mask")
	}
}

func TestMaskAt_ExactMatch(t *testing.T) {
	times := []int64{1000, 2000, 3000}
	mask := domain.Signal{false, true, false}

	if !MaskAt(2000, times, mask) {
		t.Errorf("expected true at 2000")
	}
}

func TestMaskAt_BeforeTarget(t *testing.T) {
	times := []int64{1000, 2000, 3000}
	mask := domain.Signal{false, true, false}

	// Target 2500 should return the value at 2000
	if !MaskAt(2500, times, mask) {
		t.Errorf("expected true at 2500")
	}
	// After the last bar the last value holds
	if MaskAt(9000, times, mask) {
		t.Errorf("expected false at 9000")
	}
}

func TestMaskAt_BeforeFirst(t *testing.T) {
	times := []int64{1000, 2000}
	mask := domain.Signal{true, true}

	if MaskAt(500, times, mask) {
		t.Errorf("expected false before the first bar")
	}
}

func TestForwardFill_DailyOntoHourly(t *testing.T) {
	const day = 86400
	times := []int64{day, 2 * day, 3 * day}
	mask := domain.Signal{false, true, false}

	onto := []int64{day - 3600, day, day + 3600, 2 * day, 2*day + 3600, 3 * day, 3*day + 3600}
	want := []bool{false, false, false, true, true, false, false}

	got := ForwardFill(times, mask, onto)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bar %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCombine(t *testing.T) {
	onto := []int64{1, 2, 3, 4}
	masks := []Mask{
		{Times: []int64{1, 3}, Value: domain.Signal{true, true}},
		{Times: []int64{2}, Value: domain.Signal{true}},
	}

	got := Combine(masks, onto)
	want := []bool{false, true, true, true}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bar %d: got %v, want %v", i, got[i], want[i])
		}
	}

	if Combine(nil, onto) != nil {
		t.Errorf("no masks should combine to nil")
	}
}

func TestAnyWithin(t *testing.T) {
	bins := []int64{0, 100, 200}
	times := []int64{-10, 0, 50, 150, 210, 500}
	sig := domain.Signal{true, false, true, false, false, true}

	got := AnyWithin(times, sig, bins)
	want := domain.Signal{true, false, true}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bin %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestAnyWithin_SameClock(t *testing.T) {
	times := []int64{1, 2, 3}
	sig := domain.Signal{false, true, true}

	got := AnyWithin(times, sig, times)
	for i := range sig {
		if got[i] != sig[i] {
			t.Errorf("bar %d = %v, want %v", i, got[i], sig[i])
		}
	}
}
