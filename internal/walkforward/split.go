// Package walkforward splits a time span into train/test folds and tunes
// strategy parameters on each fold's train range.
package walkforward

import (
	"github.com/limeking/psa-next-hts-coin/internal/domain"
)

// Defaults for rolling folds.
const (
	DefaultTrainRatio = 0.7
	MinFolds          = 2
)

// SplitOptions tunes how train ranges are carved.
type SplitOptions struct {
	TrainRatio float64 // rolling only; 0 means DefaultTrainRatio
	MinTrain   int64   // seconds; shorter train ranges are dropped
}

// Split cuts [first, last] into folds equal test segments. Test ranges are
// integer-inclusive and disjoint, and their union is exactly [first, last].
// folds below MinFolds is clamped. Folds whose test range is empty are
// dropped; a fold whose train range is empty or shorter than MinTrain
// keeps nil train bounds.
func Split(first, last int64, folds int, scheme string, opts SplitOptions) []domain.Fold {
	if last < first {
		return nil
	}
	if folds < MinFolds {
		folds = MinFolds
	}
	ratio := opts.TrainRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = DefaultTrainRatio
	}

	// span is last-first+1 seconds; the final fold absorbs the remainder
	step := (last - first + 1) / int64(folds)
	out := make([]domain.Fold, 0, folds)
	for k := 0; k < folds; k++ {
		testStart := first + step*int64(k)
		testEnd := first + step*int64(k+1) - 1
		if k == folds-1 {
			testEnd = last
		}
		if testEnd < testStart {
			continue
		}

		f := domain.Fold{TestStart: testStart, TestEnd: testEnd}
		trainEnd := testStart - 1
		var trainStart int64
		switch scheme {
		case domain.SchemeAnchored:
			trainStart = first
		default:
			segLen := testEnd - testStart + 1
			trainLen := int64(float64(segLen) * ratio / (1 - ratio))
			if trainLen < opts.MinTrain {
				trainLen = opts.MinTrain
			}
			trainStart = trainEnd - trainLen + 1
			if trainStart < first {
				trainStart = first
			}
		}

		if trainEnd >= trainStart && trainEnd-trainStart+1 >= opts.MinTrain {
			ts, te := trainStart, trainEnd
			f.TrainStart, f.TrainEnd = &ts, &te
		}
		out = append(out, f)
	}
	return out
}

// FullRange is the single fold used when walk-forward is off.
func FullRange(first, last int64) []domain.Fold {
	return []domain.Fold{{TestStart: first, TestEnd: last}}
}
