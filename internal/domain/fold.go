package domain

// Fold is one walk-forward partition with inclusive epoch-second bounds.
// Train bounds are nil when the fold carries no train range.
type Fold struct {
	TrainStart *int64
	TrainEnd   *int64
	TestStart  int64
	TestEnd    int64
}

// HasTrain reports whether the fold has a usable train range.
func (f Fold) HasTrain() bool {
	return f.TrainStart != nil && f.TrainEnd != nil && *f.TrainEnd >= *f.TrainStart
}

// Walk-forward schemes
const (
	SchemeRolling  = "rolling"
	SchemeAnchored = "anchored"
)
