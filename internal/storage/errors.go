package storage

import "errors"

// Store errors shared by every backend.
var (
	// ErrNotFound is returned for unknown run ids, combos and watchlists.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a candle bar, run or trade id is
	// already stored. Candle and run stores never overwrite.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned for nil records and empty keys.
	ErrInvalidInput = errors.New("invalid input")
)
