// Package strategy resolves strategy codes into entry and opposite-exit
// signals over a candle series.
package strategy

import (
	"github.com/limeking/psa-next-hts-coin/internal/domain"
)

// Strategy produces signals from a candle series.
type Strategy interface {
	// Code returns the canonical strategy code.
	Code() string

	// Defaults returns the default parameters. Callers merge their own
	// params on top.
	Defaults() domain.Params

	// Description is a one-line human readable summary.
	Description() string

	// HasOpposite reports whether Signals fills Opposite.
	HasOpposite() bool

	// Signals computes entry and opposite sequences aligned with series.
	// Returns ErrInvalidParams for malformed parameters.
	Signals(series domain.Series, p domain.Params) (domain.Signals, error)
}

// Alias maps a legacy combo name onto a canonical code plus preset params.
type Alias struct {
	Name   string        `json:"name"`
	Code   string        `json:"code"`
	Preset domain.Params `json:"preset"`
}

// CatalogEntry describes one registered strategy.
type CatalogEntry struct {
	Code        string        `json:"code"`
	Description string        `json:"description"`
	Defaults    domain.Params `json:"defaults"`
	HasOpposite bool          `json:"hasOpposite"`
}
