package strategy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
)

// Registry errors
var (
	ErrUnknownStrategy = errors.New("unknown strategy code")
	ErrInvalidParams   = errors.New("invalid strategy params")
)

// Legacy combo names
const (
	AliasMA5_20Cross  = "MA5_20_cross"
	AliasMA20Breakout = "MA20_breakout"
	AliasRSI30_70     = "RSI_30_70"
)

// Registry is an immutable code -> strategy map. It is built once by
// NewRegistry and never mutated afterwards, so it is safe for concurrent use.
type Registry struct {
	strategies map[string]Strategy
	aliases    map[string]Alias
}

// Default is the registry with every built-in strategy and legacy alias.
var Default = NewRegistry()

// NewRegistry builds the registry of built-in strategies.
func NewRegistry() *Registry {
	all := []Strategy{
		maCross{},
		rsiBands{},
		macdCross{},
		maBreakout{},
		volumeSpike{},
		pullbackBreakout{},
		cupHandle{},
		lowerHighsReversal{},
		none{},
	}
	r := &Registry{
		strategies: make(map[string]Strategy, len(all)),
		aliases: map[string]Alias{
			AliasMA5_20Cross: {
				Name:   AliasMA5_20Cross,
				Code:   domain.StrategyMACross,
				Preset: domain.Params{"fast": 5, "slow": 20, "direction": domain.DirectionUp},
			},
			AliasMA20Breakout: {
				Name:   AliasMA20Breakout,
				Code:   domain.StrategyMABreakout,
				Preset: domain.Params{"length": 20},
			},
			AliasRSI30_70: {
				Name:   AliasRSI30_70,
				Code:   domain.StrategyRSIBands,
				Preset: domain.Params{"length": 14, "low": 30, "high": 70},
			},
		},
	}
	for _, s := range all {
		r.strategies[s.Code()] = s
	}
	return r
}

// Lookup returns the strategy for a canonical code or alias together
// with the alias preset (nil for canonical codes).
func (r *Registry) Lookup(code string) (Strategy, domain.Params, error) {
	code = strings.TrimSpace(code)
	if a, ok := r.aliases[code]; ok {
		return r.strategies[a.Code], a.Preset, nil
	}
	if s, ok := r.strategies[strings.ToUpper(code)]; ok {
		return s, nil, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, code)
}

// Known reports whether code is a registered code or alias.
func (r *Registry) Known(code string) bool {
	_, _, err := r.Lookup(code)
	return err == nil
}

// Canonical returns the canonical code for code or alias.
func (r *Registry) Canonical(code string) (string, bool) {
	s, _, err := r.Lookup(code)
	if err != nil {
		return "", false
	}
	return s.Code(), true
}

// Params returns the effective parameters: defaults, then alias preset,
// then the caller's params.
func (r *Registry) Params(code string, params domain.Params) domain.Params {
	s, preset, err := r.Lookup(code)
	if err != nil {
		return domain.Params{}.Merge(params)
	}
	return s.Defaults().Merge(preset).Merge(params)
}

// Resolve computes signals for code. It never fails: unknown codes and
// malformed params dispatch to the all-false variant. The volume filter
// read from params is ANDed into entry.
func (r *Registry) Resolve(series domain.Series, code string, params domain.Params) domain.Signals {
	s, preset, err := r.Lookup(code)
	if err != nil {
		s = r.strategies[domain.StrategyNone]
	}
	p := s.Defaults().Merge(preset).Merge(params)

	sig, err := s.Signals(series, p)
	if err != nil || len(sig.Entry) != len(series) {
		return domain.EmptySignals(len(series))
	}
	sig.Entry = sig.Entry.And(VolumeFilter(series, p))
	return sig
}

// Codes returns registered canonical codes, sorted.
func (r *Registry) Codes() []string {
	out := make([]string, 0, len(r.strategies))
	for c := range r.strategies {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Aliases returns the legacy aliases sorted by name.
func (r *Registry) Aliases() []Alias {
	out := make([]Alias, 0, len(r.aliases))
	for _, a := range r.aliases {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Catalog describes every registered strategy except the fail-closed one.
func (r *Registry) Catalog() []CatalogEntry {
	var out []CatalogEntry
	for _, c := range r.Codes() {
		if c == domain.StrategyNone {
			continue
		}
		s := r.strategies[c]
		out = append(out, CatalogEntry{
			Code:        c,
			Description: s.Description(),
			Defaults:    s.Defaults(),
			HasOpposite: s.HasOpposite(),
		})
	}
	return out
}
