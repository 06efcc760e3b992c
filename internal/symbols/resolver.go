// Package symbols resolves the symbol set of a scenario request.
package symbols

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/limeking/psa-next-hts-coin/internal/storage"
)

// Scopes
const (
	ScopeWatchlist = "watchlist"
	ScopeAll       = "all"
)

// Resolver maps a request scope to an ordered, de-duplicated symbol list.
type Resolver struct {
	watchlists storage.WatchlistStore
	logger     zerolog.Logger
}

// NewResolver creates a resolver over a watchlist store.
func NewResolver(watchlists storage.WatchlistStore, logger zerolog.Logger) *Resolver {
	return &Resolver{
		watchlists: watchlists,
		logger:     logger.With().Str("component", "symbols").Logger(),
	}
}

// Resolve returns the symbols of a scope. The watchlist scope reads the
// named watchlist and falls back to the client symbols when the name is
// empty, unknown or unreadable. Any other scope reads the full universe.
// Order is preserved and duplicates are dropped.
func (r *Resolver) Resolve(ctx context.Context, scope, watchlistName string, clientSymbols []string) ([]string, error) {
	scope = strings.ToLower(strings.TrimSpace(scope))

	if scope == ScopeWatchlist {
		if watchlistName == "" {
			return Dedup(clientSymbols), nil
		}
		syms, err := r.watchlists.GetWatchlist(ctx, watchlistName)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				r.logger.Warn().Str("watchlist", watchlistName).Err(err).Msg("watchlist unreadable, using client symbols")
			}
			return Dedup(clientSymbols), nil
		}
		return Dedup(syms), nil
	}

	syms, err := r.watchlists.AllSymbols(ctx)
	if err != nil {
		return nil, err
	}
	return Dedup(syms), nil
}

// Dedup drops blank and repeated symbols keeping first occurrences.
func Dedup(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
