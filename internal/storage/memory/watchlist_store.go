package memory

import (
	"context"
	"sync"

	"github.com/limeking/psa-next-hts-coin/internal/storage"
)

// WatchlistStore is an in-memory implementation of storage.WatchlistStore.
type WatchlistStore struct {
	mu         sync.RWMutex
	watchlists map[string][]string
	universe   []string
}

// NewWatchlistStore creates a new in-memory watchlist store.
func NewWatchlistStore() *WatchlistStore {
	return &WatchlistStore{
		watchlists: make(map[string][]string),
	}
}

// SaveWatchlist inserts or replaces a watchlist.
func (s *WatchlistStore) SaveWatchlist(_ context.Context, name string, symbols []string) error {
	if name == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchlists[name] = append([]string{}, symbols...)
	return nil
}

// GetWatchlist returns ErrNotFound if the watchlist does not exist.
func (s *WatchlistStore) GetWatchlist(_ context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols, exists := s.watchlists[name]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return append([]string{}, symbols...), nil
}

// SetUniverse replaces the all-symbols list.
func (s *WatchlistStore) SetUniverse(_ context.Context, symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.universe = append([]string{}, symbols...)
	return nil
}

// AllSymbols returns the universe in stored order.
func (s *WatchlistStore) AllSymbols(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.universe...), nil
}

var _ storage.WatchlistStore = (*WatchlistStore)(nil)
