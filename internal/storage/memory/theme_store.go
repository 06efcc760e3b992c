package memory

import (
	"context"
	"sync"

	"github.com/limeking/psa-next-hts-coin/internal/storage"
)

// ThemeStore is an in-memory implementation of storage.ThemeStore.
type ThemeStore struct {
	mu   sync.RWMutex
	data map[string][]string // keyed by symbol
}

// NewThemeStore creates a new in-memory theme store.
func NewThemeStore() *ThemeStore {
	return &ThemeStore{
		data: make(map[string][]string),
	}
}

// SetThemes replaces the themes of symbol. An empty list unmaps it.
func (s *ThemeStore) SetThemes(_ context.Context, symbol string, themes []string) error {
	if symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(themes) == 0 {
		delete(s.data, symbol)
		return nil
	}
	s.data[symbol] = append([]string{}, themes...)
	return nil
}

// Themes returns the mapping for the requested symbols.
func (s *ThemeStore) Themes(_ context.Context, symbols []string) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string][]string, len(symbols))
	for _, sym := range symbols {
		if themes, ok := s.data[sym]; ok {
			result[sym] = append([]string{}, themes...)
		}
	}
	return result, nil
}

var _ storage.ThemeStore = (*ThemeStore)(nil)
