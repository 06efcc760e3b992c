package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/storage"
)

// ComboStore is an in-memory implementation of storage.ComboStore.
// Combos are kept in encoded form so callers never share the node tree.
type ComboStore struct {
	mu   sync.RWMutex
	data map[string][]byte // keyed by name
}

// NewComboStore creates a new in-memory combo store.
func NewComboStore() *ComboStore {
	return &ComboStore{
		data: make(map[string][]byte),
	}
}

// Save inserts or replaces a combo by name.
func (s *ComboStore) Save(_ context.Context, combo *domain.Combo) error {
	if combo == nil || combo.Name == "" {
		return storage.ErrInvalidInput
	}
	raw, err := json.Marshal(combo)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[combo.Name] = raw
	return nil
}

// GetByName returns ErrNotFound if no combo has that name.
func (s *ComboStore) GetByName(_ context.Context, name string) (*domain.Combo, error) {
	s.mu.RLock()
	raw, exists := s.data[name]
	s.mu.RUnlock()

	if !exists {
		return nil, storage.ErrNotFound
	}
	var combo domain.Combo
	if err := json.Unmarshal(raw, &combo); err != nil {
		return nil, err
	}
	return &combo, nil
}

// List returns combo names, sorted.
func (s *ComboStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

var _ storage.ComboStore = (*ComboStore)(nil)
