package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/limeking/psa-next-hts-coin/internal/domain"
	"github.com/limeking/psa-next-hts-coin/internal/storage"
)

// ScenarioRunStore is an in-memory implementation of storage.ScenarioRunStore.
type ScenarioRunStore struct {
	mu       sync.RWMutex
	runs     map[string]*domain.ScenarioRun // keyed by run_id
	trades   map[string][]domain.RunTrade   // keyed by run_id
	tradeIDs map[string]struct{}
}

// NewScenarioRunStore creates a new in-memory scenario run store.
func NewScenarioRunStore() *ScenarioRunStore {
	return &ScenarioRunStore{
		runs:     make(map[string]*domain.ScenarioRun),
		trades:   make(map[string][]domain.RunTrade),
		tradeIDs: make(map[string]struct{}),
	}
}

// Insert adds a run with its trades. Fails entirely on any duplicate.
func (s *ScenarioRunStore) Insert(_ context.Context, run *domain.ScenarioRun, trades []domain.RunTrade) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[string]struct{}, len(trades))
	for _, t := range trades {
		if t.TradeID == "" || t.RunID != run.RunID {
			return storage.ErrInvalidInput
		}
		if _, exists := s.tradeIDs[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[t.TradeID] = struct{}{}
	}

	// Second pass: insert all
	runCopy := *run
	s.runs[run.RunID] = &runCopy
	s.trades[run.RunID] = append([]domain.RunTrade{}, trades...)
	for id := range batchKeys {
		s.tradeIDs[id] = struct{}{}
	}
	return nil
}

// GetByID returns ErrNotFound if the run does not exist.
func (s *ScenarioRunStore) GetByID(_ context.Context, runID string) (*domain.ScenarioRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.runs[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	runCopy := *r
	return &runCopy, nil
}

// List returns runs newest first, at most limit (0 = all).
func (s *ScenarioRunStore) List(_ context.Context, limit int) ([]*domain.ScenarioRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ScenarioRun, 0, len(s.runs))
	for _, r := range s.runs {
		runCopy := *r
		result = append(result, &runCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].RunID < result[j].RunID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// GetTrades returns the trades of a run in result-tree order.
func (s *ScenarioRunStore) GetTrades(_ context.Context, runID string) ([]domain.RunTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.runs[runID]; !exists {
		return nil, storage.ErrNotFound
	}
	result := append([]domain.RunTrade{}, s.trades[runID]...)
	SortRunTrades(result)
	return result, nil
}

// SortRunTrades orders trades by step, symbol, profile, fold start and
// entry time.
func SortRunTrades(trades []domain.RunTrade) {
	sort.SliceStable(trades, func(i, j int) bool {
		a, b := trades[i], trades[j]
		if a.Step != b.Step {
			return a.Step < b.Step
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		if a.Profile != b.Profile {
			return a.Profile < b.Profile
		}
		if a.FoldStart != b.FoldStart {
			return a.FoldStart < b.FoldStart
		}
		return a.EntryTime < b.EntryTime
	})
}

var _ storage.ScenarioRunStore = (*ScenarioRunStore)(nil)
