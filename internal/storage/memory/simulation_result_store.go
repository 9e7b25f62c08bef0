package memory

import (
	"context"
	"sort"
	"sync"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/storage"
)

// SimulationResultStore is an in-memory implementation of storage.SimulationResultStore.
// Per-path metrics are not retained, matching the persistent backends.
type SimulationResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SimulationResult // keyed by run_id
}

// NewSimulationResultStore creates a new in-memory simulation result store.
func NewSimulationResultStore() *SimulationResultStore {
	return &SimulationResultStore{
		data: make(map[string]*domain.SimulationResult),
	}
}

// Insert adds a result. Returns ErrDuplicateKey if run_id exists.
func (s *SimulationResultStore) Insert(_ context.Context, r *domain.SimulationResult) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	resultCopy := *r
	resultCopy.Paths = nil
	s.data[r.RunID] = &resultCopy
	return nil
}

// GetByID retrieves a result by run ID. Returns ErrNotFound if not exists.
func (s *SimulationResultStore) GetByID(_ context.Context, runID string) (*domain.SimulationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	resultCopy := *r
	return &resultCopy, nil
}

// GetByDataset retrieves all results for a dataset ordered by run_id.
func (s *SimulationResultStore) GetByDataset(_ context.Context, datasetKey string) ([]*domain.SimulationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SimulationResult
	for _, r := range s.data {
		if r.DatasetKey == datasetKey {
			resultCopy := *r
			result = append(result, &resultCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RunID < result[j].RunID
	})

	return result, nil
}

var _ storage.SimulationResultStore = (*SimulationResultStore)(nil)
