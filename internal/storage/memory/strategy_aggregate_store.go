package memory

import (
	"context"
	"sort"
	"sync"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/storage"
)

// StrategyAggregateStore keeps aggregates per dataset, keyed by strategy.
type StrategyAggregateStore struct {
	mu   sync.RWMutex
	data map[string]map[string]domain.StrategyAggregate // dataset_key -> strategy -> aggregate
}

// NewStrategyAggregateStore creates an empty store.
func NewStrategyAggregateStore() *StrategyAggregateStore {
	return &StrategyAggregateStore{data: make(map[string]map[string]domain.StrategyAggregate)}
}

// Insert stores one aggregate. Returns ErrDuplicateKey if (dataset_key, strategy) exists.
func (s *StrategyAggregateStore) Insert(ctx context.Context, a *domain.StrategyAggregate) error {
	if a == nil {
		return storage.ErrInvalidInput
	}
	return s.InsertBulk(ctx, []*domain.StrategyAggregate{a})
}

// InsertBulk stores every aggregate or none of them.
func (s *StrategyAggregateStore) InsertBulk(_ context.Context, aggregates []*domain.StrategyAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make(map[[2]string]struct{}, len(aggregates))
	for _, a := range aggregates {
		if a == nil || a.DatasetKey == "" || a.Strategy == "" {
			return storage.ErrInvalidInput
		}
		k := [2]string{a.DatasetKey, a.Strategy}
		_, stored := s.data[a.DatasetKey][a.Strategy]
		_, queued := pending[k]
		if stored || queued {
			return storage.ErrDuplicateKey
		}
		pending[k] = struct{}{}
	}

	for _, a := range aggregates {
		byStrategy, ok := s.data[a.DatasetKey]
		if !ok {
			byStrategy = make(map[string]domain.StrategyAggregate)
			s.data[a.DatasetKey] = byStrategy
		}
		byStrategy[a.Strategy] = *a
	}
	return nil
}

// GetByKey returns the aggregate of one strategy, or ErrNotFound.
func (s *StrategyAggregateStore) GetByKey(_ context.Context, datasetKey, strategy string) (*domain.StrategyAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.data[datasetKey][strategy]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &a, nil
}

// GetByDataset returns a dataset's aggregates ordered by strategy.
func (s *StrategyAggregateStore) GetByDataset(_ context.Context, datasetKey string) ([]*domain.StrategyAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byStrategy := s.data[datasetKey]
	result := make([]*domain.StrategyAggregate, 0, len(byStrategy))
	for _, a := range byStrategy {
		a := a
		result = append(result, &a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Strategy < result[j].Strategy })
	return result, nil
}

var _ storage.StrategyAggregateStore = (*StrategyAggregateStore)(nil)
