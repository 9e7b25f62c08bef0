package memory

import (
	"context"
	"sort"
	"sync"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/storage"
)

// DailyLogStore is an in-memory implementation of storage.DailyLogStore.
type DailyLogStore struct {
	mu   sync.RWMutex
	data map[string]map[int64]*domain.DailyLogEntry // dataset_key -> unix date -> entry
}

// NewDailyLogStore creates a new in-memory daily log store.
func NewDailyLogStore() *DailyLogStore {
	return &DailyLogStore{
		data: make(map[string]map[int64]*domain.DailyLogEntry),
	}
}

// InsertBulk adds all entries of a dataset atomically. Fails entire batch on duplicate date.
func (s *DailyLogStore) InsertBulk(_ context.Context, datasetKey string, entries []*domain.DailyLogEntry) error {
	if datasetKey == "" {
		return storage.ErrInvalidInput
	}
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.data[datasetKey]
	batchKeys := make(map[int64]struct{}, len(entries))
	for _, e := range entries {
		if e == nil || e.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		key := e.Date.Unix()
		if _, exists := existing[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	if existing == nil {
		existing = make(map[int64]*domain.DailyLogEntry, len(entries))
		s.data[datasetKey] = existing
	}
	for _, e := range entries {
		entryCopy := *e
		existing[e.Date.Unix()] = &entryCopy
	}
	return nil
}

// GetByDataset retrieves entries ordered by date ASC.
func (s *DailyLogStore) GetByDataset(_ context.Context, datasetKey string) ([]*domain.DailyLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.DailyLogEntry, 0, len(s.data[datasetKey]))
	for _, e := range s.data[datasetKey] {
		entryCopy := *e
		result = append(result, &entryCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

var _ storage.DailyLogStore = (*DailyLogStore)(nil)
