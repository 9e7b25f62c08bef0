package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/storage"
)

// EquitySeriesStore is an in-memory implementation of storage.EquitySeriesStore.
type EquitySeriesStore struct {
	mu   sync.RWMutex
	data map[string]*equityRow // keyed by (dataset_key, idx)
}

type equityRow struct {
	datasetKey string
	source     domain.EquitySource
	point      domain.EquityPoint
}

// NewEquitySeriesStore creates a new in-memory equity series store.
func NewEquitySeriesStore() *EquitySeriesStore {
	return &EquitySeriesStore{
		data: make(map[string]*equityRow),
	}
}

// equityKey generates a unique key for an equity point.
func equityKey(datasetKey string, idx int) string {
	return fmt.Sprintf("%s|%d", datasetKey, idx)
}

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *EquitySeriesStore) InsertBulk(_ context.Context, datasetKey string, source domain.EquitySource, points []*domain.EquityPoint) error {
	if datasetKey == "" {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(points))

	// First pass: check for duplicates (existing + intra-batch)
	for _, p := range points {
		if p == nil {
			return storage.ErrInvalidInput
		}
		key := equityKey(datasetKey, p.Index)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range points {
		s.data[equityKey(datasetKey, p.Index)] = &equityRow{datasetKey: datasetKey, source: source, point: *p}
	}

	return nil
}

// GetByDataset retrieves all points ordered by index ASC.
func (s *EquitySeriesStore) GetByDataset(_ context.Context, datasetKey string) ([]*domain.EquityPoint, error) {
	return s.collect(datasetKey, func(*domain.EquityPoint) bool { return true }), nil
}

// GetByTimeRange retrieves points with date within [start, end] (inclusive).
func (s *EquitySeriesStore) GetByTimeRange(_ context.Context, datasetKey string, start, end time.Time) ([]*domain.EquityPoint, error) {
	return s.collect(datasetKey, func(p *domain.EquityPoint) bool {
		return !p.Date.Before(start) && !p.Date.After(end)
	}), nil
}

func (s *EquitySeriesStore) collect(datasetKey string, keep func(*domain.EquityPoint) bool) []*domain.EquityPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EquityPoint
	for _, row := range s.data {
		if row.datasetKey == datasetKey && keep(&row.point) {
			pointCopy := row.point
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Index < result[j].Index
	})

	return result
}

var _ storage.EquitySeriesStore = (*EquitySeriesStore)(nil)
