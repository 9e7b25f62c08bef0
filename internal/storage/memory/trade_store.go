package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu      sync.RWMutex
	data    map[string]map[string]*domain.Trade // dataset_key -> trade_id -> trade
	created map[string]time.Time
	nowFunc func() time.Time
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data:    make(map[string]map[string]*domain.Trade),
		created: make(map[string]time.Time),
		nowFunc: time.Now,
	}
}

// InsertBulk adds all trades of a dataset atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(_ context.Context, datasetKey string, trades []*domain.Trade) error {
	if datasetKey == "" {
		return storage.ErrInvalidInput
	}
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.data[datasetKey]

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(trades))

	// First pass: check for duplicates (existing + intra-batch)
	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := existing[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[t.TradeID] = struct{}{}
	}

	// Second pass: insert all
	if existing == nil {
		existing = make(map[string]*domain.Trade, len(trades))
		s.data[datasetKey] = existing
		s.created[datasetKey] = s.nowFunc().UTC()
	}
	for _, t := range trades {
		tradeCopy := *t
		existing[t.TradeID] = &tradeCopy
	}

	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(_ context.Context, datasetKey, tradeID string) (*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[datasetKey][tradeID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	tradeCopy := *t
	return &tradeCopy, nil
}

// GetByDataset retrieves all trades of a dataset, ordered by (date_opened ASC, row_index ASC).
func (s *TradeStore) GetByDataset(_ context.Context, datasetKey string) ([]*domain.Trade, error) {
	return s.filter(datasetKey, func(*domain.Trade) bool { return true }), nil
}

// GetByStrategy retrieves the trades of one strategy within a dataset.
func (s *TradeStore) GetByStrategy(_ context.Context, datasetKey, strategy string) ([]*domain.Trade, error) {
	return s.filter(datasetKey, func(t *domain.Trade) bool { return t.Strategy == strategy }), nil
}

func (s *TradeStore) filter(datasetKey string, keep func(*domain.Trade) bool) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data[datasetKey] {
		if keep(t) {
			tradeCopy := *t
			result = append(result, &tradeCopy)
		}
	}
	sortTrades(result)
	return result
}

// ListStrategies returns the distinct strategies of a dataset in ascending order.
func (s *TradeStore) ListStrategies(_ context.Context, datasetKey string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, t := range s.data[datasetKey] {
		seen[t.Strategy] = struct{}{}
	}
	result := make([]string, 0, len(seen))
	for name := range seen {
		result = append(result, name)
	}
	sort.Strings(result)
	return result, nil
}

// ListDatasets returns a summary of every stored dataset ordered by dataset_key.
func (s *TradeStore) ListDatasets(_ context.Context) ([]storage.DatasetInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]storage.DatasetInfo, 0, len(s.data))
	for key, trades := range s.data {
		info := storage.DatasetInfo{DatasetKey: key, TradeCount: len(trades), CreatedAt: s.created[key]}
		for _, t := range trades {
			if info.FirstDate.IsZero() || t.DateOpened.Before(info.FirstDate) {
				info.FirstDate = t.DateOpened
			}
			if t.DateOpened.After(info.LastDate) {
				info.LastDate = t.DateOpened
			}
		}
		result = append(result, info)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DatasetKey < result[j].DatasetKey
	})
	return result, nil
}

// sortTrades orders by (date_opened ASC, row_index ASC).
func sortTrades(trades []*domain.Trade) {
	sort.Slice(trades, func(i, j int) bool {
		if !trades[i].DateOpened.Equal(trades[j].DateOpened) {
			return trades[i].DateOpened.Before(trades[j].DateOpened)
		}
		return trades[i].RowIndex < trades[j].RowIndex
	})
}

var _ storage.TradeStore = (*TradeStore)(nil)
