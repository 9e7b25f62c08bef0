package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/storage"
)

func TestStrategyAggregateStore_InsertAndGet(t *testing.T) {
	store := NewStrategyAggregateStore()
	ctx := context.Background()

	agg := &domain.StrategyAggregate{
		DatasetKey:  "ds1",
		Strategy:    "Iron Condor",
		TotalTrades: 100,
		Wins:        60,
		Losses:      40,
		WinRate:     0.6,
		PLMedian:    45,
	}
	require.NoError(t, store.Insert(ctx, agg))

	agg.WinRate = 0.1 // caller mutation must not leak into the store
	got, err := store.GetByKey(ctx, "ds1", "Iron Condor")
	require.NoError(t, err)
	assert.Equal(t, 0.6, got.WinRate)
	assert.Equal(t, 45.0, got.PLMedian)

	got.Wins = 0
	again, err := store.GetByKey(ctx, "ds1", "Iron Condor")
	require.NoError(t, err)
	assert.Equal(t, 60, again.Wins)
}

func TestStrategyAggregateStore_Errors(t *testing.T) {
	store := NewStrategyAggregateStore()
	ctx := context.Background()

	agg := &domain.StrategyAggregate{DatasetKey: "ds1", Strategy: "A"}
	require.NoError(t, store.Insert(ctx, agg))
	assert.ErrorIs(t, store.Insert(ctx, agg), storage.ErrDuplicateKey)

	_, err := store.GetByKey(ctx, "ds1", "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, store.Insert(ctx, &domain.StrategyAggregate{Strategy: "A"}), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
}

func TestStrategyAggregateStore_InsertBulk(t *testing.T) {
	store := NewStrategyAggregateStore()
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.StrategyAggregate{
		{DatasetKey: "ds1", Strategy: "C"},
		{DatasetKey: "ds1", Strategy: "A"},
		{DatasetKey: "ds2", Strategy: "B"},
	}))

	got, err := store.GetByDataset(ctx, "ds1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Strategy)
	assert.Equal(t, "C", got[1].Strategy)

	empty, err := store.GetByDataset(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)

	// one stored key rejects the whole batch
	err = store.InsertBulk(ctx, []*domain.StrategyAggregate{
		{DatasetKey: "ds3", Strategy: "X"},
		{DatasetKey: "ds1", Strategy: "A"},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	_, err = store.GetByKey(ctx, "ds3", "X")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.InsertBulk(ctx, []*domain.StrategyAggregate{
		{DatasetKey: "ds4", Strategy: "Y"},
		{DatasetKey: "ds4", Strategy: "Y"},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}
