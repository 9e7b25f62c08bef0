package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/storage"
)

func samplePoints() []*domain.EquityPoint {
	return []*domain.EquityPoint{
		{Index: 0, Date: date(2024, 1, 2), Equity: 100000, HighWaterMark: 100000},
		{Index: 1, Date: date(2024, 1, 3), Equity: 100250, HighWaterMark: 100250},
		{Index: 2, Date: date(2024, 1, 4), Equity: 99800, HighWaterMark: 100250},
		{Index: 3, Date: date(2024, 1, 8), Equity: 101100, HighWaterMark: 101100},
	}
}

func TestEquitySeriesStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEquitySeriesStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, "ds1", domain.EquitySourceTrades, samplePoints()))

	got, err := store.GetByDataset(ctx, "ds1")
	require.NoError(t, err)
	assert.Equal(t, samplePoints(), got)
}

func TestEquitySeriesStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEquitySeriesStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, "ds1", domain.EquitySourceDailyLog, samplePoints()))

	got, err := store.GetByTimeRange(ctx, "ds1", date(2024, 1, 3), date(2024, 1, 4))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, 2, got[1].Index)
}

func TestEquitySeriesStore_Duplicates(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEquitySeriesStore(conn)
	ctx := context.Background()

	points := samplePoints()
	points[2].Index = 1
	assert.ErrorIs(t, store.InsertBulk(ctx, "ds1", domain.EquitySourceTrades, points), storage.ErrDuplicateKey)

	require.NoError(t, store.InsertBulk(ctx, "ds1", domain.EquitySourceTrades, samplePoints()))
	assert.ErrorIs(t, store.InsertBulk(ctx, "ds1", domain.EquitySourceTrades, samplePoints()), storage.ErrDuplicateKey)
	assert.ErrorIs(t, store.InsertBulk(ctx, "", domain.EquitySourceTrades, samplePoints()), storage.ErrInvalidInput)
}
