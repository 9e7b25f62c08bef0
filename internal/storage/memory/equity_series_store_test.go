package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/storage"
)

func TestEquitySeriesStore_InsertAndRange(t *testing.T) {
	store := NewEquitySeriesStore()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := []*domain.EquityPoint{
		{Index: 2, Date: base.AddDate(0, 0, 2), Equity: 102, HighWaterMark: 102},
		{Index: 0, Date: base, Equity: 100, HighWaterMark: 100},
		{Index: 1, Date: base.AddDate(0, 0, 1), Equity: 99, HighWaterMark: 100},
	}
	if err := store.InsertBulk(ctx, "ds1", domain.EquitySourceTrades, points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	all, err := store.GetByDataset(ctx, "ds1")
	if err != nil {
		t.Fatalf("GetByDataset failed: %v", err)
	}
	if len(all) != 3 || all[0].Index != 0 || all[2].Index != 2 {
		t.Fatalf("unexpected order: %+v", all)
	}

	ranged, _ := store.GetByTimeRange(ctx, "ds1", base.AddDate(0, 0, 1), base.AddDate(0, 0, 2))
	if len(ranged) != 2 || ranged[0].Equity != 99 {
		t.Errorf("unexpected range result: %+v", ranged)
	}

	err = store.InsertBulk(ctx, "ds1", domain.EquitySourceTrades, points[:1])
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}
