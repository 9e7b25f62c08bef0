package ingestion

import (
	"cmp"
	"errors"
	"slices"
	"time"

	"tradeblocks/internal/domain"
)

// ErrInvalidOrdering is returned when records are not in chronological order.
var ErrInvalidOrdering = errors.New("records are not in deterministic order")

// byDateThenRow orders by calendar date, then by source row.
func byDateThenRow(da time.Time, ra int, db time.Time, rb int) int {
	if c := da.Compare(db); c != 0 {
		return c
	}
	return cmp.Compare(ra, rb)
}

func compareTrades(a, b *domain.Trade) int {
	return byDateThenRow(a.DateOpened, a.RowIndex, b.DateOpened, b.RowIndex)
}

func compareDailyLog(a, b *domain.DailyLogEntry) int {
	return byDateThenRow(a.Date, a.RowIndex, b.Date, b.RowIndex)
}

// SortTrades orders trades by (date_opened, row_index). Stable.
func SortTrades(trades []*domain.Trade) {
	slices.SortStableFunc(trades, compareTrades)
}

// SortDailyLog orders entries by (date, row_index). Stable.
func SortDailyLog(entries []*domain.DailyLogEntry) {
	slices.SortStableFunc(entries, compareDailyLog)
}

// ValidateTradeOrdering returns ErrInvalidOrdering unless trades are sorted.
func ValidateTradeOrdering(trades []*domain.Trade) error {
	if !slices.IsSortedFunc(trades, compareTrades) {
		return ErrInvalidOrdering
	}
	return nil
}

// ValidateDailyLogOrdering returns ErrInvalidOrdering unless entries are sorted.
func ValidateDailyLogOrdering(entries []*domain.DailyLogEntry) error {
	if !slices.IsSortedFunc(entries, compareDailyLog) {
		return ErrInvalidOrdering
	}
	return nil
}
