package portfolio

import (
	"fmt"

	"tradeblocks/internal/domain"
)

// CalculateInitialCapital recovers the account liquidity that existed before the first trade.
// The first trade is the earliest by DateOpened, ties broken by RowIndex, so the result
// does not depend on input order. Returns fundsAtClose - pl of that trade.
func CalculateInitialCapital(trades []*domain.Trade) (float64, error) {
	first := earliestTrade(trades)
	if first == nil {
		return 0, fmt.Errorf("%w: initial capital needs at least one trade", domain.ErrInsufficientData)
	}
	return first.FundsAtClose - first.PL, nil
}

// ResolveInitialCapital picks the capital baseline for a run:
// an explicit positive value, else the first daily log net liquidity, else CalculateInitialCapital.
func ResolveInitialCapital(explicit float64, trades []*domain.Trade, dailyLog []*domain.DailyLogEntry) (float64, error) {
	if explicit > 0 {
		return explicit, nil
	}
	if len(dailyLog) > 0 {
		entries := sortedDailyLog(dailyLog)
		return entries[0].NetLiquidity, nil
	}
	return CalculateInitialCapital(trades)
}

func earliestTrade(trades []*domain.Trade) *domain.Trade {
	var first *domain.Trade
	for _, t := range trades {
		if t == nil {
			continue
		}
		if first == nil || tradeBefore(t, first) {
			first = t
		}
	}
	return first
}

// tradeBefore orders by (date_opened, row_index, time_opened, trade_id).
func tradeBefore(a, b *domain.Trade) bool {
	if !a.DateOpened.Equal(b.DateOpened) {
		return a.DateOpened.Before(b.DateOpened)
	}
	if a.RowIndex != b.RowIndex {
		return a.RowIndex < b.RowIndex
	}
	if a.TimeOpened != b.TimeOpened {
		return a.TimeOpened < b.TimeOpened
	}
	return a.TradeID < b.TradeID
}
