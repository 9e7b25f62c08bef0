package portfolio

import (
	"time"

	"tradeblocks/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func trade(row int, opened time.Time, pl, fundsAtClose float64) *domain.Trade {
	return &domain.Trade{
		RowIndex:     row,
		DateOpened:   opened,
		Strategy:     "Iron Condor",
		PL:           pl,
		FundsAtClose: fundsAtClose,
		DateClosed:   &opened,
	}
}

// sampleTrades starts at 10,000 and ends at 10,300 after one loss.
func sampleTrades() []*domain.Trade {
	return []*domain.Trade{
		trade(0, day(2024, 1, 2), 200, 10200), // Tuesday
		trade(1, day(2024, 1, 3), -300, 9900), // Wednesday
		trade(2, day(2024, 1, 8), 400, 10300), // Monday
		trade(3, day(2024, 1, 9), 0, 10300),   // Tuesday
	}
}
