package portfolio

import (
	"time"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/metrics"
)

// weekdayOrder lists trading days first.
var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// WeekdayStats groups trades by the weekday of DateOpened.
// All seven days are returned, Monday first, including days without trades.
func WeekdayStats(trades []*domain.Trade) []domain.WeekdayStat {
	byDay := make(map[time.Weekday]*domain.WeekdayStat, 7)
	for _, d := range weekdayOrder {
		byDay[d] = &domain.WeekdayStat{Weekday: d, Name: d.String()}
	}
	for _, t := range trades {
		if t == nil {
			continue
		}
		s := byDay[t.DateOpened.Weekday()]
		s.Trades++
		s.TotalPL += t.PL
		if t.OutcomeClass() == domain.OutcomeWin {
			s.Wins++
		}
	}

	result := make([]domain.WeekdayStat, 0, len(weekdayOrder))
	for _, d := range weekdayOrder {
		s := byDay[d]
		if s.Trades > 0 {
			s.AvgPL = s.TotalPL / float64(s.Trades)
			s.WinRate = metrics.WinRate(s.Wins, s.Trades)
		}
		result = append(result, *s)
	}
	return result
}
