package portfolio

import (
	"sort"

	"tradeblocks/internal/domain"
)

// BuildEquityCurve derives the equity curve and drawdown series.
//
// A non-empty daily log is authoritative: equity is its NetLiquidity and drawdown
// comes from its DrawdownPct when present. Otherwise the curve starts at
// initialCapital and adds each trade's P/L in chronological order, so point 0
// has equity and high-water mark equal to initialCapital.
// Inputs are not modified.
func BuildEquityCurve(trades []*domain.Trade, dailyLog []*domain.DailyLogEntry, initialCapital float64) ([]domain.EquityPoint, []domain.DrawdownPoint, domain.EquitySource) {
	if len(dailyLog) > 0 {
		equity, drawdown := equityFromDailyLog(dailyLog)
		return equity, drawdown, domain.EquitySourceDailyLog
	}
	equity, drawdown := equityFromTrades(trades, initialCapital)
	return equity, drawdown, domain.EquitySourceTrades
}

func equityFromDailyLog(dailyLog []*domain.DailyLogEntry) ([]domain.EquityPoint, []domain.DrawdownPoint) {
	entries := sortedDailyLog(dailyLog)
	equity := make([]domain.EquityPoint, len(entries))
	drawdown := make([]domain.DrawdownPoint, len(entries))

	hwm := entries[0].NetLiquidity
	for i, e := range entries {
		if e.NetLiquidity > hwm {
			hwm = e.NetLiquidity
		}
		dd := drawdownFraction(e.NetLiquidity, hwm)
		if e.DrawdownPct != nil {
			dd = *e.DrawdownPct
		}
		if dd > 0 {
			dd = 0
		}
		equity[i] = domain.EquityPoint{Index: i, Date: e.Date, Equity: e.NetLiquidity, HighWaterMark: hwm}
		drawdown[i] = domain.DrawdownPoint{Index: i, Date: e.Date, DrawdownPct: dd}
	}
	return equity, drawdown
}

func equityFromTrades(trades []*domain.Trade, initialCapital float64) ([]domain.EquityPoint, []domain.DrawdownPoint) {
	sorted := sortedTrades(trades)
	equity := make([]domain.EquityPoint, 0, len(sorted)+1)
	drawdown := make([]domain.DrawdownPoint, 0, len(sorted)+1)

	var start domain.EquityPoint
	start.Equity = initialCapital
	start.HighWaterMark = initialCapital
	if len(sorted) > 0 {
		start.Date = sorted[0].DateOpened
	}
	equity = append(equity, start)
	drawdown = append(drawdown, domain.DrawdownPoint{Date: start.Date})

	current := initialCapital
	hwm := initialCapital
	for i, t := range sorted {
		current += t.PL
		if current > hwm {
			hwm = current
		}
		date := t.DateOpened
		equity = append(equity, domain.EquityPoint{Index: i + 1, Date: date, Equity: current, HighWaterMark: hwm})
		drawdown = append(drawdown, domain.DrawdownPoint{Index: i + 1, Date: date, DrawdownPct: drawdownFraction(current, hwm)})
	}
	return equity, drawdown
}

// drawdownFraction returns (equity - hwm) / hwm, 0 when hwm is not positive.
func drawdownFraction(equity, hwm float64) float64 {
	if hwm <= 0 || equity >= hwm {
		return 0
	}
	return (equity - hwm) / hwm
}

// sortedTrades returns a copy ordered by (date_opened, row_index).
func sortedTrades(trades []*domain.Trade) []*domain.Trade {
	out := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t != nil {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return tradeBefore(out[i], out[j]) })
	return out
}

// sortedDailyLog returns a copy ordered by date.
func sortedDailyLog(entries []*domain.DailyLogEntry) []*domain.DailyLogEntry {
	out := make([]*domain.DailyLogEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].RowIndex < out[j].RowIndex
	})
	return out
}
