package domain

import "time"

// DailyLogEntry is one day of account-level history.
// When a daily log is supplied it is authoritative for the equity curve.
type DailyLogEntry struct {
	RowIndex     int
	Date         time.Time // UTC midnight
	NetLiquidity float64
	DrawdownPct  *float64 // fraction, <= 0; nil when the log does not carry it

	CurrentFunds *float64
	TradingFunds *float64
	DailyPL      *float64
	DailyPLPct   *float64 // fraction
}
