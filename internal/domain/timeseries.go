package domain

import "time"

// EquitySource records which input produced an equity curve.
type EquitySource string

// Equity sources
const (
	EquitySourceDailyLog EquitySource = "daily_log"
	EquitySourceTrades   EquitySource = "trades"
)

// EquityPoint is one step of the equity curve.
type EquityPoint struct {
	Index         int       `json:"index"`
	Date          time.Time `json:"date"`
	Equity        float64   `json:"equity"`
	HighWaterMark float64   `json:"highWaterMark"`
}

// DrawdownPoint is one step of the drawdown series.
// DrawdownPct is a fraction and never positive.
type DrawdownPoint struct {
	Index       int       `json:"index"`
	Date        time.Time `json:"date"`
	DrawdownPct float64   `json:"drawdownPct"`
}

// TradeSequencePoint is one trade in chronological order with running P/L.
type TradeSequencePoint struct {
	Index          int       `json:"index"`
	Date           time.Time `json:"date"`
	Strategy       string    `json:"strategy"`
	PL             float64   `json:"pl"`
	CumulativePL   float64   `json:"cumulativePl"`
	ReturnOnMargin *float64  `json:"returnOnMargin,omitempty"`
	Efficiency     *float64  `json:"efficiency,omitempty"`
	EfficiencyKey  string    `json:"efficiencyBasis,omitempty"`
}

// MonthlyReturn buckets P/L by calendar month of the opening date.
type MonthlyReturn struct {
	Year   int     `json:"year"`
	Month  int     `json:"month"`
	Trades int     `json:"trades"`
	PL     float64 `json:"pl"`
}
