package domain

import "time"

// Trade is one validated row of a trade log.
// Optional numeric fields are nil when the source value was blank or unparsable;
// nil means unknown and is never treated as zero.
type Trade struct {
	RowIndex int    // 1-based data row in the source file
	TradeID  string // deterministic hash, see idhash.ComputeTradeID

	// Opening
	DateOpened   time.Time // date only, UTC midnight
	TimeOpened   string    // raw clock text
	OpeningPrice *float64
	Legs         string

	// Closing; DateClosed nil means the position is still open
	DateClosed     *time.Time
	TimeClosed     string
	ClosingPrice   *float64
	AvgClosingCost *float64
	ReasonForClose string

	Strategy string // trimmed, StrategyUnknown when blank

	// Money
	PremiumCollected   *float64
	PL                 float64
	FundsAtClose       float64
	MarginRequirement  *float64
	OpeningCommissions *float64
	ClosingCommissions *float64
	Contracts          *int

	// Market context
	Gap                   *float64
	Movement              *float64
	MaxProfit             *float64
	MaxLoss               *float64
	OpeningShortLongRatio *float64
	ClosingShortLongRatio *float64
}

// StrategyUnknown is assigned to trades whose strategy column is blank.
const StrategyUnknown = "Unknown"

// IsOpen reports whether the trade has no closing date.
func (t *Trade) IsOpen() bool {
	return t.DateClosed == nil
}

// TotalCommissions sums the known commission fields.
func (t *Trade) TotalCommissions() float64 {
	var total float64
	if t.OpeningCommissions != nil {
		total += *t.OpeningCommissions
	}
	if t.ClosingCommissions != nil {
		total += *t.ClosingCommissions
	}
	return total
}

// Outcome class constants
const (
	OutcomeWin       = "WIN"
	OutcomeLoss      = "LOSS"
	OutcomeBreakeven = "BREAKEVEN"
)

// OutcomeClass classifies the trade by the sign of its P/L.
func (t *Trade) OutcomeClass() string {
	switch {
	case t.PL > 0:
		return OutcomeWin
	case t.PL < 0:
		return OutcomeLoss
	default:
		return OutcomeBreakeven
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}

// Date returns a pointer to a UTC midnight date.
func Date(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}
