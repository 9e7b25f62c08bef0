package domain

import "time"

// EfficiencyBasis names the per-trade denominator used for premium-capture efficiency.
type EfficiencyBasis string

// Efficiency bases
const (
	BasisPremium   EfficiencyBasis = "premium"
	BasisMaxProfit EfficiencyBasis = "max_profit"
	BasisMargin    EfficiencyBasis = "margin"
)

// DefaultEfficiencyPrecedence is tried in order until a trade has a usable basis.
var DefaultEfficiencyPrecedence = []EfficiencyBasis{BasisPremium, BasisMaxProfit, BasisMargin}

// BasisValue returns the basis amount for a trade, or nil when unknown.
func (b EfficiencyBasis) BasisValue(t *Trade) *float64 {
	switch b {
	case BasisPremium:
		return t.PremiumCollected
	case BasisMaxProfit:
		return t.MaxProfit
	case BasisMargin:
		return t.MarginRequirement
	}
	return nil
}

// WeekdayStat aggregates trades by the weekday they were opened.
type WeekdayStat struct {
	Weekday time.Weekday `json:"weekday"`
	Name    string       `json:"name"`
	Trades  int          `json:"trades"`
	Wins    int          `json:"wins"`
	TotalPL float64      `json:"totalPl"`
	AvgPL   float64      `json:"avgPl"`
	WinRate float64      `json:"winRate"`
}

// EfficiencyStat summarises premium-capture efficiency.
type EfficiencyStat struct {
	TradesWithBasis int                     `json:"tradesWithBasis"`
	TradesSkipped   int                     `json:"tradesSkipped"`
	Aggregate       float64                 `json:"aggregate"` // sum(PL) / sum(|basis|)
	MeanPerTrade    float64                 `json:"meanPerTrade"`
	BasisCounts     map[EfficiencyBasis]int `json:"basisCounts"`
}

// PortfolioStats is the full set of portfolio-level aggregates.
type PortfolioStats struct {
	TotalTrades     int `json:"totalTrades"`
	OpenTrades      int `json:"openTrades"`
	WinningTrades   int `json:"winningTrades"`
	LosingTrades    int `json:"losingTrades"`
	BreakevenTrades int `json:"breakevenTrades"`

	WinRate     float64 `json:"winRate"`
	TotalPL     float64 `json:"totalPl"`
	GrossPL     float64 `json:"grossPl"` // P/L before commissions
	Commissions float64 `json:"totalCommissions"`
	// CommissionDrag is commissions / gross P/L; nil when gross P/L is not positive.
	CommissionDrag *float64 `json:"commissionDrag,omitempty"`

	AvgWin       float64  `json:"avgWin"`
	AvgLoss      float64  `json:"avgLoss"`
	LargestWin   float64  `json:"largestWin"`
	LargestLoss  float64  `json:"largestLoss"`
	ProfitFactor *float64 `json:"profitFactor,omitempty"` // nil when there are no losses

	MaxConsecutiveWins   int `json:"maxConsecutiveWins"`
	MaxConsecutiveLosses int `json:"maxConsecutiveLosses"`

	InitialCapital float64      `json:"initialCapital"`
	FinalEquity    float64      `json:"finalEquity"`
	TotalReturn    float64      `json:"totalReturn"`
	CAGR           float64      `json:"cagr"`
	MaxDrawdown    float64      `json:"maxDrawdown"` // fraction, >= 0
	SharpeRatio    float64      `json:"sharpeRatio"`
	SortinoRatio   float64      `json:"sortinoRatio"`
	EquitySource   EquitySource `json:"equitySource"`

	FirstTradeDate time.Time `json:"firstTradeDate"`
	LastTradeDate  time.Time `json:"lastTradeDate"`

	Weekdays   []WeekdayStat  `json:"weekdays"`
	Efficiency EfficiencyStat `json:"efficiency"`
}
