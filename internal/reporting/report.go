package reporting

import (
	"time"

	"tradeblocks/internal/domain"
)

// Report is the analysis report of one dataset.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	DatasetKey  string

	// Data Summary
	DataSummary DataSummary

	// Data Quality (rejected and unreadable rows)
	DataQuality DataQualitySection

	// Portfolio statistics over all strategies
	Portfolio *domain.PortfolioStats

	// Strategy Metrics (sorted by strategy)
	StrategyMetrics []StrategyMetricRow

	// Calendar breakdowns
	Weekdays []domain.WeekdayStat
	Monthly  []domain.MonthlyReturn

	// Monte Carlo runs stored for the dataset (sorted by run_id)
	Simulations []SimulationRow
}

// DataQualitySection lists rows skipped during ingestion and sufficiency checks.
type DataQualitySection struct {
	Rejections      []string
	ParseErrors     []string
	AllRowsAccepted bool

	SufficiencyChecks []SufficiencyCheckRow
	IntegrityErrors   []string
	AllChecksPassed   bool
}

// SufficiencyCheckRow represents one sufficiency criterion.
type SufficiencyCheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// DataSummary describes the loaded data.
type DataSummary struct {
	TotalTrades     int
	OpenTrades      int
	StrategyCount   int
	DailyLogEntries int
	DateRangeStart  time.Time
	DateRangeEnd    time.Time
	EquitySource    domain.EquitySource
}

// StrategyMetricRow represents one row in strategy metrics table.
type StrategyMetricRow struct {
	Strategy             string
	TotalTrades          int
	Wins                 int
	Losses               int
	WinRate              float64
	TotalPL              float64
	PLMean               float64
	PLMedian             float64
	PLP10                float64
	PLP90                float64
	PremiumCapture       *float64
	MaxDrawdown          float64 // currency, on cumulative P/L
	MaxConsecutiveLosses int
}

// SimulationRow summarises one stored Monte Carlo run.
type SimulationRow struct {
	RunID               string
	Method              domain.ResampleMethod
	NumSimulations      int
	SimulationLength    int
	RandomSeed          uint64
	InitialCapital      float64
	MedianFinalValue    float64
	FinalValueP5        float64
	FinalValueP95       float64
	ProbabilityOfProfit float64
	ProbabilityOfRuin   float64
	MedianMaxDrawdown   float64
	ValueAtRiskP5       float64
}
