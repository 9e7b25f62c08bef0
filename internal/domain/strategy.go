package domain

// StrategyAggregate represents per-strategy outcome metrics for one dataset.
// Corresponds to the strategy_aggregates table.
type StrategyAggregate struct {
	DatasetKey string `json:"datasetKey"` // trade log this aggregate was computed from
	Strategy   string `json:"strategy"`

	// Counts
	TotalTrades    int      `json:"totalTrades"`
	OpenTrades     int      `json:"openTrades"`
	Wins           int      `json:"wins"`
	Losses         int      `json:"losses"`
	WinRate        float64  `json:"winRate"` // wins / total_trades
	TotalPL        float64  `json:"totalPl"`
	TotalPremium   float64  `json:"totalPremium"` // sum of known premium
	TotalCommFees  float64  `json:"totalCommissions"`
	AvgContracts   float64  `json:"avgContracts"` // mean over trades with a known contract count
	PremiumCapture *float64 `json:"premiumCapture,omitempty"`

	// P/L distribution
	PLMean   float64 `json:"plMean"`
	PLMedian float64 `json:"plMedian"`
	PLP10    float64 `json:"plP10"` // 10th percentile
	PLP25    float64 `json:"plP25"` // 25th percentile
	PLP75    float64 `json:"plP75"` // 75th percentile
	PLP90    float64 `json:"plP90"` // 90th percentile
	PLMin    float64 `json:"plMin"`
	PLMax    float64 `json:"plMax"`
	PLStddev float64 `json:"plStddev"`

	// Drawdown on cumulative P/L
	MaxDrawdown          float64 `json:"maxDrawdown"` // worst peak-to-trough in dollars
	MaxConsecutiveLosses int     `json:"maxConsecutiveLosses"`
}
