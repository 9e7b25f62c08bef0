package domain

import "fmt"

// ResampleMethod selects how the simulator draws outcomes from history.
type ResampleMethod string

// Resample methods
const (
	// ResampleTrades draws whole-trade P/L values i.i.d. with replacement.
	ResampleTrades ResampleMethod = "trades"
	// ResamplePercentage draws per-trade returns relative to the capital at entry.
	ResamplePercentage ResampleMethod = "percentage"
	// ResampleBlock draws runs of consecutive trades to keep short-range ordering.
	ResampleBlock ResampleMethod = "block"
)

// DefaultBlockSize is used by ResampleBlock when BlockSize is zero.
const DefaultBlockSize = 5

// Valid reports whether m is a known method.
func (m ResampleMethod) Valid() bool {
	switch m {
	case ResampleTrades, ResamplePercentage, ResampleBlock:
		return true
	}
	return false
}

// SimulationParameters configures one Monte Carlo run.
type SimulationParameters struct {
	NumSimulations   int            `json:"numSimulations" yaml:"num_simulations"`
	SimulationLength int            `json:"simulationLength" yaml:"simulation_length"` // draws per path
	ResampleMethod   ResampleMethod `json:"resampleMethod" yaml:"resample_method"`
	InitialCapital   float64        `json:"initialCapital" yaml:"initial_capital"`
	TradesPerYear    float64        `json:"tradesPerYear" yaml:"trades_per_year"`
	RandomSeed       uint64         `json:"randomSeed" yaml:"random_seed"`

	BlockSize      int    `json:"blockSize,omitempty" yaml:"block_size"`
	ResampleWindow int    `json:"resampleWindow,omitempty" yaml:"resample_window"` // last N trades, 0 = all
	Strategy       string `json:"strategy,omitempty" yaml:"strategy"`              // empty = all strategies
	Workers        int    `json:"workers,omitempty" yaml:"workers"`                // scheduling only
}

// Validate checks the numeric ranges. It does not look at trades.
func (p *SimulationParameters) Validate() error {
	if p.NumSimulations <= 0 {
		return fmt.Errorf("%w: numSimulations must be positive, got %d", ErrInvalidParameters, p.NumSimulations)
	}
	if p.SimulationLength <= 0 {
		return fmt.Errorf("%w: simulationLength must be positive, got %d", ErrInvalidParameters, p.SimulationLength)
	}
	if p.InitialCapital <= 0 {
		return fmt.Errorf("%w: initialCapital must be positive, got %g", ErrInvalidParameters, p.InitialCapital)
	}
	if p.TradesPerYear <= 0 {
		return fmt.Errorf("%w: tradesPerYear must be positive, got %g", ErrInvalidParameters, p.TradesPerYear)
	}
	if !p.ResampleMethod.Valid() {
		return fmt.Errorf("%w: unknown resample method %q", ErrInvalidParameters, p.ResampleMethod)
	}
	if p.BlockSize < 0 || p.ResampleWindow < 0 || p.Workers < 0 {
		return fmt.Errorf("%w: blockSize, resampleWindow and workers must not be negative", ErrInvalidParameters)
	}
	return nil
}

// PathMetrics holds the outcome of one simulated path.
type PathMetrics struct {
	FinalValue       float64 `json:"finalValue"`
	TotalReturn      float64 `json:"totalReturn"`
	AnnualizedReturn float64 `json:"annualizedReturn"`
	MaxDrawdown      float64 `json:"maxDrawdown"` // fraction of running peak, >= 0
	SharpeRatio      float64 `json:"sharpeRatio"`
	Ruined           bool    `json:"ruined"`
}

// ValueAtRisk holds lower percentiles of the totalReturn distribution.
type ValueAtRisk struct {
	P5  float64 `json:"p5"`
	P10 float64 `json:"p10"`
	P25 float64 `json:"p25"`
}

// FinalValuePercentiles summarises the spread of ending equity.
type FinalValuePercentiles struct {
	P5  float64 `json:"p5"`
	P25 float64 `json:"p25"`
	P75 float64 `json:"p75"`
	P95 float64 `json:"p95"`
}

// SimulationStatistics aggregates path metrics.
type SimulationStatistics struct {
	MeanAnnualizedReturn   float64 `json:"meanAnnualizedReturn"`
	MedianAnnualizedReturn float64 `json:"medianAnnualizedReturn"`
	MeanFinalValue         float64 `json:"meanFinalValue"`
	MedianFinalValue       float64 `json:"medianFinalValue"`
	StdFinalValue          float64 `json:"stdFinalValue"`
	MeanMaxDrawdown        float64 `json:"meanMaxDrawdown"`
	MedianMaxDrawdown      float64 `json:"medianMaxDrawdown"`
	WorstMaxDrawdown       float64 `json:"worstMaxDrawdown"`
	MeanSharpeRatio        float64 `json:"meanSharpeRatio"`
	MedianSharpeRatio      float64 `json:"medianSharpeRatio"`
	MeanTotalReturn        float64 `json:"meanTotalReturn"`
	MedianTotalReturn      float64 `json:"medianTotalReturn"`
	ProbabilityOfProfit    float64 `json:"probabilityOfProfit"`
	ProbabilityOfRuin      float64 `json:"probabilityOfRuin"`

	ValueAtRisk           ValueAtRisk           `json:"valueAtRisk"`
	FinalValuePercentiles FinalValuePercentiles `json:"finalValuePercentiles"`
}

// SimulationResult is the output of one simulator run.
type SimulationResult struct {
	RunID      string               `json:"runId"`
	DatasetKey string               `json:"datasetKey,omitempty"`
	Parameters SimulationParameters `json:"parameters"`
	PathCount  int                  `json:"pathCount"`
	Statistics SimulationStatistics `json:"statistics"`
	Paths      []PathMetrics        `json:"-"`
}
