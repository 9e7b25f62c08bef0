package portfolio

import (
	"fmt"
	"math"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/metrics"
)

// DefaultPeriodsPerYear annualizes Sharpe and Sortino on daily steps.
const DefaultPeriodsPerYear = 252

// Result holds the portfolio aggregates together with the series they were derived from.
type Result struct {
	Stats    *domain.PortfolioStats
	Equity   []domain.EquityPoint
	Drawdown []domain.DrawdownPoint
}

// Calculator computes portfolio statistics. It performs no I/O.
type Calculator struct {
	initialCapital float64
	periodsPerYear int
	riskFreeRate   float64
	efficiency     EfficiencyPolicy
}

// NewCalculator creates a calculator with default settings.
func NewCalculator() *Calculator {
	return &Calculator{
		periodsPerYear: DefaultPeriodsPerYear,
		efficiency:     DefaultEfficiencyPolicy(),
	}
}

// WithInitialCapital overrides capital inference. Non-positive values are ignored.
func (c *Calculator) WithInitialCapital(capital float64) *Calculator {
	c.initialCapital = capital
	return c
}

// WithPeriodsPerYear sets the annualization factor for step returns.
func (c *Calculator) WithPeriodsPerYear(n int) *Calculator {
	if n > 0 {
		c.periodsPerYear = n
	}
	return c
}

// WithRiskFreeRate sets the annual risk-free rate subtracted from step returns.
func (c *Calculator) WithRiskFreeRate(rate float64) *Calculator {
	c.riskFreeRate = rate
	return c
}

// WithEfficiencyPrecedence sets the global efficiency basis order.
func (c *Calculator) WithEfficiencyPrecedence(order []domain.EfficiencyBasis) *Calculator {
	if len(order) > 0 {
		c.efficiency.Precedence = order
	}
	return c
}

// WithStrategyPrecedence sets the efficiency basis order for one strategy.
func (c *Calculator) WithStrategyPrecedence(strategy string, order []domain.EfficiencyBasis) *Calculator {
	if c.efficiency.Strategy == nil {
		c.efficiency.Strategy = make(map[string][]domain.EfficiencyBasis)
	}
	c.efficiency.Strategy[strategy] = order
	return c
}

// EfficiencyPolicy returns the policy used for efficiency series.
func (c *Calculator) EfficiencyPolicy() EfficiencyPolicy {
	return c.efficiency
}

// Compute derives the equity curve, drawdown series and aggregates.
// Returns domain.ErrInsufficientData when there are no trades.
func (c *Calculator) Compute(trades []*domain.Trade, dailyLog []*domain.DailyLogEntry) (*Result, error) {
	sorted := sortedTrades(trades)
	if len(sorted) == 0 {
		return nil, fmt.Errorf("%w: portfolio statistics need at least one trade", domain.ErrInsufficientData)
	}

	capital := c.initialCapital
	if capital <= 0 {
		var err error
		capital, err = CalculateInitialCapital(sorted)
		if err != nil {
			return nil, err
		}
	}

	equity, drawdown, source := BuildEquityCurve(sorted, dailyLog, capital)

	stats := &domain.PortfolioStats{
		TotalTrades:    len(sorted),
		EquitySource:   source,
		FirstTradeDate: sorted[0].DateOpened,
		LastTradeDate:  sorted[len(sorted)-1].DateOpened,
	}
	c.tradeAggregates(stats, sorted)
	c.equityAggregates(stats, equity, drawdown)
	stats.Weekdays = WeekdayStats(sorted)
	stats.Efficiency = ComputeEfficiency(sorted, c.efficiency)

	return &Result{Stats: stats, Equity: equity, Drawdown: drawdown}, nil
}

func (c *Calculator) tradeAggregates(stats *domain.PortfolioStats, sorted []*domain.Trade) {
	outcomes := make([]float64, len(sorted))
	var winSum, lossSum float64
	for i, t := range sorted {
		outcomes[i] = t.PL
		stats.TotalPL += t.PL
		stats.Commissions += t.TotalCommissions()
		if t.IsOpen() {
			stats.OpenTrades++
		}
		switch t.OutcomeClass() {
		case domain.OutcomeWin:
			stats.WinningTrades++
			winSum += t.PL
			if t.PL > stats.LargestWin {
				stats.LargestWin = t.PL
			}
		case domain.OutcomeLoss:
			stats.LosingTrades++
			lossSum += t.PL
			if t.PL < stats.LargestLoss {
				stats.LargestLoss = t.PL
			}
		default:
			stats.BreakevenTrades++
		}
	}

	stats.WinRate = metrics.WinRate(stats.WinningTrades, stats.TotalTrades)
	stats.GrossPL = stats.TotalPL + stats.Commissions
	if stats.GrossPL > 0 {
		drag := stats.Commissions / stats.GrossPL
		stats.CommissionDrag = &drag
	}
	if stats.WinningTrades > 0 {
		stats.AvgWin = winSum / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AvgLoss = lossSum / float64(stats.LosingTrades)
	}
	if lossSum < 0 {
		pf := winSum / math.Abs(lossSum)
		stats.ProfitFactor = &pf
	}
	stats.MaxConsecutiveWins = metrics.MaxConsecutiveWins(outcomes)
	stats.MaxConsecutiveLosses = metrics.MaxConsecutiveLosses(outcomes)
}

func (c *Calculator) equityAggregates(stats *domain.PortfolioStats, equity []domain.EquityPoint, drawdown []domain.DrawdownPoint) {
	first := equity[0]
	last := equity[len(equity)-1]
	stats.InitialCapital = first.Equity
	stats.FinalEquity = last.Equity
	if first.Equity > 0 {
		stats.TotalReturn = last.Equity/first.Equity - 1
	}
	stats.CAGR = cagr(first, last)

	for _, d := range drawdown {
		if -d.DrawdownPct > stats.MaxDrawdown {
			stats.MaxDrawdown = -d.DrawdownPct
		}
	}

	returns := stepReturns(equity)
	rf := c.riskFreeRate / float64(c.periodsPerYear)
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - rf
	}
	scale := math.Sqrt(float64(c.periodsPerYear))
	mean := metrics.Mean(excess)
	if std := metrics.Stddev(excess, mean); std > 0 {
		stats.SharpeRatio = mean / std * scale
	}
	if dd := metrics.DownsideDeviation(excess); dd > 0 {
		stats.SortinoRatio = mean / dd * scale
	}
}

// stepReturns returns equity[i]/equity[i-1] - 1, skipping non-positive bases.
func stepReturns(equity []domain.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev <= 0 {
			continue
		}
		returns = append(returns, equity[i].Equity/prev-1)
	}
	return returns
}

func cagr(first, last domain.EquityPoint) float64 {
	years := last.Date.Sub(first.Date).Hours() / 24 / 365.25
	if years <= 0 || first.Equity <= 0 || last.Equity <= 0 {
		return 0
	}
	return math.Pow(last.Equity/first.Equity, 1/years) - 1
}
