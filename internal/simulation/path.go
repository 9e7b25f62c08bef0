package simulation

import (
	"math"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/metrics"
)

// evaluatePath applies the drawn outcomes to initialCapital.
// returns is scratch space reused across paths.
// A path whose equity reaches zero is ruined: equity stays at zero and
// maxDrawdown is 1; later outcomes are ignored.
func evaluatePath(outcomes []float64, compounding bool, capital, tradesPerYear float64, returns []float64) (domain.PathMetrics, []float64) {
	returns = returns[:0]
	equity := capital
	peak := capital
	var m domain.PathMetrics

	for _, o := range outcomes {
		if m.Ruined {
			break
		}
		before := equity
		var r float64
		if compounding {
			r = o
			equity = before * (1 + o)
		} else {
			r = o / before
			equity = before + o
		}
		returns = append(returns, r)

		if equity <= 0 {
			equity = 0
			m.Ruined = true
			m.MaxDrawdown = 1
			continue
		}
		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak; dd > m.MaxDrawdown {
			m.MaxDrawdown = dd
		}
	}

	m.FinalValue = equity
	m.TotalReturn = equity/capital - 1
	m.AnnualizedReturn = annualize(m.TotalReturn, tradesPerYear, len(outcomes))
	m.SharpeRatio = sharpe(returns, tradesPerYear)
	return m, returns
}

// annualize returns (1+totalReturn)^(tradesPerYear/length) - 1, or -1 when the path lost everything.
func annualize(totalReturn, tradesPerYear float64, length int) float64 {
	growth := 1 + totalReturn
	if growth <= 0 {
		return -1
	}
	return math.Pow(growth, tradesPerYear/float64(length)) - 1
}

// sharpe is mean/stddev of per-draw returns scaled by sqrt(tradesPerYear).
// Fewer than two returns or zero variance yield 0.
func sharpe(returns []float64, tradesPerYear float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := metrics.Mean(returns)
	std := metrics.Stddev(returns, mean)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return mean / std * math.Sqrt(tradesPerYear)
}
