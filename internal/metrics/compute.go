package metrics

import (
	"math"
	"sort"

	"tradeblocks/internal/domain"
)

// computeFromTrades calculates all metrics from a slice of trades.
// Trades must be pre-filtered by strategy.
// Trades are sorted by DateOpened ASC, RowIndex ASC before computing
// order-dependent metrics (MaxDrawdown, MaxConsecutiveLosses).
func computeFromTrades(trades []*domain.Trade, strategy string) *domain.StrategyAggregate {
	n := len(trades)
	if n == 0 {
		return &domain.StrategyAggregate{Strategy: strategy}
	}

	sortedTrades := make([]*domain.Trade, n)
	copy(sortedTrades, trades)
	sort.SliceStable(sortedTrades, func(i, j int) bool {
		if !sortedTrades[i].DateOpened.Equal(sortedTrades[j].DateOpened) {
			return sortedTrades[i].DateOpened.Before(sortedTrades[j].DateOpened)
		}
		return sortedTrades[i].RowIndex < sortedTrades[j].RowIndex
	})

	wins, losses, open := 0, 0, 0
	var totalPremium, totalComm, contracts float64
	contractTrades := 0
	for _, t := range sortedTrades {
		switch t.OutcomeClass() {
		case domain.OutcomeWin:
			wins++
		case domain.OutcomeLoss:
			losses++
		}
		if t.IsOpen() {
			open++
		}
		if t.PremiumCollected != nil {
			totalPremium += *t.PremiumCollected
		}
		if t.Contracts != nil {
			contracts += float64(*t.Contracts)
			contractTrades++
		}
		totalComm += t.TotalCommissions()
	}

	// Extract P/L in sorted order for order-dependent calculations
	outcomes := make([]float64, n)
	for i, t := range sortedTrades {
		outcomes[i] = t.PL
	}
	sortedOutcomes := SortedCopy(outcomes)

	mean := Mean(outcomes)
	totalPL := Sum(outcomes)

	agg := &domain.StrategyAggregate{
		Strategy: strategy,

		TotalTrades:   n,
		OpenTrades:    open,
		Wins:          wins,
		Losses:        losses,
		WinRate:       WinRate(wins, n),
		TotalPL:       totalPL,
		TotalPremium:  totalPremium,
		TotalCommFees: totalComm,

		PLMean:   mean,
		PLMedian: Percentile(sortedOutcomes, 0.50),
		PLP10:    Percentile(sortedOutcomes, 0.10),
		PLP25:    Percentile(sortedOutcomes, 0.25),
		PLP75:    Percentile(sortedOutcomes, 0.75),
		PLP90:    Percentile(sortedOutcomes, 0.90),
		PLMin:    sortedOutcomes[0],
		PLMax:    sortedOutcomes[n-1],
		PLStddev: Stddev(outcomes, mean),

		MaxDrawdown:          MaxDrawdown(outcomes),
		MaxConsecutiveLosses: MaxConsecutiveLosses(outcomes),
	}
	if contractTrades > 0 {
		agg.AvgContracts = contracts / float64(contractTrades)
	}
	if totalPremium != 0 {
		capture := totalPL / math.Abs(totalPremium)
		agg.PremiumCapture = &capture
	}
	return agg
}

// WinRate calculates win rate as wins / total.
func WinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// Sum adds the values.
func Sum(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum
}

// Mean calculates the arithmetic mean.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

// Stddev calculates sample standard deviation (n-1 denominator).
func Stddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0 // Need at least 2 samples for sample stddev
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// DownsideDeviation is the root mean square of negative values, over all n.
func DownsideDeviation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		if v < 0 {
			sumSq += v * v
		}
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// SortedCopy returns an ascending copy of values.
func SortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}

// Percentile uses linear interpolation.
// sorted must be pre-sorted ASC.
// p is percentile (0.10 = 10th percentile).
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 || p <= 0 {
		return sorted[0]
	}

	// Index for percentile (0-based, continuous)
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	// Linear interpolation
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Median is the 50th percentile of unsorted values.
func Median(values []float64) float64 {
	return Percentile(SortedCopy(values), 0.50)
}

// MaxDrawdown calculates worst peak-to-trough on cumulative outcomes.
// max_drawdown = MAX(peak_cumulative - trough_cumulative)
// Outcomes must be in chronological order.
func MaxDrawdown(outcomes []float64) float64 {
	if len(outcomes) == 0 {
		return 0
	}

	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, o := range outcomes {
		cumulative += o
		if cumulative > peak {
			peak = cumulative
		}
		drawdown := peak - cumulative
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// MaxConsecutiveLosses finds longest streak of outcome < 0.
// Outcomes must be in chronological order.
func MaxConsecutiveLosses(outcomes []float64) int {
	return maxStreak(outcomes, func(o float64) bool { return o < 0 })
}

// MaxConsecutiveWins finds longest streak of outcome > 0.
func MaxConsecutiveWins(outcomes []float64) int {
	return maxStreak(outcomes, func(o float64) bool { return o > 0 })
}

func maxStreak(outcomes []float64, match func(float64) bool) int {
	best := 0
	current := 0
	for _, o := range outcomes {
		if match(o) {
			current++
			if current > best {
				best = current
			}
		} else {
			current = 0
		}
	}
	return best
}
