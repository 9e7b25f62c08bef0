package simulation

import (
	"tradeblocks/internal/domain"
	"tradeblocks/internal/metrics"
)

// Aggregate summarises path metrics. Percentiles use linear interpolation over the sorted sample.
func Aggregate(paths []domain.PathMetrics, initialCapital float64) domain.SimulationStatistics {
	n := len(paths)
	if n == 0 {
		return domain.SimulationStatistics{}
	}

	annualized := make([]float64, n)
	finals := make([]float64, n)
	drawdowns := make([]float64, n)
	sharpes := make([]float64, n)
	totals := make([]float64, n)
	profitable, ruined := 0, 0
	for i, p := range paths {
		annualized[i] = p.AnnualizedReturn
		finals[i] = p.FinalValue
		drawdowns[i] = p.MaxDrawdown
		sharpes[i] = p.SharpeRatio
		totals[i] = p.TotalReturn
		if p.FinalValue > initialCapital {
			profitable++
		}
		if p.Ruined {
			ruined++
		}
	}

	sortedFinals := metrics.SortedCopy(finals)
	sortedTotals := metrics.SortedCopy(totals)
	sortedDrawdowns := metrics.SortedCopy(drawdowns)
	meanFinal := metrics.Mean(finals)

	return domain.SimulationStatistics{
		MeanAnnualizedReturn:   metrics.Mean(annualized),
		MedianAnnualizedReturn: metrics.Median(annualized),
		MeanFinalValue:         meanFinal,
		MedianFinalValue:       metrics.Percentile(sortedFinals, 0.50),
		StdFinalValue:          metrics.Stddev(finals, meanFinal),
		MeanMaxDrawdown:        metrics.Mean(drawdowns),
		MedianMaxDrawdown:      metrics.Percentile(sortedDrawdowns, 0.50),
		WorstMaxDrawdown:       sortedDrawdowns[n-1],
		MeanSharpeRatio:        metrics.Mean(sharpes),
		MedianSharpeRatio:      metrics.Median(sharpes),
		MeanTotalReturn:        metrics.Mean(totals),
		MedianTotalReturn:      metrics.Percentile(sortedTotals, 0.50),
		ProbabilityOfProfit:    float64(profitable) / float64(n),
		ProbabilityOfRuin:      float64(ruined) / float64(n),
		ValueAtRisk: domain.ValueAtRisk{
			P5:  metrics.Percentile(sortedTotals, 0.05),
			P10: metrics.Percentile(sortedTotals, 0.10),
			P25: metrics.Percentile(sortedTotals, 0.25),
		},
		FinalValuePercentiles: domain.FinalValuePercentiles{
			P5:  metrics.Percentile(sortedFinals, 0.05),
			P25: metrics.Percentile(sortedFinals, 0.25),
			P75: metrics.Percentile(sortedFinals, 0.75),
			P95: metrics.Percentile(sortedFinals, 0.95),
		},
	}
}
