package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tradeblocks/internal/chart"
	"tradeblocks/internal/domain"
	"tradeblocks/internal/ingestion"
	"tradeblocks/internal/metrics"
	"tradeblocks/internal/portfolio"
	"tradeblocks/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	tradeStore      storage.TradeStore
	dailyLogStore   storage.DailyLogStore          // optional
	aggregateStore  storage.StrategyAggregateStore // optional
	simulationStore storage.SimulationResultStore  // optional
	calc            *portfolio.Calculator
	now             func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
// Nil optional stores are skipped; missing aggregates are computed from trades.
func NewGenerator(
	tradeStore storage.TradeStore,
	dailyLogStore storage.DailyLogStore,
	aggStore storage.StrategyAggregateStore,
	simStore storage.SimulationResultStore,
) *Generator {
	return &Generator{
		tradeStore:      tradeStore,
		dailyLogStore:   dailyLogStore,
		aggregateStore:  aggStore,
		simulationStore: simStore,
		calc:            portfolio.NewCalculator(),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithCalculator sets the portfolio calculator used for statistics.
func (g *Generator) WithCalculator(calc *portfolio.Calculator) *Generator {
	if calc != nil {
		g.calc = calc
	}
	return g
}

// Generate produces the report of one dataset.
func (g *Generator) Generate(ctx context.Context, datasetKey string) (*Report, error) {
	trades, err := g.tradeStore.GetByDataset(ctx, datasetKey)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	if len(trades) == 0 {
		return nil, fmt.Errorf("dataset %s: %w", datasetKey, domain.ErrInsufficientData)
	}

	var dailyLog []*domain.DailyLogEntry
	if g.dailyLogStore != nil {
		dailyLog, err = g.dailyLogStore.GetByDataset(ctx, datasetKey)
		if err != nil {
			return nil, fmt.Errorf("load daily log: %w", err)
		}
	}

	bundle, err := chart.NewBuilder(g.calc).Build(trades, dailyLog)
	if err != nil {
		return nil, fmt.Errorf("compute statistics: %w", err)
	}

	aggs, err := g.loadAggregates(ctx, datasetKey, trades)
	if err != nil {
		return nil, err
	}

	simulations, err := g.generateSimulations(ctx, datasetKey)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt:     g.now(),
		DatasetKey:      datasetKey,
		DataSummary:     generateDataSummary(trades, dailyLog, aggs, bundle.Source),
		DataQuality:     DataQualitySection{AllRowsAccepted: true},
		Portfolio:       bundle.Stats,
		StrategyMetrics: generateStrategyMetrics(aggs),
		Weekdays:        bundle.Weekdays,
		Monthly:         bundle.Monthly,
		Simulations:     simulations,
	}, nil
}

// loadAggregates reads stored aggregates, computing them when none were persisted.
func (g *Generator) loadAggregates(ctx context.Context, datasetKey string, trades []*domain.Trade) ([]*domain.StrategyAggregate, error) {
	if g.aggregateStore != nil {
		aggs, err := g.aggregateStore.GetByDataset(ctx, datasetKey)
		if err != nil {
			return nil, fmt.Errorf("load aggregates: %w", err)
		}
		if len(aggs) > 0 {
			return aggs, nil
		}
	}
	aggs := metrics.ComputeStrategyAggregates(trades)
	for _, a := range aggs {
		a.DatasetKey = datasetKey
	}
	return aggs, nil
}

func (g *Generator) generateSimulations(ctx context.Context, datasetKey string) ([]SimulationRow, error) {
	if g.simulationStore == nil {
		return nil, nil
	}
	results, err := g.simulationStore.GetByDataset(ctx, datasetKey)
	if err != nil {
		return nil, fmt.Errorf("load simulations: %w", err)
	}
	rows := make([]SimulationRow, len(results))
	for i, r := range results {
		rows[i] = SimulationRowFrom(r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].RunID < rows[j].RunID })
	return rows, nil
}

// SimulationRowFrom summarises a simulation result for the report.
func SimulationRowFrom(r *domain.SimulationResult) SimulationRow {
	p, st := r.Parameters, r.Statistics
	return SimulationRow{
		RunID:               r.RunID,
		Method:              p.ResampleMethod,
		NumSimulations:      p.NumSimulations,
		SimulationLength:    p.SimulationLength,
		RandomSeed:          p.RandomSeed,
		InitialCapital:      p.InitialCapital,
		MedianFinalValue:    st.MedianFinalValue,
		FinalValueP5:        st.FinalValuePercentiles.P5,
		FinalValueP95:       st.FinalValuePercentiles.P95,
		ProbabilityOfProfit: st.ProbabilityOfProfit,
		ProbabilityOfRuin:   st.ProbabilityOfRuin,
		MedianMaxDrawdown:   st.MedianMaxDrawdown,
		ValueAtRiskP5:       st.ValueAtRisk.P5,
	}
}

// DataQualityFrom lists the rows skipped while loading a trade log and daily log.
func DataQualityFrom(trades *ingestion.TradeLoadResult, dailyLog *ingestion.DailyLogLoadResult) DataQualitySection {
	var q DataQualitySection
	if trades != nil {
		for _, r := range trades.Rejections {
			q.Rejections = append(q.Rejections, "trade log "+r.Error())
		}
		for _, e := range trades.ParseErrors {
			q.ParseErrors = append(q.ParseErrors, "trade log "+e.Error())
		}
	}
	if dailyLog != nil {
		for _, r := range dailyLog.Rejections {
			q.Rejections = append(q.Rejections, "daily log "+r.Error())
		}
		for _, e := range dailyLog.ParseErrors {
			q.ParseErrors = append(q.ParseErrors, "daily log "+e.Error())
		}
	}
	q.AllRowsAccepted = len(q.Rejections) == 0 && len(q.ParseErrors) == 0
	return q
}

// generateDataSummary describes the trades and daily log behind the report.
func generateDataSummary(trades []*domain.Trade, dailyLog []*domain.DailyLogEntry, aggs []*domain.StrategyAggregate, source domain.EquitySource) DataSummary {
	s := DataSummary{
		TotalTrades:     len(trades),
		StrategyCount:   len(aggs),
		DailyLogEntries: len(dailyLog),
		EquitySource:    source,
	}
	for _, t := range trades {
		if t.IsOpen() {
			s.OpenTrades++
		}
		if s.DateRangeStart.IsZero() || t.DateOpened.Before(s.DateRangeStart) {
			s.DateRangeStart = t.DateOpened
		}
		if t.DateOpened.After(s.DateRangeEnd) {
			s.DateRangeEnd = t.DateOpened
		}
	}
	return s
}

// generateStrategyMetrics builds rows sorted by strategy.
func generateStrategyMetrics(aggs []*domain.StrategyAggregate) []StrategyMetricRow {
	rows := make([]StrategyMetricRow, len(aggs))
	for i, agg := range aggs {
		rows[i] = StrategyMetricRow{
			Strategy:             agg.Strategy,
			TotalTrades:          agg.TotalTrades,
			Wins:                 agg.Wins,
			Losses:               agg.Losses,
			WinRate:              agg.WinRate,
			TotalPL:              agg.TotalPL,
			PLMean:               agg.PLMean,
			PLMedian:             agg.PLMedian,
			PLP10:                agg.PLP10,
			PLP90:                agg.PLP90,
			PremiumCapture:       agg.PremiumCapture,
			MaxDrawdown:          agg.MaxDrawdown,
			MaxConsecutiveLosses: agg.MaxConsecutiveLosses,
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Strategy < rows[j].Strategy
	})
	return rows
}
