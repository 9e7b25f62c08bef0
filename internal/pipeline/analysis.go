package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"tradeblocks/internal/chart"
	"tradeblocks/internal/domain"
	"tradeblocks/internal/idhash"
	"tradeblocks/internal/ingestion"
	"tradeblocks/internal/metrics"
	"tradeblocks/internal/observability"
	"tradeblocks/internal/portfolio"
	"tradeblocks/internal/reporting"
	"tradeblocks/internal/simulation"
	"tradeblocks/internal/storage"
)

// Output file names written by Run when an output directory is set.
const (
	ReportFile           = "REPORT.md"
	StrategyCSVFile      = "strategy_aggregates.csv"
	EquityCSVFile        = "equity_curve.csv"
	SimulationPathsFile  = "simulation_paths.csv"
	ChartBundleFile      = "chart_bundle.json"
	SimulationResultFile = "simulation_result.json"
)

// Stores groups the storage backends used by the pipeline.
// Trades is required; the rest are optional.
type Stores struct {
	Trades      storage.TradeStore
	DailyLog    storage.DailyLogStore
	Aggregates  storage.StrategyAggregateStore
	Simulations storage.SimulationResultStore
	Equity      storage.EquitySeriesStore
}

// Input is one analysis request: a trade log and an optional daily log, as raw CSV.
type Input struct {
	TradeLog []byte
	DailyLog []byte
}

// Result holds everything one run produced.
type Result struct {
	DatasetKey string
	Trades     *ingestion.TradeLoadResult
	DailyLog   *ingestion.DailyLogLoadResult
	Bundle     *chart.Bundle
	Aggregates []*domain.StrategyAggregate
	Simulation *domain.SimulationResult // nil when simulation is disabled
	Report     *reporting.Report
}

// AnalysisPipeline runs load -> store -> statistics -> aggregates -> simulation -> report.
type AnalysisPipeline struct {
	stores    Stores
	calc      *portfolio.Calculator
	simulator *simulation.Simulator
	params    *domain.SimulationParameters
	checker   *SufficiencyChecker
	loadOpts  ingestion.LoadOptions
	strict    bool
	outputDir string
	logger    *zap.Logger
	clock     func() time.Time
}

// NewAnalysisPipeline creates a pipeline over stores.
func NewAnalysisPipeline(stores Stores) *AnalysisPipeline {
	return &AnalysisPipeline{
		stores:    stores,
		calc:      portfolio.NewCalculator(),
		simulator: simulation.NewSimulator(),
		checker:   NewSufficiencyChecker(),
		logger:    zap.NewNop(),
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// WithCalculator sets the portfolio calculator.
func (p *AnalysisPipeline) WithCalculator(calc *portfolio.Calculator) *AnalysisPipeline {
	if calc != nil {
		p.calc = calc
	}
	return p
}

// WithSimulator sets the Monte Carlo simulator.
func (p *AnalysisPipeline) WithSimulator(sim *simulation.Simulator) *AnalysisPipeline {
	if sim != nil {
		p.simulator = sim
	}
	return p
}

// WithSufficiencyChecker replaces the default sufficiency checker.
func (p *AnalysisPipeline) WithSufficiencyChecker(c *SufficiencyChecker) *AnalysisPipeline {
	if c != nil {
		p.checker = c
	}
	return p
}

// WithSimulation enables the simulation phase.
// Zero InitialCapital is inferred from the trades; zero SimulationLength becomes min(252, trades).
func (p *AnalysisPipeline) WithSimulation(params domain.SimulationParameters) *AnalysisPipeline {
	p.params = &params
	return p
}

// WithLoadOptions sets parser options for both files. Mapping applies to the trade log only.
func (p *AnalysisPipeline) WithLoadOptions(opts ingestion.LoadOptions) *AnalysisPipeline {
	p.loadOpts = opts
	return p
}

// WithStrict fails the run when any row is rejected or unreadable.
func (p *AnalysisPipeline) WithStrict(strict bool) *AnalysisPipeline {
	p.strict = strict
	return p
}

// WithOutputDir makes Run write the report, CSV exports and chart bundle to dir.
func (p *AnalysisPipeline) WithOutputDir(dir string) *AnalysisPipeline {
	p.outputDir = dir
	return p
}

// WithLogger sets the logger.
func (p *AnalysisPipeline) WithLogger(logger *zap.Logger) *AnalysisPipeline {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// WithClock sets a custom clock function for deterministic output.
func (p *AnalysisPipeline) WithClock(clock func() time.Time) *AnalysisPipeline {
	p.clock = clock
	return p
}

// Run executes the full pipeline.
func (p *AnalysisPipeline) Run(ctx context.Context, in Input) (res *Result, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "pipeline.run")
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		} else {
			observability.DefaultMetrics.LastSuccessfulPipeline.SetToCurrentTime()
		}
		observability.RecordPipelineRun("analysis", status, time.Since(start).Seconds())
		observability.EndSpan(span, err)
	}()

	res = &Result{}

	if err := p.load(ctx, in, res); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("dataset_key", res.DatasetKey))
	log := p.logger.With(zap.String("dataset_key", res.DatasetKey))

	if err := p.store(ctx, res, log); err != nil {
		return nil, err
	}

	if err := p.computeStats(ctx, res, log); err != nil {
		return nil, err
	}

	if err := p.computeAggregates(ctx, res, log); err != nil {
		return nil, err
	}

	if p.params != nil {
		if err := p.simulate(ctx, res, log); err != nil {
			return nil, err
		}
	}

	if err := p.generateReport(ctx, res); err != nil {
		return nil, err
	}

	if p.outputDir != "" {
		if err := p.writeOutputs(res); err != nil {
			return nil, err
		}
		log.Info("outputs written", zap.String("dir", p.outputDir))
	}

	log.Info("analysis complete",
		zap.Int("trades", len(res.Trades.Trades)),
		zap.Int("strategies", len(res.Aggregates)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (p *AnalysisPipeline) load(ctx context.Context, in Input, res *Result) (err error) {
	ctx, span := observability.StartSpan(ctx, "pipeline.load")
	defer func() { observability.EndSpan(span, err) }()

	start := time.Now()
	trades, err := ingestion.LoadTrades(ctx, in.TradeLog, p.loadOpts)
	if err != nil {
		return err
	}
	observability.RecordParse(time.Since(start).Seconds())
	recordLoad("trades", trades.TotalRows, trades.Rejections)
	observability.RecordTradesLoaded(len(trades.Trades))
	if err := trades.Failed(p.strict); err != nil {
		return err
	}
	if len(trades.Trades) == 0 {
		return fmt.Errorf("trade log has no valid trades: %w", domain.ErrInsufficientData)
	}
	res.DatasetKey = trades.DatasetKey
	res.Trades = trades

	p.logger.Info("trade log loaded",
		zap.String("dataset_key", trades.DatasetKey),
		zap.Int("rows", trades.TotalRows),
		zap.Int("trades", len(trades.Trades)),
		zap.Int("rejected", len(trades.Rejections)),
		zap.Int("unreadable", len(trades.ParseErrors)),
		zap.Strings("unmapped", trades.Unmapped),
	)

	if len(in.DailyLog) == 0 {
		return nil
	}

	dailyOpts := p.loadOpts
	dailyOpts.Mapping = nil
	daily, err := ingestion.LoadDailyLog(ctx, in.DailyLog, dailyOpts)
	if err != nil {
		return err
	}
	recordLoad("daily_log", daily.TotalRows, daily.Rejections)
	observability.RecordDailyLogLoaded(len(daily.Entries))
	if err := daily.Failed(p.strict); err != nil {
		return err
	}
	res.DailyLog = daily

	p.logger.Info("daily log loaded",
		zap.Int("rows", daily.TotalRows),
		zap.Int("entries", len(daily.Entries)),
		zap.Int("rejected", len(daily.Rejections)),
	)
	observability.DefaultMetrics.LastSuccessfulIngestion.SetToCurrentTime()
	return nil
}

func recordLoad(kind string, total int, rejections []*ingestion.RowRejection) {
	byReason := make(map[string]int)
	for _, r := range rejections {
		byReason[string(r.Reason)]++
	}
	observability.RecordRowsParsed(kind, total, byReason)
}

// store persists trades and the daily log. A dataset is keyed by content,
// so a duplicate means the same file was stored before.
func (p *AnalysisPipeline) store(ctx context.Context, res *Result, log *zap.Logger) (err error) {
	ctx, span := observability.StartSpan(ctx, "pipeline.store")
	defer func() { observability.EndSpan(span, err) }()

	err = p.stores.Trades.InsertBulk(ctx, res.DatasetKey, res.Trades.Trades)
	switch {
	case errors.Is(err, storage.ErrDuplicateKey):
		log.Info("dataset already stored")
	case err != nil:
		return fmt.Errorf("store trades: %w", err)
	}

	if res.DailyLog != nil && p.stores.DailyLog != nil {
		err = p.stores.DailyLog.InsertBulk(ctx, res.DatasetKey, res.DailyLog.Entries)
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			log.Info("daily log already stored")
		case err != nil:
			return fmt.Errorf("store daily log: %w", err)
		}
	}
	return nil
}

func (p *AnalysisPipeline) dailyEntries(res *Result) []*domain.DailyLogEntry {
	if res.DailyLog == nil {
		return nil
	}
	return res.DailyLog.Entries
}

func (p *AnalysisPipeline) computeStats(ctx context.Context, res *Result, log *zap.Logger) (err error) {
	ctx, span := observability.StartSpan(ctx, "pipeline.stats")
	defer func() { observability.EndSpan(span, err) }()

	bundle, err := chart.NewBuilder(p.calc).Build(res.Trades.Trades, p.dailyEntries(res))
	if err != nil {
		return fmt.Errorf("compute statistics: %w", err)
	}
	observability.RecordStatsComputed()
	res.Bundle = bundle

	if p.stores.Equity != nil {
		points := make([]*domain.EquityPoint, len(bundle.Equity))
		for i := range bundle.Equity {
			points[i] = &bundle.Equity[i]
		}
		err = p.stores.Equity.InsertBulk(ctx, res.DatasetKey, bundle.Source, points)
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			log.Debug("equity series already stored")
		case err != nil:
			return fmt.Errorf("store equity series: %w", err)
		}
	}

	log.Info("portfolio statistics computed",
		zap.String("equity_source", string(bundle.Source)),
		zap.Float64("initial_capital", bundle.Stats.InitialCapital),
		zap.Float64("total_return", bundle.Stats.TotalReturn),
		zap.Float64("max_drawdown", bundle.Stats.MaxDrawdown),
	)
	return nil
}

func (p *AnalysisPipeline) computeAggregates(ctx context.Context, res *Result, log *zap.Logger) (err error) {
	ctx, span := observability.StartSpan(ctx, "pipeline.aggregates")
	defer func() { observability.EndSpan(span, err) }()

	if p.stores.Aggregates == nil {
		res.Aggregates = metrics.ComputeStrategyAggregates(res.Trades.Trades)
		for _, a := range res.Aggregates {
			a.DatasetKey = res.DatasetKey
		}
	} else {
		aggs, err := metrics.NewAggregator(p.stores.Trades, p.stores.Aggregates).ComputeAndStore(ctx, res.DatasetKey)
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			log.Info("strategy aggregates already stored")
			if aggs, err = p.stores.Aggregates.GetByDataset(ctx, res.DatasetKey); err != nil {
				return fmt.Errorf("load aggregates: %w", err)
			}
		case err != nil:
			return fmt.Errorf("compute aggregates: %w", err)
		}
		res.Aggregates = aggs
	}
	observability.RecordAggregates(len(res.Aggregates))
	return nil
}

// ResolveParameters fills the unset (zero) inferred fields of params from
// trades. Negative values are rejected with domain.ErrInvalidParameters.
func ResolveParameters(params domain.SimulationParameters, trades []*domain.Trade) (domain.SimulationParameters, error) {
	if params.InitialCapital < 0 || math.IsNaN(params.InitialCapital) {
		return params, fmt.Errorf("%w: initialCapital must be positive, got %g", domain.ErrInvalidParameters, params.InitialCapital)
	}
	if params.SimulationLength < 0 {
		return params, fmt.Errorf("%w: simulationLength must be positive, got %d", domain.ErrInvalidParameters, params.SimulationLength)
	}
	if params.InitialCapital == 0 {
		capital, err := portfolio.CalculateInitialCapital(trades)
		if err != nil {
			return params, err
		}
		params.InitialCapital = capital
	}
	if params.SimulationLength == 0 {
		n := len(simulation.SelectPool(trades, params))
		if n > 252 {
			n = 252
		}
		params.SimulationLength = n
	}
	return params, nil
}

func (p *AnalysisPipeline) simulate(ctx context.Context, res *Result, log *zap.Logger) (err error) {
	params, err := ResolveParameters(*p.params, res.Trades.Trades)
	if err != nil {
		return fmt.Errorf("resolve simulation parameters: %w", err)
	}

	ctx, span := observability.StartSpan(ctx, "pipeline.simulate",
		attribute.String("method", string(params.ResampleMethod)),
		attribute.Int("paths", params.NumSimulations),
	)
	defer func() { observability.EndSpan(span, err) }()

	start := time.Now()
	sim, err := p.simulator.Run(ctx, res.Trades.Trades, params)
	if err != nil {
		observability.RecordSimulation(string(params.ResampleMethod), "error", 0, time.Since(start).Seconds())
		return fmt.Errorf("simulate: %w", err)
	}
	observability.RecordSimulation(string(params.ResampleMethod), "success", sim.PathCount, time.Since(start).Seconds())

	sim.DatasetKey = res.DatasetKey
	sim.RunID = idhash.ComputeRunID(res.DatasetKey, params.RandomSeed, simulation.ParametersDigest(params))
	res.Simulation = sim

	if p.stores.Simulations != nil {
		err = p.stores.Simulations.Insert(ctx, sim)
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			log.Info("simulation already stored", zap.String("run_id", sim.RunID))
		case err != nil:
			return fmt.Errorf("store simulation: %w", err)
		}
	}

	log.Info("simulation complete",
		zap.String("run_id", sim.RunID),
		zap.Int("paths", sim.PathCount),
		zap.Float64("probability_of_profit", sim.Statistics.ProbabilityOfProfit),
		zap.Float64("median_final_value", sim.Statistics.MedianFinalValue),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (p *AnalysisPipeline) generateReport(ctx context.Context, res *Result) error {
	report, err := reporting.NewGenerator(p.stores.Trades, p.stores.DailyLog, p.stores.Aggregates, p.stores.Simulations).
		WithCalculator(p.calc).
		WithClock(p.clock).
		Generate(ctx, res.DatasetKey)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}
	report.DataQuality = reporting.DataQualityFrom(res.Trades, res.DailyLog)
	applySufficiency(&report.DataQuality, p.checker.Check(res.Trades.Trades, p.dailyEntries(res)))
	if res.Simulation != nil && p.stores.Simulations == nil {
		report.Simulations = []reporting.SimulationRow{reporting.SimulationRowFrom(res.Simulation)}
	}
	observability.RecordReportGenerated()
	res.Report = report
	return nil
}

// writeOutputs writes:
// - REPORT.md
// - strategy_aggregates.csv
// - equity_curve.csv
// - chart_bundle.json
// - simulation_result.json and simulation_paths.csv, when simulated
func (p *AnalysisPipeline) writeOutputs(res *Result) error {
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return err
	}

	files := map[string][]byte{
		ReportFile:      []byte(reporting.RenderMarkdown(res.Report)),
		StrategyCSVFile: []byte(reporting.RenderCSV(res.Report.StrategyMetrics)),
		EquityCSVFile:   []byte(reporting.RenderEquityCSV(res.Bundle.Equity, res.Bundle.Drawdown)),
	}

	bundleJSON, err := json.MarshalIndent(res.Bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chart bundle: %w", err)
	}
	files[ChartBundleFile] = bundleJSON

	if res.Simulation != nil {
		simJSON, err := json.MarshalIndent(res.Simulation, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal simulation: %w", err)
		}
		files[SimulationResultFile] = simJSON
		files[SimulationPathsFile] = []byte(reporting.RenderPathsCSV(res.Simulation.Paths))
	}

	for name, data := range files {
		if err := os.WriteFile(filepath.Join(p.outputDir, name), data, 0644); err != nil {
			return err
		}
	}
	return nil
}

// applySufficiency copies checker output into the report's data quality section.
func applySufficiency(q *reporting.DataQualitySection, result *SufficiencyResult) {
	for _, c := range result.Checks {
		q.SufficiencyChecks = append(q.SufficiencyChecks, reporting.SufficiencyCheckRow{
			Name:      c.Name,
			Threshold: c.Threshold,
			Actual:    c.Actual,
			Pass:      c.Pass,
		})
	}
	q.IntegrityErrors = append(q.IntegrityErrors, result.Errors...)
	q.AllChecksPassed = result.AllPass && len(q.IntegrityErrors) == 0
}
