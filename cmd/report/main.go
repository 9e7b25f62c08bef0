// Package main regenerates the report of a stored dataset.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"tradeblocks/internal/chart"
	"tradeblocks/internal/config"
	"tradeblocks/internal/observability"
	"tradeblocks/internal/pipeline"
	"tradeblocks/internal/reporting"
	"tradeblocks/internal/storage/backends"
)

func main() {
	configPath := flag.String("config", os.Getenv("TRADEBLOCKS_CONFIG"), "YAML config file (optional)")
	datasetKey := flag.String("dataset", "", "Dataset key to report on; empty lists stored datasets")
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	fixedClock := flag.String("generated-at", "", "Report timestamp (RFC3339) for reproducible output")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger := observability.MustLogger(cfg.Log.Level, cfg.Log.Format).Named("report")
	defer logger.Sync()

	ctx := context.Background()
	stores, cleanup, err := backends.Open(ctx, cfg.Storage, false)
	if err != nil {
		logger.Fatal("open storage", zap.Error(err))
	}
	defer cleanup()

	if *datasetKey == "" {
		datasets, err := stores.Trades.ListDatasets(ctx)
		if err != nil {
			logger.Fatal("list datasets", zap.Error(err))
		}
		for _, d := range datasets {
			fmt.Printf("%s  %5d trades  %s .. %s\n", d.DatasetKey, d.TradeCount,
				d.FirstDate.Format("2006-01-02"), d.LastDate.Format("2006-01-02"))
		}
		return
	}

	calc := cfg.Portfolio.Calculator()
	gen := reporting.NewGenerator(stores.Trades, stores.DailyLog, stores.Aggregates, stores.Simulations).
		WithCalculator(calc)
	if *fixedClock != "" {
		ts, err := time.Parse(time.RFC3339, *fixedClock)
		if err != nil {
			logger.Fatal("parse -generated-at", zap.Error(err))
		}
		gen = gen.WithClock(func() time.Time { return ts.UTC() })
	}

	report, err := gen.Generate(ctx, *datasetKey)
	if err != nil {
		logger.Fatal("generate report", zap.Error(err))
	}
	observability.RecordReportGenerated()

	trades, err := stores.Trades.GetByDataset(ctx, *datasetKey)
	if err != nil {
		logger.Fatal("load trades", zap.Error(err))
	}
	daily, err := stores.DailyLog.GetByDataset(ctx, *datasetKey)
	if err != nil {
		logger.Fatal("load daily log", zap.Error(err))
	}
	bundle, err := chart.NewBuilder(calc).Build(trades, daily)
	if err != nil {
		logger.Fatal("build chart data", zap.Error(err))
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		logger.Fatal("create output dir", zap.Error(err))
	}
	files := map[string]string{
		pipeline.ReportFile:      reporting.RenderMarkdown(report),
		pipeline.StrategyCSVFile: reporting.RenderCSV(report.StrategyMetrics),
		pipeline.EquityCSVFile:   reporting.RenderEquityCSV(bundle.Equity, bundle.Drawdown),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(*outputDir, name), []byte(content), 0644); err != nil {
			logger.Fatal("write output", zap.String("file", name), zap.Error(err))
		}
	}

	fmt.Println("Report generated successfully:")
	fmt.Printf("  - %s/%s\n", *outputDir, pipeline.ReportFile)
	fmt.Printf("  - %s/%s\n", *outputDir, pipeline.StrategyCSVFile)
	fmt.Printf("  - %s/%s\n", *outputDir, pipeline.EquityCSVFile)
}
