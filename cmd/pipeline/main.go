// Package main runs the full analysis over a trade log:
// load → store → portfolio statistics → strategy aggregates → Monte Carlo → report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"tradeblocks/internal/config"
	"tradeblocks/internal/observability"
	"tradeblocks/internal/pipeline"
	"tradeblocks/internal/storage/backends"
)

func main() {
	configPath := flag.String("config", os.Getenv("TRADEBLOCKS_CONFIG"), "YAML config file (optional)")
	tradesPath := flag.String("trades", "", "Trade log CSV")
	dailyLogPath := flag.String("daily-log", "", "Daily log CSV (optional)")
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	fixture := flag.Int("fixture", 0, "Generate a sample trade history of N trades instead of reading -trades")
	noSimulation := flag.Bool("no-simulation", false, "Skip the Monte Carlo phase")
	strict := flag.Bool("strict", false, "Fail when any row is rejected")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage regardless of config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *useMemory || *fixture > 0 {
		cfg.Storage.UseMemory = true
	}
	logger := observability.MustLogger(cfg.Log.Level, cfg.Log.Format).Named("pipeline")
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Warn("received signal, cancelling pipeline", zap.String("signal", sig.String()))
		cancel()
	}()

	if cfg.Tracing.Enabled {
		shutdown, err := observability.InitTracing(ctx, cfg.Tracing.Service, os.Stderr)
		if err != nil {
			logger.Fatal("init tracing", zap.Error(err))
		}
		defer shutdown(context.Background())
	}

	in, err := readInput(*tradesPath, *dailyLogPath, *fixture)
	if err != nil {
		logger.Fatal("read input", zap.Error(err))
	}

	stores, cleanup, err := backends.Open(ctx, cfg.Storage, true)
	if err != nil {
		logger.Fatal("open storage", zap.Error(err))
	}
	defer cleanup()

	p := pipeline.NewAnalysisPipeline(stores).
		WithCalculator(cfg.Portfolio.Calculator()).
		WithLoadOptions(cfg.Ingestion.LoadOptions()).
		WithStrict(*strict || cfg.Ingestion.Strict).
		WithOutputDir(*outputDir).
		WithLogger(logger)
	if !*noSimulation {
		p = p.WithSimulation(cfg.Simulation.SimulationParameters())
	}

	res, err := p.Run(ctx, in)
	if err != nil {
		logger.Fatal("pipeline failed", zap.Error(err))
	}

	fmt.Printf("Dataset %s analysed:\n", res.DatasetKey)
	fmt.Printf("  - %s/%s\n", *outputDir, pipeline.ReportFile)
	fmt.Printf("  - %s/%s\n", *outputDir, pipeline.StrategyCSVFile)
	fmt.Printf("  - %s/%s\n", *outputDir, pipeline.EquityCSVFile)
	fmt.Printf("  - %s/%s\n", *outputDir, pipeline.ChartBundleFile)
	if res.Simulation != nil {
		fmt.Printf("  - %s/%s (run %s)\n", *outputDir, pipeline.SimulationResultFile, res.Simulation.RunID)
		fmt.Printf("  - %s/%s\n", *outputDir, pipeline.SimulationPathsFile)
	}
}

func readInput(tradesPath, dailyLogPath string, fixture int) (pipeline.Input, error) {
	if fixture > 0 {
		tradeLog, dailyLog := pipeline.SampleFixture(fixture, 1)
		return pipeline.Input{TradeLog: tradeLog, DailyLog: dailyLog}, nil
	}
	if tradesPath == "" {
		return pipeline.Input{}, fmt.Errorf("-trades is required (or use -fixture N)")
	}

	var in pipeline.Input
	var err error
	if in.TradeLog, err = os.ReadFile(tradesPath); err != nil {
		return in, err
	}
	if dailyLogPath != "" {
		if in.DailyLog, err = os.ReadFile(dailyLogPath); err != nil {
			return in, err
		}
	}
	return in, nil
}
