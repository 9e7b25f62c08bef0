// Package main runs a Monte Carlo simulation over a trade log or a stored dataset.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tradeblocks/internal/config"
	"tradeblocks/internal/domain"
	"tradeblocks/internal/idhash"
	"tradeblocks/internal/ingestion"
	"tradeblocks/internal/observability"
	"tradeblocks/internal/pipeline"
	"tradeblocks/internal/reporting"
	"tradeblocks/internal/simulation"
	"tradeblocks/internal/storage"
	"tradeblocks/internal/storage/backends"
)

func main() {
	configPath := flag.String("config", os.Getenv("TRADEBLOCKS_CONFIG"), "YAML config file (optional)")
	tradesPath := flag.String("trades", "", "Trade log CSV")
	datasetKey := flag.String("dataset", "", "Stored dataset key (instead of -trades)")
	paths := flag.Int("paths", 0, "Number of simulated paths (default from config)")
	length := flag.Int("length", 0, "Trades per path (default min(252, trades))")
	method := flag.String("method", "", "Resample method: trades, percentage or block")
	capital := flag.Float64("capital", 0, "Initial capital (default inferred from trades)")
	seed := flag.Uint64("seed", 0, "Random seed (default from config)")
	strategy := flag.String("strategy", "", "Resample only this strategy")
	window := flag.Int("window", -1, "Resample only the last N trades")
	pathsCSV := flag.String("paths-csv", "", "Write per-path metrics to this CSV file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger := observability.MustLogger(cfg.Log.Level, cfg.Log.Format).Named("simulate")
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	params := cfg.Simulation.SimulationParameters()
	if *paths > 0 {
		params.NumSimulations = *paths
	}
	if *length > 0 {
		params.SimulationLength = *length
	}
	if *method != "" {
		params.ResampleMethod = domain.ResampleMethod(*method)
	}
	if *capital > 0 {
		params.InitialCapital = *capital
	}
	if *seed > 0 {
		params.RandomSeed = *seed
	}
	if *window >= 0 {
		params.ResampleWindow = *window
	}
	params.Strategy = *strategy

	var stores pipeline.Stores
	key := *datasetKey
	var trades []*domain.Trade
	switch {
	case *tradesPath != "":
		data, err := os.ReadFile(*tradesPath)
		if err != nil {
			logger.Fatal("read trade log", zap.Error(err))
		}
		res, err := ingestion.LoadTrades(ctx, data, cfg.Ingestion.LoadOptions())
		if err != nil {
			logger.Fatal("load trade log", zap.Error(err))
		}
		key, trades = res.DatasetKey, res.Trades
		if len(res.Rejections) > 0 {
			logger.Warn("rows rejected", zap.Int("count", len(res.Rejections)))
		}
	case key != "":
		var cleanup func()
		stores, cleanup, err = backends.Open(ctx, cfg.Storage, false)
		if err != nil {
			logger.Fatal("open storage", zap.Error(err))
		}
		defer cleanup()
		if trades, err = stores.Trades.GetByDataset(ctx, key); err != nil {
			logger.Fatal("load trades", zap.Error(err))
		}
	default:
		logger.Fatal("-trades or -dataset is required")
	}

	params, err = pipeline.ResolveParameters(params, trades)
	if err != nil {
		logger.Fatal("resolve parameters", zap.Error(err))
	}

	lastLogged := 0
	sim := simulation.NewSimulator().WithProgress(func(done, total int) {
		if pct := done * 10 / total; pct > lastLogged {
			lastLogged = pct
			logger.Info("simulating", zap.Int("done", done), zap.Int("total", total))
		}
	})

	start := time.Now()
	result, err := sim.Run(ctx, trades, params)
	if err != nil {
		logger.Fatal("simulation failed", zap.Error(err))
	}
	observability.RecordSimulation(string(params.ResampleMethod), "success", result.PathCount, time.Since(start).Seconds())
	result.DatasetKey = key
	result.RunID = idhash.ComputeRunID(key, params.RandomSeed, simulation.ParametersDigest(params))

	if stores.Simulations != nil {
		if err := stores.Simulations.Insert(ctx, result); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			logger.Fatal("store simulation", zap.Error(err))
		}
	}

	if *pathsCSV != "" {
		if err := os.WriteFile(*pathsCSV, []byte(reporting.RenderPathsCSV(result.Paths)), 0644); err != nil {
			logger.Fatal("write paths csv", zap.Error(err))
		}
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatal("marshal result", zap.Error(err))
	}
	fmt.Println(string(out))
}
