// Package main loads trade logs and daily logs into storage.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"tradeblocks/internal/config"
	"tradeblocks/internal/ingestion"
	"tradeblocks/internal/observability"
	"tradeblocks/internal/storage"
	"tradeblocks/internal/storage/backends"
)

func main() {
	configPath := flag.String("config", os.Getenv("TRADEBLOCKS_CONFIG"), "YAML config file (optional)")
	tradesPath := flag.String("trades", "", "Trade log CSV (required)")
	dailyLogPath := flag.String("daily-log", "", "Daily log CSV to attach to the trade log (optional)")
	strict := flag.Bool("strict", false, "Fail when any row is rejected")
	showProgress := flag.Bool("progress", false, "Log parse progress")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger := observability.MustLogger(cfg.Log.Level, cfg.Log.Format).Named("ingest")
	defer logger.Sync()

	if *tradesPath == "" {
		logger.Fatal("-trades is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	stores, cleanup, err := backends.Open(ctx, cfg.Storage, true)
	if err != nil {
		logger.Fatal("open storage", zap.Error(err))
	}
	defer cleanup()

	opts := cfg.Ingestion.LoadOptions()
	if *showProgress {
		opts.OnProgress = func(fraction float64) {
			logger.Info("parsing", zap.Float64("fraction", fraction))
		}
	}
	strictMode := *strict || cfg.Ingestion.Strict

	data, err := os.ReadFile(*tradesPath)
	if err != nil {
		logger.Fatal("read trade log", zap.Error(err))
	}
	start := time.Now()
	trades, err := ingestion.LoadTrades(ctx, data, opts)
	if err != nil {
		logger.Fatal("load trade log", zap.Error(err))
	}
	observability.RecordParse(time.Since(start).Seconds())
	logRejections(logger, trades.Rejections, trades.ParseErrors)
	if err := trades.Failed(strictMode); err != nil {
		logger.Fatal("trade log rejected", zap.Error(err))
	}
	if len(trades.Trades) == 0 {
		logger.Fatal("trade log has no valid trades")
	}

	if err := stores.Trades.InsertBulk(ctx, trades.DatasetKey, trades.Trades); err != nil {
		if !errors.Is(err, storage.ErrDuplicateKey) {
			logger.Fatal("store trades", zap.Error(err))
		}
		logger.Info("dataset already stored", zap.String("dataset_key", trades.DatasetKey))
	}
	logger.Info("trade log ingested",
		zap.String("dataset_key", trades.DatasetKey),
		zap.Int("rows", trades.TotalRows),
		zap.Int("trades", len(trades.Trades)),
		zap.Strings("unmapped", trades.Unmapped),
	)

	if *dailyLogPath != "" {
		data, err := os.ReadFile(*dailyLogPath)
		if err != nil {
			logger.Fatal("read daily log", zap.Error(err))
		}
		daily, err := ingestion.LoadDailyLog(ctx, data, opts)
		if err != nil {
			logger.Fatal("load daily log", zap.Error(err))
		}
		logRejections(logger, daily.Rejections, daily.ParseErrors)
		if err := daily.Failed(strictMode); err != nil {
			logger.Fatal("daily log rejected", zap.Error(err))
		}
		if err := stores.DailyLog.InsertBulk(ctx, trades.DatasetKey, daily.Entries); err != nil {
			if !errors.Is(err, storage.ErrDuplicateKey) {
				logger.Fatal("store daily log", zap.Error(err))
			}
			logger.Info("daily log already stored")
		}
		logger.Info("daily log ingested", zap.Int("entries", len(daily.Entries)))
	}

	fmt.Println(trades.DatasetKey)
}

func logRejections(logger *zap.Logger, rejections []*ingestion.RowRejection, parseErrors []ingestion.ParseError) {
	for _, r := range rejections {
		logger.Warn("row rejected", zap.Int("row", r.Row), zap.String("field", r.Field), zap.String("reason", string(r.Reason)))
	}
	for _, e := range parseErrors {
		logger.Warn("row unreadable", zap.Int("row", e.Row), zap.String("error", e.Message))
	}
}
