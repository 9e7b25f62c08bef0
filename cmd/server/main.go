// Package main serves the analytics HTTP API:
// uploads, portfolio statistics, chart data, strategy aggregates,
// Monte Carlo runs and websocket progress.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradeblocks/internal/api"
	"tradeblocks/internal/config"
	"tradeblocks/internal/observability"
	"tradeblocks/internal/storage/backends"
)

func main() {
	configPath := flag.String("config", os.Getenv("TRADEBLOCKS_CONFIG"), "YAML config file (optional)")
	addr := flag.String("addr", "", "HTTP listen address (default from config)")
	metricsAddr := flag.String("metrics-addr", "", "Separate Prometheus metrics address (empty serves /metrics on -addr only)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage regardless of config")
	logRequests := flag.Bool("log-requests", false, "Log every request, not only failures")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *useMemory {
		cfg.Storage.UseMemory = true
	}
	logger := observability.MustLogger(cfg.Log.Level, cfg.Log.Format).Named("server")
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Tracing.Enabled {
		shutdown, err := observability.InitTracing(ctx, cfg.Tracing.Service, os.Stderr)
		if err != nil {
			logger.Fatal("init tracing", zap.Error(err))
		}
		defer shutdown(context.Background())
	}

	stores, cleanup, err := backends.Open(ctx, cfg.Storage, true)
	if err != nil {
		logger.Fatal("open storage", zap.Error(err))
	}
	defer cleanup()

	hub := api.NewHub(logger.Named("progress"))
	go hub.Run(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := api.NewServer(stores, hub).
		WithCalculator(cfg.Portfolio.Calculator()).
		WithSimulationDefaults(cfg.Simulation.SimulationParameters()).
		WithLoadOptions(cfg.Ingestion.LoadOptions()).
		WithMaxUpload(cfg.Server.MaxUpload).
		WithLogger(logger.Named("http"), *logRequests).
		Router()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if *metricsAddr != "" && *metricsAddr != cfg.Server.Addr {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Info("starting metrics server", zap.String("addr", *metricsAddr))
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server",
			zap.String("addr", cfg.Server.Addr),
			zap.Bool("memory_storage", cfg.Storage.UseMemory),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("HTTP server error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	cancel()
	logger.Info("shutdown complete")
}
