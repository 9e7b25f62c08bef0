package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradeblocks/internal/chart"
	"tradeblocks/internal/domain"
	"tradeblocks/internal/idhash"
	"tradeblocks/internal/ingestion"
	"tradeblocks/internal/metrics"
	"tradeblocks/internal/observability"
	"tradeblocks/internal/pipeline"
	"tradeblocks/internal/simulation"
	"tradeblocks/internal/storage"
)

// LoadSummary is returned by the upload endpoints.
type LoadSummary struct {
	DatasetKey  string                    `json:"datasetKey"`
	TotalRows   int                       `json:"totalRows"`
	Accepted    int                       `json:"accepted"`
	Rejections  []*ingestion.RowRejection `json:"rejections"`
	ParseErrors []ingestion.ParseError    `json:"parseErrors"`
	Unmapped    []string                  `json:"unmapped"`
	Stored      bool                      `json:"stored"` // false when the dataset was already present
}

// SimulationResponse carries a result and, on request, its per-path metrics.
type SimulationResponse struct {
	*domain.SimulationResult
	Paths []domain.PathMetrics `json:"paths,omitempty"`
}

const dateLayout = "2006-01-02"

// readUpload returns the CSV payload from a multipart "file" field or the raw body.
func (s *Server) readUpload(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	var r io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("%w: multipart upload needs a \"file\" field", domain.ErrParseFailure)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: upload exceeds %d bytes", domain.ErrParseFailure, tooLarge.Limit)
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", domain.ErrParseFailure)
	}
	return data, nil
}

func (s *Server) loadOptions(file, datasetKey string) ingestion.LoadOptions {
	opts := s.load
	opts.OnProgress = func(fraction float64) {
		s.hub.Publish(ProgressEvent{Type: EventParse, File: file, DatasetKey: datasetKey, Fraction: fraction})
	}
	return opts
}

func strictParam(c *gin.Context) bool {
	strict, _ := strconv.ParseBool(c.Query("strict"))
	return strict
}

// datasetParam returns the required "dataset" query parameter.
func datasetParam(c *gin.Context) (string, error) {
	key := c.Query("dataset")
	if key == "" {
		return "", fmt.Errorf("%w: dataset query parameter is required", domain.ErrInvalidParameters)
	}
	return key, nil
}

// uploadTrades loads a trade log and stores it under its content-derived key.
func (s *Server) uploadTrades(c *gin.Context) {
	data, err := s.readUpload(c)
	if err != nil {
		writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	start := time.Now()
	res, err := ingestion.LoadTrades(ctx, data, s.loadOptions("trades", idhash.ComputeDatasetKey(data)))
	if err != nil {
		writeError(c, err)
		return
	}
	observability.RecordParse(time.Since(start).Seconds())
	observability.RecordTradesLoaded(len(res.Trades))
	if err := res.Failed(strictParam(c)); err != nil {
		writeError(c, err)
		return
	}
	if len(res.Trades) == 0 {
		writeError(c, fmt.Errorf("trade log has no valid trades: %w", domain.ErrInsufficientData))
		return
	}

	stored := true
	err = s.stores.Trades.InsertBulk(ctx, res.DatasetKey, res.Trades)
	switch {
	case errors.Is(err, storage.ErrDuplicateKey):
		stored = false
	case err != nil:
		writeError(c, fmt.Errorf("store trades: %w", err))
		return
	}

	s.logger.Info("trade log uploaded",
		zap.String("dataset_key", res.DatasetKey),
		zap.Int("trades", len(res.Trades)),
		zap.Int("rejected", len(res.Rejections)),
		zap.Bool("stored", stored),
	)
	c.JSON(http.StatusOK, LoadSummary{
		DatasetKey:  res.DatasetKey,
		TotalRows:   res.TotalRows,
		Accepted:    len(res.Trades),
		Rejections:  res.Rejections,
		ParseErrors: res.ParseErrors,
		Unmapped:    res.Unmapped,
		Stored:      stored,
	})
}

// uploadDailyLog attaches a daily log to an existing trade dataset.
func (s *Server) uploadDailyLog(c *gin.Context) {
	if s.stores.DailyLog == nil {
		writeError(c, errors.New("daily log storage is not configured"))
		return
	}
	key, err := datasetParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx := c.Request.Context()
	if _, err := s.loadTrades(ctx, key); err != nil {
		writeError(c, err)
		return
	}

	data, err := s.readUpload(c)
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := ingestion.LoadDailyLog(ctx, data, s.loadOptions("daily_log", key))
	if err != nil {
		writeError(c, err)
		return
	}
	observability.RecordDailyLogLoaded(len(res.Entries))
	if err := res.Failed(strictParam(c)); err != nil {
		writeError(c, err)
		return
	}

	stored := true
	err = s.stores.DailyLog.InsertBulk(ctx, key, res.Entries)
	switch {
	case errors.Is(err, storage.ErrDuplicateKey):
		stored = false
	case err != nil:
		writeError(c, fmt.Errorf("store daily log: %w", err))
		return
	}

	c.JSON(http.StatusOK, LoadSummary{
		DatasetKey:  key,
		TotalRows:   res.TotalRows,
		Accepted:    len(res.Entries),
		Rejections:  res.Rejections,
		ParseErrors: res.ParseErrors,
		Unmapped:    res.Unmapped,
		Stored:      stored,
	})
}

func (s *Server) listDatasets(c *gin.Context) {
	datasets, err := s.stores.Trades.ListDatasets(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"datasets": datasets})
}

// loadTrades returns the stored trades of a dataset, or ErrNotFound when there are none.
func (s *Server) loadTrades(ctx context.Context, key string) ([]*domain.Trade, error) {
	trades, err := s.stores.Trades.GetByDataset(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, fmt.Errorf("dataset %s: %w", key, storage.ErrNotFound)
	}
	return trades, nil
}

// analysisInput loads trades, narrowed by the optional "strategy" parameter,
// and the daily log. A strategy filter drops the daily log: it describes the whole account.
func (s *Server) analysisInput(c *gin.Context) ([]*domain.Trade, []*domain.DailyLogEntry, error) {
	key, err := datasetParam(c)
	if err != nil {
		return nil, nil, err
	}
	ctx := c.Request.Context()
	trades, err := s.loadTrades(ctx, key)
	if err != nil {
		return nil, nil, err
	}

	if name := c.Query("strategy"); name != "" {
		trades = ingestion.FilterByStrategy(trades, name)
		if len(trades) == 0 {
			return nil, nil, fmt.Errorf("strategy %q has no trades: %w", name, domain.ErrInsufficientData)
		}
		return trades, nil, nil
	}

	if s.stores.DailyLog == nil {
		return trades, nil, nil
	}
	daily, err := s.stores.DailyLog.GetByDataset(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	return trades, daily, nil
}

func (s *Server) stats(c *gin.Context) {
	trades, daily, err := s.analysisInput(c)
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := s.calc.Compute(trades, daily)
	if err != nil {
		writeError(c, err)
		return
	}
	observability.RecordStatsComputed()
	c.JSON(http.StatusOK, res.Stats)
}

func (s *Server) chart(c *gin.Context) {
	trades, daily, err := s.analysisInput(c)
	if err != nil {
		writeError(c, err)
		return
	}
	bundle, err := chart.NewBuilder(s.calc).Build(trades, daily)
	if err != nil {
		writeError(c, err)
		return
	}
	observability.RecordStatsComputed()
	c.JSON(http.StatusOK, bundle)
}

// equity serves the stored equity series, optionally limited by from/to dates.
func (s *Server) equity(c *gin.Context) {
	if s.stores.Equity == nil {
		writeError(c, errors.New("equity storage is not configured"))
		return
	}
	key, err := datasetParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx := c.Request.Context()

	from, to := c.Query("from"), c.Query("to")
	var points []*domain.EquityPoint
	if from == "" && to == "" {
		points, err = s.stores.Equity.GetByDataset(ctx, key)
	} else {
		start, end, perr := parseRange(from, to)
		if perr != nil {
			writeError(c, perr)
			return
		}
		points, err = s.stores.Equity.GetByTimeRange(ctx, key, start, end)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	if len(points) == 0 {
		writeError(c, fmt.Errorf("equity series for %s: %w", key, storage.ErrNotFound))
		return
	}
	c.JSON(http.StatusOK, gin.H{"datasetKey": key, "points": points})
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	start := time.Time{}
	end := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	var err error
	if from != "" {
		if start, err = time.Parse(dateLayout, from); err != nil {
			return start, end, fmt.Errorf("%w: from must be YYYY-MM-DD", domain.ErrInvalidParameters)
		}
	}
	if to != "" {
		if end, err = time.Parse(dateLayout, to); err != nil {
			return start, end, fmt.Errorf("%w: to must be YYYY-MM-DD", domain.ErrInvalidParameters)
		}
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("%w: from is after to", domain.ErrInvalidParameters)
	}
	return start, end, nil
}

// strategies returns per-strategy aggregates, computing and storing them on first use.
func (s *Server) strategies(c *gin.Context) {
	key, err := datasetParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	ctx := c.Request.Context()

	if s.stores.Aggregates == nil {
		trades, err := s.loadTrades(ctx, key)
		if err != nil {
			writeError(c, err)
			return
		}
		aggs := metrics.ComputeStrategyAggregates(trades)
		for _, a := range aggs {
			a.DatasetKey = key
		}
		c.JSON(http.StatusOK, gin.H{"datasetKey": key, "strategies": aggs})
		return
	}

	aggs, err := s.stores.Aggregates.GetByDataset(ctx, key)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(aggs) == 0 {
		aggs, err = metrics.NewAggregator(s.stores.Trades, s.stores.Aggregates).ComputeAndStore(ctx, key)
		switch {
		case errors.Is(err, metrics.ErrNoTrades):
			writeError(c, fmt.Errorf("dataset %s: %w", key, storage.ErrNotFound))
			return
		case errors.Is(err, storage.ErrDuplicateKey):
			// Stored by a concurrent request.
			aggs, err = s.stores.Aggregates.GetByDataset(ctx, key)
		}
		if err != nil {
			writeError(c, err)
			return
		}
		observability.RecordAggregates(len(aggs))
	}
	c.JSON(http.StatusOK, gin.H{"datasetKey": key, "strategies": aggs})
}

// runSimulation runs a Monte Carlo simulation. The JSON body overrides the server defaults.
func (s *Server) runSimulation(c *gin.Context) {
	key, err := datasetParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	params := s.defaults
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&params); err != nil && !errors.Is(err, io.EOF) {
			writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidParameters, err))
			return
		}
	}

	ctx := c.Request.Context()
	trades, err := s.loadTrades(ctx, key)
	if err != nil {
		writeError(c, err)
		return
	}
	params, err = pipeline.ResolveParameters(params, trades)
	if err != nil {
		writeError(c, err)
		return
	}

	runID := idhash.ComputeRunID(key, params.RandomSeed, simulation.ParametersDigest(params))
	sim := simulation.NewSimulator().WithProgress(func(done, total int) {
		s.hub.Publish(ProgressEvent{
			Type:       EventSimulation,
			DatasetKey: key,
			Fraction:   float64(done) / float64(total),
			Done:       done,
			Total:      total,
		})
	})

	start := time.Now()
	result, err := sim.Run(ctx, trades, params)
	if err != nil {
		observability.RecordSimulation(string(params.ResampleMethod), "error", 0, time.Since(start).Seconds())
		writeError(c, err)
		return
	}
	observability.RecordSimulation(string(params.ResampleMethod), "success", result.PathCount, time.Since(start).Seconds())
	result.DatasetKey = key
	result.RunID = runID

	if s.stores.Simulations != nil {
		err = s.stores.Simulations.Insert(ctx, result)
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			writeError(c, fmt.Errorf("store simulation: %w", err))
			return
		}
	}

	s.logger.Info("simulation complete",
		zap.String("dataset_key", key),
		zap.String("run_id", runID),
		zap.Int("paths", result.PathCount),
		zap.Duration("elapsed", time.Since(start)),
	)

	resp := SimulationResponse{SimulationResult: result}
	if withPaths, _ := strconv.ParseBool(c.Query("paths")); withPaths {
		resp.Paths = result.Paths
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listSimulations(c *gin.Context) {
	if s.stores.Simulations == nil {
		writeError(c, errors.New("simulation storage is not configured"))
		return
	}
	key, err := datasetParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	results, err := s.stores.Simulations.GetByDataset(c.Request.Context(), key)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"datasetKey": key, "simulations": results})
}

func (s *Server) getSimulation(c *gin.Context) {
	if s.stores.Simulations == nil {
		writeError(c, errors.New("simulation storage is not configured"))
		return
	}
	result, err := s.stores.Simulations.GetByID(c.Request.Context(), c.Param("runId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SimulationResponse{SimulationResult: result})
}
