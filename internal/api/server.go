// Package api exposes the analytics engine over HTTP with gin.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/ingestion"
	"tradeblocks/internal/observability"
	"tradeblocks/internal/pipeline"
	"tradeblocks/internal/portfolio"
)

// DefaultMaxUpload bounds request bodies when no limit is configured.
const DefaultMaxUpload = 32 << 20

// Server serves the analytics API.
type Server struct {
	stores    pipeline.Stores
	hub       *Hub
	calc      *portfolio.Calculator
	defaults  domain.SimulationParameters
	load      ingestion.LoadOptions
	maxUpload int64
	logAll    bool
	logger    *zap.Logger
}

// NewServer creates a server over stores. stores.Trades is required; hub may be nil.
func NewServer(stores pipeline.Stores, hub *Hub) *Server {
	if hub == nil {
		hub = NewHub(nil)
	}
	return &Server{
		stores:    stores,
		hub:       hub,
		calc:      portfolio.NewCalculator(),
		maxUpload: DefaultMaxUpload,
		defaults: domain.SimulationParameters{
			NumSimulations: 1000,
			ResampleMethod: domain.ResampleTrades,
			TradesPerYear:  125,
			RandomSeed:     42,
		},
		logger: zap.NewNop(),
	}
}

// WithCalculator sets the portfolio calculator used by /stats and /chart.
func (s *Server) WithCalculator(calc *portfolio.Calculator) *Server {
	if calc != nil {
		s.calc = calc
	}
	return s
}

// WithSimulationDefaults sets the parameters a simulation request starts from.
func (s *Server) WithSimulationDefaults(p domain.SimulationParameters) *Server {
	s.defaults = p
	return s
}

// WithLoadOptions sets the parser options for uploads. OnProgress is
// replaced per request with a hub publisher.
func (s *Server) WithLoadOptions(opts ingestion.LoadOptions) *Server {
	s.load = opts
	return s
}

// WithMaxUpload limits upload bodies to n bytes.
func (s *Server) WithMaxUpload(n int64) *Server {
	if n > 0 {
		s.maxUpload = n
	}
	return s
}

// WithLogger sets the logger. logAll also logs successful requests.
func (s *Server) WithLogger(logger *zap.Logger, logAll bool) *Server {
	if logger != nil {
		s.logger = logger
	}
	s.logAll = logAll
	return s
}

// Hub returns the progress hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), metricsMiddleware(), loggerMiddleware(s.logger, s.logAll))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(observability.Handler()))
	r.GET("/ws/progress", s.hub.ServeWS)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/trades", s.uploadTrades)
		v1.POST("/daily-log", s.uploadDailyLog)
		v1.GET("/datasets", s.listDatasets)
		v1.GET("/stats", s.stats)
		v1.GET("/chart", s.chart)
		v1.GET("/equity", s.equity)
		v1.GET("/strategies", s.strategies)
		v1.POST("/simulations", s.runSimulation)
		v1.GET("/simulations", s.listSimulations)
		v1.GET("/simulations/:runId", s.getSimulation)
	}
	return r
}
