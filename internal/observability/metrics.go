// Package observability provides Prometheus metrics, structured logging and tracing.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	RowsParsed      *prometheus.CounterVec
	RowsRejected    *prometheus.CounterVec
	TradesLoaded    prometheus.Counter
	DailyLogsLoaded prometheus.Counter
	ParseDuration   prometheus.Histogram

	// Analytics metrics
	StatsComputed       prometheus.Counter
	SimulationsRun      *prometheus.CounterVec
	SimulationPaths     prometheus.Counter
	SimulationDuration  prometheus.Histogram
	AggregatesComputed  prometheus.Counter
	ReportsGenerated    prometheus.Counter
	ProgressSubscribers prometheus.Gauge

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSuccessfulPipeline  prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered on reg.
// A nil registerer uses the global Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "tradeblocks"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// Ingestion metrics
		RowsParsed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rows_parsed_total",
			Help:      "Total number of data rows parsed by kind",
		}, []string{"kind"}),
		RowsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rows_rejected_total",
			Help:      "Total number of rows rejected by reason",
		}, []string{"kind", "reason"}),
		TradesLoaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "trades_loaded_total",
			Help:      "Total number of validated trades",
		}),
		DailyLogsLoaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "daily_log_entries_loaded_total",
			Help:      "Total number of validated daily log entries",
		}),
		ParseDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "parse_duration_seconds",
			Help:      "Time spent parsing and validating one upload",
			Buckets:   prometheus.DefBuckets,
		}),

		// Analytics metrics
		StatsComputed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "portfolio_stats_computed_total",
			Help:      "Total number of portfolio statistics computations",
		}),
		SimulationsRun: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "simulations_total",
			Help:      "Total number of Monte Carlo runs by resample method and status",
		}, []string{"method", "status"}),
		SimulationPaths: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "simulation_paths_total",
			Help:      "Total number of simulated paths",
		}),
		SimulationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "simulation_duration_seconds",
			Help:      "Monte Carlo run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),
		AggregatesComputed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "strategy_aggregates_computed_total",
			Help:      "Total number of strategy aggregates computed",
		}),
		ReportsGenerated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),
		ProgressSubscribers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "progress_subscribers",
			Help:      "Current number of websocket progress subscribers",
		}),

		// Pipeline metrics
		PipelineRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"phase", "status"}),
		PipelineDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"phase"}),

		// HTTP metrics
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		// Database metrics
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulIngestion: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
		LastSuccessfulPipeline: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordRowsParsed records parsed and rejected rows of one upload.
// kind is "trades" or "daily_log"; rejections maps reason to count.
func RecordRowsParsed(kind string, total int, rejections map[string]int) {
	DefaultMetrics.RowsParsed.WithLabelValues(kind).Add(float64(total))
	for reason, n := range rejections {
		DefaultMetrics.RowsRejected.WithLabelValues(kind, reason).Add(float64(n))
	}
}

// RecordTradesLoaded increments the validated trade counter.
func RecordTradesLoaded(n int) {
	DefaultMetrics.TradesLoaded.Add(float64(n))
}

// RecordDailyLogLoaded increments the validated daily log counter.
func RecordDailyLogLoaded(n int) {
	DefaultMetrics.DailyLogsLoaded.Add(float64(n))
}

// RecordParse records parse duration.
func RecordParse(seconds float64) {
	DefaultMetrics.ParseDuration.Observe(seconds)
}

// RecordStatsComputed increments the portfolio statistics counter.
func RecordStatsComputed() {
	DefaultMetrics.StatsComputed.Inc()
}

// RecordSimulation records a Monte Carlo run.
func RecordSimulation(method, status string, paths int, seconds float64) {
	DefaultMetrics.SimulationsRun.WithLabelValues(method, status).Inc()
	DefaultMetrics.SimulationPaths.Add(float64(paths))
	DefaultMetrics.SimulationDuration.Observe(seconds)
}

// RecordAggregates increments the strategy aggregate counter.
func RecordAggregates(n int) {
	DefaultMetrics.AggregatesComputed.Add(float64(n))
}

// RecordReportGenerated increments the report counter.
func RecordReportGenerated() {
	DefaultMetrics.ReportsGenerated.Inc()
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(route, code string, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, code).Inc()
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordPipelineRun records a pipeline run.
func RecordPipelineRun(phase, status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(phase).Observe(durationSeconds)
}
