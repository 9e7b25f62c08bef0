// Package config loads service configuration from a YAML file, the environment and .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/ingestion"
	"tradeblocks/internal/portfolio"
)

// Config is the full service configuration.
type Config struct {
	Ingestion  IngestionConfig  `yaml:"ingestion"`
	Portfolio  PortfolioConfig  `yaml:"portfolio"`
	Simulation SimulationConfig `yaml:"simulation"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

// IngestionConfig controls parsing.
type IngestionConfig struct {
	ChunkSize int  `yaml:"chunk_size"`
	Strict    bool `yaml:"strict"` // any rejected row fails the load

	// Extra header aliases, source header -> canonical field, merged over the defaults.
	TradeHeaders    map[string]string `yaml:"trade_headers"`
	DailyLogHeaders map[string]string `yaml:"daily_log_headers"`
}

// LoadOptions returns parser options carrying the chunk size and header overrides.
func (i IngestionConfig) LoadOptions() ingestion.LoadOptions {
	return ingestion.LoadOptions{
		ChunkSize:       i.ChunkSize,
		TradeHeaders:    ingestion.HeaderMapping(i.TradeHeaders),
		DailyLogHeaders: ingestion.HeaderMapping(i.DailyLogHeaders),
	}
}

// PortfolioConfig controls portfolio statistics.
type PortfolioConfig struct {
	InitialCapital       float64                             `yaml:"initial_capital"` // 0 = infer
	PeriodsPerYear       int                                 `yaml:"periods_per_year"`
	RiskFreeRate         float64                             `yaml:"risk_free_rate"`
	EfficiencyPrecedence []domain.EfficiencyBasis            `yaml:"efficiency_precedence"`
	StrategyEfficiency   map[string][]domain.EfficiencyBasis `yaml:"strategy_efficiency"`
}

// SimulationConfig holds Monte Carlo defaults. InitialCapital 0 means infer from trades.
type SimulationConfig struct {
	NumSimulations   int                   `yaml:"num_simulations"`
	SimulationLength int                   `yaml:"simulation_length"` // 0 = min(252, trades)
	ResampleMethod   domain.ResampleMethod `yaml:"resample_method"`
	InitialCapital   float64               `yaml:"initial_capital"`
	TradesPerYear    float64               `yaml:"trades_per_year"`
	RandomSeed       uint64                `yaml:"random_seed"`
	Workers          int                   `yaml:"workers"`
	BlockSize        int                   `yaml:"block_size"`
	ResampleWindow   int                   `yaml:"resample_window"`
}

// StorageConfig selects the storage backends.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"`
	UseMemory     bool   `yaml:"use_memory"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	MaxUpload   int64  `yaml:"max_upload_bytes"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig toggles the stdout span exporter.
type TracingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Service string `yaml:"service"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Ingestion: IngestionConfig{ChunkSize: 500},
		Portfolio: PortfolioConfig{
			PeriodsPerYear:       252,
			EfficiencyPrecedence: domain.DefaultEfficiencyPrecedence,
		},
		Simulation: SimulationConfig{
			NumSimulations: 1000,
			ResampleMethod: domain.ResampleTrades,
			TradesPerYear:  125,
			RandomSeed:     42,
			BlockSize:      domain.DefaultBlockSize,
		},
		Storage: StorageConfig{UseMemory: true},
		Server: ServerConfig{
			Addr:        ":8080",
			MetricsAddr: ":9090",
			MaxUpload:   32 << 20,
		},
		Log:     LogConfig{Level: "info", Format: "json"},
		Tracing: TracingConfig{Service: "tradeblocks"},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file. A .env file in the working directory is loaded
// first if present; variables already set in the environment win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadBytes parses YAML over the defaults without touching the environment.
func LoadBytes(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides fields from environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("CLICKHOUSE_DSN", &c.Storage.ClickHouseDSN)
	str("SERVER_ADDR", &c.Server.Addr)
	str("METRICS_ADDR", &c.Server.MetricsAddr)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("USE_MEMORY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("USE_MEMORY: %w", err)
		}
		c.Storage.UseMemory = b
	}
	if v, ok := lookup("TRACING_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRACING_ENABLED: %w", err)
		}
		c.Tracing.Enabled = b
	}
	if v, ok := lookup("SIMULATION_SEED"); ok && v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SIMULATION_SEED: %w", err)
		}
		c.Simulation.RandomSeed = seed
	}
	if v, ok := lookup("SIMULATION_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SIMULATION_WORKERS: %w", err)
		}
		c.Simulation.Workers = n
	}
	return nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Ingestion.ChunkSize <= 0 {
		return fmt.Errorf("ingestion.chunk_size must be positive, got %d", c.Ingestion.ChunkSize)
	}
	for h, field := range c.Ingestion.TradeHeaders {
		if strings.TrimSpace(h) == "" || field == "" {
			return fmt.Errorf("ingestion.trade_headers: empty alias %q -> %q", h, field)
		}
	}
	for h, field := range c.Ingestion.DailyLogHeaders {
		if strings.TrimSpace(h) == "" || field == "" {
			return fmt.Errorf("ingestion.daily_log_headers: empty alias %q -> %q", h, field)
		}
	}
	if c.Portfolio.PeriodsPerYear <= 0 {
		return fmt.Errorf("portfolio.periods_per_year must be positive, got %d", c.Portfolio.PeriodsPerYear)
	}
	for _, b := range c.Portfolio.EfficiencyPrecedence {
		if err := validBasis(b); err != nil {
			return fmt.Errorf("portfolio.efficiency_precedence: %w", err)
		}
	}
	for strategy, order := range c.Portfolio.StrategyEfficiency {
		for _, b := range order {
			if err := validBasis(b); err != nil {
				return fmt.Errorf("portfolio.strategy_efficiency[%s]: %w", strategy, err)
			}
		}
	}

	s := c.Simulation
	if s.NumSimulations <= 0 {
		return fmt.Errorf("simulation.num_simulations must be positive, got %d", s.NumSimulations)
	}
	if s.SimulationLength < 0 {
		return fmt.Errorf("simulation.simulation_length must not be negative, got %d", s.SimulationLength)
	}
	if !s.ResampleMethod.Valid() {
		return fmt.Errorf("simulation.resample_method %q is not one of trades, percentage, block", s.ResampleMethod)
	}
	if s.TradesPerYear <= 0 {
		return fmt.Errorf("simulation.trades_per_year must be positive, got %g", s.TradesPerYear)
	}
	if s.Workers < 0 || s.BlockSize < 0 || s.ResampleWindow < 0 || s.InitialCapital < 0 {
		return errors.New("simulation.workers, block_size, resample_window and initial_capital must not be negative")
	}

	if !c.Storage.UseMemory && (c.Storage.PostgresDSN == "" || c.Storage.ClickHouseDSN == "") {
		return errors.New("storage.postgres_dsn and storage.clickhouse_dsn are required unless storage.use_memory is set")
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "console", "text":
	default:
		return fmt.Errorf("log.format %q is not one of json, console", c.Log.Format)
	}
	return nil
}

func validBasis(b domain.EfficiencyBasis) error {
	switch b {
	case domain.BasisPremium, domain.BasisMaxProfit, domain.BasisMargin:
		return nil
	}
	return fmt.Errorf("unknown efficiency basis %q", b)
}

// SimulationParameters turns the simulation section into run parameters.
// Zero length and capital are resolved by the caller against the trade history.
func (s SimulationConfig) SimulationParameters() domain.SimulationParameters {
	return domain.SimulationParameters{
		NumSimulations:   s.NumSimulations,
		SimulationLength: s.SimulationLength,
		ResampleMethod:   s.ResampleMethod,
		InitialCapital:   s.InitialCapital,
		TradesPerYear:    s.TradesPerYear,
		RandomSeed:       s.RandomSeed,
		BlockSize:        s.BlockSize,
		ResampleWindow:   s.ResampleWindow,
		Workers:          s.Workers,
	}
}

// Calculator builds a portfolio calculator from the portfolio section.
func (p PortfolioConfig) Calculator() *portfolio.Calculator {
	calc := portfolio.NewCalculator().
		WithInitialCapital(p.InitialCapital).
		WithPeriodsPerYear(p.PeriodsPerYear).
		WithRiskFreeRate(p.RiskFreeRate).
		WithEfficiencyPrecedence(p.EfficiencyPrecedence)
	for strategy, order := range p.StrategyEfficiency {
		calc.WithStrategyPrecedence(strategy, order)
	}
	return calc
}
