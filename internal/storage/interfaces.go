package storage

import (
	"context"
	"time"

	"tradeblocks/internal/domain"
)

// DatasetInfo describes one stored trade log.
type DatasetInfo struct {
	DatasetKey string
	Name       string // original file name, informational
	TradeCount int
	FirstDate  time.Time
	LastDate   time.Time
	CreatedAt  time.Time
}

// TradeStore provides access to trades storage.
// Trades are keyed by (dataset_key, trade_id).
type TradeStore interface {
	// InsertBulk adds all trades of a dataset atomically.
	// Returns ErrDuplicateKey if any (dataset_key, trade_id) already exists.
	InsertBulk(ctx context.Context, datasetKey string, trades []*domain.Trade) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, datasetKey, tradeID string) (*domain.Trade, error)

	// GetByDataset retrieves all trades of a dataset, ordered by (date_opened ASC, row_index ASC).
	GetByDataset(ctx context.Context, datasetKey string) ([]*domain.Trade, error)

	// GetByStrategy retrieves the trades of one strategy within a dataset, same order.
	GetByStrategy(ctx context.Context, datasetKey, strategy string) ([]*domain.Trade, error)

	// ListStrategies returns the distinct strategies of a dataset in ascending order.
	ListStrategies(ctx context.Context, datasetKey string) ([]string, error)

	// ListDatasets returns a summary of every stored dataset ordered by dataset_key.
	ListDatasets(ctx context.Context) ([]DatasetInfo, error)
}

// DailyLogStore provides access to daily_log storage.
type DailyLogStore interface {
	// InsertBulk adds all entries of a dataset atomically.
	// Returns ErrDuplicateKey if any (dataset_key, date) already exists.
	InsertBulk(ctx context.Context, datasetKey string, entries []*domain.DailyLogEntry) error

	// GetByDataset retrieves entries ordered by date ASC.
	GetByDataset(ctx context.Context, datasetKey string) ([]*domain.DailyLogEntry, error)
}

// StrategyAggregateStore provides access to strategy_aggregates storage.
type StrategyAggregateStore interface {
	// Insert adds a new aggregate. Returns ErrDuplicateKey if (dataset_key, strategy) exists.
	Insert(ctx context.Context, a *domain.StrategyAggregate) error

	// InsertBulk adds multiple aggregates atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, aggregates []*domain.StrategyAggregate) error

	// GetByKey retrieves an aggregate by its composite key. Returns ErrNotFound if not exists.
	GetByKey(ctx context.Context, datasetKey, strategy string) (*domain.StrategyAggregate, error)

	// GetByDataset retrieves all aggregates of a dataset ordered by strategy.
	GetByDataset(ctx context.Context, datasetKey string) ([]*domain.StrategyAggregate, error)
}

// SimulationResultStore provides access to simulation_results storage.
type SimulationResultStore interface {
	// Insert adds a result. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.SimulationResult) error

	// GetByID retrieves a result by run ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.SimulationResult, error)

	// GetByDataset retrieves all results for a dataset ordered by run_id.
	GetByDataset(ctx context.Context, datasetKey string) ([]*domain.SimulationResult, error)
}

// EquitySeriesStore provides access to equity_series storage.
type EquitySeriesStore interface {
	// InsertBulk adds the curve of a dataset. Fails entire batch on duplicate (dataset_key, idx).
	InsertBulk(ctx context.Context, datasetKey string, source domain.EquitySource, points []*domain.EquityPoint) error

	// GetByDataset retrieves all points ordered by index ASC.
	GetByDataset(ctx context.Context, datasetKey string) ([]*domain.EquityPoint, error)

	// GetByTimeRange retrieves points with date within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, datasetKey string, start, end time.Time) ([]*domain.EquityPoint, error)
}
