package clickhouse

import (
	"context"
	"fmt"
	"time"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/storage"
)

// StrategyAggregateStore implements storage.StrategyAggregateStore using ClickHouse.
type StrategyAggregateStore struct {
	conn *Conn
}

// NewStrategyAggregateStore creates a new StrategyAggregateStore.
func NewStrategyAggregateStore(conn *Conn) *StrategyAggregateStore {
	return &StrategyAggregateStore{conn: conn}
}

// Compile-time interface check.
var _ storage.StrategyAggregateStore = (*StrategyAggregateStore)(nil)

const aggregateColumns = `
	dataset_key, strategy,
	total_trades, open_trades, wins, losses, win_rate,
	total_pl, total_premium, total_comm_fees, avg_contracts, premium_capture,
	pl_mean, pl_median, pl_p10, pl_p25, pl_p75, pl_p90,
	pl_min, pl_max, pl_stddev,
	max_drawdown, max_consecutive_losses`

// Insert adds a new aggregate. Returns ErrDuplicateKey if (dataset_key, strategy) exists.
func (s *StrategyAggregateStore) Insert(ctx context.Context, a *domain.StrategyAggregate) error {
	return s.InsertBulk(ctx, []*domain.StrategyAggregate{a})
}

// InsertBulk adds multiple aggregates atomically. Fails entire batch on any duplicate.
func (s *StrategyAggregateStore) InsertBulk(ctx context.Context, aggregates []*domain.StrategyAggregate) (err error) {
	if len(aggregates) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{})
	for _, a := range aggregates {
		if a == nil || a.DatasetKey == "" {
			return storage.ErrInvalidInput
		}
		key := a.DatasetKey + "|" + a.Strategy
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}
	defer observe("aggregates_insert_bulk", time.Now(), &err)

	// Check for duplicates against existing DB rows (ReplacingMergeTree would silently replace)
	for _, a := range aggregates {
		exists, err := s.exists(ctx, a.DatasetKey, a.Strategy)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO strategy_aggregates (`+aggregateColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, a := range aggregates {
		err = batch.Append(
			a.DatasetKey, a.Strategy,
			uint32(a.TotalTrades), uint32(a.OpenTrades), uint32(a.Wins), uint32(a.Losses), a.WinRate,
			a.TotalPL, a.TotalPremium, a.TotalCommFees, a.AvgContracts, a.PremiumCapture,
			a.PLMean, a.PLMedian, a.PLP10, a.PLP25, a.PLP75, a.PLP90,
			a.PLMin, a.PLMax, a.PLStddev,
			a.MaxDrawdown, uint32(a.MaxConsecutiveLosses),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByKey retrieves an aggregate by its composite key.
func (s *StrategyAggregateStore) GetByKey(ctx context.Context, datasetKey, strategy string) (*domain.StrategyAggregate, error) {
	query := `
		SELECT ` + aggregateColumns + `
		FROM strategy_aggregates FINAL
		WHERE dataset_key = ? AND strategy = ?
		LIMIT 1
	`
	rows, err := s.conn.Query(ctx, query, datasetKey, strategy)
	if err != nil {
		return nil, fmt.Errorf("query by key: %w", err)
	}
	defer rows.Close()

	aggregates, err := scanStrategyAggregates(rows)
	if err != nil {
		return nil, err
	}
	if len(aggregates) == 0 {
		return nil, storage.ErrNotFound
	}
	return aggregates[0], nil
}

// GetByDataset retrieves all aggregates of a dataset ordered by strategy.
func (s *StrategyAggregateStore) GetByDataset(ctx context.Context, datasetKey string) (_ []*domain.StrategyAggregate, err error) {
	defer observe("aggregates_get_by_dataset", time.Now(), &err)

	query := `
		SELECT ` + aggregateColumns + `
		FROM strategy_aggregates FINAL
		WHERE dataset_key = ?
		ORDER BY strategy ASC
	`
	rows, err := s.conn.Query(ctx, query, datasetKey)
	if err != nil {
		return nil, fmt.Errorf("query by dataset: %w", err)
	}
	defer rows.Close()

	return scanStrategyAggregates(rows)
}

// exists checks if an aggregate with the given key exists.
func (s *StrategyAggregateStore) exists(ctx context.Context, datasetKey, strategy string) (bool, error) {
	query := `
		SELECT count(*) FROM strategy_aggregates FINAL
		WHERE dataset_key = ? AND strategy = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, datasetKey, strategy).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows is the subset of driver.Rows used by the scanners.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanStrategyAggregates scans multiple rows into a slice.
func scanStrategyAggregates(rows chRows) ([]*domain.StrategyAggregate, error) {
	var aggregates []*domain.StrategyAggregate

	for rows.Next() {
		var a domain.StrategyAggregate
		var total, open, wins, losses, streak uint32
		err := rows.Scan(
			&a.DatasetKey, &a.Strategy,
			&total, &open, &wins, &losses, &a.WinRate,
			&a.TotalPL, &a.TotalPremium, &a.TotalCommFees, &a.AvgContracts, &a.PremiumCapture,
			&a.PLMean, &a.PLMedian, &a.PLP10, &a.PLP25, &a.PLP75, &a.PLP90,
			&a.PLMin, &a.PLMax, &a.PLStddev,
			&a.MaxDrawdown, &streak,
		)
		if err != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", err)
		}
		a.TotalTrades = int(total)
		a.OpenTrades = int(open)
		a.Wins = int(wins)
		a.Losses = int(losses)
		a.MaxConsecutiveLosses = int(streak)
		aggregates = append(aggregates, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregate rows: %w", err)
	}
	return aggregates, nil
}
