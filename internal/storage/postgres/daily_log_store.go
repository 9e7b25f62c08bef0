package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/storage"
)

// DailyLogStore implements storage.DailyLogStore using PostgreSQL.
type DailyLogStore struct {
	pool *Pool
}

// NewDailyLogStore creates a new DailyLogStore.
func NewDailyLogStore(pool *Pool) *DailyLogStore {
	return &DailyLogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DailyLogStore = (*DailyLogStore)(nil)

// InsertBulk adds all entries of a dataset atomically. Fails entire batch on duplicate date.
func (s *DailyLogStore) InsertBulk(ctx context.Context, datasetKey string, entries []*domain.DailyLogEntry) (err error) {
	if datasetKey == "" {
		return storage.ErrInvalidInput
	}
	if len(entries) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		if e == nil || e.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		rows = append(rows, []any{
			datasetKey, e.Date, e.RowIndex, e.NetLiquidity, e.DrawdownPct,
			e.CurrentFunds, e.TradingFunds, e.DailyPL, e.DailyPLPct,
		})
	}
	defer observe("daily_log_insert_bulk", time.Now(), &err)

	return s.pool.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"daily_log"},
			[]string{
				"dataset_key", "log_date", "row_index", "net_liquidity", "drawdown_pct",
				"current_funds", "trading_funds", "daily_pl", "daily_pl_pct",
			},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("copy daily log: %w", err)
		}
		return nil
	})
}

// GetByDataset retrieves entries ordered by date ASC.
func (s *DailyLogStore) GetByDataset(ctx context.Context, datasetKey string) ([]*domain.DailyLogEntry, error) {
	query := `
		SELECT log_date, row_index, net_liquidity, drawdown_pct,
			current_funds, trading_funds, daily_pl, daily_pl_pct
		FROM daily_log
		WHERE dataset_key = $1
		ORDER BY log_date ASC
	`
	rows, err := s.pool.Query(ctx, query, datasetKey)
	if err != nil {
		return nil, fmt.Errorf("get daily log by dataset: %w", err)
	}
	defer rows.Close()

	var entries []*domain.DailyLogEntry
	for rows.Next() {
		var e domain.DailyLogEntry
		if err := rows.Scan(
			&e.Date, &e.RowIndex, &e.NetLiquidity, &e.DrawdownPct,
			&e.CurrentFunds, &e.TradingFunds, &e.DailyPL, &e.DailyPLPct,
		); err != nil {
			return nil, fmt.Errorf("scan daily log row: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily log rows: %w", err)
	}
	return entries, nil
}
