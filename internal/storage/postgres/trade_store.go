package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, row_index,
	date_opened, time_opened, opening_price, legs,
	date_closed, time_closed, closing_price, avg_closing_cost, reason_for_close,
	strategy,
	premium_collected, pl, funds_at_close, margin_requirement,
	opening_commissions, closing_commissions, contracts,
	gap, movement, max_profit, max_loss,
	opening_short_long_ratio, closing_short_long_ratio`

var insertTradeSQL = `
	INSERT INTO trades (dataset_key, ` + tradeColumns + `)
	VALUES (
		$1, $2, $3,
		$4, $5, $6, $7,
		$8, $9, $10, $11, $12,
		$13,
		$14, $15, $16, $17,
		$18, $19, $20,
		$21, $22, $23, $24,
		$25, $26
	)`

// InsertBulk adds all trades of a dataset atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, datasetKey string, trades []*domain.Trade) (err error) {
	if datasetKey == "" {
		return storage.ErrInvalidInput
	}
	if len(trades) == 0 {
		return nil
	}
	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
	}
	defer observe("trades_insert_bulk", time.Now(), &err)

	return s.pool.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO datasets (dataset_key) VALUES ($1) ON CONFLICT (dataset_key) DO NOTHING`,
			datasetKey,
		); err != nil {
			return fmt.Errorf("insert dataset: %w", err)
		}

		batch := &pgx.Batch{}
		for _, t := range trades {
			batch.Queue(insertTradeSQL,
				datasetKey, t.TradeID, t.RowIndex,
				t.DateOpened, t.TimeOpened, t.OpeningPrice, t.Legs,
				t.DateClosed, t.TimeClosed, t.ClosingPrice, t.AvgClosingCost, t.ReasonForClose,
				t.Strategy,
				t.PremiumCollected, t.PL, t.FundsAtClose, t.MarginRequirement,
				t.OpeningCommissions, t.ClosingCommissions, t.Contracts,
				t.Gap, t.Movement, t.MaxProfit, t.MaxLoss,
				t.OpeningShortLongRatio, t.ClosingShortLongRatio,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert trades in bulk: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, datasetKey, tradeID string) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE dataset_key = $1 AND trade_id = $2`

	t, err := scanTrade(s.pool.QueryRow(ctx, query, datasetKey, tradeID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// GetByDataset retrieves all trades of a dataset, ordered by (date_opened ASC, row_index ASC).
func (s *TradeStore) GetByDataset(ctx context.Context, datasetKey string) (_ []*domain.Trade, err error) {
	defer observe("trades_get_by_dataset", time.Now(), &err)

	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE dataset_key = $1
		ORDER BY date_opened ASC, row_index ASC
	`
	rows, err := s.pool.Query(ctx, query, datasetKey)
	if err != nil {
		return nil, fmt.Errorf("get trades by dataset: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByStrategy retrieves the trades of one strategy within a dataset.
func (s *TradeStore) GetByStrategy(ctx context.Context, datasetKey, strategy string) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE dataset_key = $1 AND strategy = $2
		ORDER BY date_opened ASC, row_index ASC
	`
	rows, err := s.pool.Query(ctx, query, datasetKey, strategy)
	if err != nil {
		return nil, fmt.Errorf("get trades by strategy: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// ListStrategies returns the distinct strategies of a dataset in ascending order.
func (s *TradeStore) ListStrategies(ctx context.Context, datasetKey string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT strategy FROM trades WHERE dataset_key = $1 ORDER BY strategy ASC`,
		datasetKey,
	)
	if err != nil {
		return nil, fmt.Errorf("list strategies: %w", err)
	}
	defer rows.Close()

	result := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan strategy row: %w", err)
		}
		result = append(result, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strategy rows: %w", err)
	}
	return result, nil
}

// ListDatasets returns a summary of every stored dataset ordered by dataset_key.
func (s *TradeStore) ListDatasets(ctx context.Context) ([]storage.DatasetInfo, error) {
	query := `
		SELECT d.dataset_key, d.name, COUNT(t.trade_id), MIN(t.date_opened), MAX(t.date_opened), d.created_at
		FROM datasets d
		LEFT JOIN trades t ON t.dataset_key = d.dataset_key
		GROUP BY d.dataset_key, d.name, d.created_at
		ORDER BY d.dataset_key ASC
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var result []storage.DatasetInfo
	for rows.Next() {
		var info storage.DatasetInfo
		var first, last *time.Time
		if err := rows.Scan(&info.DatasetKey, &info.Name, &info.TradeCount, &first, &last, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dataset row: %w", err)
		}
		if first != nil {
			info.FirstDate = *first
		}
		if last != nil {
			info.LastDate = *last
		}
		result = append(result, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dataset rows: %w", err)
	}
	return result, nil
}

// scanTrade scans a single row into a Trade.
func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var t domain.Trade
	err := row.Scan(
		&t.TradeID, &t.RowIndex,
		&t.DateOpened, &t.TimeOpened, &t.OpeningPrice, &t.Legs,
		&t.DateClosed, &t.TimeClosed, &t.ClosingPrice, &t.AvgClosingCost, &t.ReasonForClose,
		&t.Strategy,
		&t.PremiumCollected, &t.PL, &t.FundsAtClose, &t.MarginRequirement,
		&t.OpeningCommissions, &t.ClosingCommissions, &t.Contracts,
		&t.Gap, &t.Movement, &t.MaxProfit, &t.MaxLoss,
		&t.OpeningShortLongRatio, &t.ClosingShortLongRatio,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// scanTrades scans multiple rows into a slice of Trade.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}
