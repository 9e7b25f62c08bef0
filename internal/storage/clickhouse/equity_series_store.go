package clickhouse

import (
	"context"
	"fmt"
	"time"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/storage"
)

// EquitySeriesStore implements storage.EquitySeriesStore using ClickHouse.
type EquitySeriesStore struct {
	conn *Conn
}

// NewEquitySeriesStore creates a new EquitySeriesStore.
func NewEquitySeriesStore(conn *Conn) *EquitySeriesStore {
	return &EquitySeriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EquitySeriesStore = (*EquitySeriesStore)(nil)

// InsertBulk adds the curve of a dataset. Fails entire batch on duplicate (dataset_key, idx).
func (s *EquitySeriesStore) InsertBulk(ctx context.Context, datasetKey string, source domain.EquitySource, points []*domain.EquityPoint) (err error) {
	if datasetKey == "" {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[int]struct{}, len(points))
	for _, p := range points {
		if p == nil {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[p.Index]; exists {
			return storage.ErrDuplicateKey
		}
		seen[p.Index] = struct{}{}
	}
	defer observe("equity_insert_bulk", time.Now(), &err)

	// A dataset curve is written once; any existing point is a duplicate.
	var count uint64
	if err := s.conn.QueryRow(ctx, `SELECT count(*) FROM equity_series FINAL WHERE dataset_key = ?`, datasetKey).Scan(&count); err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if count > 0 {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO equity_series (
			dataset_key, idx, point_date, source, equity, high_water_mark
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(datasetKey, uint32(p.Index), p.Date, string(source), p.Equity, p.HighWaterMark); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByDataset retrieves all points ordered by index ASC.
func (s *EquitySeriesStore) GetByDataset(ctx context.Context, datasetKey string) (_ []*domain.EquityPoint, err error) {
	defer observe("equity_get_by_dataset", time.Now(), &err)

	rows, err := s.conn.Query(ctx, `
		SELECT idx, point_date, equity, high_water_mark
		FROM equity_series FINAL
		WHERE dataset_key = ?
		ORDER BY idx ASC
	`, datasetKey)
	if err != nil {
		return nil, fmt.Errorf("query by dataset: %w", err)
	}
	defer rows.Close()

	return scanEquityPoints(rows)
}

// GetByTimeRange retrieves points with date within [start, end] (inclusive).
func (s *EquitySeriesStore) GetByTimeRange(ctx context.Context, datasetKey string, start, end time.Time) (_ []*domain.EquityPoint, err error) {
	defer observe("equity_get_by_time_range", time.Now(), &err)

	rows, err := s.conn.Query(ctx, `
		SELECT idx, point_date, equity, high_water_mark
		FROM equity_series FINAL
		WHERE dataset_key = ? AND point_date >= ? AND point_date <= ?
		ORDER BY idx ASC
	`, datasetKey, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanEquityPoints(rows)
}

func scanEquityPoints(rows chRows) ([]*domain.EquityPoint, error) {
	var points []*domain.EquityPoint
	for rows.Next() {
		var p domain.EquityPoint
		var idx uint32
		if err := rows.Scan(&idx, &p.Date, &p.Equity, &p.HighWaterMark); err != nil {
			return nil, fmt.Errorf("scan equity row: %w", err)
		}
		p.Index = int(idx)
		p.Date = p.Date.UTC()
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equity rows: %w", err)
	}
	return points, nil
}
