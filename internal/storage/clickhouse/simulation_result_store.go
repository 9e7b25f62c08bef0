package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/storage"
)

// SimulationResultStore implements storage.SimulationResultStore using ClickHouse.
// Only the summary statistics are persisted; per-path metrics are dropped.
type SimulationResultStore struct {
	conn *Conn
}

// NewSimulationResultStore creates a new SimulationResultStore.
func NewSimulationResultStore(conn *Conn) *SimulationResultStore {
	return &SimulationResultStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SimulationResultStore = (*SimulationResultStore)(nil)

const simulationColumns = `
	run_id, dataset_key, parameters, path_count,
	mean_annualized_return, median_annualized_return,
	mean_final_value, median_final_value, std_final_value,
	mean_max_drawdown, median_max_drawdown, worst_max_drawdown,
	mean_sharpe_ratio, median_sharpe_ratio,
	mean_total_return, median_total_return,
	probability_of_profit, probability_of_ruin,
	var_p5, var_p10, var_p25,
	final_value_p5, final_value_p25, final_value_p75, final_value_p95`

// Insert adds a result. Returns ErrDuplicateKey if run_id exists.
func (s *SimulationResultStore) Insert(ctx context.Context, r *domain.SimulationResult) (err error) {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}
	defer observe("simulation_insert", time.Now(), &err)

	var count uint64
	if err := s.conn.QueryRow(ctx, `SELECT count(*) FROM simulation_results FINAL WHERE run_id = ?`, r.RunID).Scan(&count); err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if count > 0 {
		return storage.ErrDuplicateKey
	}

	params, err := json.Marshal(r.Parameters)
	if err != nil {
		return fmt.Errorf("marshal parameters: %w", err)
	}

	st := r.Statistics
	err = s.conn.Exec(ctx, `
		INSERT INTO simulation_results (`+simulationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.RunID, r.DatasetKey, string(params), uint32(r.PathCount),
		st.MeanAnnualizedReturn, st.MedianAnnualizedReturn,
		st.MeanFinalValue, st.MedianFinalValue, st.StdFinalValue,
		st.MeanMaxDrawdown, st.MedianMaxDrawdown, st.WorstMaxDrawdown,
		st.MeanSharpeRatio, st.MedianSharpeRatio,
		st.MeanTotalReturn, st.MedianTotalReturn,
		st.ProbabilityOfProfit, st.ProbabilityOfRuin,
		st.ValueAtRisk.P5, st.ValueAtRisk.P10, st.ValueAtRisk.P25,
		st.FinalValuePercentiles.P5, st.FinalValuePercentiles.P25, st.FinalValuePercentiles.P75, st.FinalValuePercentiles.P95,
	)
	if err != nil {
		return fmt.Errorf("insert simulation result: %w", err)
	}
	return nil
}

// GetByID retrieves a result by run ID. Returns ErrNotFound if not exists.
func (s *SimulationResultStore) GetByID(ctx context.Context, runID string) (_ *domain.SimulationResult, err error) {
	defer observe("simulation_get_by_id", time.Now(), &err)

	rows, err := s.conn.Query(ctx, `
		SELECT `+simulationColumns+`
		FROM simulation_results FINAL
		WHERE run_id = ?
		LIMIT 1
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	results, err := scanSimulationResults(rows)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, storage.ErrNotFound
	}
	return results[0], nil
}

// GetByDataset retrieves all results for a dataset ordered by run_id.
func (s *SimulationResultStore) GetByDataset(ctx context.Context, datasetKey string) (_ []*domain.SimulationResult, err error) {
	defer observe("simulation_get_by_dataset", time.Now(), &err)

	rows, err := s.conn.Query(ctx, `
		SELECT `+simulationColumns+`
		FROM simulation_results FINAL
		WHERE dataset_key = ?
		ORDER BY run_id ASC
	`, datasetKey)
	if err != nil {
		return nil, fmt.Errorf("query by dataset: %w", err)
	}
	defer rows.Close()

	return scanSimulationResults(rows)
}

func scanSimulationResults(rows chRows) ([]*domain.SimulationResult, error) {
	var results []*domain.SimulationResult
	for rows.Next() {
		var r domain.SimulationResult
		var params string
		var pathCount uint32
		st := &r.Statistics
		err := rows.Scan(
			&r.RunID, &r.DatasetKey, &params, &pathCount,
			&st.MeanAnnualizedReturn, &st.MedianAnnualizedReturn,
			&st.MeanFinalValue, &st.MedianFinalValue, &st.StdFinalValue,
			&st.MeanMaxDrawdown, &st.MedianMaxDrawdown, &st.WorstMaxDrawdown,
			&st.MeanSharpeRatio, &st.MedianSharpeRatio,
			&st.MeanTotalReturn, &st.MedianTotalReturn,
			&st.ProbabilityOfProfit, &st.ProbabilityOfRuin,
			&st.ValueAtRisk.P5, &st.ValueAtRisk.P10, &st.ValueAtRisk.P25,
			&st.FinalValuePercentiles.P5, &st.FinalValuePercentiles.P25, &st.FinalValuePercentiles.P75, &st.FinalValuePercentiles.P95,
		)
		if err != nil {
			return nil, fmt.Errorf("scan simulation row: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &r.Parameters); err != nil {
			return nil, fmt.Errorf("decode parameters of %s: %w", r.RunID, err)
		}
		r.PathCount = int(pathCount)
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate simulation rows: %w", err)
	}
	return results, nil
}
