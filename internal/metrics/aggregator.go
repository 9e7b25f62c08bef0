package metrics

import (
	"context"
	"errors"
	"sort"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/storage"
)

// ErrNoTrades is returned when no trades are available for aggregation.
var ErrNoTrades = errors.New("no trades available for aggregation")

// Aggregator computes per-strategy aggregates from stored trades.
type Aggregator struct {
	tradeStore       storage.TradeStore
	strategyAggStore storage.StrategyAggregateStore
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(tradeStore storage.TradeStore, aggStore storage.StrategyAggregateStore) *Aggregator {
	return &Aggregator{
		tradeStore:       tradeStore,
		strategyAggStore: aggStore,
	}
}

// ComputeAggregate computes the aggregate for one (dataset_key, strategy).
// Returns ErrNoTrades if no trades match.
func (a *Aggregator) ComputeAggregate(ctx context.Context, datasetKey, strategy string) (*domain.StrategyAggregate, error) {
	trades, err := a.tradeStore.GetByStrategy(ctx, datasetKey, strategy)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, ErrNoTrades
	}

	agg := computeFromTrades(trades, strategy)
	agg.DatasetKey = datasetKey
	return agg, nil
}

// ComputeAll computes one aggregate per strategy of a dataset, ordered by strategy.
func (a *Aggregator) ComputeAll(ctx context.Context, datasetKey string) ([]*domain.StrategyAggregate, error) {
	trades, err := a.tradeStore.GetByDataset(ctx, datasetKey)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, ErrNoTrades
	}

	aggs := ComputeStrategyAggregates(trades)
	for _, agg := range aggs {
		agg.DatasetKey = datasetKey
	}
	return aggs, nil
}

// ComputeAndStore computes and persists the aggregates of every strategy in a dataset.
// Returns storage.ErrDuplicateKey if aggregates already exist (append-only).
func (a *Aggregator) ComputeAndStore(ctx context.Context, datasetKey string) ([]*domain.StrategyAggregate, error) {
	aggs, err := a.ComputeAll(ctx, datasetKey)
	if err != nil {
		return nil, err
	}

	// Persist aggregates (append-only, returns ErrDuplicateKey on duplicate)
	if err := a.strategyAggStore.InsertBulk(ctx, aggs); err != nil {
		return nil, err
	}

	return aggs, nil
}

// ComputeStrategyAggregates groups trades by strategy and aggregates each group.
// The result is ordered by strategy name; DatasetKey is left for the caller.
func ComputeStrategyAggregates(trades []*domain.Trade) []*domain.StrategyAggregate {
	groups := make(map[string][]*domain.Trade)
	for _, t := range trades {
		groups[t.Strategy] = append(groups[t.Strategy], t)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]*domain.StrategyAggregate, 0, len(names))
	for _, name := range names {
		result = append(result, computeFromTrades(groups[name], name))
	}
	return result
}
