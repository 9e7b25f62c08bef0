// Package backends opens the configured storage: in-memory, or Postgres for
// trades and daily logs plus ClickHouse for analytics results.
package backends

import (
	"context"
	"fmt"

	"tradeblocks/internal/config"
	"tradeblocks/internal/pipeline"
	chstore "tradeblocks/internal/storage/clickhouse"
	"tradeblocks/internal/storage/memory"
	"tradeblocks/internal/storage/migrations"
	pgstore "tradeblocks/internal/storage/postgres"
)

// Memory returns a fresh set of in-memory stores.
func Memory() pipeline.Stores {
	return pipeline.Stores{
		Trades:      memory.NewTradeStore(),
		DailyLog:    memory.NewDailyLogStore(),
		Aggregates:  memory.NewStrategyAggregateStore(),
		Simulations: memory.NewSimulationResultStore(),
		Equity:      memory.NewEquitySeriesStore(),
	}
}

// Open creates the stores selected by cfg. With migrate set, schema migrations
// are applied to both databases first. The returned func releases connections.
func Open(ctx context.Context, cfg config.StorageConfig, migrate bool) (pipeline.Stores, func(), error) {
	if cfg.UseMemory {
		return Memory(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return pipeline.Stores{}, nil, err
	}

	var conn *chstore.Conn
	if migrate {
		if _, err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return pipeline.Stores{}, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
	} else {
		conn, err = chstore.NewConn(ctx, cfg.ClickHouseDSN)
	}
	if err != nil {
		pool.Close()
		return pipeline.Stores{}, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	stores := pipeline.Stores{
		Trades:      pgstore.NewTradeStore(pool),
		DailyLog:    pgstore.NewDailyLogStore(pool),
		Aggregates:  chstore.NewStrategyAggregateStore(conn),
		Simulations: chstore.NewSimulationResultStore(conn),
		Equity:      chstore.NewEquitySeriesStore(conn),
	}
	cleanup := func() {
		conn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}
