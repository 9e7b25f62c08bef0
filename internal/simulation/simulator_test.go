package simulation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeblocks/internal/domain"
)

func makeTrades(pls ...float64) []*domain.Trade {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	funds := 100000.0
	trades := make([]*domain.Trade, len(pls))
	for i, pl := range pls {
		funds += pl
		trades[i] = &domain.Trade{
			RowIndex:     i,
			DateOpened:   start.AddDate(0, 0, i),
			Strategy:     "Iron Condor",
			PL:           pl,
			FundsAtClose: funds,
		}
	}
	return trades
}

func mixedHistory() []*domain.Trade {
	return makeTrades(450, -1200, 300, 800, -250, 600, 150, -900, 1100, 200, -400, 700)
}

func baseParams() domain.SimulationParameters {
	return domain.SimulationParameters{
		NumSimulations:   500,
		SimulationLength: 100,
		ResampleMethod:   domain.ResampleTrades,
		InitialCapital:   100000,
		TradesPerYear:    125,
		RandomSeed:       42,
	}
}

func TestSimulator_Deterministic(t *testing.T) {
	ctx := context.Background()
	trades := mixedHistory()

	first, err := NewSimulator().Run(ctx, trades, baseParams())
	require.NoError(t, err)
	for run := 0; run < 3; run++ {
		again, err := NewSimulator().Run(ctx, trades, baseParams())
		require.NoError(t, err)
		assert.Equal(t, first.Statistics, again.Statistics, "run %d differs", run)
	}
}

func TestSimulator_WorkerCountDoesNotChangeResult(t *testing.T) {
	ctx := context.Background()
	trades := mixedHistory()

	params := baseParams()
	params.Workers = 1
	sequential, err := NewSimulator().Run(ctx, trades, params)
	require.NoError(t, err)

	for _, workers := range []int{2, 3, 8} {
		params.Workers = workers
		parallel, err := NewSimulator().Run(ctx, trades, params)
		require.NoError(t, err)
		assert.Equal(t, sequential.Statistics, parallel.Statistics, "workers=%d", workers)
		assert.Equal(t, sequential.Paths, parallel.Paths, "workers=%d", workers)
	}
}

func TestSimulator_SeedChangesResult(t *testing.T) {
	ctx := context.Background()
	a, err := NewSimulator().Run(ctx, mixedHistory(), baseParams())
	require.NoError(t, err)

	params := baseParams()
	params.RandomSeed = 7
	b, err := NewSimulator().Run(ctx, mixedHistory(), params)
	require.NoError(t, err)

	assert.NotEqual(t, a.Statistics.MeanFinalValue, b.Statistics.MeanFinalValue)
}

func TestSimulator_AllWinningHistory(t *testing.T) {
	trades := makeTrades(100, 250, 75, 400, 50)
	params, err := DefaultParameters(trades)
	require.NoError(t, err)

	res, err := NewSimulator().Run(context.Background(), trades, params)
	require.NoError(t, err)

	s := res.Statistics
	assert.Equal(t, 1.0, s.ProbabilityOfProfit)
	assert.Equal(t, 0.0, s.ProbabilityOfRuin)
	assert.Equal(t, 0.0, s.WorstMaxDrawdown)
	assert.Greater(t, s.MeanAnnualizedReturn, 0.0)
	assert.Greater(t, s.ValueAtRisk.P5, 0.0)
}

func TestSimulator_StatisticsAreOrdered(t *testing.T) {
	res, err := NewSimulator().Run(context.Background(), mixedHistory(), baseParams())
	require.NoError(t, err)

	s := res.Statistics
	assert.LessOrEqual(t, s.ValueAtRisk.P5, s.ValueAtRisk.P10)
	assert.LessOrEqual(t, s.ValueAtRisk.P10, s.ValueAtRisk.P25)
	assert.LessOrEqual(t, s.ValueAtRisk.P25, s.MedianTotalReturn)
	assert.LessOrEqual(t, s.FinalValuePercentiles.P5, s.FinalValuePercentiles.P25)
	assert.LessOrEqual(t, s.FinalValuePercentiles.P25, s.MedianFinalValue)
	assert.LessOrEqual(t, s.MedianFinalValue, s.FinalValuePercentiles.P75)
	assert.LessOrEqual(t, s.FinalValuePercentiles.P75, s.FinalValuePercentiles.P95)
	assert.GreaterOrEqual(t, s.WorstMaxDrawdown, s.MeanMaxDrawdown)
	assert.GreaterOrEqual(t, s.ProbabilityOfProfit, 0.0)
	assert.LessOrEqual(t, s.ProbabilityOfProfit, 1.0)
	assert.Equal(t, 500, res.PathCount)
}

func TestSimulator_Ruin(t *testing.T) {
	trades := makeTrades(-600, -700, 100)
	params := baseParams()
	params.InitialCapital = 1000
	params.SimulationLength = 20

	res, err := NewSimulator().Run(context.Background(), trades, params)
	require.NoError(t, err)

	assert.Greater(t, res.Statistics.ProbabilityOfRuin, 0.9)
	assert.Equal(t, 1.0, res.Statistics.WorstMaxDrawdown)
	for _, p := range res.Paths {
		if p.Ruined {
			assert.Equal(t, 0.0, p.FinalValue)
			assert.Equal(t, -1.0, p.TotalReturn)
			assert.Equal(t, -1.0, p.AnnualizedReturn)
		}
	}
}

func TestSimulator_ResampleMethods(t *testing.T) {
	for _, method := range []domain.ResampleMethod{domain.ResampleTrades, domain.ResamplePercentage, domain.ResampleBlock} {
		t.Run(string(method), func(t *testing.T) {
			params := baseParams()
			params.ResampleMethod = method
			a, err := NewSimulator().Run(context.Background(), mixedHistory(), params)
			require.NoError(t, err)
			b, err := NewSimulator().Run(context.Background(), mixedHistory(), params)
			require.NoError(t, err)
			assert.Equal(t, a.Statistics, b.Statistics)
		})
	}
}

func TestSimulator_DoesNotMutateTrades(t *testing.T) {
	trades := mixedHistory()
	reversed := make([]*domain.Trade, len(trades))
	for i := range trades {
		reversed[len(trades)-1-i] = trades[i]
	}
	_, err := NewSimulator().Run(context.Background(), reversed, baseParams())
	require.NoError(t, err)
	assert.Equal(t, len(trades)-1, reversed[0].RowIndex)
}

func TestSimulator_InvalidInput(t *testing.T) {
	ctx := context.Background()

	_, err := NewSimulator().Run(ctx, nil, baseParams())
	if !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for empty trades, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*domain.SimulationParameters)
	}{
		{"zero simulations", func(p *domain.SimulationParameters) { p.NumSimulations = 0 }},
		{"zero length", func(p *domain.SimulationParameters) { p.SimulationLength = 0 }},
		{"negative length", func(p *domain.SimulationParameters) { p.SimulationLength = -5 }},
		{"zero capital", func(p *domain.SimulationParameters) { p.InitialCapital = 0 }},
		{"unknown method", func(p *domain.SimulationParameters) { p.ResampleMethod = "bogus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := baseParams()
			tt.mutate(&params)
			_, err := NewSimulator().Run(ctx, mixedHistory(), params)
			if !errors.Is(err, domain.ErrInvalidParameters) {
				t.Errorf("expected ErrInvalidParameters, got %v", err)
			}
		})
	}
}

func TestSimulator_StrategyFilterEmpty(t *testing.T) {
	params := baseParams()
	params.Strategy = "Calendar"
	_, err := NewSimulator().Run(context.Background(), mixedHistory(), params)
	if !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestSimulator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSimulator().Run(ctx, mixedHistory(), baseParams())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSimulator_Progress(t *testing.T) {
	var calls []int
	params := baseParams()
	params.Workers = 4
	_, err := NewSimulator().
		WithProgress(func(done, total int) {
			assert.Equal(t, params.NumSimulations, total)
			calls = append(calls, done)
		}).
		Run(context.Background(), mixedHistory(), params)
	require.NoError(t, err)

	require.NotEmpty(t, calls)
	assert.Equal(t, params.NumSimulations, calls[len(calls)-1])
	for i := 1; i < len(calls); i++ {
		assert.Greater(t, calls[i], calls[i-1])
	}
}

func TestSelectPool(t *testing.T) {
	trades := mixedHistory()
	trades[3].Strategy = "Put Spread"
	trades[7].Strategy = "Put Spread"

	params := baseParams()
	params.Strategy = "Put Spread"
	pool := SelectPool(trades, params)
	require.Len(t, pool, 2)
	assert.Equal(t, 3, pool[0].RowIndex)

	params = baseParams()
	params.ResampleWindow = 4
	pool = SelectPool(trades, params)
	require.Len(t, pool, 4)
	assert.Equal(t, 8, pool[0].RowIndex)
	assert.Equal(t, 11, pool[3].RowIndex)
}

func TestDefaultParameters(t *testing.T) {
	params, err := DefaultParameters(mixedHistory())
	require.NoError(t, err)
	assert.Equal(t, 1000, params.NumSimulations)
	assert.Equal(t, 12, params.SimulationLength)
	assert.Equal(t, domain.ResampleTrades, params.ResampleMethod)
	assert.Equal(t, 100000.0, params.InitialCapital)
	assert.Equal(t, 125.0, params.TradesPerYear)
	assert.Equal(t, uint64(42), params.RandomSeed)

	_, err = DefaultParameters(nil)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

// Pinned output of the PCG streams for the default setup. A change here
// means every stored simulation result is no longer reproducible.
func TestSimulator_FixedSeedRegression(t *testing.T) {
	trades := mixedHistory()
	params, err := DefaultParameters(trades)
	require.NoError(t, err)

	for _, workers := range []int{1, 4} {
		params.Workers = workers
		res, err := NewSimulator().Run(context.Background(), trades, params)
		require.NoError(t, err)

		s := res.Statistics
		assert.InDelta(t, 0.22334457103474892, s.MeanAnnualizedReturn, 1e-9, "workers=%d", workers)
		assert.InDelta(t, 101722.15, s.MeanFinalValue, 1e-6)
		assert.InDelta(t, -0.0225, s.ValueAtRisk.P5, 1e-12)
		assert.InDelta(t, -0.0115, s.ValueAtRisk.P10, 1e-12)
		assert.InDelta(t, 0.0015, s.ValueAtRisk.P25, 1e-12)
		assert.Equal(t, 0.761, s.ProbabilityOfProfit)
		assert.Zero(t, s.ProbabilityOfRuin)
	}
}

type fixedStream struct{ index int }

func (f fixedStream) IntN(int) int { return f.index }

func TestSimulator_WithStreams(t *testing.T) {
	params := baseParams()
	params.NumSimulations = 50
	params.SimulationLength = 12
	params.Workers = 3

	var mu sync.Mutex
	seen := map[int]uint64{}
	streams := func(seed uint64, path int) RNG {
		mu.Lock()
		seen[path] = seed
		mu.Unlock()
		// Even paths always draw the first trade (+450), odd paths the second (-1200).
		return fixedStream{index: path % 2}
	}

	res, err := NewSimulator().WithStreams(streams).Run(context.Background(), mixedHistory(), params)
	require.NoError(t, err)

	require.Len(t, seen, 50)
	for path, seed := range seen {
		assert.Equal(t, params.RandomSeed, seed, "path %d", path)
	}
	for i, p := range res.Paths {
		if i%2 == 0 {
			assert.InDelta(t, 105400.0, p.FinalValue, 1e-9, "path %d", i)
			assert.Zero(t, p.MaxDrawdown)
		} else {
			assert.InDelta(t, 85600.0, p.FinalValue, 1e-9, "path %d", i)
			assert.InDelta(t, 0.144, p.MaxDrawdown, 1e-9)
		}
	}
	assert.Equal(t, 0.5, res.Statistics.ProbabilityOfProfit)
	assert.InDelta(t, 95500.0, res.Statistics.MeanFinalValue, 1e-9)
}

func TestSimulator_WithStreamsNilKeepsDefault(t *testing.T) {
	params := baseParams()
	a, err := NewSimulator().WithStreams(nil).Run(context.Background(), mixedHistory(), params)
	require.NoError(t, err)
	b, err := NewSimulator().Run(context.Background(), mixedHistory(), params)
	require.NoError(t, err)
	assert.Equal(t, b.Statistics, a.Statistics)
}

func TestParametersDigest_IgnoresWorkers(t *testing.T) {
	a := baseParams()
	b := baseParams()
	b.Workers = 16
	assert.Equal(t, ParametersDigest(a), ParametersDigest(b))

	b.RandomSeed = 1
	assert.NotEqual(t, ParametersDigest(a), ParametersDigest(b))
}
