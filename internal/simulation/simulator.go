package simulation

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/portfolio"
)

// ProgressFunc receives the number of completed paths.
// Calls are serialized; done is strictly increasing.
type ProgressFunc func(done, total int)

// Simulator runs Monte Carlo resampling over historical trades.
type Simulator struct {
	streams  StreamFunc
	progress ProgressFunc
}

// NewSimulator creates a simulator using per-path PCG streams.
func NewSimulator() *Simulator {
	return &Simulator{streams: PCGStreams}
}

// WithStreams replaces the random stream source.
func (s *Simulator) WithStreams(fn StreamFunc) *Simulator {
	if fn != nil {
		s.streams = fn
	}
	return s
}

// WithProgress registers a progress callback.
func (s *Simulator) WithProgress(fn ProgressFunc) *Simulator {
	s.progress = fn
	return s
}

// Run simulates params.NumSimulations paths and aggregates them.
// The result depends only on (trades, params); Workers changes scheduling only.
// Trades are not modified.
func (s *Simulator) Run(ctx context.Context, trades []*domain.Trade, params domain.SimulationParameters) (*domain.SimulationResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	pool := SelectPool(trades, params)
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: no trades to resample", domain.ErrInsufficientData)
	}
	smp, err := newSampler(params, pool)
	if err != nil {
		return nil, err
	}

	workers := params.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > params.NumSimulations {
		workers = params.NumSimulations
	}

	paths := make([]domain.PathMetrics, params.NumSimulations)
	tracker := newProgressTracker(s.progress, params.NumSimulations)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			outcomes := make([]float64, params.SimulationLength)
			returns := make([]float64, 0, params.SimulationLength)
			for i := w; i < params.NumSimulations; i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				smp.draw(s.streams(params.RandomSeed, i), outcomes)
				paths[i], returns = evaluatePath(outcomes, smp.compounding(), params.InitialCapital, params.TradesPerYear, returns)
				tracker.step()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.SimulationResult{
		Parameters: params,
		PathCount:  len(paths),
		Statistics: Aggregate(paths, params.InitialCapital),
		Paths:      paths,
	}, nil
}

// SelectPool returns the chronologically ordered trades eligible for resampling:
// filtered by params.Strategy, then limited to the last params.ResampleWindow trades.
func SelectPool(trades []*domain.Trade, params domain.SimulationParameters) []*domain.Trade {
	pool := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t == nil {
			continue
		}
		if params.Strategy != "" && t.Strategy != params.Strategy {
			continue
		}
		pool = append(pool, t)
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if !pool[i].DateOpened.Equal(pool[j].DateOpened) {
			return pool[i].DateOpened.Before(pool[j].DateOpened)
		}
		return pool[i].RowIndex < pool[j].RowIndex
	})
	if params.ResampleWindow > 0 && params.ResampleWindow < len(pool) {
		pool = pool[len(pool)-params.ResampleWindow:]
	}
	return pool
}

// DefaultParameters reproduces the standard regression setup for a trade history:
// 1000 paths of min(252, n) draws, trades resampling, 125 trades per year, seed 42,
// starting from the inferred initial capital.
func DefaultParameters(trades []*domain.Trade) (domain.SimulationParameters, error) {
	capital, err := portfolio.CalculateInitialCapital(trades)
	if err != nil {
		return domain.SimulationParameters{}, err
	}
	length := len(trades)
	if length > 252 {
		length = 252
	}
	return domain.SimulationParameters{
		NumSimulations:   1000,
		SimulationLength: length,
		ResampleMethod:   domain.ResampleTrades,
		InitialCapital:   capital,
		TradesPerYear:    125,
		RandomSeed:       42,
	}, nil
}

type progressTracker struct {
	mu    sync.Mutex
	fn    ProgressFunc
	done  int
	total int
	every int
}

func newProgressTracker(fn ProgressFunc, total int) *progressTracker {
	every := total / 100
	if every < 1 {
		every = 1
	}
	return &progressTracker{fn: fn, total: total, every: every}
}

func (p *progressTracker) step() {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if p.done%p.every == 0 || p.done == p.total {
		p.fn(p.done, p.total)
	}
}
