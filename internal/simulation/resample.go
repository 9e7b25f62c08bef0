package simulation

import (
	"fmt"

	"tradeblocks/internal/domain"
)

// sampler fills out with simulationLength draws from the historical pool.
type sampler interface {
	draw(rng RNG, out []float64)
	// compounding reports whether draws are returns rather than currency P/L.
	compounding() bool
}

func newSampler(params domain.SimulationParameters, pool []*domain.Trade) (sampler, error) {
	switch params.ResampleMethod {
	case domain.ResampleTrades:
		return &tradeSampler{values: plValues(pool)}, nil
	case domain.ResamplePercentage:
		returns := make([]float64, 0, len(pool))
		for _, t := range pool {
			base := t.FundsAtClose - t.PL
			if base <= 0 {
				continue
			}
			returns = append(returns, t.PL/base)
		}
		if len(returns) == 0 {
			return nil, fmt.Errorf("%w: no trade has positive capital at entry", domain.ErrInsufficientData)
		}
		return &percentageSampler{returns: returns}, nil
	case domain.ResampleBlock:
		size := params.BlockSize
		if size == 0 {
			size = domain.DefaultBlockSize
		}
		return &blockSampler{values: plValues(pool), size: size}, nil
	}
	return nil, fmt.Errorf("%w: unknown resample method %q", domain.ErrInvalidParameters, params.ResampleMethod)
}

func plValues(pool []*domain.Trade) []float64 {
	values := make([]float64, len(pool))
	for i, t := range pool {
		values[i] = t.PL
	}
	return values
}

// tradeSampler is an i.i.d. bootstrap over trade P/L.
type tradeSampler struct {
	values []float64
}

func (s *tradeSampler) draw(rng RNG, out []float64) {
	n := len(s.values)
	for i := range out {
		out[i] = s.values[rng.IntN(n)]
	}
}

func (s *tradeSampler) compounding() bool { return false }

// percentageSampler is an i.i.d. bootstrap over per-trade returns on entry capital.
type percentageSampler struct {
	returns []float64
}

func (s *percentageSampler) draw(rng RNG, out []float64) {
	n := len(s.returns)
	for i := range out {
		out[i] = s.returns[rng.IntN(n)]
	}
}

func (s *percentageSampler) compounding() bool { return true }

// blockSampler copies runs of consecutive trades starting at random offsets, wrapping at the end.
type blockSampler struct {
	values []float64
	size   int
}

func (s *blockSampler) draw(rng RNG, out []float64) {
	n := len(s.values)
	for i := 0; i < len(out); {
		start := rng.IntN(n)
		for j := 0; j < s.size && i < len(out); j++ {
			out[i] = s.values[(start+j)%n]
			i++
		}
	}
}

func (s *blockSampler) compounding() bool { return false }
