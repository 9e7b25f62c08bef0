package portfolio

import (
	"math"

	"tradeblocks/internal/domain"
)

// EfficiencyPolicy selects the basis used for each trade.
// Strategy entries override Precedence for trades of that strategy.
type EfficiencyPolicy struct {
	Precedence []domain.EfficiencyBasis
	Strategy   map[string][]domain.EfficiencyBasis
}

// DefaultEfficiencyPolicy tries premium, then max profit, then margin.
func DefaultEfficiencyPolicy() EfficiencyPolicy {
	return EfficiencyPolicy{Precedence: domain.DefaultEfficiencyPrecedence}
}

// Basis returns the first basis with a non-zero amount for t.
// The amount is returned as an absolute value; ok is false when no basis applies.
func (p EfficiencyPolicy) Basis(t *domain.Trade) (basis domain.EfficiencyBasis, amount float64, ok bool) {
	order := p.Precedence
	if override, found := p.Strategy[t.Strategy]; found && len(override) > 0 {
		order = override
	}
	if len(order) == 0 {
		order = domain.DefaultEfficiencyPrecedence
	}
	for _, b := range order {
		v := b.BasisValue(t)
		if v == nil || *v == 0 || math.IsNaN(*v) {
			continue
		}
		return b, math.Abs(*v), true
	}
	return "", 0, false
}

// TradeEfficiency returns pl / |basis| for one trade, nil when no basis applies.
func (p EfficiencyPolicy) TradeEfficiency(t *domain.Trade) (*float64, domain.EfficiencyBasis) {
	basis, amount, ok := p.Basis(t)
	if !ok {
		return nil, ""
	}
	eff := t.PL / amount
	return &eff, basis
}

// ComputeEfficiency aggregates premium-capture efficiency.
// Aggregate is sum(pl) / sum(|basis|) over trades with a basis.
func ComputeEfficiency(trades []*domain.Trade, policy EfficiencyPolicy) domain.EfficiencyStat {
	stat := domain.EfficiencyStat{BasisCounts: make(map[domain.EfficiencyBasis]int)}

	var sumPL, sumBasis, sumPerTrade float64
	for _, t := range trades {
		if t == nil {
			continue
		}
		basis, amount, ok := policy.Basis(t)
		if !ok {
			stat.TradesSkipped++
			continue
		}
		stat.TradesWithBasis++
		stat.BasisCounts[basis]++
		sumPL += t.PL
		sumBasis += amount
		sumPerTrade += t.PL / amount
	}
	if sumBasis > 0 {
		stat.Aggregate = sumPL / sumBasis
	}
	if stat.TradesWithBasis > 0 {
		stat.MeanPerTrade = sumPerTrade / float64(stat.TradesWithBasis)
	}
	return stat
}
