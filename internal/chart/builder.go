package chart

import (
	"sort"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/portfolio"
)

// Bundle is everything a performance dashboard draws.
type Bundle struct {
	Source        domain.EquitySource         `json:"source"`
	Stats         *domain.PortfolioStats      `json:"stats"`
	Equity        []domain.EquityPoint        `json:"equityCurve"`
	Drawdown      []domain.DrawdownPoint      `json:"drawdown"`
	Weekdays      []domain.WeekdayStat        `json:"weekdays"`
	TradeSequence []domain.TradeSequencePoint `json:"tradeSequence"`
	Monthly       []domain.MonthlyReturn      `json:"monthly"`
}

// Builder assembles chart bundles from a portfolio calculator.
type Builder struct {
	calc *portfolio.Calculator
}

// NewBuilder creates a builder. A nil calculator uses portfolio defaults.
func NewBuilder(calc *portfolio.Calculator) *Builder {
	if calc == nil {
		calc = portfolio.NewCalculator()
	}
	return &Builder{calc: calc}
}

// Build computes the bundle. Equity and drawdown follow the same
// daily-log-over-trades precedence as the portfolio calculator.
func (b *Builder) Build(trades []*domain.Trade, dailyLog []*domain.DailyLogEntry) (*Bundle, error) {
	res, err := b.calc.Compute(trades, dailyLog)
	if err != nil {
		return nil, err
	}
	return &Bundle{
		Source:        res.Stats.EquitySource,
		Stats:         res.Stats,
		Equity:        res.Equity,
		Drawdown:      res.Drawdown,
		Weekdays:      res.Stats.Weekdays,
		TradeSequence: TradeSequence(trades, b.calc.EfficiencyPolicy()),
		Monthly:       MonthlyReturns(trades),
	}, nil
}

// TradeSequence lists trades chronologically with cumulative P/L,
// return on margin and premium-capture efficiency.
func TradeSequence(trades []*domain.Trade, policy portfolio.EfficiencyPolicy) []domain.TradeSequencePoint {
	sorted := chronological(trades)
	points := make([]domain.TradeSequencePoint, len(sorted))
	cumulative := 0.0
	for i, t := range sorted {
		cumulative += t.PL
		p := domain.TradeSequencePoint{
			Index:        i,
			Date:         t.DateOpened,
			Strategy:     t.Strategy,
			PL:           t.PL,
			CumulativePL: cumulative,
		}
		if t.MarginRequirement != nil && *t.MarginRequirement != 0 {
			rom := t.PL / *t.MarginRequirement
			p.ReturnOnMargin = &rom
		}
		if eff, basis := policy.TradeEfficiency(t); eff != nil {
			p.Efficiency = eff
			p.EfficiencyKey = string(basis)
		}
		points[i] = p
	}
	return points
}

// MonthlyReturns buckets P/L by the calendar month of DateOpened, oldest first.
func MonthlyReturns(trades []*domain.Trade) []domain.MonthlyReturn {
	buckets := make(map[int]*domain.MonthlyReturn)
	for _, t := range trades {
		if t == nil {
			continue
		}
		key := t.DateOpened.Year()*100 + int(t.DateOpened.Month())
		m, ok := buckets[key]
		if !ok {
			m = &domain.MonthlyReturn{Year: t.DateOpened.Year(), Month: int(t.DateOpened.Month())}
			buckets[key] = m
		}
		m.Trades++
		m.PL += t.PL
	}

	keys := make([]int, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	result := make([]domain.MonthlyReturn, len(keys))
	for i, k := range keys {
		result[i] = *buckets[k]
	}
	return result
}

func chronological(trades []*domain.Trade) []*domain.Trade {
	out := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t != nil {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DateOpened.Equal(out[j].DateOpened) {
			return out[i].DateOpened.Before(out[j].DateOpened)
		}
		return out[i].RowIndex < out[j].RowIndex
	})
	return out
}
