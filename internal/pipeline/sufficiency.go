package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"tradeblocks/internal/domain"
)

// Default sufficiency thresholds.
const (
	DefaultMinTrades         = 30
	DefaultMinSpanDays       = 60
	DefaultMinStrategyTrades = 10
	DefaultMaxOpenFraction   = 0.10
)

// SufficiencyCheck represents one data sufficiency criterion.
type SufficiencyCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SufficiencyResult contains all checks.
type SufficiencyResult struct {
	Checks  []SufficiencyCheck
	AllPass bool
	Errors  []string // data integrity errors
}

// SufficiencyChecker decides whether a trade history is large enough
// for its statistics and simulations to be meaningful.
type SufficiencyChecker struct {
	minTrades         int
	minSpanDays       int
	minStrategyTrades int
	maxOpenFraction   float64
}

// NewSufficiencyChecker creates a checker with default thresholds.
func NewSufficiencyChecker() *SufficiencyChecker {
	return &SufficiencyChecker{
		minTrades:         DefaultMinTrades,
		minSpanDays:       DefaultMinSpanDays,
		minStrategyTrades: DefaultMinStrategyTrades,
		maxOpenFraction:   DefaultMaxOpenFraction,
	}
}

// WithThresholds overrides the thresholds. Zero values keep the current setting.
func (c *SufficiencyChecker) WithThresholds(minTrades, minSpanDays, minStrategyTrades int) *SufficiencyChecker {
	if minTrades > 0 {
		c.minTrades = minTrades
	}
	if minSpanDays > 0 {
		c.minSpanDays = minSpanDays
	}
	if minStrategyTrades > 0 {
		c.minStrategyTrades = minStrategyTrades
	}
	return c
}

// Check runs every check over trades and the optional daily log.
func (c *SufficiencyChecker) Check(trades []*domain.Trade, dailyLog []*domain.DailyLogEntry) *SufficiencyResult {
	result := &SufficiencyResult{AllPass: true}
	add := func(check SufficiencyCheck) {
		result.Checks = append(result.Checks, check)
		if !check.Pass {
			result.AllPass = false
		}
	}

	// Check 1: closed trades
	closed := 0
	for _, t := range trades {
		if !t.IsOpen() {
			closed++
		}
	}
	add(SufficiencyCheck{
		Name:      "Closed trades",
		Threshold: fmt.Sprintf(">= %d", c.minTrades),
		Actual:    fmt.Sprintf("%d", closed),
		Pass:      closed >= c.minTrades,
	})

	// Check 2: calendar span of the history
	span := spanDays(trades)
	add(SufficiencyCheck{
		Name:      "History span (days)",
		Threshold: fmt.Sprintf(">= %d", c.minSpanDays),
		Actual:    fmt.Sprintf("%d", span),
		Pass:      span >= c.minSpanDays,
	})

	// Check 3: every strategy has enough trades of its own
	thin := c.thinStrategies(trades)
	add(SufficiencyCheck{
		Name:      "Trades per strategy",
		Threshold: fmt.Sprintf(">= %d", c.minStrategyTrades),
		Actual:    describeThin(thin),
		Pass:      len(thin) == 0,
	})

	// Check 4: open positions do not dominate
	openFraction := 0.0
	if len(trades) > 0 {
		openFraction = float64(len(trades)-closed) / float64(len(trades))
	}
	add(SufficiencyCheck{
		Name:      "Open trade fraction",
		Threshold: fmt.Sprintf("<= %.2f", c.maxOpenFraction),
		Actual:    fmt.Sprintf("%.2f", openFraction),
		Pass:      openFraction <= c.maxOpenFraction,
	})

	// Check 5: duplicate trade ids == 0
	dupes := duplicateTradeIDs(trades)
	add(SufficiencyCheck{
		Name:      "Duplicate trade ids",
		Threshold: "== 0",
		Actual:    fmt.Sprintf("%d", len(dupes)),
		Pass:      len(dupes) == 0,
	})
	for _, id := range dupes {
		result.Errors = append(result.Errors, fmt.Sprintf("duplicate trade id %s", id))
	}

	// Check 6: daily log covers the trade history, when present
	if len(dailyLog) > 0 {
		covered, missing := dailyLogCoverage(trades, dailyLog)
		add(SufficiencyCheck{
			Name:      "Daily log covers trade dates",
			Threshold: "all opening dates",
			Actual:    fmt.Sprintf("%d missing", missing),
			Pass:      covered,
		})
	}

	return result
}

func spanDays(trades []*domain.Trade) int {
	if len(trades) == 0 {
		return 0
	}
	first, last := trades[0].DateOpened, trades[0].DateOpened
	for _, t := range trades[1:] {
		if t.DateOpened.Before(first) {
			first = t.DateOpened
		}
		if t.DateOpened.After(last) {
			last = t.DateOpened
		}
	}
	return int(last.Sub(first).Hours() / 24)
}

func (c *SufficiencyChecker) thinStrategies(trades []*domain.Trade) []string {
	counts := make(map[string]int)
	for _, t := range trades {
		counts[t.Strategy]++
	}
	var thin []string
	for name, n := range counts {
		if n < c.minStrategyTrades {
			thin = append(thin, fmt.Sprintf("%s (%d)", name, n))
		}
	}
	sort.Strings(thin)
	return thin
}

func describeThin(thin []string) string {
	if len(thin) == 0 {
		return "all strategies"
	}
	return "short: " + strings.Join(thin, ", ")
}

func duplicateTradeIDs(trades []*domain.Trade) []string {
	seen := make(map[string]int)
	for _, t := range trades {
		if t.TradeID != "" {
			seen[t.TradeID]++
		}
	}
	var dupes []string
	for id, n := range seen {
		if n > 1 {
			dupes = append(dupes, id)
		}
	}
	sort.Strings(dupes)
	return dupes
}

// dailyLogCoverage reports whether every distinct trade opening date has a daily log entry.
func dailyLogCoverage(trades []*domain.Trade, dailyLog []*domain.DailyLogEntry) (bool, int) {
	dates := make(map[string]struct{}, len(dailyLog))
	for _, e := range dailyLog {
		dates[e.Date.Format("2006-01-02")] = struct{}{}
	}
	missing := 0
	checked := make(map[string]struct{})
	for _, t := range trades {
		key := t.DateOpened.Format("2006-01-02")
		if _, done := checked[key]; done {
			continue
		}
		checked[key] = struct{}{}
		if _, ok := dates[key]; !ok {
			missing++
		}
	}
	return missing == 0, missing
}
