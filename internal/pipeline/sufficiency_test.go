package pipeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeblocks/internal/domain"
)

func closedTrade(id, strategy string, opened time.Time) *domain.Trade {
	return &domain.Trade{TradeID: id, Strategy: strategy, DateOpened: opened, DateClosed: &opened}
}

func manyTrades(n int, strategy string) []*domain.Trade {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := make([]*domain.Trade, n)
	for i := range trades {
		trades[i] = closedTrade(fmt.Sprintf("%s-%d", strategy, i), strategy, start.AddDate(0, 0, i*3))
	}
	return trades
}

func checkByName(t *testing.T, r *SufficiencyResult, name string) SufficiencyCheck {
	t.Helper()
	for _, c := range r.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q not found", name)
	return SufficiencyCheck{}
}

func TestSufficiencyChecker_AllPass(t *testing.T) {
	trades := manyTrades(40, "IC")

	r := NewSufficiencyChecker().Check(trades, nil)
	assert.True(t, r.AllPass)
	assert.Len(t, r.Checks, 5, "daily log check is skipped without a daily log")
	assert.Empty(t, r.Errors)
	assert.Equal(t, "117", checkByName(t, r, "History span (days)").Actual)
}

func TestSufficiencyChecker_TooFewTrades(t *testing.T) {
	trades := manyTrades(5, "IC")

	r := NewSufficiencyChecker().Check(trades, nil)
	assert.False(t, r.AllPass)
	assert.False(t, checkByName(t, r, "Closed trades").Pass)
	assert.False(t, checkByName(t, r, "History span (days)").Pass)

	thin := checkByName(t, r, "Trades per strategy")
	assert.False(t, thin.Pass)
	assert.Equal(t, "short: IC (5)", thin.Actual)

	relaxed := NewSufficiencyChecker().WithThresholds(5, 10, 5).Check(trades, nil)
	assert.True(t, relaxed.AllPass)
}

func TestSufficiencyChecker_OpenAndDuplicates(t *testing.T) {
	trades := manyTrades(40, "IC")
	for _, tr := range trades[:10] {
		tr.DateClosed = nil
	}
	trades[20].TradeID = trades[21].TradeID

	r := NewSufficiencyChecker().Check(trades, nil)
	assert.False(t, r.AllPass)
	assert.False(t, checkByName(t, r, "Open trade fraction").Pass)
	assert.Equal(t, "30", checkByName(t, r, "Closed trades").Actual)
	assert.False(t, checkByName(t, r, "Duplicate trade ids").Pass)
	require.Len(t, r.Errors, 1)
}

func TestSufficiencyChecker_DailyLogCoverage(t *testing.T) {
	trades := manyTrades(40, "IC")
	var log []*domain.DailyLogEntry
	for _, tr := range trades {
		log = append(log, &domain.DailyLogEntry{Date: tr.DateOpened})
	}

	r := NewSufficiencyChecker().Check(trades, log)
	require.Len(t, r.Checks, 6)
	assert.True(t, r.AllPass)

	r = NewSufficiencyChecker().Check(trades, log[:38])
	c := checkByName(t, r, "Daily log covers trade dates")
	assert.False(t, c.Pass)
	assert.Equal(t, "2 missing", c.Actual)
}
