package reporting

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Trade Log Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Dataset: `%s`\n\n", r.DatasetKey))

	// Data Summary
	ds := r.DataSummary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", ds.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Open Trades | %d |\n", ds.OpenTrades))
	sb.WriteString(fmt.Sprintf("| Strategies | %d |\n", ds.StrategyCount))
	sb.WriteString(fmt.Sprintf("| Daily Log Entries | %d |\n", ds.DailyLogEntries))
	sb.WriteString(fmt.Sprintf("| First Trade | %s |\n", formatDate(ds.DateRangeStart)))
	sb.WriteString(fmt.Sprintf("| Last Trade | %s |\n", formatDate(ds.DateRangeEnd)))
	sb.WriteString(fmt.Sprintf("| Equity Source | %s |\n", ds.EquitySource))
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if r.DataQuality.AllRowsAccepted {
		sb.WriteString("All rows accepted.\n\n")
	} else {
		if len(r.DataQuality.Rejections) > 0 {
			sb.WriteString(fmt.Sprintf("### Rejected Rows (%d)\n\n", len(r.DataQuality.Rejections)))
			for _, rej := range r.DataQuality.Rejections {
				sb.WriteString(fmt.Sprintf("- %s\n", rej))
			}
			sb.WriteString("\n")
		}
		if len(r.DataQuality.ParseErrors) > 0 {
			sb.WriteString(fmt.Sprintf("### Unreadable Rows (%d)\n\n", len(r.DataQuality.ParseErrors)))
			for _, e := range r.DataQuality.ParseErrors {
				sb.WriteString(fmt.Sprintf("- %s\n", e))
			}
			sb.WriteString("\n")
		}
	}

	if len(r.DataQuality.SufficiencyChecks) > 0 {
		sb.WriteString("### Sufficiency Checks\n\n")
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, check := range r.DataQuality.SufficiencyChecks {
			status := "FAIL"
			if check.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				check.Name, check.Threshold, check.Actual, status))
		}
		sb.WriteString("\n")

		if r.DataQuality.AllChecksPassed {
			sb.WriteString("**All checks passed.**\n\n")
		} else {
			sb.WriteString("**Some checks failed.** Treat the statistics below with caution.\n\n")
		}
	}

	if len(r.DataQuality.IntegrityErrors) > 0 {
		sb.WriteString("### Integrity Errors\n\n")
		for _, err := range r.DataQuality.IntegrityErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", err))
		}
		sb.WriteString("\n")
	}

	// Portfolio
	sb.WriteString("## Portfolio\n\n")
	if p := r.Portfolio; p != nil {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Initial Capital | %s |\n", FormatMoney(p.InitialCapital)))
		sb.WriteString(fmt.Sprintf("| Final Equity | %s |\n", FormatMoney(p.FinalEquity)))
		sb.WriteString(fmt.Sprintf("| Total P/L | %s |\n", FormatMoney(p.TotalPL)))
		sb.WriteString(fmt.Sprintf("| Gross P/L | %s |\n", FormatMoney(p.GrossPL)))
		sb.WriteString(fmt.Sprintf("| Commissions | %s |\n", FormatMoney(p.Commissions)))
		sb.WriteString(fmt.Sprintf("| Commission Drag | %s |\n", formatOptionalPercent(p.CommissionDrag)))
		sb.WriteString(fmt.Sprintf("| Total Return | %s |\n", FormatPercent(p.TotalReturn)))
		sb.WriteString(fmt.Sprintf("| CAGR | %s |\n", FormatPercent(p.CAGR)))
		sb.WriteString(fmt.Sprintf("| Max Drawdown | %s |\n", FormatPercent(p.MaxDrawdown)))
		sb.WriteString(fmt.Sprintf("| Sharpe Ratio | %s |\n", FormatRatio(p.SharpeRatio)))
		sb.WriteString(fmt.Sprintf("| Sortino Ratio | %s |\n", FormatRatio(p.SortinoRatio)))
		sb.WriteString(fmt.Sprintf("| Win Rate | %s |\n", FormatPercent(p.WinRate)))
		sb.WriteString(fmt.Sprintf("| Wins / Losses / Breakeven | %d / %d / %d |\n", p.WinningTrades, p.LosingTrades, p.BreakevenTrades))
		sb.WriteString(fmt.Sprintf("| Avg Win | %s |\n", FormatMoney(p.AvgWin)))
		sb.WriteString(fmt.Sprintf("| Avg Loss | %s |\n", FormatMoney(p.AvgLoss)))
		sb.WriteString(fmt.Sprintf("| Largest Win | %s |\n", FormatMoney(p.LargestWin)))
		sb.WriteString(fmt.Sprintf("| Largest Loss | %s |\n", FormatMoney(p.LargestLoss)))
		sb.WriteString(fmt.Sprintf("| Profit Factor | %s |\n", formatOptionalRatio(p.ProfitFactor)))
		sb.WriteString(fmt.Sprintf("| Max Consecutive Wins | %d |\n", p.MaxConsecutiveWins))
		sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", p.MaxConsecutiveLosses))
		sb.WriteString(fmt.Sprintf("| Premium Efficiency | %s (%d trades, %d skipped) |\n",
			FormatPercent(p.Efficiency.Aggregate), p.Efficiency.TradesWithBasis, p.Efficiency.TradesSkipped))
	} else {
		sb.WriteString("No portfolio statistics available.\n")
	}
	sb.WriteString("\n")

	// Strategy Metrics
	sb.WriteString("## Strategy Metrics\n\n")
	if len(r.StrategyMetrics) > 0 {
		sb.WriteString("| Strategy | Trades | Wins | Losses | WinRate | Total P/L | Mean | Median | P10 | P90 | Capture | MaxDD | MaxLoss |\n")
		sb.WriteString("|----------|--------|------|--------|---------|-----------|------|--------|-----|-----|---------|-------|---------|\n")
		for _, m := range r.StrategyMetrics {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %s | %s | %s | %s | %s | %s | %s | %s | %d |\n",
				m.Strategy, m.TotalTrades, m.Wins, m.Losses, FormatPercent(m.WinRate),
				FormatMoney(m.TotalPL), FormatMoney(m.PLMean), FormatMoney(m.PLMedian),
				FormatMoney(m.PLP10), FormatMoney(m.PLP90), formatOptionalPercent(m.PremiumCapture),
				FormatMoney(m.MaxDrawdown), m.MaxConsecutiveLosses))
		}
	} else {
		sb.WriteString("No strategy metrics available.\n")
	}
	sb.WriteString("\n")

	// Weekdays
	sb.WriteString("## Day of Week\n\n")
	if len(r.Weekdays) > 0 {
		sb.WriteString("| Day | Trades | WinRate | Total P/L | Avg P/L |\n")
		sb.WriteString("|-----|--------|---------|-----------|---------|\n")
		for _, w := range r.Weekdays {
			sb.WriteString(fmt.Sprintf("| %s | %d | %s | %s | %s |\n",
				w.Name, w.Trades, FormatPercent(w.WinRate), FormatMoney(w.TotalPL), FormatMoney(w.AvgPL)))
		}
	} else {
		sb.WriteString("No weekday data available.\n")
	}
	sb.WriteString("\n")

	// Monthly
	sb.WriteString("## Monthly P/L\n\n")
	if len(r.Monthly) > 0 {
		sb.WriteString("| Month | Trades | P/L |\n")
		sb.WriteString("|-------|--------|-----|\n")
		for _, m := range r.Monthly {
			sb.WriteString(fmt.Sprintf("| %04d-%02d | %d | %s |\n", m.Year, m.Month, m.Trades, FormatMoney(m.PL)))
		}
	} else {
		sb.WriteString("No monthly data available.\n")
	}
	sb.WriteString("\n")

	// Simulations
	sb.WriteString("## Monte Carlo Simulations\n\n")
	if len(r.Simulations) > 0 {
		sb.WriteString("| Run | Method | Paths | Length | Seed | Median Final | P5 Final | P95 Final | P(Profit) | P(Ruin) | Median MaxDD | VaR 5% |\n")
		sb.WriteString("|-----|--------|-------|--------|------|--------------|----------|-----------|-----------|---------|--------------|--------|\n")
		for _, s := range r.Simulations {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %s | %s | %s | %s | %s | %s | %s |\n",
				s.RunID, s.Method, s.NumSimulations, s.SimulationLength, s.RandomSeed,
				FormatMoney(s.MedianFinalValue), FormatMoney(s.FinalValueP5), FormatMoney(s.FinalValueP95),
				FormatPercent(s.ProbabilityOfProfit), FormatPercent(s.ProbabilityOfRuin),
				FormatPercent(s.MedianMaxDrawdown), FormatPercent(s.ValueAtRiskP5)))
		}
	} else {
		sb.WriteString("No simulations run.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}
