package reporting

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"tradeblocks/internal/domain"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func writeCSV(header []string, rows [][]string) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	// Writes to a bytes.Buffer cannot fail.
	_ = w.Write(header)
	_ = w.WriteAll(rows)
	return buf.String()
}

// RenderCSV renders strategy metrics as CSV string.
func RenderCSV(metrics []StrategyMetricRow) string {
	header := []string{
		"strategy", "total_trades", "wins", "losses", "win_rate", "total_pl",
		"pl_mean", "pl_median", "pl_p10", "pl_p90", "premium_capture",
		"max_drawdown", "max_consecutive_losses",
	}
	rows := make([][]string, len(metrics))
	for i, m := range metrics {
		rows[i] = []string{
			m.Strategy,
			strconv.Itoa(m.TotalTrades),
			strconv.Itoa(m.Wins),
			strconv.Itoa(m.Losses),
			formatFloat(m.WinRate),
			formatFloat(m.TotalPL),
			formatFloat(m.PLMean),
			formatFloat(m.PLMedian),
			formatFloat(m.PLP10),
			formatFloat(m.PLP90),
			formatOptional(m.PremiumCapture),
			formatFloat(m.MaxDrawdown),
			strconv.Itoa(m.MaxConsecutiveLosses),
		}
	}
	return writeCSV(header, rows)
}

// RenderEquityCSV renders an equity curve with its drawdown series.
// drawdown must be index-aligned with equity, as produced by the portfolio calculator.
func RenderEquityCSV(equity []domain.EquityPoint, drawdown []domain.DrawdownPoint) string {
	header := []string{"index", "date", "equity", "high_water_mark", "drawdown_pct"}
	rows := make([][]string, len(equity))
	for i, p := range equity {
		dd := ""
		if i < len(drawdown) {
			dd = formatFloat(drawdown[i].DrawdownPct)
		}
		rows[i] = []string{
			strconv.Itoa(p.Index),
			p.Date.Format(dateLayout),
			formatFloat(p.Equity),
			formatFloat(p.HighWaterMark),
			dd,
		}
	}
	return writeCSV(header, rows)
}

// RenderPathsCSV renders the per-path metrics of a simulation in path order.
func RenderPathsCSV(paths []domain.PathMetrics) string {
	header := []string{"path", "final_value", "total_return", "annualized_return", "max_drawdown", "sharpe_ratio", "ruined"}
	rows := make([][]string, len(paths))
	for i, p := range paths {
		rows[i] = []string{
			strconv.Itoa(i),
			formatFloat(p.FinalValue),
			formatFloat(p.TotalReturn),
			formatFloat(p.AnnualizedReturn),
			formatFloat(p.MaxDrawdown),
			formatFloat(p.SharpeRatio),
			strconv.FormatBool(p.Ruined),
		}
	}
	return writeCSV(header, rows)
}
