package pipeline

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"time"
)

// FixtureStartingCapital is the account value before the first fixture trade.
const FixtureStartingCapital = 100000.0

var fixtureStrategies = []string{"Iron Condor", "Put Spread", "Short Straddle"}

// SampleFixture generates a deterministic trade log of n trades and the matching daily log,
// both in the standard export format. Trades open on consecutive weekdays from 2024-01-02.
func SampleFixture(n int, seed uint64) (tradeLog, dailyLog []byte) {
	rng := rand.New(rand.NewPCG(seed, 0x9e3779b97f4a7c15))

	var trades, daily bytes.Buffer
	trades.WriteString("Date Opened,Time Opened,Legs,Premium,Date Closed,Time Closed,Reason For Close," +
		"P/L,No. of Contracts,Funds at Close,Margin Req.,Strategy," +
		"Opening Commissions + Fees,Closing Commissions + Fees,Max Profit,Max Loss\n")
	daily.WriteString("Date,Net Liquidity,Current Funds,P/L,P/L %,Drawdown %\n")

	funds := FixtureStartingCapital
	peak := funds
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, 1)
		}

		strategy := fixtureStrategies[i%len(fixtureStrategies)]
		contracts := 1 + rng.IntN(5)
		premium := float64(contracts) * float64(150+rng.IntN(250))
		margin := premium * 5

		// Roughly 70% winners keeping part of the premium, losers of up to twice the premium.
		var pl float64
		reason := "Profit Target"
		if rng.Float64() < 0.7 {
			pl = premium * (0.3 + 0.5*rng.Float64())
		} else {
			pl = -premium * (0.2 + 1.8*rng.Float64())
			reason = "Stop Loss"
		}
		pl = float64(int(pl*100)) / 100
		openComm := float64(contracts) * 1.17
		closeComm := float64(contracts) * 1.17
		funds += pl
		if funds > peak {
			peak = funds
		}
		prior := funds - pl
		ddPct := (funds - peak) / peak * 100

		date := day.Format("2006-01-02")
		fmt.Fprintf(&trades, "%s,09:45:00,%d x %s,%.2f,%s,15:30:00,%s,%.2f,%d,%.2f,%.2f,%s,%.2f,%.2f,%.2f,%.2f\n",
			date, contracts, strategy, premium, date, reason, pl, contracts, funds, margin, strategy,
			openComm, closeComm, premium, -margin)
		fmt.Fprintf(&daily, "%s,%.2f,%.2f,%.2f,%.4f,%.4f\n",
			date, funds, funds, pl, pl/prior*100, ddPct)

		day = day.AddDate(0, 0, 1)
	}
	return trades.Bytes(), daily.Bytes()
}
