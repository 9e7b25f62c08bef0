package ingestion

import (
	"sort"
	"strings"
)

// Canonical trade field names produced by the parser.
const (
	FieldDateOpened            = "dateOpened"
	FieldTimeOpened            = "timeOpened"
	FieldOpeningPrice          = "openingPrice"
	FieldLegs                  = "legs"
	FieldPremium               = "premium"
	FieldClosingPrice          = "closingPrice"
	FieldDateClosed            = "dateClosed"
	FieldTimeClosed            = "timeClosed"
	FieldAvgClosingCost        = "avgClosingCost"
	FieldReasonForClose        = "reasonForClose"
	FieldPL                    = "pl"
	FieldContracts             = "numContracts"
	FieldFundsAtClose          = "fundsAtClose"
	FieldMarginReq             = "marginReq"
	FieldStrategy              = "strategy"
	FieldOpeningCommissions    = "openingCommissionsFees"
	FieldClosingCommissions    = "closingCommissionsFees"
	FieldOpeningShortLongRatio = "openingShortLongRatio"
	FieldClosingShortLongRatio = "closingShortLongRatio"
	FieldGap                   = "gap"
	FieldMovement              = "movement"
	FieldMaxProfit             = "maxProfit"
	FieldMaxLoss               = "maxLoss"
)

// Canonical daily log field names.
const (
	FieldDate         = "date"
	FieldNetLiquidity = "netLiquidity"
	FieldCurrentFunds = "currentFunds"
	FieldTradingFunds = "tradingFunds"
	FieldDailyPL      = "dailyPl"
	FieldDailyPLPct   = "dailyPlPct"
	FieldDrawdownPct  = "drawdownPct"
)

// HeaderMapping maps source column headers to canonical field names.
// Header lookup ignores case and repeated or surrounding whitespace.
type HeaderMapping map[string]string

// Resolve returns the canonical field for a header, or "" if unmapped.
func (m HeaderMapping) Resolve(header string) string {
	return m.normalized()[normalizeHeader(header)]
}

// Merge returns a copy of m with overrides applied on top. Keys are
// normalized first, so an override for "p/l" replaces a base "P/L".
func (m HeaderMapping) Merge(overrides HeaderMapping) HeaderMapping {
	out := m.normalized()
	for h, f := range overrides.normalized() {
		out[h] = f
	}
	return out
}

// normalized returns m keyed by normalized header. When several keys of m
// normalize alike, the one sorting last wins, so the result never depends
// on map iteration order.
func (m HeaderMapping) normalized() HeaderMapping {
	keys := make([]string, 0, len(m))
	for h := range m {
		keys = append(keys, h)
	}
	sort.Strings(keys)

	out := make(HeaderMapping, len(m))
	for _, h := range keys {
		out[normalizeHeader(h)] = m[h]
	}
	return out
}

// DefaultTradeMapping covers the standard trade-log export headers.
func DefaultTradeMapping() HeaderMapping {
	return HeaderMapping{
		"Date Opened":                FieldDateOpened,
		"Time Opened":                FieldTimeOpened,
		"Opening Price":              FieldOpeningPrice,
		"Legs":                       FieldLegs,
		"Premium":                    FieldPremium,
		"Closing Price":              FieldClosingPrice,
		"Date Closed":                FieldDateClosed,
		"Time Closed":                FieldTimeClosed,
		"Avg. Closing Cost":          FieldAvgClosingCost,
		"Reason For Close":           FieldReasonForClose,
		"P/L":                        FieldPL,
		"No. of Contracts":           FieldContracts,
		"Funds at Close":             FieldFundsAtClose,
		"Margin Req.":                FieldMarginReq,
		"Strategy":                   FieldStrategy,
		"Opening Commissions + Fees": FieldOpeningCommissions,
		"Closing Commissions + Fees": FieldClosingCommissions,
		"Opening Short/Long Ratio":   FieldOpeningShortLongRatio,
		"Closing Short/Long Ratio":   FieldClosingShortLongRatio,
		"Gap":                        FieldGap,
		"Movement":                   FieldMovement,
		"Max Profit":                 FieldMaxProfit,
		"Max Loss":                   FieldMaxLoss,
	}
}

// DefaultDailyLogMapping covers the standard daily-log export headers.
func DefaultDailyLogMapping() HeaderMapping {
	return HeaderMapping{
		"Date":          FieldDate,
		"Net Liquidity": FieldNetLiquidity,
		"Current Funds": FieldCurrentFunds,
		"Trading Funds": FieldTradingFunds,
		"P/L":           FieldDailyPL,
		"P/L %":         FieldDailyPLPct,
		"Drawdown %":    FieldDrawdownPct,
	}
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}
