package ingestion

import (
	"fmt"
	"math"
	"strings"
	"time"

	"tradeblocks/internal/domain"
)

// RejectReason is the machine-readable cause of a row rejection.
type RejectReason string

// Reject reasons
const (
	ReasonMissingField  RejectReason = "missing_field"
	ReasonInvalidNumber RejectReason = "invalid_number"
	ReasonInvalidDate   RejectReason = "invalid_date"
)

// RowRejection describes a row the validator refused.
type RowRejection struct {
	Row    int          `json:"row"`
	Field  string       `json:"field"`
	Reason RejectReason `json:"reason"`
	Value  string       `json:"value,omitempty"`
}

func (r *RowRejection) Error() string {
	if r.Value == "" {
		return fmt.Sprintf("row %d: %s: %s", r.Row, r.Field, r.Reason)
	}
	return fmt.Sprintf("row %d: %s: %s (%q)", r.Row, r.Field, r.Reason, r.Value)
}

// Unwrap lets callers match rejections with errors.Is(err, domain.ErrRowRejected).
func (r *RowRejection) Unwrap() error {
	return domain.ErrRowRejected
}

func reject(row int, field string, reason RejectReason, value string) *RowRejection {
	return &RowRejection{Row: row, Field: field, Reason: reason, Value: strings.TrimSpace(value)}
}

// requiredDate parses a required date field.
func requiredDate(row map[string]string, rowIndex int, field string) (time.Time, *RowRejection) {
	raw := strings.TrimSpace(row[field])
	if raw == "" {
		return time.Time{}, reject(rowIndex, field, ReasonMissingField, "")
	}
	t, ok := parseDate(raw)
	if !ok {
		return time.Time{}, reject(rowIndex, field, ReasonInvalidDate, raw)
	}
	return t, nil
}

// requiredNumber parses a required numeric field.
func requiredNumber(row map[string]string, rowIndex int, field string) (float64, *RowRejection) {
	raw := strings.TrimSpace(row[field])
	if raw == "" {
		return 0, reject(rowIndex, field, ReasonMissingField, "")
	}
	f, ok := parseNumber(raw)
	if !ok {
		return 0, reject(rowIndex, field, ReasonInvalidNumber, raw)
	}
	return f, nil
}

// ValidateTradeRow converts a raw row into a Trade.
// It is pure: the same row and index always produce the same result.
// Required fields are dateOpened, pl and fundsAtClose; optional fields
// that fail to parse become nil rather than rejecting the row.
func ValidateTradeRow(row map[string]string, rowIndex int) (*domain.Trade, *RowRejection) {
	opened, rej := requiredDate(row, rowIndex, FieldDateOpened)
	if rej != nil {
		return nil, rej
	}
	pl, rej := requiredNumber(row, rowIndex, FieldPL)
	if rej != nil {
		return nil, rej
	}
	funds, rej := requiredNumber(row, rowIndex, FieldFundsAtClose)
	if rej != nil {
		return nil, rej
	}

	strategy := strings.TrimSpace(row[FieldStrategy])
	if strategy == "" {
		strategy = domain.StrategyUnknown
	}

	return &domain.Trade{
		RowIndex:              rowIndex,
		DateOpened:            opened,
		TimeOpened:            strings.TrimSpace(row[FieldTimeOpened]),
		OpeningPrice:          optionalNumber(row[FieldOpeningPrice]),
		Legs:                  strings.TrimSpace(row[FieldLegs]),
		DateClosed:            optionalDate(row[FieldDateClosed]),
		TimeClosed:            strings.TrimSpace(row[FieldTimeClosed]),
		ClosingPrice:          optionalNumber(row[FieldClosingPrice]),
		AvgClosingCost:        optionalNumber(row[FieldAvgClosingCost]),
		ReasonForClose:        strings.TrimSpace(row[FieldReasonForClose]),
		Strategy:              strategy,
		PremiumCollected:      optionalNumber(row[FieldPremium]),
		PL:                    pl,
		FundsAtClose:          funds,
		MarginRequirement:     optionalNumber(row[FieldMarginReq]),
		OpeningCommissions:    optionalNumber(row[FieldOpeningCommissions]),
		ClosingCommissions:    optionalNumber(row[FieldClosingCommissions]),
		Contracts:             optionalContracts(row[FieldContracts]),
		Gap:                   optionalNumber(row[FieldGap]),
		Movement:              optionalNumber(row[FieldMovement]),
		MaxProfit:             optionalNumber(row[FieldMaxProfit]),
		MaxLoss:               optionalNumber(row[FieldMaxLoss]),
		OpeningShortLongRatio: optionalNumber(row[FieldOpeningShortLongRatio]),
		ClosingShortLongRatio: optionalNumber(row[FieldClosingShortLongRatio]),
	}, nil
}

// ValidateDailyLogRow converts a raw daily-log row into an entry.
// Percent columns are converted to fractions; drawdown is stored as a non-positive fraction.
func ValidateDailyLogRow(row map[string]string, rowIndex int) (*domain.DailyLogEntry, *RowRejection) {
	date, rej := requiredDate(row, rowIndex, FieldDate)
	if rej != nil {
		return nil, rej
	}
	netLiq, rej := requiredNumber(row, rowIndex, FieldNetLiquidity)
	if rej != nil {
		return nil, rej
	}

	entry := &domain.DailyLogEntry{
		RowIndex:     rowIndex,
		Date:         date,
		NetLiquidity: netLiq,
		CurrentFunds: optionalNumber(row[FieldCurrentFunds]),
		TradingFunds: optionalNumber(row[FieldTradingFunds]),
		DailyPL:      optionalNumber(row[FieldDailyPL]),
	}
	if v := optionalPercent(row[FieldDailyPLPct]); v != nil {
		entry.DailyPLPct = domain.Float(*v / 100)
	}
	if v := optionalPercent(row[FieldDrawdownPct]); v != nil {
		entry.DrawdownPct = domain.Float(-math.Abs(*v) / 100)
	}
	return entry, nil
}
