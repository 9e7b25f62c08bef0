package ingestion

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeblocks/internal/domain"
)

func validRow() map[string]string {
	return map[string]string{
		FieldDateOpened:         "2024-01-02",
		FieldTimeOpened:         "09:33:00",
		FieldPL:                 "1,250.00",
		FieldFundsAtClose:       "$101,250",
		FieldStrategy:           "  Iron Condor ",
		FieldPremium:            "2000",
		FieldMarginReq:          "5000",
		FieldContracts:          "2",
		FieldOpeningCommissions: "4.6",
		FieldClosingCommissions: "",
		FieldDateClosed:         "1/3/2024",
	}
}

func TestValidateTradeRow_Valid(t *testing.T) {
	trade, rej := ValidateTradeRow(validRow(), 7)
	require.Nil(t, rej)
	require.NotNil(t, trade)

	assert.Equal(t, 7, trade.RowIndex)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), trade.DateOpened)
	assert.Equal(t, 1250.0, trade.PL)
	assert.Equal(t, 101250.0, trade.FundsAtClose)
	assert.Equal(t, "Iron Condor", trade.Strategy)
	require.NotNil(t, trade.PremiumCollected)
	assert.Equal(t, 2000.0, *trade.PremiumCollected)
	require.NotNil(t, trade.Contracts)
	assert.Equal(t, 2, *trade.Contracts)
	assert.Nil(t, trade.ClosingCommissions)
	assert.Equal(t, 4.6, trade.TotalCommissions())
	require.NotNil(t, trade.DateClosed)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), *trade.DateClosed)
	assert.False(t, trade.IsOpen())
}

func TestValidateTradeRow_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]string)
		field  string
		reason RejectReason
	}{
		{"missing date", func(r map[string]string) { r[FieldDateOpened] = "  " }, FieldDateOpened, ReasonMissingField},
		{"absent date column", func(r map[string]string) { delete(r, FieldDateOpened) }, FieldDateOpened, ReasonMissingField},
		{"invalid date", func(r map[string]string) { r[FieldDateOpened] = "not-a-date" }, FieldDateOpened, ReasonInvalidDate},
		{"missing pl", func(r map[string]string) { r[FieldPL] = "" }, FieldPL, ReasonMissingField},
		{"invalid pl", func(r map[string]string) { r[FieldPL] = "abc" }, FieldPL, ReasonInvalidNumber},
		{"percent pl", func(r map[string]string) { r[FieldPL] = "12%" }, FieldPL, ReasonInvalidNumber},
		{"missing funds", func(r map[string]string) { delete(r, FieldFundsAtClose) }, FieldFundsAtClose, ReasonMissingField},
		{"invalid funds", func(r map[string]string) { r[FieldFundsAtClose] = "12..5" }, FieldFundsAtClose, ReasonInvalidNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := validRow()
			tt.mutate(row)

			trade, rej := ValidateTradeRow(row, 3)
			assert.Nil(t, trade)
			require.NotNil(t, rej)
			assert.Equal(t, 3, rej.Row)
			assert.Equal(t, tt.field, rej.Field)
			assert.Equal(t, tt.reason, rej.Reason)
			assert.True(t, errors.Is(rej, domain.ErrRowRejected))
		})
	}
}

func TestValidateTradeRow_BlankStrategyIsUnknown(t *testing.T) {
	row := validRow()
	row[FieldStrategy] = "   "

	trade, rej := ValidateTradeRow(row, 1)
	require.Nil(t, rej)
	assert.Equal(t, domain.StrategyUnknown, trade.Strategy)
}

func TestValidateTradeRow_OptionalFieldsBecomeAbsent(t *testing.T) {
	row := validRow()
	row[FieldPremium] = "n/a"
	row[FieldMarginReq] = ""
	row[FieldContracts] = "1.5"
	row[FieldDateClosed] = "sometime"

	trade, rej := ValidateTradeRow(row, 1)
	require.Nil(t, rej)
	assert.Nil(t, trade.PremiumCollected)
	assert.Nil(t, trade.MarginRequirement)
	assert.Nil(t, trade.Contracts)
	assert.Nil(t, trade.DateClosed)
	assert.True(t, trade.IsOpen())
}

func TestValidateTradeRow_Pure(t *testing.T) {
	a, _ := ValidateTradeRow(validRow(), 4)
	b, _ := ValidateTradeRow(validRow(), 4)
	assert.Equal(t, a, b)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,234.50", 1234.5, true},
		{" -12 ", -12, true},
		{"$1,000", 1000, true},
		{"-$250.25", -250.25, true},
		{"(45.00)", -45, true},
		{"12.5%", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseNumber(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseNumber(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-05", "3/5/2024", "03/05/2024", "2024/03/05", " 2024-03-05 "} {
		got, ok := parseDate(in)
		if !ok || !got.Equal(want) {
			t.Errorf("parseDate(%q) = (%v, %v), want %v", in, got, ok, want)
		}
	}
	if _, ok := parseDate("13/45/2024"); ok {
		t.Error("parseDate should reject impossible dates")
	}
}

func TestValidateDailyLogRow(t *testing.T) {
	entry, rej := ValidateDailyLogRow(map[string]string{
		FieldDate:         "2024-01-02",
		FieldNetLiquidity: "100,500.25",
		FieldDrawdownPct:  "-2.5",
		FieldDailyPLPct:   "0.5",
	}, 1)
	require.Nil(t, rej)
	assert.Equal(t, 100500.25, entry.NetLiquidity)
	require.NotNil(t, entry.DrawdownPct)
	assert.InDelta(t, -0.025, *entry.DrawdownPct, 1e-12)
	require.NotNil(t, entry.DailyPLPct)
	assert.InDelta(t, 0.005, *entry.DailyPLPct, 1e-12)

	entry, rej = ValidateDailyLogRow(map[string]string{
		FieldDate:         "2024-01-03",
		FieldNetLiquidity: "100000",
		FieldDrawdownPct:  "-2.5%",
		FieldDailyPLPct:   " 0.5% ",
	}, 2)
	require.Nil(t, rej)
	assert.InDelta(t, -0.025, *entry.DrawdownPct, 1e-12)
	assert.InDelta(t, 0.005, *entry.DailyPLPct, 1e-12)

	_, rej = ValidateDailyLogRow(map[string]string{FieldDate: "2024-01-02", FieldNetLiquidity: "5%"}, 2)
	require.NotNil(t, rej)
	assert.Equal(t, ReasonInvalidNumber, rej.Reason)

	_, rej = ValidateDailyLogRow(map[string]string{FieldDate: "2024-01-02"}, 2)
	require.NotNil(t, rej)
	assert.Equal(t, ReasonMissingField, rej.Reason)
	assert.Equal(t, FieldNetLiquidity, rej.Field)
}
