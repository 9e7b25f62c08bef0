package reporting

import (
	"math"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency used for all money columns.
const Currency = money.USD

// FormatMoney renders an amount in Currency, rounded to the currency's minor unit.
func FormatMoney(amount float64) string {
	if !finite(amount) {
		return "n/a"
	}
	cur := money.GetCurrency(Currency)
	factor, _ := decimal.NewFromInt(10).PowInt32(int32(cur.Fraction))
	minor := decimal.NewFromFloat(amount).Mul(factor).Round(0)
	return money.New(minor.IntPart(), Currency).Display()
}

// FormatPercent renders a fraction as a percentage with two decimals.
func FormatPercent(fraction float64) string {
	if !finite(fraction) {
		return "n/a"
	}
	return decimal.NewFromFloat(fraction).Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}

// FormatRatio renders a unitless ratio with two decimals.
func FormatRatio(v float64) string {
	if !finite(v) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

func formatOptionalPercent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return FormatPercent(*v)
}

func formatOptionalRatio(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return FormatRatio(*v)
}

// finite guards decimal.NewFromFloat, which panics on NaN and infinities.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
