package reporting

import (
	"math"
	"testing"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{1234.5, "$1,234.50"},
		{10200, "$10,200.00"},
		{0.005, "$0.01"},
		{math.NaN(), "n/a"},
		{math.Inf(1), "n/a"},
	}
	for _, tt := range tests {
		if got := FormatMoney(tt.in); got != tt.want {
			t.Errorf("FormatMoney(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00%"},
		{0.1234, "12.34%"},
		{-0.05, "-5.00%"},
		{1, "100.00%"},
		{math.NaN(), "n/a"},
	}
	for _, tt := range tests {
		if got := FormatPercent(tt.in); got != tt.want {
			t.Errorf("FormatPercent(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatOptional(t *testing.T) {
	if got := formatOptionalRatio(nil); got != "n/a" {
		t.Errorf("nil ratio = %q", got)
	}
	v := 1.256
	if got := formatOptionalRatio(&v); got != "1.26" {
		t.Errorf("ratio = %q", got)
	}
}
