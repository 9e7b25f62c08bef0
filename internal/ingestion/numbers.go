package ingestion

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var numberReplacer = strings.NewReplacer(",", "", "$", "", " ", "", "\t", "")

// parseNumber parses permissive numeric text such as "$1,234.50", " -12 ",
// or "(45.00)". A percent sign is not accepted here; see optionalPercent. The boolean is false for blank or unparsable input.
func parseNumber(raw string) (float64, bool) {
	s := numberReplacer.Replace(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	if negative {
		d = d.Neg()
	}
	f, _ := d.Float64()
	return f, true
}

// optionalNumber returns nil for blank or unparsable input.
func optionalNumber(raw string) *float64 {
	f, ok := parseNumber(raw)
	if !ok {
		return nil
	}
	return &f
}

// optionalPercent is optionalNumber that also accepts a trailing "%".
// The value keeps its percent scale: "12.5%" and "12.5" both give 12.5.
func optionalPercent(raw string) *float64 {
	return optionalNumber(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
}

// optionalContracts accepts positive whole numbers only.
func optionalContracts(raw string) *int {
	s := numberReplacer.Replace(strings.TrimSpace(raw))
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() || !d.IsPositive() {
		return nil
	}
	n := int(d.IntPart())
	return &n
}

var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"2006/01/02",
	"1/2/06",
	"Jan 2, 2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// parseDate reads a calendar date and returns it at UTC midnight.
func parseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func optionalDate(raw string) *time.Time {
	t, ok := parseDate(raw)
	if !ok {
		return nil
	}
	return &t
}
