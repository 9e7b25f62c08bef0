package metrics

import (
	"math"
	"testing"
	"time"

	"tradeblocks/internal/domain"
)

func TestPercentile_LinearInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}

	tests := []struct {
		p    float64
		want float64
	}{
		{0.0, 1},
		{0.05, 1.2},
		{0.25, 2},
		{0.50, 3},
		{0.90, 4.6},
		{1.0, 5},
	}

	for _, tt := range tests {
		got := Percentile(sorted, tt.p)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestPercentile_Edges(t *testing.T) {
	if got := Percentile(nil, 0.5); got != 0 {
		t.Errorf("expected 0 for empty input, got %v", got)
	}
	if got := Percentile([]float64{7}, 0.9); got != 7 {
		t.Errorf("expected single value, got %v", got)
	}
}

func TestStddev_Sample(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	mean := Mean(values)
	if mean != 5 {
		t.Fatalf("expected mean 5, got %v", mean)
	}
	// Sample variance = 32 / 7
	want := math.Sqrt(32.0 / 7.0)
	if got := Stddev(values, mean); math.Abs(got-want) > 1e-12 {
		t.Errorf("Stddev = %v, want %v", got, want)
	}
	if got := Stddev([]float64{3}, 3); got != 0 {
		t.Errorf("expected 0 for single sample, got %v", got)
	}
}

func TestDownsideDeviation(t *testing.T) {
	got := DownsideDeviation([]float64{0.1, -0.2, 0.3, -0.4})
	want := math.Sqrt((0.04 + 0.16) / 4)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("DownsideDeviation = %v, want %v", got, want)
	}
}

func TestMaxDrawdown(t *testing.T) {
	// cumulative: 100, 50, 150, 20, 70 -> worst drop 150 -> 20 = 130
	got := MaxDrawdown([]float64{100, -50, 100, -130, 50})
	if got != 130 {
		t.Errorf("MaxDrawdown = %v, want 130", got)
	}
	if MaxDrawdown(nil) != 0 {
		t.Error("expected 0 for empty input")
	}
}

func TestMaxConsecutive(t *testing.T) {
	outcomes := []float64{1, -1, -2, 0, -3, 2, 3, 4, -1}

	if got := MaxConsecutiveLosses(outcomes); got != 2 {
		t.Errorf("MaxConsecutiveLosses = %d, want 2", got)
	}
	if got := MaxConsecutiveWins(outcomes); got != 3 {
		t.Errorf("MaxConsecutiveWins = %d, want 3", got)
	}
}

func TestComputeFromTrades_OrderIndependent(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC) }
	trades := []*domain.Trade{
		{RowIndex: 1, DateOpened: d(1), PL: 100, PremiumCollected: domain.Float(200)},
		{RowIndex: 2, DateOpened: d(2), PL: -300, PremiumCollected: domain.Float(400)},
		{RowIndex: 3, DateOpened: d(3), PL: 50, Contracts: domain.Int(2)},
		{RowIndex: 4, DateOpened: d(4), PL: -20, Contracts: domain.Int(4)},
	}
	reversed := []*domain.Trade{trades[3], trades[2], trades[1], trades[0]}

	a := computeFromTrades(trades, "S")
	b := computeFromTrades(reversed, "S")

	if a.MaxDrawdown != b.MaxDrawdown || a.MaxConsecutiveLosses != b.MaxConsecutiveLosses {
		t.Errorf("order-dependent metrics differ: %+v vs %+v", a, b)
	}
	if a.MaxDrawdown != 300 {
		t.Errorf("MaxDrawdown = %v, want 300", a.MaxDrawdown)
	}
	if a.AvgContracts != 3 {
		t.Errorf("AvgContracts = %v, want 3", a.AvgContracts)
	}
	if a.PremiumCapture == nil || math.Abs(*a.PremiumCapture-(-170.0/600.0)) > 1e-12 {
		t.Errorf("PremiumCapture = %v, want %v", a.PremiumCapture, -170.0/600.0)
	}
}
