package idhash

import (
	"testing"
)

func TestComputeTradeID(t *testing.T) {
	tests := []struct {
		name       string
		datasetKey string
		rowIndex   int
		dateOpened string
		timeOpened string
		strategy   string
		pl         float64
		wantLen    int // hash length should be 64
	}{
		{
			name:       "basic trade",
			datasetKey: "3yZe7d",
			rowIndex:   1,
			dateOpened: "2024-01-02",
			timeOpened: "09:33:00",
			strategy:   "Iron Condor",
			pl:         125.5,
			wantLen:    64,
		},
		{
			name:       "unknown strategy loss",
			datasetKey: "3yZe7d",
			rowIndex:   42,
			dateOpened: "2024-03-15",
			strategy:   "Unknown",
			pl:         -980,
			wantLen:    64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTradeID(tt.datasetKey, tt.rowIndex, tt.dateOpened, tt.timeOpened, tt.strategy, tt.pl)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeTradeID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeTradeID(tt.datasetKey, tt.rowIndex, tt.dateOpened, tt.timeOpened, tt.strategy, tt.pl)
			if got != got2 {
				t.Errorf("ComputeTradeID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeTradeID_DifferentRows(t *testing.T) {
	a := ComputeTradeID("k", 1, "2024-01-02", "", "S", 10)
	b := ComputeTradeID("k", 2, "2024-01-02", "", "S", 10)
	if a == b {
		t.Error("different row indexes should produce different ids")
	}
}

func TestComputeDatasetKey(t *testing.T) {
	data := []byte("Date Opened,P/L,Funds at Close\n2024-01-02,100,10100\n")

	k1 := ComputeDatasetKey(data)
	k2 := ComputeDatasetKey(data)
	if k1 != k2 {
		t.Errorf("ComputeDatasetKey() not deterministic: %s != %s", k1, k2)
	}
	if k1 == "" {
		t.Fatal("ComputeDatasetKey() returned empty key")
	}
	if ComputeDatasetKey(append(data, 'x')) == k1 {
		t.Error("different content should produce different keys")
	}
}

func TestComputeRunID(t *testing.T) {
	a := ComputeRunID("ds", 42, "p")
	if a != ComputeRunID("ds", 42, "p") {
		t.Error("ComputeRunID() not deterministic")
	}
	if a == ComputeRunID("ds", 43, "p") {
		t.Error("different seeds should produce different run ids")
	}
}
