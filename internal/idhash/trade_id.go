package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(dataset_key|row_index|date_opened|time_opened|strategy|pl)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	datasetKey string,
	rowIndex int,
	dateOpened string,
	timeOpened string,
	strategy string,
	pl float64,
) string {
	data := fmt.Sprintf("%s|%d|%s|%s|%s|%s",
		datasetKey,
		rowIndex,
		dateOpened,
		timeOpened,
		strategy,
		strconv.FormatFloat(pl, 'f', -1, 64),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
