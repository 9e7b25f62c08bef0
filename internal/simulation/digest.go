package simulation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"tradeblocks/internal/domain"
)

// ParametersDigest fingerprints the parameters that affect results.
// Workers is excluded because it only changes scheduling.
func ParametersDigest(p domain.SimulationParameters) string {
	p.Workers = 0
	data, _ := json.Marshal(p)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
