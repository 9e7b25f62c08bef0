package idhash

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/mr-tron/base58"
)

// ComputeDatasetKey identifies an uploaded file by content.
// Returns base58 of the first 16 bytes of SHA256(data).
func ComputeDatasetKey(data []byte) string {
	hash := sha256.Sum256(data)
	return base58.Encode(hash[:16])
}

// ComputeRunID identifies a simulation run by dataset, seed and parameters digest.
func ComputeRunID(datasetKey string, seed uint64, paramsDigest string) string {
	h := sha256.New()
	h.Write([]byte(datasetKey))
	h.Write([]byte{'|'})
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seed)
	h.Write(buf[:])
	h.Write([]byte{'|'})
	h.Write([]byte(paramsDigest))
	return base58.Encode(h.Sum(nil)[:16])
}
