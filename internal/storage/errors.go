package storage

import "errors"

// Errors shared by every store backend. Stores are write-once per key:
// reruns over the same dataset surface ErrDuplicateKey instead of overwriting.
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("record already stored")
	ErrInvalidInput = errors.New("invalid record")
)
