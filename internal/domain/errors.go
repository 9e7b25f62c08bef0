package domain

import "errors"

// Analytics errors. Callers match them with errors.Is.
var (
	// ErrRowRejected marks a single input row that failed validation.
	// The run continues; the row is reported with its index and reason.
	ErrRowRejected = errors.New("row rejected")

	// ErrInsufficientData is returned when a calculation needs at least one trade.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidParameters is returned when simulation parameters are out of range.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrParseFailure is returned when the input cannot be read as delimited text.
	ErrParseFailure = errors.New("parse failure")
)

// Error kinds exposed to API clients.
const (
	KindRowRejected       = "row_rejected"
	KindInsufficientData  = "insufficient_data"
	KindInvalidParameters = "invalid_parameters"
	KindParseFailure      = "parse_failure"
	KindInternal          = "internal"
)

// Kind maps err onto the error taxonomy.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrRowRejected):
		return KindRowRejected
	case errors.Is(err, ErrInsufficientData):
		return KindInsufficientData
	case errors.Is(err, ErrInvalidParameters):
		return KindInvalidParameters
	case errors.Is(err, ErrParseFailure):
		return KindParseFailure
	default:
		return KindInternal
	}
}
