package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/storage"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// statusFor maps an error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidParameters),
		errors.Is(err, domain.ErrParseFailure),
		errors.Is(err, storage.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRowRejected),
		errors.Is(err, domain.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// kindFor extends domain.Kind with storage lookups, which surface as missing data.
func kindFor(err error) string {
	if errors.Is(err, storage.ErrNotFound) {
		return domain.KindInsufficientData
	}
	if errors.Is(err, storage.ErrInvalidInput) {
		return domain.KindInvalidParameters
	}
	return domain.Kind(err)
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, Kind: kindFor(err)})
}
