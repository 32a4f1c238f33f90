// Package httpx provides JSON response helpers and the error-to-status mapping.
package httpx

import (
	"errors"
	"net/http"

	"github.com/partsdesk/partsdesk/internal/shared"
)

// StatusFor maps domain sentinel errors onto HTTP statuses.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrInsufficientStock):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes the standard error body. message is the human summary of
// the failed operation; the underlying error text is surfaced verbatim.
func RespondError(w http.ResponseWriter, message string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	JSON(w, StatusFor(err), ErrorBody{Message: message, Error: detail})
}
