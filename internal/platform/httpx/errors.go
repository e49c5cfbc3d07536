// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-hq/meridian/internal/shared"
)

// Sentinel errors for the transport layer.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
//
// ErrResolutionUnavailable is flagged retryable so callers can distinguish an
// infrastructure failure from a legitimately empty result and fall back to a
// minimal navigation instead of a blank screen.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrSubjectNotFound):
		Problem(w, http.StatusForbidden, "Subject Not Found", "subject unknown or inactive")
	case errors.Is(err, shared.ErrResolutionUnavailable):
		RetryableProblem(w, http.StatusServiceUnavailable, "Resolution Unavailable", "permission resolution temporarily unavailable")
	case errors.Is(err, shared.ErrNodeNotFound):
		Problem(w, http.StatusNotFound, "Node Not Found", err.Error())
	case errors.Is(err, shared.ErrCycleDetected):
		Problem(w, http.StatusConflict, "Cycle Detected", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Invalid Credentials", "")
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
