package api

import (
	"errors"
	"net/http"

	"github.com/gogobubbles/leadops/internal/adapters/repository"
	service "github.com/gogobubbles/leadops/internal/app"
	"github.com/gogobubbles/leadops/internal/domain/staffing"
	"github.com/gogobubbles/leadops/internal/domain/takeover"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// statusFor maps an error to its HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, takeover.ErrInvalidEvent),
		errors.Is(err, staffing.ErrUnknownTask),
		errors.Is(err, repository.ErrInvalidInput):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, takeover.ErrNoCompensationTier):
		return http.StatusUnprocessableEntity, "no_compensation_tier"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
