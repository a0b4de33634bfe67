package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"monteur/internal/app/middleware"
	"monteur/internal/domain/availability"
	"monteur/internal/domain/pricing"
	"monteur/internal/domain/reservation"
	"monteur/internal/domain/shared/daterange"
	"monteur/internal/domain/units"
)

var errMalformedRequest = errors.New("malformed request")

// statusFor maps application and domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errMalformedRequest),
		errors.Is(err, middleware.ErrValidation),
		errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, daterange.ErrInvalidDate),
		errors.Is(err, units.ErrInvalidParty),
		errors.Is(err, reservation.ErrInvalidGuest):
		return http.StatusBadRequest
	case errors.Is(err, middleware.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, reservation.ErrNotFound),
		errors.Is(err, availability.ErrEntryNotFound),
		errors.Is(err, units.ErrUnknownUnit):
		return http.StatusNotFound
	case errors.Is(err, availability.ErrConflict),
		errors.Is(err, middleware.ErrIdempotencyKeyReused):
		return http.StatusConflict
	case errors.Is(err, reservation.ErrInvalidTransition),
		errors.Is(err, units.ErrCapacityExceeded),
		errors.Is(err, pricing.ErrNoTier):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func handleError(c *gin.Context, logger *slog.Logger, err error) {
	respondWithError(c, logger, statusFor(err), err)
}

func respondWithError(c *gin.Context, logger *slog.Logger, status int, err error) {
	if status >= http.StatusInternalServerError {
		if logger != nil {
			logger.ErrorContext(c.Request.Context(), "request failed", "status", status, "error", err, "path", c.FullPath())
		}
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	if logger != nil {
		logger.DebugContext(c.Request.Context(), "request rejected", "status", status, "error", err, "path", c.FullPath())
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
