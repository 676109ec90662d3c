package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rideshare/internal/repository"
	"rideshare/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	var (
		conflictErr  *service.ConflictError
		forbiddenErr *service.ForbiddenError
		upstreamErr  *service.UpstreamError
	)

	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidCaptainID),
		errors.Is(err, service.ErrInvalidPickupLocation),
		errors.Is(err, service.ErrInvalidDestinationLocation),
		errors.Is(err, service.ErrInvalidVehicleType),
		errors.Is(err, service.ErrFareRequired),
		errors.Is(err, service.ErrInvalidArrivalTime),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrMissingFields):
		return http.StatusBadRequest

	// Authentication errors
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized

	// Duplicate account
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict

	// State machine conflicts
	case errors.As(err, &conflictErr):
		return http.StatusConflict

	// Authorization errors
	case errors.As(err, &forbiddenErr):
		return http.StatusForbidden

	// Upstream provider failures
	case errors.As(err, &upstreamErr):
		return http.StatusBadGateway

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
