package errors

import (
	"errors"
	"net/http"
)

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTPError with the given code and message.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{
		Code:    code,
		Message: message,
	}
}

// Sentinel errors for the booking flow. Services wrap these with %w and
// extra context; API handlers map them to HTTP statuses with FromError.
var (
	ErrInvalidSignature      = errors.New("invalid webhook signature")
	ErrBookingNotFound       = errors.New("booking not found")
	ErrSlotUnavailable       = errors.New("slot is not available")
	ErrRescheduleAlreadyUsed = errors.New("reschedule link already used")
	ErrCursorExpired         = errors.New("sync cursor expired")
	ErrUpstreamTimeout       = errors.New("upstream request timed out")
	ErrUpstreamRejected      = errors.New("upstream rejected the request")
)

// FromError maps a service error to the HTTPError returned to API clients.
// Webhook endpoints never use this mapping: they always ack the provider.
func FromError(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrInvalidSignature):
		return NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrBookingNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSlotUnavailable), errors.Is(err, ErrRescheduleAlreadyUsed):
		return NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrUpstreamTimeout), errors.Is(err, ErrUpstreamRejected):
		return NewHTTPError(http.StatusBadGateway, "upstream provider error")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
