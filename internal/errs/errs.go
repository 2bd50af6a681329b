// Package errs defines the small set of user-facing error conditions the
// service distinguishes. Everything not covered here is reported to clients
// as a generic internal error and logged with full context server side.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAuthRequired means no valid session accompanied the request.
var ErrAuthRequired = errors.New("authentication required")

// ErrUpstreamTimeout means a pipeline stage exceeded its timeout budget.
// The remedy is on the caller: narrow the date range or request fewer URLs.
var ErrUpstreamTimeout = errors.New("upstream timed out — try a shorter date range or fewer URLs")

// ValidationError describes a malformed request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError for a named request field.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Wrap adds context to an error, preserving its classification.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// StatusCode maps an error to the HTTP status the client receives.
func StatusCode(err error) int {
	var ve *ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, ErrUpstreamTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage returns the message safe to show the client. Uncategorized
// errors get a generic message; their details stay in the server logs.
func ClientMessage(err error) string {
	var ve *ValidationError
	switch {
	case errors.Is(err, ErrAuthRequired):
		return "authentication required"
	case errors.As(err, &ve):
		return ve.Error()
	case errors.Is(err, ErrUpstreamTimeout):
		return ErrUpstreamTimeout.Error()
	default:
		return "internal server error"
	}
}
