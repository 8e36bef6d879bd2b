package api

import (
	"errors"
	"fmt"
)

// Error is the uniform failure shape every transport problem collapses
// into: HTTP failures, API-level failures flagged in a 2xx body, network
// failures (Status 0), and timeouts (Status 408).
type Error struct {
	Status  int
	Message string
	Errors  []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// StatusMessage returns the client-side message for an HTTP status,
// used only when the server did not supply its own.
func StatusMessage(status int) string {
	switch {
	case status == 401:
		return "Authentication required"
	case status == 403:
		return "Access denied"
	case status == 404:
		return "Resource not found"
	case status == 422:
		return "Validation failed"
	case status == 429:
		return "Rate limit exceeded"
	case status >= 500:
		return "Server error"
	default:
		return "Request failed"
	}
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsUnavailable reports whether err indicates the API could not serve
// the request at all: connectivity loss, timeout, or a server-side
// failure. These are the failures the entity services recover from by
// falling back to the local cache.
func IsUnavailable(err error) bool {
	apiErr, ok := AsError(err)
	if !ok {
		return false
	}
	return apiErr.Status == 0 || apiErr.Status == 408 || apiErr.Status >= 500
}
