package errorhandling

import (
	"errors"
	"runtime/debug"

	"github.com/igebriel/taskweave/internal/api"
)

// Classify coerces any error into the taxonomy. Errors already in the
// taxonomy pass through; transport errors map by status; anything else
// becomes a system error at medium severity with the original message
// and stack preserved in the details.
func Classify(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if apiErr, ok := api.AsError(err); ok {
		return classifyTransport(apiErr, err)
	}

	ae := New(CategorySystem, SeverityMedium, "UNHANDLED_ERROR", err.Error()).
		WithDetail("error", err.Error()).
		WithDetail("stack", string(debug.Stack())).
		WithCause(err)
	// Nothing is known about a coerced error, so unlike explicit system
	// errors it keeps the benefit of the doubt for the retry policy.
	ae.Recoverable = true
	return ae
}

func classifyTransport(apiErr *api.Error, cause error) *AppError {
	var ae *AppError

	switch {
	case apiErr.Status == 0:
		ae = New(CategoryNetwork, SeverityMedium, "NETWORK_UNREACHABLE", apiErr.Message)
	case apiErr.Status == 408:
		ae = New(CategoryNetwork, SeverityMedium, "REQUEST_TIMEOUT", apiErr.Message)
	case apiErr.Status == 401:
		ae = New(CategoryAuthentication, SeverityHigh, "AUTH_REQUIRED", apiErr.Message)
	case apiErr.Status == 403:
		ae = New(CategoryAuthorization, SeverityHigh, "ACCESS_DENIED", apiErr.Message)
	case apiErr.Status == 404:
		ae = New(CategoryBusiness, SeverityMedium, "NOT_FOUND", apiErr.Message)
	case apiErr.Status == 422:
		ae = New(CategoryValidation, SeverityMedium, "VALIDATION_FAILED", apiErr.Message)
	case apiErr.Status == 429:
		ae = New(CategoryExternal, SeverityMedium, "RATE_LIMITED", apiErr.Message)
	case apiErr.Status >= 500:
		ae = New(CategoryNetwork, SeverityHigh, "SERVER_ERROR", apiErr.Message)
	default:
		ae = New(CategoryBusiness, SeverityMedium, "REQUEST_FAILED", apiErr.Message)
	}

	ae.WithDetail("status", apiErr.Status)
	if len(apiErr.Errors) > 0 {
		ae.WithDetail("errors", apiErr.Errors)
	}
	return ae.WithCause(cause)
}
