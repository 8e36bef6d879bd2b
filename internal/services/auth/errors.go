package auth

import "errors"

// Auth-related errors
var (
	ErrEmptyEmail     = errors.New("email cannot be empty")
	ErrEmptyPassword  = errors.New("password cannot be empty")
	ErrNotSignedIn    = errors.New("no active session")
	ErrMalformedLogin = errors.New("login response missing token")
	ErrSessionInvalid = errors.New("session is no longer valid")
)
