package project

import "errors"

// Project-related errors
var (
	// Validation errors
	ErrEmptyName     = errors.New("project name cannot be empty")
	ErrNameTooLong   = errors.New("project name cannot exceed 255 characters")
	ErrInvalidStatus = errors.New("invalid project status")

	// Business logic errors
	ErrProjectNotFound      = errors.New("project not found")
	ErrDeletionNotRequested = errors.New("project has no pending deletion request")
)
