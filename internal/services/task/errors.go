package task

import "errors"

// Task-related errors
var (
	// Validation errors
	ErrEmptyTitle      = errors.New("task title cannot be empty")
	ErrTitleTooLong    = errors.New("task title cannot exceed 255 characters")
	ErrEmptyProjectID  = errors.New("task project ID cannot be empty")
	ErrEmptyColumnID   = errors.New("task column ID cannot be empty")
	ErrInvalidPriority = errors.New("invalid task priority")
	ErrInvalidPosition = errors.New("invalid position: must be >= 0")
	ErrEmptyAssigneeID = errors.New("assignee ID cannot be empty")

	// Business logic errors
	ErrTaskNotFound = errors.New("task not found")
)
