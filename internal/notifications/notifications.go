// Package notifications is the user-visible message sink. The entity
// services raise their own offline-mode warnings through it; everything
// else goes through the error handling pipeline, which decides
// visibility centrally.
package notifications

import (
	"log/slog"
	"sync"
)

// Severity represents the severity level of a notification
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Notifier receives user-visible notifications.
type Notifier interface {
	Notify(severity Severity, message string)
}

// LogNotifier writes notifications to the application log. It is the
// default sink when no UI is attached.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(severity Severity, message string) {
	switch severity {
	case Error:
		slog.Error("notification", "message", message)
	case Warning:
		slog.Warn("notification", "message", message)
	default:
		slog.Info("notification", "message", message)
	}
}

// Note is a recorded notification.
type Note struct {
	Severity Severity
	Message  string
}

// Recorder captures notifications for assertions in tests.
type Recorder struct {
	mu    sync.Mutex
	notes []Note
}

// Notify implements Notifier.
func (r *Recorder) Notify(severity Severity, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, Note{Severity: severity, Message: message})
}

// Notes returns a copy of everything recorded so far.
func (r *Recorder) Notes() []Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Note, len(r.notes))
	copy(out, r.notes)
	return out
}

// Reset clears the recorded notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = nil
}
