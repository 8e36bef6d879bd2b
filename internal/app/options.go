package app

import (
	"github.com/igebriel/taskweave/internal/errorhandling"
	"github.com/igebriel/taskweave/internal/notifications"
)

type options struct {
	notifier notifications.Notifier
	reporter errorhandling.Reporter
}

func defaultOptions() options {
	return options{notifier: notifications.LogNotifier{}}
}

// Option customizes the wiring in New.
type Option func(*options)

// WithNotifier swaps the user notification sink. The default logs
// through slog.
func WithNotifier(n notifications.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithReporter sets the external error report sink.
func WithReporter(r errorhandling.Reporter) Option {
	return func(o *options) { o.reporter = r }
}
