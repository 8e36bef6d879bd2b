// Package cli holds the shared setup and output helpers for the
// command-line surface. Commands are thin glue: they resolve services
// from the app container and print what comes back.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/igebriel/taskweave/internal/app"
	"github.com/igebriel/taskweave/internal/cli/styles"
	"github.com/igebriel/taskweave/internal/config"
	"github.com/igebriel/taskweave/internal/logging"
	"github.com/igebriel/taskweave/internal/notifications"
)

// Setup loads config, initializes logging, and wires the application.
// Offline-mode warnings surface on stderr through TerminalNotifier.
func Setup() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := logging.Init(); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	a, err := app.New(cfg, app.WithNotifier(TerminalNotifier{}))
	if err != nil {
		return nil, fmt.Errorf("wire application: %w", err)
	}
	a.Start()
	return a, nil
}

// TerminalNotifier renders notifications to stderr so they never mix
// with parseable stdout output.
type TerminalNotifier struct{}

// Notify implements notifications.Notifier.
func (TerminalNotifier) Notify(severity notifications.Severity, message string) {
	switch severity {
	case notifications.Error:
		fmt.Fprintln(os.Stderr, styles.ErrorStyle.Render(message))
	case notifications.Warning:
		fmt.Fprintln(os.Stderr, styles.OfflineStyle.Render(message))
	default:
		fmt.Fprintln(os.Stderr, styles.SubtitleStyle.Render(message))
	}
}

// OutputFormatter switches between human and machine output.
type OutputFormatter struct {
	JSON  bool
	Quiet bool
}

// Emit prints v as JSON when requested; otherwise it runs the
// human-readable fallback.
func (f *OutputFormatter) Emit(v any, human func()) error {
	if f.JSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"success": true,
			"data":    v,
		})
	}
	human()
	return nil
}
