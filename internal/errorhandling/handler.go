package errorhandling

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/igebriel/taskweave/internal/notifications"
	"github.com/igebriel/taskweave/internal/storage"
)

const (
	// RingCapacity bounds the persisted debug error list.
	RingCapacity = 50

	// suppressWindow and suppressThreshold cap notification spam from a
	// single repeating failure: at most suppressThreshold notifications
	// per (category, code) within the window.
	suppressWindow    = 5 * time.Minute
	suppressThreshold = 3

	defaultDrainInterval = 5 * time.Second
	defaultBatchSize     = 10
)

// Reporter delivers batches of significant errors to an external sink.
type Reporter interface {
	Report(ctx context.Context, batch []*AppError) error
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, batch []*AppError) error

// Report implements Reporter.
func (f ReporterFunc) Report(ctx context.Context, batch []*AppError) error {
	return f(ctx, batch)
}

// Options configures a Handler. Zero values get sane defaults.
type Options struct {
	Notifier      notifications.Notifier
	Reporter      Reporter
	Store         *storage.Store // enables the persisted debug ring
	Policy        RetryPolicy
	DrainInterval time.Duration
	BatchSize     int
	Now           func() time.Time // test seam
}

// Handler runs every error through the same pipeline:
// classify, enrich, log, notify, queue for reporting, persist to the
// debug ring. The five post-classification steps are independent side
// effects.
type Handler struct {
	notifier      notifications.Notifier
	reporter      Reporter
	store         *storage.Store
	policy        RetryPolicy
	drainInterval time.Duration
	batchSize     int
	now           func() time.Time

	mu       sync.Mutex
	ring     []*AppError
	queue    []*AppError
	draining bool
}

// NewHandler builds a Handler. A nil Notifier suppresses all user
// notifications; a nil Reporter drops reported batches into the log.
func NewHandler(opts Options) *Handler {
	h := &Handler{
		notifier:      opts.Notifier,
		reporter:      opts.Reporter,
		store:         opts.Store,
		policy:        opts.Policy,
		drainInterval: opts.DrainInterval,
		batchSize:     opts.BatchSize,
		now:           opts.Now,
	}
	if h.policy.BaseDelay <= 0 {
		h.policy.BaseDelay = DefaultRetryPolicy().BaseDelay
	}
	if h.policy.MaxDelay <= 0 {
		h.policy.MaxDelay = DefaultRetryPolicy().MaxDelay
	}
	if h.drainInterval <= 0 {
		h.drainInterval = defaultDrainInterval
	}
	if h.batchSize <= 0 {
		h.batchSize = defaultBatchSize
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.reporter == nil {
		h.reporter = ReporterFunc(func(_ context.Context, batch []*AppError) error {
			slog.Debug("Error report batch", "count", len(batch))
			return nil
		})
	}

	if h.store != nil {
		var ring []*AppError
		if found, err := h.store.Get(storage.KeyDebugErrors, &ring); err == nil && found {
			h.ring = ring
		}
	}

	return h
}

// Handle runs err through the pipeline and returns its classified form.
// extra is caller context merged into the error's details.
func (h *Handler) Handle(err error, extra map[string]any) *AppError {
	ae := Classify(err)

	// enrich
	for k, v := range extra {
		ae.WithDetail(k, v)
	}
	// The pipeline records when it handled the error; suppression
	// lookups compare against these stamps.
	ae.Timestamp = h.now()

	// log
	slog.Error("Handled error",
		"category", ae.Category,
		"severity", ae.Severity.String(),
		"code", ae.Code,
		"message", ae.Message,
		"correlation_id", ae.CorrelationID,
		"recoverable", ae.Recoverable,
	)

	// notify (suppression decided against the ring before appending)
	if h.shouldNotify(ae) {
		h.notify(ae)
	}

	// queue for reporting
	if ae.ShouldReport() {
		h.enqueue(ae)
	}

	// persist to the debug ring
	h.appendRing(ae)

	return ae
}

// HandleNetwork classifies a transport failure, tagging the request
// that produced it.
func (h *Handler) HandleNetwork(err error, url, method string) *AppError {
	extra := map[string]any{}
	if url != "" {
		extra["url"] = url
	}
	if method != "" {
		extra["method"] = method
	}
	return h.Handle(err, extra)
}

// ValidationIssue is one failed field from a validation pass.
type ValidationIssue struct {
	Field   string
	Message string
}

// HandleValidation folds per-field validation failures into a single
// validation error. Field-specific messages are surfaced when three or
// fewer fields are invalid.
func (h *Handler) HandleValidation(issues []ValidationIssue) *AppError {
	message := fmt.Sprintf("Validation failed for %d fields", len(issues))
	if len(issues) <= 3 {
		parts := make([]string, 0, len(issues))
		for _, issue := range issues {
			parts = append(parts, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
		}
		message = strings.Join(parts, "; ")
	}

	fields := make(map[string]string, len(issues))
	for _, issue := range issues {
		fields[issue.Field] = issue.Message
	}

	ae := New(CategoryValidation, SeverityMedium, "VALIDATION_FAILED", message).
		WithDetail("fields", fields)
	return h.Handle(ae, nil)
}

// HandleBusiness records a domain rule violation.
func (h *Handler) HandleBusiness(message, code string, details map[string]any) *AppError {
	if code == "" {
		code = "BUSINESS_RULE"
	}
	ae := New(CategoryBusiness, SeverityMedium, code, message)
	return h.Handle(ae, details)
}

// shouldNotify applies the visibility rules: low severity is never
// shown, and a (category, code) pair that already produced
// suppressThreshold notifications inside the window is muted.
func (h *Handler) shouldNotify(ae *AppError) bool {
	if h.notifier == nil || ae.Severity == SeverityLow {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := h.now().Add(-suppressWindow)
	recent := 0
	for _, prev := range h.ring {
		if prev.Category == ae.Category && prev.Code == ae.Code && prev.Timestamp.After(cutoff) {
			recent++
		}
	}
	return recent < suppressThreshold
}

// notify translates the error into a short, category-derived message.
// Raw messages (and never stack traces) only pass through for
// validation and business errors, which are written for users already.
func (h *Handler) notify(ae *AppError) {
	severity := notifications.Error
	if ae.Severity == SeverityMedium {
		severity = notifications.Warning
	}

	var message string
	switch ae.Category {
	case CategoryAuthentication:
		message = "Please sign in again"
	case CategoryAuthorization:
		message = "You don't have permission to do that"
	case CategoryNetwork:
		message = "Connection problem. Working offline."
	case CategoryStorage:
		message = "Couldn't save your changes locally"
	case CategoryExternal:
		message = "A connected service is unavailable"
	case CategoryValidation, CategoryBusiness:
		message = ae.Message
	default:
		message = "Something went wrong"
	}

	h.notifier.Notify(severity, message)
}

// enqueue appends to the reporting queue; critical errors trigger an
// immediate out-of-band drain instead of waiting for the next tick.
func (h *Handler) enqueue(ae *AppError) {
	h.mu.Lock()
	h.queue = append(h.queue, ae)
	critical := ae.Severity == SeverityCritical
	h.mu.Unlock()

	if critical {
		go h.Drain(context.Background())
	}
}

// appendRing records the error in the bounded debug ring, evicting the
// oldest entries, and mirrors the ring to local storage when enabled.
func (h *Handler) appendRing(ae *AppError) {
	h.mu.Lock()
	h.ring = append(h.ring, ae)
	if len(h.ring) > RingCapacity {
		h.ring = h.ring[len(h.ring)-RingCapacity:]
	}
	snapshot := make([]*AppError, len(h.ring))
	copy(snapshot, h.ring)
	h.mu.Unlock()

	if h.store != nil {
		if err := h.store.Set(storage.KeyDebugErrors, snapshot); err != nil {
			slog.Warn("Failed to persist debug errors", "error", err)
		}
	}
}

// Ring returns a copy of the debug ring, oldest first.
func (h *Handler) Ring() []*AppError {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*AppError, len(h.ring))
	copy(out, h.ring)
	return out
}

// QueueLen reports the number of errors awaiting a report drain.
func (h *Handler) QueueLen() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// Start launches the periodic drain loop. It runs until ctx is
// cancelled; the ticker is owned here, so there are no ambient
// callbacks left behind.
func (h *Handler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(h.drainInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.Drain(ctx)
			}
		}
	}()
}

// Drain reports queued errors in batches. Each batch is reported
// independently so one failing report does not block the rest. The
// in-progress flag keeps a timer-driven drain and an ad-hoc critical
// drain from interleaving; the queue is re-checked before the flag
// drops, so an error enqueued while a drain is in flight (whose own
// out-of-band drain no-opped on the flag) is still reported by the
// drain that is running.
func (h *Handler) Drain(ctx context.Context) {
	h.mu.Lock()
	if h.draining {
		h.mu.Unlock()
		return
	}
	h.draining = true

	for len(h.queue) > 0 {
		pending := h.queue
		h.queue = nil
		h.mu.Unlock()

		for start := 0; start < len(pending); start += h.batchSize {
			end := start + h.batchSize
			if end > len(pending) {
				end = len(pending)
			}
			batch := pending[start:end]
			if err := h.reporter.Report(ctx, batch); err != nil {
				slog.Warn("Error report batch failed", "count", len(batch), "error", err)
			}
		}

		h.mu.Lock()
	}

	h.draining = false
	h.mu.Unlock()
}
