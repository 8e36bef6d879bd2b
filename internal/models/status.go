package models

// Status is the UI-facing task status vocabulary.
type Status string

const (
	StatusTodo     Status = "todo"
	StatusProgress Status = "progress"
	StatusDone     Status = "done"
)

// WireStatus is the API-level task status vocabulary. It is wider than
// the UI vocabulary; the task service translates between the two and
// keeps the original wire value on the task so nothing is discarded.
type WireStatus string

const (
	WireDraft      WireStatus = "draft"
	WireTodo       WireStatus = "todo"
	WireInProgress WireStatus = "in_progress"
	WireCompleted  WireStatus = "completed"
	WireCancelled  WireStatus = "cancelled"
)

// StatusFromWire maps a wire status onto the UI vocabulary.
// Cancelled tasks land in todo; the wire value itself is preserved on
// Task.WireStatus so cancellation state is not lost.
func StatusFromWire(w WireStatus) Status {
	switch w {
	case WireInProgress:
		return StatusProgress
	case WireCompleted:
		return StatusDone
	default:
		return StatusTodo
	}
}

// Wire maps a UI status back onto the wire vocabulary.
func (s Status) Wire() WireStatus {
	switch s {
	case StatusProgress:
		return WireInProgress
	case StatusDone:
		return WireCompleted
	default:
		return WireTodo
	}
}

// ColumnStatus returns the UI status implied by moving a task into the
// given column. The second return is false for unknown columns, in
// which case the task keeps its current status.
func ColumnStatus(columnID string) (Status, bool) {
	switch columnID {
	case ColumnTodo:
		return StatusTodo, true
	case ColumnInProgress, ColumnInReview:
		return StatusProgress, true
	case ColumnDone, ColumnCompleted:
		return StatusDone, true
	}
	return "", false
}
