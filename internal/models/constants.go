package models

// Well-known board column IDs
const (
	ColumnTodo       = "todo"
	ColumnInProgress = "in-progress"
	ColumnInReview   = "in-review"
	ColumnDone       = "done"
	ColumnCompleted  = "completed"
)

// MaxTitleLength is the upper bound on task titles and project names
const MaxTitleLength = 255
