package models

import "time"

// Project groups tasks and tracks aggregate completion counts.
// TaskCount and CompletedTaskCount are maintained by the task service
// whenever tasks are created, moved, or deleted.
type Project struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	Description         string        `json:"description,omitempty"`
	Status              ProjectStatus `json:"status"`
	OwnerID             string        `json:"owner_id,omitempty"`
	TaskCount           int           `json:"task_count"`
	CompletedTaskCount  int           `json:"completed_task_count"`
	DeletionRequested   bool          `json:"deletion_requested,omitempty"`
	DeletionRequestedAt *time.Time    `json:"deletion_requested_at,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// ProjectStatus is the project lifecycle state.
type ProjectStatus string

const (
	ProjectDraft     ProjectStatus = "draft"
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

// ValidProjectStatus reports whether s is a known project status.
func ValidProjectStatus(s ProjectStatus) bool {
	switch s {
	case ProjectDraft, ProjectActive, ProjectCompleted, ProjectArchived:
		return true
	}
	return false
}
