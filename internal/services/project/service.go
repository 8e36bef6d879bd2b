// Package project implements the project data service: API-first reads
// and writes with a transparent cache fallback, so callers get the same
// shapes back whether the network is up or not.
package project

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/igebriel/taskweave/internal/api"
	"github.com/igebriel/taskweave/internal/errorhandling"
	"github.com/igebriel/taskweave/internal/models"
	"github.com/igebriel/taskweave/internal/notifications"
	"github.com/igebriel/taskweave/internal/storage"
)

// Service defines all project-related operations
type Service interface {
	// Read operations
	GetAll(ctx context.Context) ([]models.Project, error)
	Get(ctx context.Context, id string) (*models.Project, error)

	// Write operations
	Create(ctx context.Context, req CreateProjectRequest) (*models.Project, error)
	Update(ctx context.Context, id string, req UpdateProjectRequest) (*models.Project, error)
	Delete(ctx context.Context, id string) error

	// Deletion lifecycle
	RequestDeletion(ctx context.Context, id string) (*models.Project, error)
	CancelDeletion(ctx context.Context, id string) (*models.Project, error)

	// Exports
	ExportTasks(ctx context.Context, projectID string) ([]models.Task, error)
	ExportTasksCSV(ctx context.Context, projectID, filename string) (string, error)

	// SetTaskCounts updates a project's cached task counters. Called by
	// the task service after every task mutation.
	SetTaskCounts(id string, total, completed int)
}

// CreateProjectRequest encapsulates all data needed to create a project
type CreateProjectRequest struct {
	Name        string
	Description string
	Status      models.ProjectStatus // Optional: empty means active
	OwnerID     string
}

// UpdateProjectRequest encapsulates all data needed to update a project
// Fields with pointers are optional - nil means don't update
type UpdateProjectRequest struct {
	Name        *string
	Description *string
	Status      *models.ProjectStatus
}

// service implements Service interface
type service struct {
	client   *api.Client
	store    *storage.Store
	handler  *errorhandling.Handler
	notifier notifications.Notifier

	mu    sync.Mutex
	cache []models.Project
}

// NewService creates a new project service. The cache is seeded from
// local storage so a cold offline start still has data.
func NewService(client *api.Client, store *storage.Store, handler *errorhandling.Handler, notifier notifications.Notifier) Service {
	s := &service{
		client:   client,
		store:    store,
		handler:  handler,
		notifier: notifier,
	}

	var cached []models.Project
	if found, err := store.Get(storage.KeyProjects, &cached); err == nil && found {
		s.cache = cached
	}

	return s
}

// ============================================================================
// READ OPERATIONS
// ============================================================================

// GetAll returns every project, refreshing the cache from the API when
// reachable and serving cached (or fixture) data when it is not.
func (s *service) GetAll(ctx context.Context) ([]models.Project, error) {
	env, err := s.client.Get(ctx, "/projects", nil)
	if err != nil {
		if !api.IsUnavailable(err) {
			s.handler.HandleNetwork(err, "/projects", "GET")
			return nil, fmt.Errorf("fetch projects: %w", err)
		}
		s.offline("Using offline project data")
		return s.snapshot(), nil
	}

	var projects []models.Project
	if err := env.Decode(&projects); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}

	s.mu.Lock()
	s.cache = projects
	s.mu.Unlock()
	s.persistWarn()

	return s.snapshot(), nil
}

// Get returns one project by ID, falling back to the cache when the
// API is unreachable.
func (s *service) Get(ctx context.Context, id string) (*models.Project, error) {
	env, err := s.client.Get(ctx, "/projects/"+id, nil)
	if err != nil {
		if !api.IsUnavailable(err) {
			if apiErr, ok := api.AsError(err); ok && apiErr.Status == 404 {
				return nil, s.notFound(id)
			}
			s.handler.HandleNetwork(err, "/projects/"+id, "GET")
			return nil, fmt.Errorf("fetch project %s: %w", id, err)
		}
		s.offline("Using offline project data")
		if p := s.lookup(id); p != nil {
			return p, nil
		}
		return nil, s.notFound(id)
	}

	var p models.Project
	if err := env.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}

	s.upsert(p)
	s.persistWarn()
	return &p, nil
}

// ============================================================================
// WRITE OPERATIONS
// ============================================================================

// Create makes a project, locally when the API is unreachable. The
// returned project has the same shape either way, so callers never
// branch on connectivity.
func (s *service) Create(ctx context.Context, req CreateProjectRequest) (*models.Project, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	if req.Status == "" {
		req.Status = models.ProjectActive
	}

	body := map[string]any{
		"name":        req.Name,
		"description": req.Description,
		"status":      req.Status,
	}
	if req.OwnerID != "" {
		body["owner_id"] = req.OwnerID
	}

	env, err := s.client.Post(ctx, "/projects", body)
	if err != nil {
		if !api.IsUnavailable(err) {
			s.handler.HandleNetwork(err, "/projects", "POST")
			return nil, fmt.Errorf("create project: %w", err)
		}
		s.offline("Project created offline, will sync later")
		now := time.Now()
		p := models.Project{
			ID:          models.NewLocalID(),
			Name:        req.Name,
			Description: req.Description,
			Status:      req.Status,
			OwnerID:     req.OwnerID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.upsert(p)
		if perr := s.persist(); perr != nil {
			return nil, s.storageFailure(perr)
		}
		return &p, nil
	}

	var p models.Project
	if err := env.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode created project: %w", err)
	}

	s.upsert(p)
	if perr := s.persist(); perr != nil {
		return nil, s.storageFailure(perr)
	}
	return &p, nil
}

// Update patches a project, applying the change locally when the API
// is unreachable.
func (s *service) Update(ctx context.Context, id string, req UpdateProjectRequest) (*models.Project, error) {
	if req.Name != nil {
		if *req.Name == "" {
			return nil, ErrEmptyName
		}
		if len(*req.Name) > models.MaxTitleLength {
			return nil, ErrNameTooLong
		}
	}
	if req.Status != nil && !models.ValidProjectStatus(*req.Status) {
		return nil, ErrInvalidStatus
	}

	body := map[string]any{}
	if req.Name != nil {
		body["name"] = *req.Name
	}
	if req.Description != nil {
		body["description"] = *req.Description
	}
	if req.Status != nil {
		body["status"] = *req.Status
	}

	env, err := s.client.Patch(ctx, "/projects/"+id, body)
	if err != nil {
		if !api.IsUnavailable(err) {
			if apiErr, ok := api.AsError(err); ok && apiErr.Status == 404 {
				return nil, s.notFound(id)
			}
			s.handler.HandleNetwork(err, "/projects/"+id, "PATCH")
			return nil, fmt.Errorf("update project %s: %w", id, err)
		}
		s.offline("Project updated offline, will sync later")
		return s.mutate(id, func(p *models.Project) {
			if req.Name != nil {
				p.Name = *req.Name
			}
			if req.Description != nil {
				p.Description = *req.Description
			}
			if req.Status != nil {
				p.Status = *req.Status
			}
			p.UpdatedAt = time.Now()
		})
	}

	var p models.Project
	if err := env.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode updated project: %w", err)
	}

	s.upsert(p)
	if perr := s.persist(); perr != nil {
		return nil, s.storageFailure(perr)
	}
	return &p, nil
}

// Delete removes a project remotely and from the cache. When offline,
// the removal is local-only.
func (s *service) Delete(ctx context.Context, id string) error {
	_, err := s.client.Delete(ctx, "/projects/"+id)
	if err != nil {
		if !api.IsUnavailable(err) {
			if apiErr, ok := api.AsError(err); ok && apiErr.Status == 404 {
				return s.notFound(id)
			}
			s.handler.HandleNetwork(err, "/projects/"+id, "DELETE")
			return fmt.Errorf("delete project %s: %w", id, err)
		}
		s.offline("Project deleted offline, will sync later")
	}

	s.mu.Lock()
	kept := s.cache[:0]
	removed := false
	for _, p := range s.cache {
		if p.ID == id {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	s.cache = kept
	s.mu.Unlock()

	if !removed && err != nil {
		return s.notFound(id)
	}
	if perr := s.persist(); perr != nil {
		return s.storageFailure(perr)
	}
	return nil
}

// ============================================================================
// DELETION LIFECYCLE
// ============================================================================

// RequestDeletion flags a project for deletion without removing it.
func (s *service) RequestDeletion(ctx context.Context, id string) (*models.Project, error) {
	_, err := s.client.Post(ctx, "/projects/"+id+"/request_deletion", nil)
	if err != nil {
		if !api.IsUnavailable(err) {
			if apiErr, ok := api.AsError(err); ok && apiErr.Status == 404 {
				return nil, s.notFound(id)
			}
			s.handler.HandleNetwork(err, "/projects/"+id+"/request_deletion", "POST")
			return nil, fmt.Errorf("request deletion for project %s: %w", id, err)
		}
		s.offline("Deletion requested offline, will sync later")
	}

	return s.mutate(id, func(p *models.Project) {
		now := time.Now()
		p.DeletionRequested = true
		p.DeletionRequestedAt = &now
		p.UpdatedAt = now
	})
}

// CancelDeletion withdraws a pending deletion request.
func (s *service) CancelDeletion(ctx context.Context, id string) (*models.Project, error) {
	if p := s.lookup(id); p != nil && !p.DeletionRequested {
		return nil, ErrDeletionNotRequested
	}

	_, err := s.client.Delete(ctx, "/projects/"+id+"/cancel_deletion")
	if err != nil {
		if !api.IsUnavailable(err) {
			if apiErr, ok := api.AsError(err); ok && apiErr.Status == 404 {
				return nil, s.notFound(id)
			}
			s.handler.HandleNetwork(err, "/projects/"+id+"/cancel_deletion", "DELETE")
			return nil, fmt.Errorf("cancel deletion for project %s: %w", id, err)
		}
		s.offline("Deletion cancelled offline, will sync later")
	}

	return s.mutate(id, func(p *models.Project) {
		p.DeletionRequested = false
		p.DeletionRequestedAt = nil
		p.UpdatedAt = time.Now()
	})
}

// ============================================================================
// EXPORTS
// ============================================================================

// ExportTasks fetches the project's task export as a JSON array.
func (s *service) ExportTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	env, err := s.client.Get(ctx, "/projects/"+projectID+"/task_exports/export", nil)
	if err != nil {
		s.handler.HandleNetwork(err, "/projects/"+projectID+"/task_exports/export", "GET")
		return nil, fmt.Errorf("export tasks for project %s: %w", projectID, err)
	}

	var tasks []models.Task
	if err := env.Decode(&tasks); err != nil {
		return nil, fmt.Errorf("decode task export: %w", err)
	}
	return tasks, nil
}

// ExportTasksCSV downloads the CSV rendition of the export to filename
// (derived from the project ID when empty) and returns the path written.
func (s *service) ExportTasksCSV(ctx context.Context, projectID, filename string) (string, error) {
	if filename == "" {
		filename = api.CSVExportFilename(projectID)
	}

	query := url.Values{"format": {"csv"}}
	if err := s.client.DownloadFile(ctx, "/projects/"+projectID+"/task_exports/export", filename, query); err != nil {
		s.handler.HandleNetwork(err, "/projects/"+projectID+"/task_exports/export", "GET")
		return "", fmt.Errorf("download task export: %w", err)
	}
	return filename, nil
}

// ============================================================================
// CACHE MAINTENANCE
// ============================================================================

// SetTaskCounts updates a project's cached counters in place. A missing
// project is ignored; counters are advisory, not authoritative.
func (s *service) SetTaskCounts(id string, total, completed int) {
	s.mu.Lock()
	for i := range s.cache {
		if s.cache[i].ID == id {
			s.cache[i].TaskCount = total
			s.cache[i].CompletedTaskCount = completed
			break
		}
	}
	s.mu.Unlock()
	s.persistWarn()
}

// snapshot returns a copy of the cache, seeding fixtures first if it is
// empty so the board is never blank.
func (s *service) snapshot() []models.Project {
	s.mu.Lock()
	if len(s.cache) == 0 {
		s.cache = fixtureProjects()
	}
	out := make([]models.Project, len(s.cache))
	copy(out, s.cache)
	s.mu.Unlock()
	return out
}

// lookup returns a copy of the cached project, or nil.
func (s *service) lookup(id string) *models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.cache {
		if p.ID == id {
			out := p
			return &out
		}
	}
	return nil
}

// upsert replaces the cached project with the same ID, or appends.
// Cache-only; callers decide whether the write-through is fatal.
func (s *service) upsert(p models.Project) {
	s.mu.Lock()
	replaced := false
	for i := range s.cache {
		if s.cache[i].ID == p.ID {
			s.cache[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		s.cache = append(s.cache, p)
	}
	s.mu.Unlock()
}

// mutate applies fn to the cached project and returns a copy of the
// result, or ErrProjectNotFound.
func (s *service) mutate(id string, fn func(*models.Project)) (*models.Project, error) {
	s.mu.Lock()
	for i := range s.cache {
		if s.cache[i].ID == id {
			fn(&s.cache[i])
			out := s.cache[i]
			s.mu.Unlock()
			if err := s.persist(); err != nil {
				return nil, s.storageFailure(err)
			}
			return &out, nil
		}
	}
	s.mu.Unlock()
	return nil, s.notFound(id)
}

// persist writes the cache snapshot back to local storage. Mutations
// propagate the error to their caller, who needs to know the change
// did not stick; reads go through persistWarn instead.
func (s *service) persist() error {
	s.mu.Lock()
	snapshot := make([]models.Project, len(s.cache))
	copy(snapshot, s.cache)
	s.mu.Unlock()

	if err := s.store.Set(storage.KeyProjects, snapshot); err != nil {
		return fmt.Errorf("persist project cache: %w", err)
	}
	return nil
}

// persistWarn is the read-path variant: a failed cache write must not
// fail a read that already has its data.
func (s *service) persistWarn() {
	if err := s.persist(); err != nil {
		slog.Warn("Failed to persist project cache", "error", err)
	}
}

// storageFailure routes a failed cache write through the pipeline and
// hands the error back to the caller.
func (s *service) storageFailure(err error) error {
	s.handler.Handle(errorhandling.New(
		errorhandling.CategoryStorage,
		errorhandling.SeverityHigh,
		"STORAGE_WRITE_FAILED",
		"Couldn't save your changes locally",
	).WithCause(err), nil)
	return err
}

// offline raises the deliberate offline-mode warning.
func (s *service) offline(message string) {
	if s.notifier != nil {
		s.notifier.Notify(notifications.Warning, message)
	}
	slog.Warn(message)
}

// notFound routes the miss through the pipeline and returns the
// domain error.
func (s *service) notFound(id string) error {
	s.handler.HandleBusiness("Project not found", "NOT_FOUND", map[string]any{"project_id": id})
	return fmt.Errorf("project %s: %w", id, ErrProjectNotFound)
}

func validateCreate(req CreateProjectRequest) error {
	if req.Name == "" {
		return ErrEmptyName
	}
	if len(req.Name) > models.MaxTitleLength {
		return ErrNameTooLong
	}
	if req.Status != "" && !models.ValidProjectStatus(req.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// fixtureProjects is the built-in seed used when the cache is empty and
// the API is unreachable.
func fixtureProjects() []models.Project {
	now := time.Now()
	return []models.Project{
		{
			ID:          "fixture-project-1",
			Name:        "Getting Started",
			Description: "A sample project to explore the board",
			Status:      models.ProjectActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}
