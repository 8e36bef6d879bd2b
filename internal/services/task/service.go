// Package task implements the task data service. On top of the shared
// API-first/cache-fallback policy it maintains the board's ordering
// invariant: for any (project, column) pair the task orders form a
// dense 0..n-1 sequence, restored after every create, move, or delete.
// It is also the single place translating between the wire status
// vocabulary and the UI one.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/igebriel/taskweave/internal/api"
	"github.com/igebriel/taskweave/internal/errorhandling"
	"github.com/igebriel/taskweave/internal/models"
	"github.com/igebriel/taskweave/internal/notifications"
	"github.com/igebriel/taskweave/internal/storage"
)

// Service defines all task-related operations
type Service interface {
	// Read operations
	GetAll(ctx context.Context) ([]models.Task, error)
	GetByProject(ctx context.Context, projectID string) ([]models.Task, error)
	Get(ctx context.Context, id string) (*models.Task, error)

	// Write operations
	Create(ctx context.Context, req CreateTaskRequest) (*models.Task, error)
	Update(ctx context.Context, id string, req UpdateTaskRequest) (*models.Task, error)
	Delete(ctx context.Context, id string) error

	// Task movements
	Move(ctx context.Context, id, columnID string, position int) (*models.Task, error)
	Assign(ctx context.Context, id, assigneeID string) (*models.Task, error)

	// NextOrder returns the order a new task at the end of the column
	// would get: max(order)+1, or 0 for an empty column.
	NextOrder(projectID, columnID string) int
}

// ProjectCounter receives task-count updates for a project. The project
// service satisfies it; the indirection keeps this package from
// depending on that one.
type ProjectCounter interface {
	SetTaskCounts(id string, total, completed int)
}

// CreateTaskRequest encapsulates all data needed to create a task
type CreateTaskRequest struct {
	Title       string
	Description string
	ProjectID   string
	ColumnID    string
	Priority    models.Priority // Optional: empty means medium
	AssigneeID  string
	DueDate     *time.Time
}

// UpdateTaskRequest encapsulates all data needed to update a task
// Fields with pointers are optional - nil means don't update
type UpdateTaskRequest struct {
	Title       *string
	Description *string
	Status      *models.Status
	Priority    *models.Priority
	DueDate     *time.Time
}

// wireTask is the task shape the API speaks: same fields, but status
// in the wire vocabulary.
type wireTask struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Status      models.WireStatus `json:"status"`
	Priority    models.Priority   `json:"priority,omitempty"`
	ProjectID   string            `json:"project_id"`
	AssigneeID  string            `json:"assignee_id,omitempty"`
	DueDate     *time.Time        `json:"due_date,omitempty"`
	ColumnID    string            `json:"column_id"`
	Order       int               `json:"order"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// toModel translates a wire task into the UI shape, preserving the
// original wire status alongside the translated one.
func (w wireTask) toModel() models.Task {
	priority := w.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	return models.Task{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Status:      models.StatusFromWire(w.Status),
		WireStatus:  w.Status,
		Priority:    priority,
		ProjectID:   w.ProjectID,
		AssigneeID:  w.AssigneeID,
		DueDate:     w.DueDate,
		ColumnID:    w.ColumnID,
		Order:       w.Order,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

// service implements Service interface
type service struct {
	client   *api.Client
	store    *storage.Store
	handler  *errorhandling.Handler
	notifier notifications.Notifier
	counter  ProjectCounter

	mu    sync.Mutex
	cache []models.Task
}

// NewService creates a new task service. counter may be nil when no
// project counters need maintaining.
func NewService(client *api.Client, store *storage.Store, handler *errorhandling.Handler, notifier notifications.Notifier, counter ProjectCounter) Service {
	s := &service{
		client:   client,
		store:    store,
		handler:  handler,
		notifier: notifier,
		counter:  counter,
	}

	var cached []models.Task
	if found, err := store.Get(storage.KeyTasks, &cached); err == nil && found {
		s.cache = cached
	}

	return s
}

// ============================================================================
// READ OPERATIONS
// ============================================================================

// GetAll returns every task, refreshing the cache when the API is
// reachable.
func (s *service) GetAll(ctx context.Context) ([]models.Task, error) {
	env, err := s.client.Get(ctx, "/tasks", nil)
	if err != nil {
		if !api.IsUnavailable(err) {
			s.handler.HandleNetwork(err, "/tasks", "GET")
			return nil, fmt.Errorf("fetch tasks: %w", err)
		}
		s.offline("Using offline task data")
		return s.snapshot(""), nil
	}

	var wired []wireTask
	if err := env.Decode(&wired); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}

	tasks := make([]models.Task, len(wired))
	for i, w := range wired {
		tasks[i] = w.toModel()
	}

	s.mu.Lock()
	s.cache = tasks
	s.normalizeAllLocked()
	s.mu.Unlock()
	s.persistWarn()
	s.refreshCounts()

	return s.snapshot(""), nil
}

// GetByProject returns the tasks of one project.
func (s *service) GetByProject(ctx context.Context, projectID string) ([]models.Task, error) {
	env, err := s.client.Get(ctx, "/tasks", url.Values{"project_id": {projectID}})
	if err != nil {
		if !api.IsUnavailable(err) {
			s.handler.HandleNetwork(err, "/tasks", "GET")
			return nil, fmt.Errorf("fetch tasks for project %s: %w", projectID, err)
		}
		s.offline("Using offline task data")
		return s.snapshot(projectID), nil
	}

	var wired []wireTask
	if err := env.Decode(&wired); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}

	tasks := make([]models.Task, len(wired))
	for i, w := range wired {
		tasks[i] = w.toModel()
	}

	// Merge: replace this project's slice of the cache, keep the rest
	s.mu.Lock()
	kept := s.cache[:0]
	for _, t := range s.cache {
		if t.ProjectID != projectID {
			kept = append(kept, t)
		}
	}
	s.cache = append(kept, tasks...)
	s.normalizeAllLocked()
	s.mu.Unlock()
	s.persistWarn()
	s.refreshCounts()

	return s.snapshot(projectID), nil
}

// Get returns one task by ID.
func (s *service) Get(ctx context.Context, id string) (*models.Task, error) {
	env, err := s.client.Get(ctx, "/tasks/"+id, nil)
	if err != nil {
		if !api.IsUnavailable(err) {
			if apiErr, ok := api.AsError(err); ok && apiErr.Status == 404 {
				return nil, s.notFound(id)
			}
			s.handler.HandleNetwork(err, "/tasks/"+id, "GET")
			return nil, fmt.Errorf("fetch task %s: %w", id, err)
		}
		s.offline("Using offline task data")
		if t := s.lookup(id); t != nil {
			return t, nil
		}
		return nil, s.notFound(id)
	}

	var w wireTask
	if err := env.Decode(&w); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}

	t := w.toModel()
	s.upsert(t)
	s.persistWarn()
	return &t, nil
}

// ============================================================================
// WRITE OPERATIONS
// ============================================================================

// Create adds a task at the end of its column. Offline creates get a
// local ID and land in the cache exactly like remote ones.
func (s *service) Create(ctx context.Context, req CreateTaskRequest) (*models.Task, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}

	status := models.StatusTodo
	if st, ok := models.ColumnStatus(req.ColumnID); ok {
		status = st
	}
	order := s.NextOrder(req.ProjectID, req.ColumnID)

	body := map[string]any{
		"title":       req.Title,
		"description": req.Description,
		"status":      status.Wire(),
		"priority":    req.Priority,
		"project_id":  req.ProjectID,
		"column_id":   req.ColumnID,
		"order":       order,
	}
	if req.AssigneeID != "" {
		body["assignee_id"] = req.AssigneeID
	}
	if req.DueDate != nil {
		body["due_date"] = req.DueDate
	}

	env, err := s.client.Post(ctx, "/tasks", body)
	if err != nil {
		if !api.IsUnavailable(err) {
			s.handler.HandleNetwork(err, "/tasks", "POST")
			return nil, fmt.Errorf("create task: %w", err)
		}
		s.offline("Task created offline, will sync later")
		now := time.Now()
		t := models.Task{
			ID:          models.NewLocalID(),
			Title:       req.Title,
			Description: req.Description,
			Status:      status,
			WireStatus:  status.Wire(),
			Priority:    req.Priority,
			ProjectID:   req.ProjectID,
			AssigneeID:  req.AssigneeID,
			DueDate:     req.DueDate,
			ColumnID:    req.ColumnID,
			Order:       order,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.upsert(t)
		if perr := s.persist(); perr != nil {
			return nil, s.storageFailure(perr)
		}
		s.refreshCounts()
		return &t, nil
	}

	var w wireTask
	if err := env.Decode(&w); err != nil {
		return nil, fmt.Errorf("decode created task: %w", err)
	}

	t := w.toModel()
	s.upsert(t)
	if perr := s.persist(); perr != nil {
		return nil, s.storageFailure(perr)
	}
	s.refreshCounts()
	return &t, nil
}

// Update patches a task, applying the change locally when offline.
func (s *service) Update(ctx context.Context, id string, req UpdateTaskRequest) (*models.Task, error) {
	if req.Title != nil {
		if *req.Title == "" {
			return nil, ErrEmptyTitle
		}
		if len(*req.Title) > models.MaxTitleLength {
			return nil, ErrTitleTooLong
		}
	}
	if req.Priority != nil && !models.ValidPriority(*req.Priority) {
		return nil, ErrInvalidPriority
	}

	body := map[string]any{}
	if req.Title != nil {
		body["title"] = *req.Title
	}
	if req.Description != nil {
		body["description"] = *req.Description
	}
	if req.Status != nil {
		body["status"] = req.Status.Wire()
	}
	if req.Priority != nil {
		body["priority"] = *req.Priority
	}
	if req.DueDate != nil {
		body["due_date"] = req.DueDate
	}

	env, err := s.client.Patch(ctx, "/tasks/"+id, body)
	if err != nil {
		if !api.IsUnavailable(err) {
			if apiErr, ok := api.AsError(err); ok && apiErr.Status == 404 {
				return nil, s.notFound(id)
			}
			s.handler.HandleNetwork(err, "/tasks/"+id, "PATCH")
			return nil, fmt.Errorf("update task %s: %w", id, err)
		}
		s.offline("Task updated offline, will sync later")
		t, merr := s.mutate(id, func(t *models.Task) {
			if req.Title != nil {
				t.Title = *req.Title
			}
			if req.Description != nil {
				t.Description = *req.Description
			}
			if req.Status != nil {
				t.Status = *req.Status
				t.WireStatus = req.Status.Wire()
			}
			if req.Priority != nil {
				t.Priority = *req.Priority
			}
			if req.DueDate != nil {
				t.DueDate = req.DueDate
			}
			t.UpdatedAt = time.Now()
		})
		if merr != nil {
			return nil, merr
		}
		s.refreshCounts()
		return t, nil
	}

	var w wireTask
	if err := env.Decode(&w); err != nil {
		return nil, fmt.Errorf("decode updated task: %w", err)
	}

	t := w.toModel()
	s.upsert(t)
	if perr := s.persist(); perr != nil {
		return nil, s.storageFailure(perr)
	}
	s.refreshCounts()
	return &t, nil
}

// Delete removes a task and closes the gap its order leaves behind.
func (s *service) Delete(ctx context.Context, id string) error {
	_, err := s.client.Delete(ctx, "/tasks/"+id)
	if err != nil {
		if !api.IsUnavailable(err) {
			if apiErr, ok := api.AsError(err); ok && apiErr.Status == 404 {
				return s.notFound(id)
			}
			s.handler.HandleNetwork(err, "/tasks/"+id, "DELETE")
			return fmt.Errorf("delete task %s: %w", id, err)
		}
		s.offline("Task deleted offline, will sync later")
	}

	s.mu.Lock()
	var removed *models.Task
	kept := s.cache[:0]
	for _, t := range s.cache {
		if t.ID == id {
			out := t
			removed = &out
			continue
		}
		kept = append(kept, t)
	}
	s.cache = kept
	if removed != nil {
		s.normalizeColumnLocked(removed.ProjectID, removed.ColumnID)
	}
	s.mu.Unlock()

	if removed == nil && err != nil {
		return s.notFound(id)
	}
	if perr := s.persist(); perr != nil {
		return s.storageFailure(perr)
	}
	s.refreshCounts()
	return nil
}

// ============================================================================
// TASK MOVEMENTS
// ============================================================================

// Move inserts the task at position within columnID, shifting every
// task at or after that position up by one and compacting the column
// it left. Cross-column moves also update the task's status from the
// destination column.
func (s *service) Move(ctx context.Context, id, columnID string, position int) (*models.Task, error) {
	if columnID == "" {
		return nil, ErrEmptyColumnID
	}
	if position < 0 {
		return nil, ErrInvalidPosition
	}

	body := map[string]any{"column_id": columnID, "order": position}
	if st, ok := models.ColumnStatus(columnID); ok {
		body["status"] = st.Wire()
	}

	env, err := s.client.Patch(ctx, "/tasks/"+id, body)
	if err != nil {
		if !api.IsUnavailable(err) {
			if apiErr, ok := api.AsError(err); ok && apiErr.Status == 404 {
				return nil, s.notFound(id)
			}
			s.handler.HandleNetwork(err, "/tasks/"+id, "PATCH")
			return nil, fmt.Errorf("move task %s: %w", id, err)
		}
		s.offline("Task moved offline, will sync later")
	} else {
		// A server-confirmed move of a task the cache has never seen
		// (cold cache) still has to land locally; the response carries
		// the full task.
		var w wireTask
		if derr := env.Decode(&w); derr == nil && w.ID == id {
			s.ensureCached(w.toModel())
		}
	}

	// The local reorder is authoritative for ordering either way: the
	// invariant must hold for both columns before returning.
	s.mu.Lock()
	idx := -1
	for i := range s.cache {
		if s.cache[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil, s.notFound(id)
	}

	moved := &s.cache[idx]
	fromColumn := moved.ColumnID
	moved.ColumnID = columnID
	if st, ok := models.ColumnStatus(columnID); ok {
		moved.Status = st
		moved.WireStatus = st.Wire()
	}
	moved.UpdatedAt = time.Now()

	if fromColumn != columnID {
		s.normalizeColumnLocked(moved.ProjectID, fromColumn)
	}
	s.placeLocked(moved.ProjectID, columnID, id, position)

	out := s.cache[idx]
	s.mu.Unlock()

	if perr := s.persist(); perr != nil {
		return nil, s.storageFailure(perr)
	}
	s.refreshCounts()
	return &out, nil
}

// Assign sets the task's assignee.
func (s *service) Assign(ctx context.Context, id, assigneeID string) (*models.Task, error) {
	if assigneeID == "" {
		return nil, ErrEmptyAssigneeID
	}

	_, err := s.client.Patch(ctx, "/tasks/"+id, map[string]any{"assignee_id": assigneeID})
	if err != nil {
		if !api.IsUnavailable(err) {
			if apiErr, ok := api.AsError(err); ok && apiErr.Status == 404 {
				return nil, s.notFound(id)
			}
			s.handler.HandleNetwork(err, "/tasks/"+id, "PATCH")
			return nil, fmt.Errorf("assign task %s: %w", id, err)
		}
		s.offline("Task assigned offline, will sync later")
	}

	return s.mutate(id, func(t *models.Task) {
		t.AssigneeID = assigneeID
		t.UpdatedAt = time.Now()
	})
}

// NextOrder returns max(order)+1 within the column, or 0 when empty.
func (s *service) NextOrder(projectID, columnID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := 0
	for _, t := range s.cache {
		if t.ProjectID == projectID && t.ColumnID == columnID && t.Order >= next {
			next = t.Order + 1
		}
	}
	return next
}

// ============================================================================
// ORDERING
// ============================================================================

// columnIndexesLocked returns cache indexes of the column's tasks,
// sorted by their current order.
func (s *service) columnIndexesLocked(projectID, columnID string) []int {
	var idxs []int
	for i := range s.cache {
		if s.cache[i].ProjectID == projectID && s.cache[i].ColumnID == columnID {
			idxs = append(idxs, i)
		}
	}
	sort.SliceStable(idxs, func(a, b int) bool {
		return s.cache[idxs[a]].Order < s.cache[idxs[b]].Order
	})
	return idxs
}

// normalizeColumnLocked reassigns the column's orders to 0..n-1,
// preserving relative order.
func (s *service) normalizeColumnLocked(projectID, columnID string) {
	for pos, i := range s.columnIndexesLocked(projectID, columnID) {
		s.cache[i].Order = pos
	}
}

// normalizeAllLocked restores the invariant for every column present
// in the cache. Server data is not trusted to be dense.
func (s *service) normalizeAllLocked() {
	type key struct{ project, column string }
	seen := map[key]bool{}
	for i := range s.cache {
		k := key{s.cache[i].ProjectID, s.cache[i].ColumnID}
		if seen[k] {
			continue
		}
		seen[k] = true
		s.normalizeColumnLocked(k.project, k.column)
	}
}

// placeLocked puts taskID at position within the column and reassigns
// the column's orders densely around it. position is clamped to the
// column's bounds.
func (s *service) placeLocked(projectID, columnID, taskID string, position int) {
	idxs := s.columnIndexesLocked(projectID, columnID)

	others := make([]int, 0, len(idxs))
	movedIdx := -1
	for _, i := range idxs {
		if s.cache[i].ID == taskID {
			movedIdx = i
			continue
		}
		others = append(others, i)
	}
	if movedIdx < 0 {
		return
	}

	if position > len(others) {
		position = len(others)
	}

	pos := 0
	for _, i := range others {
		if pos == position {
			pos++
		}
		s.cache[i].Order = pos
		pos++
	}
	s.cache[movedIdx].Order = position
}

// ============================================================================
// CACHE MAINTENANCE
// ============================================================================

// snapshot copies the cache, filtered by project when projectID is
// non-empty, seeding fixtures first if the cache is empty.
func (s *service) snapshot(projectID string) []models.Task {
	s.mu.Lock()
	if len(s.cache) == 0 {
		s.cache = fixtureTasks()
	}
	var out []models.Task
	for _, t := range s.cache {
		if projectID == "" || t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	s.mu.Unlock()
	return out
}

func (s *service) lookup(id string) *models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.cache {
		if t.ID == id {
			out := t
			return &out
		}
	}
	return nil
}

func (s *service) upsert(t models.Task) {
	s.mu.Lock()
	replaced := false
	for i := range s.cache {
		if s.cache[i].ID == t.ID {
			s.cache[i] = t
			replaced = true
			break
		}
	}
	if !replaced {
		s.cache = append(s.cache, t)
	}
	s.normalizeColumnLocked(t.ProjectID, t.ColumnID)
	s.mu.Unlock()
}

// ensureCached appends the task only when the cache has no entry for
// its ID; existing entries win, since local state may be newer.
func (s *service) ensureCached(t models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cache {
		if s.cache[i].ID == t.ID {
			return
		}
	}
	s.cache = append(s.cache, t)
}

func (s *service) mutate(id string, fn func(*models.Task)) (*models.Task, error) {
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
// propagate the error; reads use persistWarn, since a failed cache
// write must not fail a read that already has its data.
func (s *service) persist() error {
	s.mu.Lock()
	snapshot := make([]models.Task, len(s.cache))
	copy(snapshot, s.cache)
	s.mu.Unlock()

	if err := s.store.Set(storage.KeyTasks, snapshot); err != nil {
		return fmt.Errorf("persist task cache: %w", err)
	}
	return nil
}

func (s *service) persistWarn() {
	if err := s.persist(); err != nil {
		slog.Warn("Failed to persist task cache", "error", err)
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

// refreshCounts pushes per-project task counters to the project
// service.
func (s *service) refreshCounts() {
	if s.counter == nil {
		return
	}

	type counts struct{ total, completed int }
	s.mu.Lock()
	perProject := map[string]*counts{}
	for _, t := range s.cache {
		c := perProject[t.ProjectID]
		if c == nil {
			c = &counts{}
			perProject[t.ProjectID] = c
		}
		c.total++
		if t.Status == models.StatusDone {
			c.completed++
		}
	}
	s.mu.Unlock()

	for id, c := range perProject {
		s.counter.SetTaskCounts(id, c.total, c.completed)
	}
}

func (s *service) offline(message string) {
	if s.notifier != nil {
		s.notifier.Notify(notifications.Warning, message)
	}
	slog.Warn(message)
}

func (s *service) notFound(id string) error {
	s.handler.HandleBusiness("Task not found", "NOT_FOUND", map[string]any{"task_id": id})
	return fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
}

func validateCreate(req CreateTaskRequest) error {
	if req.Title == "" {
		return ErrEmptyTitle
	}
	if len(req.Title) > models.MaxTitleLength {
		return ErrTitleTooLong
	}
	if req.ProjectID == "" {
		return ErrEmptyProjectID
	}
	if req.ColumnID == "" {
		return ErrEmptyColumnID
	}
	if req.Priority != "" && !models.ValidPriority(req.Priority) {
		return ErrInvalidPriority
	}
	return nil
}

// fixtureTasks seeds the cache on an offline cold start.
func fixtureTasks() []models.Task {
	now := time.Now()
	return []models.Task{
		{
			ID:         "fixture-task-1",
			Title:      "Explore the board",
			Status:     models.StatusTodo,
			WireStatus: models.WireTodo,
			Priority:   models.PriorityMedium,
			ProjectID:  "fixture-project-1",
			ColumnID:   models.ColumnTodo,
			Order:      0,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		{
			ID:         "fixture-task-2",
			Title:      "Create your first task",
			Status:     models.StatusTodo,
			WireStatus: models.WireTodo,
			Priority:   models.PriorityLow,
			ProjectID:  "fixture-project-1",
			ColumnID:   models.ColumnTodo,
			Order:      1,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}
}
