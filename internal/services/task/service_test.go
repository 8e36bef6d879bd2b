package task

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/igebriel/taskweave/internal/api"
	"github.com/igebriel/taskweave/internal/errorhandling"
	"github.com/igebriel/taskweave/internal/models"
	"github.com/igebriel/taskweave/internal/notifications"
	"github.com/igebriel/taskweave/internal/storage"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func setupStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// setupOfflineService wires a task service against a dead endpoint so
// every operation exercises the fallback path.
func setupOfflineService(t *testing.T) (Service, *notifications.Recorder) {
	t.Helper()
	store := setupStore(t)
	recorder := &notifications.Recorder{}
	eh := errorhandling.NewHandler(errorhandling.Options{})
	client := api.NewClient("http://127.0.0.1:1")
	return NewService(client, store, eh, recorder, nil), recorder
}

func setupService(t *testing.T, handler http.Handler) Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := setupStore(t)
	eh := errorhandling.NewHandler(errorhandling.Options{})
	client := api.NewClient(srv.URL)
	return NewService(client, store, eh, &notifications.Recorder{}, nil)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("Failed to encode response: %v", err)
	}
}

func mustCreate(t *testing.T, svc Service, title, projectID, columnID string) *models.Task {
	t.Helper()
	task, err := svc.Create(context.Background(), CreateTaskRequest{
		Title:     title,
		ProjectID: projectID,
		ColumnID:  columnID,
	})
	if err != nil {
		t.Fatalf("Failed to create task %q: %v", title, err)
	}
	return task
}

// columnOrders returns the order values for a column, indexed by
// position, asserting density along the way.
func columnOrders(t *testing.T, svc Service, projectID, columnID string) map[int]models.Task {
	t.Helper()
	tasks, err := svc.GetByProject(context.Background(), projectID)
	if err != nil {
		t.Fatalf("GetByProject failed: %v", err)
	}

	byOrder := map[int]models.Task{}
	for _, task := range tasks {
		if task.ColumnID != columnID {
			continue
		}
		if _, dup := byOrder[task.Order]; dup {
			t.Fatalf("Duplicate order %d in column %s", task.Order, columnID)
		}
		byOrder[task.Order] = task
	}
	for i := 0; i < len(byOrder); i++ {
		if _, ok := byOrder[i]; !ok {
			t.Fatalf("Gap at order %d in column %s: %v", i, columnID, byOrder)
		}
	}
	return byOrder
}

// ============================================================================
// WIRE TRANSLATION
// ============================================================================

func TestGetAllTranslatesWireStatus(t *testing.T) {
	t.Parallel()

	svc := setupService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"success": true, "data": []map[string]any{
			{"id": "t1", "title": "a", "project_id": "p1", "column_id": "todo", "order": 0, "status": "in_progress"},
			{"id": "t2", "title": "b", "project_id": "p1", "column_id": "todo", "order": 1, "status": "cancelled"},
		}})
	}))

	tasks, err := svc.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(tasks))
	}

	byID := map[string]models.Task{}
	for _, task := range tasks {
		byID[task.ID] = task
	}

	if byID["t1"].Status != models.StatusProgress {
		t.Errorf("Expected in_progress -> progress, got %q", byID["t1"].Status)
	}
	// Cancelled lands in todo but the wire value survives on the side
	if byID["t2"].Status != models.StatusTodo || byID["t2"].WireStatus != models.WireCancelled {
		t.Errorf("Expected cancelled preserved, got status=%q wire=%q", byID["t2"].Status, byID["t2"].WireStatus)
	}
}

func TestCreateSendsWireVocabulary(t *testing.T) {
	t.Parallel()

	svc := setupService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["status"] != "in_progress" {
			t.Errorf("Expected wire status in_progress, got %v", body["status"])
		}
		writeJSON(t, w, map[string]any{"success": true, "data": map[string]any{
			"id": "t1", "title": "a", "project_id": "p1", "column_id": "in-progress", "order": 0, "status": "in_progress",
		}})
	}))

	task := mustCreate(t, svc, "a", "p1", models.ColumnInProgress)
	if task.Status != models.StatusProgress {
		t.Errorf("Expected progress status, got %q", task.Status)
	}
}

// ============================================================================
// VALIDATION
// ============================================================================

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	svc, _ := setupOfflineService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  CreateTaskRequest
		want error
	}{
		{"empty title", CreateTaskRequest{ProjectID: "p1", ColumnID: "todo"}, ErrEmptyTitle},
		{"missing project", CreateTaskRequest{Title: "a", ColumnID: "todo"}, ErrEmptyProjectID},
		{"missing column", CreateTaskRequest{Title: "a", ProjectID: "p1"}, ErrEmptyColumnID},
		{"bad priority", CreateTaskRequest{Title: "a", ProjectID: "p1", ColumnID: "todo", Priority: "urgent"}, ErrInvalidPriority},
	}

	for _, tc := range cases {
		if _, err := svc.Create(ctx, tc.req); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

// ============================================================================
// OFFLINE FALLBACK
// ============================================================================

func TestCreateOfflineTransparent(t *testing.T) {
	t.Parallel()

	svc, recorder := setupOfflineService(t)

	task := mustCreate(t, svc, "Design homepage", "p1", models.ColumnTodo)
	if task.ID == "" || task.CreatedAt.IsZero() {
		t.Errorf("Offline create returned incomplete task: %+v", task)
	}
	if task.Priority != models.PriorityMedium {
		t.Errorf("Expected default priority, got %q", task.Priority)
	}
	if task.Order != 0 {
		t.Errorf("Expected first task at order 0, got %d", task.Order)
	}

	// Retrievable via a subsequent GetAll, same as a remote create
	tasks, err := svc.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	seen := false
	for _, got := range tasks {
		if got.ID == task.ID {
			seen = true
		}
	}
	if !seen {
		t.Error("Offline-created task not retrievable via GetAll")
	}

	if len(recorder.Notes()) == 0 {
		t.Error("Expected an offline warning notification")
	}
}

func TestGetAllOfflineSeedsFixtures(t *testing.T) {
	t.Parallel()

	svc, _ := setupOfflineService(t)

	tasks, err := svc.GetAll(context.Background())
	if err != nil {
		t.Fatalf("Expected fallback, got %v", err)
	}
	if len(tasks) == 0 {
		t.Fatal("Expected fixture tasks on an offline cold start")
	}
}

func TestOfflineLocalIDsDistinct(t *testing.T) {
	t.Parallel()

	svc, _ := setupOfflineService(t)

	a := mustCreate(t, svc, "one", "p1", models.ColumnTodo)
	b := mustCreate(t, svc, "two", "p1", models.ColumnTodo)
	if a.ID == b.ID {
		t.Fatalf("Two offline creates shared ID %q", a.ID)
	}
	if b.Order != a.Order+1 {
		t.Errorf("Expected sequential orders, got %d then %d", a.Order, b.Order)
	}
}

// ============================================================================
// ORDERING
// ============================================================================

func TestNextOrder(t *testing.T) {
	t.Parallel()

	svc, _ := setupOfflineService(t)

	if got := svc.NextOrder("p1", models.ColumnTodo); got != 0 {
		t.Errorf("Expected 0 for empty column, got %d", got)
	}

	mustCreate(t, svc, "one", "p1", models.ColumnTodo)
	mustCreate(t, svc, "two", "p1", models.ColumnTodo)

	if got := svc.NextOrder("p1", models.ColumnTodo); got != 2 {
		t.Errorf("Expected 2 after two creates, got %d", got)
	}
	if got := svc.NextOrder("p1", models.ColumnDone); got != 0 {
		t.Errorf("Expected 0 for untouched column, got %d", got)
	}
}

// The board scenario: two tasks in todo, the first moves to the front
// of in-progress. Each column must end up dense from 0.
func TestMoveAcrossColumns(t *testing.T) {
	t.Parallel()

	svc, _ := setupOfflineService(t)

	first := mustCreate(t, svc, "Design homepage", "p1", models.ColumnTodo)
	second := mustCreate(t, svc, "Write copy", "p1", models.ColumnTodo)

	moved, err := svc.Move(context.Background(), first.ID, models.ColumnInProgress, 0)
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if moved.ColumnID != models.ColumnInProgress || moved.Order != 0 {
		t.Errorf("Expected task at in-progress[0], got %s[%d]", moved.ColumnID, moved.Order)
	}
	if moved.Status != models.StatusProgress {
		t.Errorf("Expected status updated by column, got %q", moved.Status)
	}

	todo := columnOrders(t, svc, "p1", models.ColumnTodo)
	if len(todo) != 1 || todo[0].ID != second.ID {
		t.Errorf("Expected todo to hold only the second task at 0, got %v", todo)
	}

	progress := columnOrders(t, svc, "p1", models.ColumnInProgress)
	if len(progress) != 1 || progress[0].ID != first.ID {
		t.Errorf("Expected in-progress to hold the first task at 0, got %v", progress)
	}
}

func TestMoveWithinColumn(t *testing.T) {
	t.Parallel()

	svc, _ := setupOfflineService(t)

	a := mustCreate(t, svc, "a", "p1", models.ColumnTodo)
	b := mustCreate(t, svc, "b", "p1", models.ColumnTodo)
	c := mustCreate(t, svc, "c", "p1", models.ColumnTodo)

	// Move the last task to the front
	if _, err := svc.Move(context.Background(), c.ID, models.ColumnTodo, 0); err != nil {
		t.Fatalf("Move failed: %v", err)
	}

	todo := columnOrders(t, svc, "p1", models.ColumnTodo)
	if todo[0].ID != c.ID || todo[1].ID != a.ID || todo[2].ID != b.ID {
		t.Errorf("Expected order c, a, b after move, got %v, %v, %v", todo[0].ID, todo[1].ID, todo[2].ID)
	}
}

func TestMovePositionClamped(t *testing.T) {
	t.Parallel()

	svc, _ := setupOfflineService(t)

	a := mustCreate(t, svc, "a", "p1", models.ColumnTodo)
	mustCreate(t, svc, "b", "p1", models.ColumnTodo)

	moved, err := svc.Move(context.Background(), a.ID, models.ColumnTodo, 99)
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if moved.Order != 1 {
		t.Errorf("Expected position clamped to end (1), got %d", moved.Order)
	}
	columnOrders(t, svc, "p1", models.ColumnTodo)
}

func TestDeleteClosesGap(t *testing.T) {
	t.Parallel()

	svc, _ := setupOfflineService(t)

	a := mustCreate(t, svc, "a", "p1", models.ColumnTodo)
	b := mustCreate(t, svc, "b", "p1", models.ColumnTodo)
	c := mustCreate(t, svc, "c", "p1", models.ColumnTodo)

	if err := svc.Delete(context.Background(), b.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	todo := columnOrders(t, svc, "p1", models.ColumnTodo)
	if len(todo) != 2 || todo[0].ID != a.ID || todo[1].ID != c.ID {
		t.Errorf("Expected a at 0 and c at 1 after delete, got %v", todo)
	}
}

// ============================================================================
// UPDATE / ASSIGN
// ============================================================================

func TestUpdateOffline(t *testing.T) {
	t.Parallel()

	svc, _ := setupOfflineService(t)

	task := mustCreate(t, svc, "before", "p1", models.ColumnTodo)

	title := "after"
	status := models.StatusDone
	updated, err := svc.Update(context.Background(), task.ID, UpdateTaskRequest{Title: &title, Status: &status})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Title != "after" || updated.Status != models.StatusDone {
		t.Errorf("Unexpected update result: %+v", updated)
	}
	if updated.WireStatus != models.WireCompleted {
		t.Errorf("Expected wire status completed, got %q", updated.WireStatus)
	}
}

func TestAssignOffline(t *testing.T) {
	t.Parallel()

	svc, _ := setupOfflineService(t)

	task := mustCreate(t, svc, "a", "p1", models.ColumnTodo)

	assigned, err := svc.Assign(context.Background(), task.ID, "u7")
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if assigned.AssigneeID != "u7" {
		t.Errorf("Expected assignee u7, got %q", assigned.AssigneeID)
	}

	if _, err := svc.Assign(context.Background(), task.ID, ""); !errors.Is(err, ErrEmptyAssigneeID) {
		t.Errorf("Expected ErrEmptyAssigneeID, got %v", err)
	}
}

func TestMutationsOnUnknownTask(t *testing.T) {
	t.Parallel()

	svc, _ := setupOfflineService(t)
	mustCreate(t, svc, "a", "p1", models.ColumnTodo)
	ctx := context.Background()

	if _, err := svc.Move(ctx, "ghost", models.ColumnDone, 0); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Move: expected ErrTaskNotFound, got %v", err)
	}
	if _, err := svc.Assign(ctx, "ghost", "u1"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Assign: expected ErrTaskNotFound, got %v", err)
	}
	title := "x"
	if _, err := svc.Update(ctx, "ghost", UpdateTaskRequest{Title: &title}); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Update: expected ErrTaskNotFound, got %v", err)
	}
}

// ============================================================================
// PROJECT COUNTERS
// ============================================================================

type countRecorder struct {
	total     map[string]int
	completed map[string]int
}

func (c *countRecorder) SetTaskCounts(id string, total, completed int) {
	if c.total == nil {
		c.total = map[string]int{}
		c.completed = map[string]int{}
	}
	c.total[id] = total
	c.completed[id] = completed
}

func TestTaskCountsPushedToProjects(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	counter := &countRecorder{}
	eh := errorhandling.NewHandler(errorhandling.Options{})
	svc := NewService(api.NewClient("http://127.0.0.1:1"), store, eh, nil, counter)

	mustCreate(t, svc, "a", "p1", models.ColumnTodo)
	task := mustCreate(t, svc, "b", "p1", models.ColumnTodo)

	if counter.total["p1"] != 2 || counter.completed["p1"] != 0 {
		t.Fatalf("Expected (2, 0), got (%d, %d)", counter.total["p1"], counter.completed["p1"])
	}

	if _, err := svc.Move(context.Background(), task.ID, models.ColumnDone, 0); err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if counter.total["p1"] != 2 || counter.completed["p1"] != 1 {
		t.Errorf("Expected (2, 1) after move to done, got (%d, %d)", counter.total["p1"], counter.completed["p1"])
	}
}

// ============================================================================
// PERSISTENCE
// ============================================================================

func TestCacheSurvivesRestart(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	eh := errorhandling.NewHandler(errorhandling.Options{})
	client := api.NewClient("http://127.0.0.1:1")

	svc := NewService(client, store, eh, nil, nil)
	task := mustCreate(t, svc, "persisted", "p1", models.ColumnTodo)

	// A fresh service over the same store sees the offline-created task
	svc2 := NewService(client, store, eh, nil, nil)
	tasks, err := svc2.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	seen := false
	for _, got := range tasks {
		if got.ID == task.ID && got.Title == "persisted" {
			seen = true
		}
	}
	if !seen {
		t.Error("Expected offline-created task to survive a restart")
	}
}

func TestMutationsSurfacePersistFailure(t *testing.T) {
	t.Parallel()

	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	if err := store.Set(storage.KeyTasks, []models.Task{{
		ID:        "t1",
		Title:     "Cached",
		Status:    models.StatusTodo,
		ProjectID: "p1",
		ColumnID:  models.ColumnTodo,
	}}); err != nil {
		t.Fatalf("Failed to seed store: %v", err)
	}

	recorder := &notifications.Recorder{}
	eh := errorhandling.NewHandler(errorhandling.Options{Notifier: recorder})
	svc := NewService(api.NewClient("http://127.0.0.1:1"), store, eh, recorder, nil)

	// Every write from here on hits a dead store
	if err := store.Close(); err != nil {
		t.Fatalf("Failed to close store: %v", err)
	}

	if _, err := svc.Create(context.Background(), CreateTaskRequest{
		Title:     "Unsaved",
		ProjectID: "p1",
		ColumnID:  models.ColumnTodo,
	}); err == nil {
		t.Fatal("Expected create to fail when the cache cannot be written")
	}

	if _, err := svc.Move(context.Background(), "t1", models.ColumnDone, 0); err == nil {
		t.Fatal("Expected move to fail when the cache cannot be written")
	}

	storageNote := false
	for _, note := range recorder.Notes() {
		if note.Severity == notifications.Error {
			storageNote = true
		}
	}
	if !storageNote {
		t.Error("Expected a storage failure notification")
	}
}

// Moving a task the cache has never seen succeeds when the server
// confirms the move: the response payload seeds the cache entry.
func TestMoveRemoteOnlyTask(t *testing.T) {
	t.Parallel()

	svc := setupService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/tasks/t9" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		writeJSON(t, w, map[string]any{"success": true, "data": map[string]any{
			"id":         "t9",
			"title":      "Ship it",
			"project_id": "p1",
			"column_id":  "in-progress",
			"order":      0,
			"status":     "in_progress",
		}})
	}))

	moved, err := svc.Move(context.Background(), "t9", models.ColumnInProgress, 0)
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if moved.ColumnID != models.ColumnInProgress || moved.Order != 0 {
		t.Errorf("Unexpected placement: column=%s order=%d", moved.ColumnID, moved.Order)
	}
	if moved.Status != models.StatusProgress {
		t.Errorf("Expected translated status, got %s", moved.Status)
	}
}
