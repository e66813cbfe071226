package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/valter-silva-au/site-planner/pkg/models"
)

// memStore is an in-memory PlanningStore for service tests.
type memStore struct {
	tasks   map[string]models.Task
	alerts  map[string]models.Alert
	diary   []models.DiaryEntry
	nextID  int
	failOps map[string]error
	writes  int
}

func newMemStore(tasks ...models.Task) *memStore {
	s := &memStore{
		tasks:   make(map[string]models.Task),
		alerts:  make(map[string]models.Alert),
		failOps: make(map[string]error),
	}
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	return s
}

func (s *memStore) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *memStore) ListTasks(_ context.Context, projectID string) ([]models.Task, error) {
	if err := s.failOps["ListTasks"]; err != nil {
		return nil, err
	}
	var out []models.Task
	for _, t := range s.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out, nil
}

func (s *memStore) GetTask(_ context.Context, id string) (*models.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, &NotFoundError{Kind: "task", ID: id}
	}
	return &t, nil
}

func (s *memStore) InsertTask(_ context.Context, task models.Task) (*models.Task, error) {
	if err := s.failOps["InsertTask"]; err != nil {
		return nil, err
	}
	s.writes++
	task.ID = s.id("task")
	s.tasks[task.ID] = task
	return &task, nil
}

func (s *memStore) UpdateTask(_ context.Context, id string, update models.TaskUpdate) error {
	t, ok := s.tasks[id]
	if !ok {
		return &NotFoundError{Kind: "task", ID: id}
	}
	s.writes++
	s.tasks[id] = update.Apply(t)
	return nil
}

func (s *memStore) DeleteTask(_ context.Context, id string) error {
	if _, ok := s.tasks[id]; !ok {
		return &NotFoundError{Kind: "task", ID: id}
	}
	s.writes++
	delete(s.tasks, id)
	return nil
}

func (s *memStore) ListOpenAlerts(_ context.Context, projectID string) ([]models.Alert, error) {
	var out []models.Alert
	for _, a := range s.alerts {
		if a.ProjectID == projectID && !a.Resolved {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) InsertAlert(_ context.Context, alert models.Alert) (*models.Alert, error) {
	s.writes++
	alert.ID = s.id("alert")
	s.alerts[alert.ID] = alert
	return &alert, nil
}

func (s *memStore) ResolveAlert(_ context.Context, id string, at time.Time) (*models.Alert, error) {
	a, ok := s.alerts[id]
	if !ok {
		return nil, &NotFoundError{Kind: "alert", ID: id}
	}
	if !a.Resolved {
		s.writes++
		a.Resolved = true
		a.ResolvedAt = &at
		s.alerts[id] = a
	}
	return &a, nil
}

func (s *memStore) ListProjectIDs(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, t := range s.tasks {
		if !seen[t.ProjectID] {
			seen[t.ProjectID] = true
			out = append(out, t.ProjectID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *memStore) InsertDiaryEntry(_ context.Context, e models.DiaryEntry) (*models.DiaryEntry, error) {
	s.writes++
	e.ID = s.id("diary")
	s.diary = append(s.diary, e)
	return &e, nil
}

func (s *memStore) ListDiaryEntries(_ context.Context, projectID string) ([]models.DiaryEntry, error) {
	var out []models.DiaryEntry
	for _, e := range s.diary {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	return out, nil
}

// recordingEvents captures logged events.
type recordingEvents struct {
	types []string
}

func (r *recordingEvents) LogEvent(eventType string, _ map[string]any) error {
	r.types = append(r.types, eventType)
	return nil
}

// mockNotifier records notified alerts and can fail on demand.
type mockNotifier struct {
	notified []models.Alert
	err      error
}

func (m *mockNotifier) Notify(_ context.Context, alerts []models.Alert) error {
	m.notified = append(m.notified, alerts...)
	return m.err
}

func newTestService(store *memStore, policy AlertPolicy, notifier AlertNotifier, events EventLogger, now time.Time) PlanningService {
	svc := NewPlanningService(store, nil, policy, notifier, events, nil)
	svc.(*planningService).now = func() time.Time { return now }
	return svc
}

var jan15 = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func TestPlanningService_Refresh(t *testing.T) {
	a := newTask("a", "2024-01-01", "2024-01-10")
	a.Progress = 100
	a.Status = models.StatusInProgress
	b := newTask("b", "2024-01-05", "2024-02-10")
	other := newTask("x", "2024-01-01", "2024-01-02")
	other.ProjectID = "proj-2"
	store := newMemStore(a, b, other)

	svc := newTestService(store, AlertPolicy{}, nil, nil, jan15)
	snap, err := svc.Refresh(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if snap.Summary.TotalTasks != 2 || snap.Summary.GlobalProgress != 50 {
		t.Errorf("summary = %+v, want 2 tasks at 50%%", snap.Summary)
	}
	if snap.Start.String() != "2024-01-01" || snap.End.String() != "2024-02-10" {
		t.Errorf("window = %s..%s", snap.Start, snap.End)
	}
	if len(snap.Issues) != 1 || snap.Issues[0].TaskID != "a" {
		t.Errorf("expected consistency issue on a, got %+v", snap.Issues)
	}
	if len(snap.Phases) != len(PhaseOrder) {
		t.Errorf("expected %d phase summaries, got %d", len(PhaseOrder), len(snap.Phases))
	}
}

func TestPlanningService_RefreshRejectsCorruptRow(t *testing.T) {
	bad := newTask("bad", "2024-01-10", "2024-01-01")
	svc := newTestService(newMemStore(bad), AlertPolicy{}, nil, nil, jan15)

	if _, err := svc.Refresh(context.Background(), "proj-1"); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestPlanningService_DetectAlertsRejectsCorruptRow(t *testing.T) {
	bad := newTask("inverted", "2024-03-10", "2024-01-05")
	store := newMemStore(bad)
	events := &recordingEvents{}
	svc := newTestService(store, AlertPolicy{}, nil, events, jan15)

	if _, err := svc.DetectAlerts(context.Background(), "proj-1"); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	if len(store.alerts) != 0 {
		t.Errorf("no alert should be stored for an invalid row, got %d", len(store.alerts))
	}
	if store.writes != 0 {
		t.Errorf("expected no store writes, got %d", store.writes)
	}
}

func TestPlanningService_RefreshWrapsStoreErrors(t *testing.T) {
	store := newMemStore()
	store.failOps["ListTasks"] = errors.New("connection refused")
	svc := newTestService(store, AlertPolicy{}, nil, nil, jan15)

	_, err := svc.Refresh(context.Background(), "proj-1")
	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StoreError, got %T: %v", err, err)
	}
}

func TestPlanningService_CreateTaskValidatesBeforeWrite(t *testing.T) {
	store := newMemStore()
	events := &recordingEvents{}
	svc := newTestService(store, AlertPolicy{}, nil, events, jan15)

	bad := newTask("", "2024-01-10", "2024-01-01")
	if _, err := svc.CreateTask(context.Background(), bad); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.writes != 0 {
		t.Errorf("store written %d times for invalid task", store.writes)
	}

	good := newTask("", "2024-01-01", "2024-01-10")
	good.Phase = phasePtr("gros_oeuvre")
	created, err := svc.CreateTask(context.Background(), good)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if created.ID == "" {
		t.Error("expected store-assigned ID")
	}
	if created.Phase == nil || *created.Phase != models.PhaseGrosOeuvre {
		t.Errorf("phase = %v, want gros_oeuvre", created.Phase)
	}
	if len(events.types) != 1 || events.types[0] != "task.created" {
		t.Errorf("events = %v, want [task.created]", events.types)
	}
}

func TestPlanningService_UpdateTaskValidatesMergedTask(t *testing.T) {
	store := newMemStore(newTask("a", "2024-01-01", "2024-01-10"))
	svc := newTestService(store, AlertPolicy{}, nil, nil, jan15)
	ctx := context.Background()

	end := models.NewDate(2023, 12, 1)
	if err := svc.UpdateTask(ctx, "a", models.TaskUpdate{EndDate: &end}); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	if err := svc.UpdateProgress(ctx, "a", 120); !errors.Is(err, ErrInvalidProgress) {
		t.Fatalf("expected ErrInvalidProgress, got %v", err)
	}
	if store.writes != 0 {
		t.Errorf("invalid updates reached the store %d times", store.writes)
	}

	if err := svc.UpdateProgress(ctx, "a", 60); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	if err := svc.SetStatus(ctx, "a", models.StatusInProgress); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	got := store.tasks["a"]
	if got.Progress != 60 || got.Status != models.StatusInProgress {
		t.Errorf("task after update = %d%% %s", got.Progress, got.Status)
	}
}

func TestPlanningService_UpdateAndDeleteMissingTask(t *testing.T) {
	svc := newTestService(newMemStore(), AlertPolicy{}, nil, nil, jan15)
	ctx := context.Background()

	if err := svc.UpdateProgress(ctx, "nope", 10); !IsNotFound(err) {
		t.Errorf("update: expected not found, got %v", err)
	}
	if err := svc.DeleteTask(ctx, "nope"); !IsNotFound(err) {
		t.Errorf("delete: expected not found, got %v", err)
	}
}

func TestPlanningService_MutateThenRefresh(t *testing.T) {
	store := newMemStore(newTask("a", "2024-01-01", "2024-01-10"), newTask("b", "2024-01-01", "2024-01-10"))
	svc := newTestService(store, AlertPolicy{}, nil, nil, jan15)
	ctx := context.Background()

	before, err := svc.Refresh(ctx, "proj-1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if before.Summary.GlobalProgress != 0 {
		t.Fatalf("initial progress = %d", before.Summary.GlobalProgress)
	}

	if err := svc.UpdateProgress(ctx, "a", 100); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	after, err := svc.Refresh(ctx, "proj-1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if after.Summary.GlobalProgress != 50 {
		t.Errorf("progress after refresh = %d, want 50", after.Summary.GlobalProgress)
	}
}

func TestPlanningService_DetectAlertsIsIdempotent(t *testing.T) {
	task := newTask("t1", "2024-01-01", "2024-01-10")
	task.Status = models.StatusInProgress
	store := newMemStore(task)
	notifier := &mockNotifier{}
	events := &recordingEvents{}
	svc := newTestService(store, AlertPolicy{}, notifier, events, jan15)
	ctx := context.Background()

	first, err := svc.DetectAlerts(ctx, "proj-1")
	if err != nil {
		t.Fatalf("DetectAlerts: %v", err)
	}
	if len(first.Raised) != 1 || first.Raised[0].Type != models.AlertDelay {
		t.Fatalf("expected one delay alert, got %+v", first.Raised)
	}
	if first.Raised[0].ID == "" {
		t.Error("raised alert should carry the store-assigned ID")
	}

	second, err := svc.DetectAlerts(ctx, "proj-1")
	if err != nil {
		t.Fatalf("DetectAlerts: %v", err)
	}
	if len(second.Raised) != 0 {
		t.Errorf("second pass raised %d alerts", len(second.Raised))
	}
	if len(store.alerts) != 1 {
		t.Errorf("store holds %d alerts, want 1", len(store.alerts))
	}
	if len(notifier.notified) != 1 {
		t.Errorf("notified %d alerts, want 1", len(notifier.notified))
	}
}

func TestPlanningService_DetectAlertsNotifierFailureIsNotFatal(t *testing.T) {
	task := newTask("t1", "2024-01-01", "2024-01-10")
	store := newMemStore(task)
	svc := newTestService(store, AlertPolicy{}, &mockNotifier{err: errors.New("slack down")}, nil, jan15)

	if _, err := svc.DetectAlerts(context.Background(), "proj-1"); err != nil {
		t.Fatalf("notification failure should not fail detection: %v", err)
	}
}

func TestPlanningService_StaleAlertsManualPolicy(t *testing.T) {
	task := newTask("t1", "2024-01-01", "2024-01-10")
	store := newMemStore(task)
	svc := newTestService(store, AlertPolicy{AutoResolve: false}, nil, nil, jan15)
	ctx := context.Background()

	if _, err := svc.DetectAlerts(ctx, "proj-1"); err != nil {
		t.Fatalf("DetectAlerts: %v", err)
	}
	if err := svc.SetStatus(ctx, "t1", models.StatusCompleted); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	result, err := svc.DetectAlerts(ctx, "proj-1")
	if err != nil {
		t.Fatalf("DetectAlerts: %v", err)
	}
	if len(result.Stale) != 1 {
		t.Fatalf("expected 1 stale alert, got %d", len(result.Stale))
	}
	open, _ := store.ListOpenAlerts(ctx, "proj-1")
	if len(open) != 1 {
		t.Errorf("manual policy must leave stale alert open, %d open", len(open))
	}
}

func TestPlanningService_StaleAlertsAutoResolve(t *testing.T) {
	task := newTask("t1", "2024-01-01", "2024-01-10")
	store := newMemStore(task)
	svc := newTestService(store, AlertPolicy{AutoResolve: true}, nil, nil, jan15)
	ctx := context.Background()

	if _, err := svc.DetectAlerts(ctx, "proj-1"); err != nil {
		t.Fatalf("DetectAlerts: %v", err)
	}
	if err := svc.SetStatus(ctx, "t1", models.StatusCompleted); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if _, err := svc.DetectAlerts(ctx, "proj-1"); err != nil {
		t.Fatalf("DetectAlerts: %v", err)
	}

	open, _ := store.ListOpenAlerts(ctx, "proj-1")
	if len(open) != 0 {
		t.Errorf("auto-resolve should close stale alerts, %d open", len(open))
	}
}

func TestPlanningService_ResolveAlertTwiceKeepsTimestamp(t *testing.T) {
	store := newMemStore()
	store.alerts["a1"] = models.Alert{ID: "a1", ProjectID: "proj-1", Type: models.AlertDelay}
	svc := newTestService(store, AlertPolicy{}, nil, nil, jan15)
	ctx := context.Background()

	first, err := svc.ResolveAlert(ctx, "a1")
	if err != nil {
		t.Fatalf("ResolveAlert: %v", err)
	}
	svc.(*planningService).now = func() time.Time { return jan15.Add(48 * time.Hour) }
	second, err := svc.ResolveAlert(ctx, "a1")
	if err != nil {
		t.Fatalf("second ResolveAlert: %v", err)
	}

	if !second.Resolved || second.ResolvedAt == nil {
		t.Fatal("alert should be resolved")
	}
	if !second.ResolvedAt.Equal(*first.ResolvedAt) {
		t.Errorf("resolved_at changed from %v to %v", first.ResolvedAt, second.ResolvedAt)
	}

	if _, err := svc.ResolveAlert(ctx, "missing"); !IsNotFound(err) {
		t.Errorf("expected not found for unknown alert, got %v", err)
	}
}

func TestPlanningService_DetectAll(t *testing.T) {
	a := newTask("a", "2024-01-01", "2024-01-10")
	b := newTask("b", "2024-01-01", "2024-01-10")
	b.ProjectID = "proj-2"
	svc := newTestService(newMemStore(a, b), AlertPolicy{}, nil, nil, jan15)

	results, err := svc.DetectAll(context.Background())
	if err != nil {
		t.Fatalf("DetectAll: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected results for 2 projects, got %d", len(results))
	}
	for id, r := range results {
		if len(r.Raised) != 1 {
			t.Errorf("project %s: raised %d alerts, want 1", id, len(r.Raised))
		}
	}
}

func TestPlanningService_ImportTasksAllOrNothing(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, AlertPolicy{}, nil, nil, jan15)
	ctx := context.Background()

	good := newTask("", "2024-01-01", "2024-01-10")
	good.ProjectID = ""
	bad := newTask("", "2024-01-10", "2024-01-01")
	bad.ProjectID = ""

	if _, err := svc.ImportTasks(ctx, "proj-9", []models.Task{good, bad}); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	if len(store.tasks) != 0 {
		t.Fatalf("partial import wrote %d tasks", len(store.tasks))
	}

	n, err := svc.ImportTasks(ctx, "proj-9", []models.Task{good, good})
	if err != nil {
		t.Fatalf("ImportTasks: %v", err)
	}
	if n != 2 || len(store.tasks) != 2 {
		t.Errorf("imported %d, stored %d, want 2", n, len(store.tasks))
	}
	for _, task := range store.tasks {
		if task.ProjectID != "proj-9" {
			t.Errorf("task project = %q, want proj-9", task.ProjectID)
		}
	}
}

func TestPlanningService_AddDiaryEntry(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, AlertPolicy{}, nil, nil, jan15)
	ctx := context.Background()

	entry := models.DiaryEntry{
		ProjectID: "proj-1",
		EntryDate: models.NewDate(2024, 1, 15),
		Workforce: []models.WorkforceEntry{{Trade: "masonry", Headcount: 4}},
		Issues:    []models.IssueEntry{{Description: "crane delayed"}},
	}
	created, err := svc.AddDiaryEntry(ctx, entry)
	if err != nil {
		t.Fatalf("AddDiaryEntry: %v", err)
	}
	if created.Issues[0].Severity != models.IssueMedium {
		t.Errorf("issue severity = %q, want medium default", created.Issues[0].Severity)
	}

	entries, err := svc.ListDiary(ctx, "proj-1")
	if err != nil || len(entries) != 1 {
		t.Fatalf("ListDiary = %d entries, %v", len(entries), err)
	}
}

func TestPlanningService_ImportTasksRewritesParentIDs(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, AlertPolicy{}, nil, nil, jan15)

	child := newTask("file-child", "2024-01-05", "2024-01-10")
	child.ParentTaskID = strPtr("file-parent")
	parent := newTask("file-parent", "2024-01-01", "2024-01-31")
	sibling := newTask("file-sibling", "2024-01-02", "2024-01-03")
	sibling.ParentTaskID = strPtr("file-parent")

	n, err := svc.ImportTasks(context.Background(), "proj-1", []models.Task{child, parent, sibling})
	if err != nil {
		t.Fatalf("ImportTasks: %v", err)
	}
	if n != 3 {
		t.Fatalf("imported %d, want 3", n)
	}

	var parentID string
	for id, task := range store.tasks {
		if task.Name == "task file-parent" {
			parentID = id
		}
	}
	for _, task := range store.tasks {
		if task.Name == "task file-parent" {
			continue
		}
		if task.ParentTaskID == nil || *task.ParentTaskID != parentID {
			t.Errorf("%s parent = %v, want %s", task.Name, task.ParentTaskID, parentID)
		}
	}
}
