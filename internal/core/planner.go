package core

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/valter-silva-au/site-planner/pkg/models"
)

// Snapshot is a freshly fetched and aggregated view of a project's plan.
type Snapshot struct {
	ProjectID string                        `json:"project_id"`
	Tasks     []models.Task                 `json:"tasks"`
	Alerts    []models.Alert                `json:"alerts"`
	Summary   Summary                       `json:"summary"`
	Phases    map[models.Phase]PhaseSummary `json:"phases"`
	Start     *models.Date                  `json:"start,omitempty"`
	End       *models.Date                  `json:"end,omitempty"`
	Issues    []ConsistencyIssue            `json:"issues,omitempty"`
	FetchedAt time.Time                     `json:"fetched_at"`
}

// PlanningService runs planning operations against a record store.
//
// Mutations perform one store write and return. They never patch derived
// data; callers follow every successful mutation with Refresh, which
// re-fetches and recomputes everything.
type PlanningService interface {
	Refresh(ctx context.Context, projectID string) (*Snapshot, error)

	GetTask(ctx context.Context, id string) (*models.Task, error)
	CreateTask(ctx context.Context, task models.Task) (*models.Task, error)
	ImportTasks(ctx context.Context, projectID string, tasks []models.Task) (int, error)
	UpdateTask(ctx context.Context, id string, update models.TaskUpdate) error
	UpdateProgress(ctx context.Context, id string, progress int) error
	SetStatus(ctx context.Context, id string, status models.TaskStatus) error
	DeleteTask(ctx context.Context, id string) error

	DetectAlerts(ctx context.Context, projectID string) (*DetectionResult, error)
	DetectAll(ctx context.Context) (map[string]*DetectionResult, error)
	ResolveAlert(ctx context.Context, id string) (*models.Alert, error)

	AddDiaryEntry(ctx context.Context, entry models.DiaryEntry) (*models.DiaryEntry, error)
	ListDiary(ctx context.Context, projectID string) ([]models.DiaryEntry, error)
}

type planningService struct {
	store       PlanningStore
	detector    AlertDetector
	policy      AlertPolicy
	notifier    AlertNotifier
	eventLogger EventLogger
	log         logrus.FieldLogger
	now         func() time.Time
}

// NewPlanningService creates a PlanningService. notifier and eventLogger may
// be nil; a nil log discards diagnostics.
func NewPlanningService(store PlanningStore, detector AlertDetector, policy AlertPolicy, notifier AlertNotifier, eventLogger EventLogger, log logrus.FieldLogger) PlanningService {
	if detector == nil {
		detector = NewAlertDetector()
	}
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &planningService{
		store:       store,
		detector:    detector,
		policy:      policy,
		notifier:    notifier,
		eventLogger: eventLogger,
		log:         log,
		now:         time.Now,
	}
}

// Refresh fetches the project's tasks and open alerts and recomputes every
// aggregate. A stored task that fails validation aborts the refresh rather
// than being silently coerced.
func (s *planningService) Refresh(ctx context.Context, projectID string) (*Snapshot, error) {
	if projectID == "" {
		return nil, &ValidationError{Kind: InvalidField, Field: "project_id", Detail: "project id is required"}
	}

	tasks, err := s.store.ListTasks(ctx, projectID)
	if err != nil {
		return nil, storeErr("listing tasks", err)
	}
	if err := validateAll(tasks); err != nil {
		return nil, err
	}

	alerts, err := s.store.ListOpenAlerts(ctx, projectID)
	if err != nil {
		return nil, storeErr("listing alerts", err)
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.Rank() < alerts[j].Severity.Rank()
	})

	snap := &Snapshot{
		ProjectID: projectID,
		Tasks:     tasks,
		Alerts:    alerts,
		Summary:   Summarize(tasks),
		Phases:    SummarizeByPhase(tasks),
		FetchedAt: s.now().UTC(),
	}
	snap.Start, snap.End = ProjectWindow(tasks)
	for _, t := range tasks {
		snap.Issues = append(snap.Issues, CheckConsistency(t)...)
	}
	return snap, nil
}

func (s *planningService) GetTask(ctx context.Context, id string) (*models.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, storeErr("getting task", err)
	}
	return t, nil
}

// CreateTask validates and inserts a task. The store assigns its ID.
func (s *planningService) CreateTask(ctx context.Context, task models.Task) (*models.Task, error) {
	if task.ProjectID == "" {
		return nil, &ValidationError{Kind: InvalidField, Field: "project_id", Detail: "project id is required"}
	}
	valid, err := Validate(task)
	if err != nil {
		return nil, err
	}

	created, err := s.store.InsertTask(ctx, valid)
	if err != nil {
		return nil, storeErr("inserting task", err)
	}

	s.logEvent("task.created", map[string]any{
		"task_id":    created.ID,
		"project_id": created.ProjectID,
		"type":       string(created.Type),
		"phase":      string(NormalizePhase(created.Phase)),
	})
	return created, nil
}

// ImportTasks validates every task first and inserts them only when all pass,
// so a bad file never leaves a half-imported plan. Tasks without a project
// are assigned projectID. IDs in the input are replaced by store IDs and
// parent references between imported tasks are rewritten to match.
func (s *planningService) ImportTasks(ctx context.Context, projectID string, tasks []models.Task) (int, error) {
	valid := make([]models.Task, 0, len(tasks))
	for i, t := range tasks {
		if t.ProjectID == "" {
			t.ProjectID = projectID
		}
		if t.ProjectID == "" {
			return 0, &ValidationError{Kind: InvalidField, Field: fmt.Sprintf("tasks[%d].project_id", i), Detail: "project id is required"}
		}
		v, err := Validate(t)
		if err != nil {
			return 0, fmt.Errorf("task %d (%s): %w", i, t.Name, err)
		}
		valid = append(valid, v)
	}

	newIDs := make(map[string]string, len(valid))
	var pending []*models.Task
	for i := range valid {
		t := valid[i]
		if t.ParentTaskID != nil {
			if id, ok := newIDs[*t.ParentTaskID]; ok {
				t.ParentTaskID = &id
			}
		}
		created, err := s.CreateTask(ctx, t)
		if err != nil {
			return i, err
		}
		if valid[i].ID != "" {
			newIDs[valid[i].ID] = created.ID
		}
		if created.ParentTaskID != nil {
			pending = append(pending, created)
		}
	}

	// Children listed before their parent are fixed up once every ID is known.
	for _, t := range pending {
		id, ok := newIDs[*t.ParentTaskID]
		if !ok {
			continue
		}
		if err := s.store.UpdateTask(ctx, t.ID, models.TaskUpdate{ParentTaskID: &id}); err != nil {
			return len(valid), storeErr("linking imported task", err)
		}
	}
	return len(valid), nil
}

// UpdateTask applies a partial update. The merged task is validated before
// the write, so an update that would invert the interval is rejected.
func (s *planningService) UpdateTask(ctx context.Context, id string, update models.TaskUpdate) error {
	if update.IsEmpty() {
		return &ValidationError{Kind: InvalidField, Detail: "update has no fields"}
	}

	current, err := s.store.GetTask(ctx, id)
	if err != nil {
		return storeErr("getting task", err)
	}
	if _, err := Validate(update.Apply(*current)); err != nil {
		return err
	}
	if update.Phase != nil {
		p := NormalizePhase(update.Phase)
		update.Phase = &p
	}

	if err := s.store.UpdateTask(ctx, id, update); err != nil {
		return storeErr("updating task", err)
	}

	data := map[string]any{"task_id": id, "project_id": current.ProjectID}
	if update.Status != nil {
		data["old_status"] = string(current.Status)
		data["new_status"] = string(*update.Status)
	}
	if update.Progress != nil {
		data["progress"] = *update.Progress
	}
	s.logEvent("task.updated", data)
	return nil
}

func (s *planningService) UpdateProgress(ctx context.Context, id string, progress int) error {
	return s.UpdateTask(ctx, id, models.TaskUpdate{Progress: &progress})
}

func (s *planningService) SetStatus(ctx context.Context, id string, status models.TaskStatus) error {
	return s.UpdateTask(ctx, id, models.TaskUpdate{Status: &status})
}

func (s *planningService) DeleteTask(ctx context.Context, id string) error {
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return storeErr("deleting task", err)
	}
	s.logEvent("task.deleted", map[string]any{"task_id": id})
	return nil
}

// DetectAlerts runs one detection pass for a project: it inserts newly raised
// alerts, resolves stale ones when the policy allows, and notifies. A failed
// notification is logged and never fails the pass.
func (s *planningService) DetectAlerts(ctx context.Context, projectID string) (*DetectionResult, error) {
	tasks, err := s.store.ListTasks(ctx, projectID)
	if err != nil {
		return nil, storeErr("listing tasks", err)
	}
	// Rows written by other clients are untrusted.
	if err := validateAll(tasks); err != nil {
		return nil, err
	}
	open, err := s.store.ListOpenAlerts(ctx, projectID)
	if err != nil {
		return nil, storeErr("listing alerts", err)
	}

	now := s.now()
	result := s.detector.Detect(projectID, tasks, open, models.Today(now))

	raised := make([]models.Alert, 0, len(result.Raised))
	for _, a := range result.Raised {
		inserted, err := s.store.InsertAlert(ctx, a)
		if err != nil {
			return nil, storeErr("inserting alert", err)
		}
		raised = append(raised, *inserted)
		s.logEvent("alert.raised", alertEventData(*inserted))
	}
	result.Raised = raised

	if s.policy.AutoResolve {
		for _, a := range result.Stale {
			if _, err := s.store.ResolveAlert(ctx, a.ID, now.UTC()); err != nil {
				return nil, storeErr("resolving alert", err)
			}
			data := alertEventData(a)
			data["auto"] = true
			s.logEvent("alert.resolved", data)
		}
	}

	s.log.WithFields(logrus.Fields{
		"project_id": projectID,
		"raised":     len(result.Raised),
		"stale":      len(result.Stale),
	}).Info("alert detection complete")

	if s.notifier != nil && len(result.Raised) > 0 {
		if err := s.notifier.Notify(ctx, result.Raised); err != nil {
			s.log.WithError(err).WithField("project_id", projectID).Warn("alert notification failed")
		}
	}

	return &result, nil
}

// DetectAll runs DetectAlerts for every project known to the store. It is
// meant to be driven by an external timer.
func (s *planningService) DetectAll(ctx context.Context) (map[string]*DetectionResult, error) {
	ids, err := s.store.ListProjectIDs(ctx)
	if err != nil {
		return nil, storeErr("listing projects", err)
	}
	results := make(map[string]*DetectionResult, len(ids))
	for _, id := range ids {
		r, err := s.DetectAlerts(ctx, id)
		if err != nil {
			return results, fmt.Errorf("detecting alerts for project %s: %w", id, err)
		}
		results[id] = r
	}
	return results, nil
}

// ResolveAlert marks an alert resolved. Repeated calls are no-ops and keep
// the original resolved_at.
func (s *planningService) ResolveAlert(ctx context.Context, id string) (*models.Alert, error) {
	a, err := s.store.ResolveAlert(ctx, id, s.now().UTC())
	if err != nil {
		return nil, storeErr("resolving alert", err)
	}
	s.logEvent("alert.resolved", alertEventData(*a))
	return a, nil
}

func (s *planningService) AddDiaryEntry(ctx context.Context, entry models.DiaryEntry) (*models.DiaryEntry, error) {
	valid, err := ValidateDiaryEntry(entry)
	if err != nil {
		return nil, err
	}
	created, err := s.store.InsertDiaryEntry(ctx, valid)
	if err != nil {
		return nil, storeErr("inserting diary entry", err)
	}
	s.logEvent("diary.added", map[string]any{
		"entry_id":    created.ID,
		"project_id":  created.ProjectID,
		"headcount":   created.Headcount(),
		"open_issues": created.OpenIssues(),
	})
	return created, nil
}

func (s *planningService) ListDiary(ctx context.Context, projectID string) ([]models.DiaryEntry, error) {
	entries, err := s.store.ListDiaryEntries(ctx, projectID)
	if err != nil {
		return nil, storeErr("listing diary", err)
	}
	return entries, nil
}

// logEvent emits an event if an EventLogger is configured.
func (s *planningService) logEvent(eventType string, data map[string]any) {
	if s.eventLogger != nil {
		if err := s.eventLogger.LogEvent(eventType, data); err != nil {
			s.log.WithError(err).WithField("event", eventType).Warn("writing event")
		}
	}
}

func alertEventData(a models.Alert) map[string]any {
	data := map[string]any{
		"alert_id":   a.ID,
		"project_id": a.ProjectID,
		"alert_type": string(a.Type),
		"severity":   string(a.Severity),
	}
	if a.TaskID != nil {
		data["task_id"] = *a.TaskID
	}
	return data
}

// validateAll replaces every task with its validated form, stopping at the
// first invalid one.
func validateAll(tasks []models.Task) error {
	for i, t := range tasks {
		valid, err := Validate(t)
		if err != nil {
			return fmt.Errorf("task %s: %w", t.ID, err)
		}
		tasks[i] = valid
	}
	return nil
}
