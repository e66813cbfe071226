package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/valter-silva-au/site-planner/internal/core"
	"github.com/valter-silva-au/site-planner/pkg/models"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

const taskColumns = `id, project_id, name, description, task_type, phase, cfc_line_id,
	start_date, end_date, actual_start_date, actual_end_date, progress, status,
	responsible_user_id, parent_task_id, priority, created_at, updated_at`

const alertColumns = `id, project_id, task_id, alert_type, severity, message,
	resolved, resolved_at, created_at`

// SQLStore implements core.PlanningStore on SQLite or PostgreSQL.
type SQLStore struct {
	db     *sqlx.DB
	driver string
}

var _ core.PlanningStore = (*SQLStore)(nil)

// DriverFor returns the database/sql driver name for a DSN. postgres:// and
// postgresql:// URLs select PostgreSQL; anything else is a SQLite path.
func DriverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return driverPostgres
	}
	return driverSQLite
}

// Open connects to the database named by dsn and runs any pending schema
// migrations. For SQLite, WAL mode and foreign keys are enabled.
func Open(dsn string) (*SQLStore, error) {
	driver := DriverFor(dsn)
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s db: %w", driver, err)
	}

	if driver == driverSQLite {
		// A single connection keeps :memory: databases coherent and
		// serializes writers.
		db.SetMaxOpenConns(1)

		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Driver returns the name of the database driver in use.
func (s *SQLStore) Driver() string {
	return s.driver
}

// runMigrations reads the current schema version and applies any
// outstanding migrations in order.
func (s *SQLStore) runMigrations() error {
	if _, err := s.db.Exec("CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	currentVersion := 0
	if err := s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// --- Tasks ---

// ListTasks returns the tasks of a project ordered by start date.
func (s *SQLStore) ListTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	query := s.db.Rebind("SELECT " + taskColumns + " FROM planning_tasks WHERE project_id = ? ORDER BY start_date, created_at, id")

	tasks := []models.Task{}
	if err := s.db.SelectContext(ctx, &tasks, query, projectID); err != nil {
		return nil, fmt.Errorf("querying tasks for project %s: %w", projectID, err)
	}
	return tasks, nil
}

// GetTask returns a single task by ID.
func (s *SQLStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	query := s.db.Rebind("SELECT " + taskColumns + " FROM planning_tasks WHERE id = ?")

	var t models.Task
	if err := s.db.GetContext(ctx, &t, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &core.NotFoundError{Kind: "task", ID: id}
		}
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	return &t, nil
}

// InsertTask stores a new task under a fresh UUID.
func (s *SQLStore) InsertTask(ctx context.Context, task models.Task) (*models.Task, error) {
	now := time.Now().UTC()
	task.ID = uuid.New().String()
	task.CreatedAt = now
	task.UpdatedAt = now

	query := s.db.Rebind(`
		INSERT INTO planning_tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := s.db.ExecContext(ctx, query,
		task.ID, task.ProjectID, task.Name, task.Description, string(task.Type),
		phaseValue(task.Phase), task.CFCLineID,
		task.StartDate, task.EndDate, dateValue(task.ActualStartDate), dateValue(task.ActualEndDate),
		task.Progress, string(task.Status),
		task.ResponsibleUserID, task.ParentTaskID, string(task.Priority),
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting task %q: %w", task.Name, err)
	}
	return &task, nil
}

// UpdateTask writes the non-nil fields of update to the task.
func (s *SQLStore) UpdateTask(ctx context.Context, id string, update models.TaskUpdate) error {
	var sets []string
	var args []interface{}
	set := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if update.Name != nil {
		set("name", *update.Name)
	}
	if update.Description != nil {
		set("description", nullIfEmpty(*update.Description))
	}
	if update.Type != nil {
		set("task_type", string(*update.Type))
	}
	if update.Phase != nil {
		set("phase", phaseValue(update.Phase))
	}
	if update.StartDate != nil {
		set("start_date", *update.StartDate)
	}
	if update.EndDate != nil {
		set("end_date", *update.EndDate)
	}
	if update.ActualStartDate != nil {
		set("actual_start_date", dateValue(update.ActualStartDate))
	}
	if update.ActualEndDate != nil {
		set("actual_end_date", dateValue(update.ActualEndDate))
	}
	if update.Progress != nil {
		set("progress", *update.Progress)
	}
	if update.Status != nil {
		set("status", string(*update.Status))
	}
	if update.ResponsibleUserID != nil {
		set("responsible_user_id", nullIfEmpty(*update.ResponsibleUserID))
	}
	if update.ParentTaskID != nil {
		set("parent_task_id", nullIfEmpty(*update.ParentTaskID))
	}
	if update.Priority != nil {
		set("priority", string(*update.Priority))
	}
	if len(sets) == 0 {
		return nil
	}
	set("updated_at", time.Now().UTC())
	args = append(args, id)

	query := s.db.Rebind("UPDATE planning_tasks SET " + strings.Join(sets, ", ") + " WHERE id = ?")
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", id, err)
	}
	return requireRow(res, "task", id)
}

// DeleteTask removes a task by ID.
func (s *SQLStore) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM planning_tasks WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	return requireRow(res, "task", id)
}

// ListProjectIDs returns every project that has at least one task.
func (s *SQLStore) ListProjectIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	if err := s.db.SelectContext(ctx, &ids, "SELECT DISTINCT project_id FROM planning_tasks ORDER BY project_id"); err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return ids, nil
}

// --- Alerts ---

// ListOpenAlerts returns the unresolved alerts of a project, newest first.
func (s *SQLStore) ListOpenAlerts(ctx context.Context, projectID string) ([]models.Alert, error) {
	query := s.db.Rebind("SELECT " + alertColumns + " FROM planning_alerts WHERE project_id = ? AND resolved = 0 ORDER BY created_at DESC, id")

	alerts := []models.Alert{}
	if err := s.db.SelectContext(ctx, &alerts, query, projectID); err != nil {
		return nil, fmt.Errorf("querying alerts for project %s: %w", projectID, err)
	}
	return alerts, nil
}

// GetAlert returns a single alert by ID.
func (s *SQLStore) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	var a models.Alert
	err := s.db.GetContext(ctx, &a, s.db.Rebind("SELECT "+alertColumns+" FROM planning_alerts WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &core.NotFoundError{Kind: "alert", ID: id}
		}
		return nil, fmt.Errorf("getting alert %s: %w", id, err)
	}
	return &a, nil
}

// InsertAlert stores a new unresolved alert under a fresh UUID.
func (s *SQLStore) InsertAlert(ctx context.Context, alert models.Alert) (*models.Alert, error) {
	alert.ID = uuid.New().String()
	alert.Resolved = false
	alert.ResolvedAt = nil
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	query := s.db.Rebind(`
		INSERT INTO planning_alerts (` + alertColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, 0, NULL, ?)`)

	_, err := s.db.ExecContext(ctx, query,
		alert.ID, alert.ProjectID, alert.TaskID, string(alert.Type),
		string(alert.Severity), alert.Message, alert.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting %s alert: %w", alert.Type, err)
	}
	return &alert, nil
}

// ResolveAlert marks an alert resolved. An already resolved alert keeps its
// original resolved_at.
func (s *SQLStore) ResolveAlert(ctx context.Context, id string, at time.Time) (*models.Alert, error) {
	query := s.db.Rebind("UPDATE planning_alerts SET resolved = 1, resolved_at = ? WHERE id = ? AND resolved = 0")
	if _, err := s.db.ExecContext(ctx, query, at.UTC(), id); err != nil {
		return nil, fmt.Errorf("resolving alert %s: %w", id, err)
	}
	return s.GetAlert(ctx, id)
}

// --- Site diary ---

// diaryRow is the storage shape of a diary entry; workforce and issues are
// kept as JSON text.
type diaryRow struct {
	ID              string      `db:"id"`
	ProjectID       string      `db:"project_id"`
	EntryDate       models.Date `db:"entry_date"`
	Weather         *string     `db:"weather"`
	Notes           *string     `db:"notes"`
	Workforce       string      `db:"workforce"`
	Issues          string      `db:"issues"`
	PlanningPhaseID *string     `db:"planning_phase_id"`
	CreatedAt       time.Time   `db:"created_at"`
}

func (r diaryRow) entry() (models.DiaryEntry, error) {
	e := models.DiaryEntry{
		ID:              r.ID,
		ProjectID:       r.ProjectID,
		EntryDate:       r.EntryDate,
		Weather:         r.Weather,
		Notes:           r.Notes,
		PlanningPhaseID: r.PlanningPhaseID,
		CreatedAt:       r.CreatedAt,
	}
	if err := json.Unmarshal([]byte(r.Workforce), &e.Workforce); err != nil {
		return e, fmt.Errorf("unmarshaling workforce of diary entry %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Issues), &e.Issues); err != nil {
		return e, fmt.Errorf("unmarshaling issues of diary entry %s: %w", r.ID, err)
	}
	return e, nil
}

// InsertDiaryEntry stores a new site diary entry under a fresh UUID.
func (s *SQLStore) InsertDiaryEntry(ctx context.Context, entry models.DiaryEntry) (*models.DiaryEntry, error) {
	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now().UTC()
	if entry.Workforce == nil {
		entry.Workforce = []models.WorkforceEntry{}
	}
	if entry.Issues == nil {
		entry.Issues = []models.IssueEntry{}
	}

	workforce, err := json.Marshal(entry.Workforce)
	if err != nil {
		return nil, fmt.Errorf("marshaling workforce: %w", err)
	}
	issues, err := json.Marshal(entry.Issues)
	if err != nil {
		return nil, fmt.Errorf("marshaling issues: %w", err)
	}

	query := s.db.Rebind(`
		INSERT INTO site_diary_entries (
			id, project_id, entry_date, weather, notes, workforce, issues, planning_phase_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		entry.ID, entry.ProjectID, entry.EntryDate, entry.Weather, entry.Notes,
		string(workforce), string(issues), entry.PlanningPhaseID, entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting diary entry: %w", err)
	}
	return &entry, nil
}

// ListDiaryEntries returns a project's diary, newest entry first.
func (s *SQLStore) ListDiaryEntries(ctx context.Context, projectID string) ([]models.DiaryEntry, error) {
	query := s.db.Rebind(`
		SELECT id, project_id, entry_date, weather, notes, workforce, issues, planning_phase_id, created_at
		FROM site_diary_entries WHERE project_id = ? ORDER BY entry_date DESC, created_at DESC`)

	var rows []diaryRow
	if err := s.db.SelectContext(ctx, &rows, query, projectID); err != nil {
		return nil, fmt.Errorf("querying diary for project %s: %w", projectID, err)
	}

	entries := make([]models.DiaryEntry, 0, len(rows))
	for _, r := range rows {
		e, err := r.entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// --- helpers ---

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func phaseValue(p *models.Phase) interface{} {
	if p == nil || *p == "" {
		return nil
	}
	return string(*p)
}

func dateValue(d *models.Date) interface{} {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.String()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
