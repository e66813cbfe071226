package core

import (
	"context"
	"time"

	"github.com/valter-silva-au/site-planner/pkg/models"
)

// PlanningStore is the record store behind the planning service.
// This interface is defined locally in core to avoid importing storage.
//
// Missing records are reported as *NotFoundError. Every other failure is
// returned as-is and wrapped in *StoreError by the service.
type PlanningStore interface {
	// ListTasks returns the tasks of a project ordered by start date.
	ListTasks(ctx context.Context, projectID string) ([]models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	InsertTask(ctx context.Context, task models.Task) (*models.Task, error)
	UpdateTask(ctx context.Context, id string, update models.TaskUpdate) error
	DeleteTask(ctx context.Context, id string) error

	ListOpenAlerts(ctx context.Context, projectID string) ([]models.Alert, error)
	InsertAlert(ctx context.Context, alert models.Alert) (*models.Alert, error)
	// ResolveAlert marks an alert resolved at the given time. Resolving an
	// already resolved alert leaves resolved_at untouched.
	ResolveAlert(ctx context.Context, id string, at time.Time) (*models.Alert, error)

	// ListProjectIDs returns every project that has at least one task.
	ListProjectIDs(ctx context.Context) ([]string, error)

	InsertDiaryEntry(ctx context.Context, entry models.DiaryEntry) (*models.DiaryEntry, error)
	// ListDiaryEntries returns a project's diary, newest entry first.
	ListDiaryEntries(ctx context.Context, projectID string) ([]models.DiaryEntry, error)
}

// AlertNotifier delivers newly raised alerts to external channels.
// This interface is defined locally in core to avoid importing observability.
type AlertNotifier interface {
	Notify(ctx context.Context, alerts []models.Alert) error
}
