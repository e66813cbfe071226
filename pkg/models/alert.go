package models

import "time"

// AlertType identifies the rule that raised an alert.
type AlertType string

const (
	AlertDelay             AlertType = "delay"
	AlertDependencyBlocked AlertType = "dependency_blocked"
	AlertMilestoneMissed   AlertType = "milestone_missed"
	AlertResourceConflict  AlertType = "resource_conflict"
)

// AlertSeverity represents how urgent an alert is.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Rank orders severities so that critical sorts first when ascending.
func (s AlertSeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// Alert is a persisted planning anomaly. Message is a snapshot taken at
// detection time and is never recomputed. TaskID is nil for project-wide
// alerts such as resource conflicts.
type Alert struct {
	ID         string        `json:"id" db:"id"`
	ProjectID  string        `json:"project_id" db:"project_id"`
	TaskID     *string       `json:"task_id,omitempty" db:"task_id"`
	Type       AlertType     `json:"alert_type" db:"alert_type"`
	Severity   AlertSeverity `json:"severity" db:"severity"`
	Message    string        `json:"message" db:"message"`
	Resolved   bool          `json:"resolved" db:"resolved"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}

// AlertKey is the identity under which at most one unresolved alert may
// exist per project.
type AlertKey struct {
	TaskID string
	Type   AlertType
}

// Key returns the deduplication key of the alert.
func (a Alert) Key() AlertKey {
	k := AlertKey{Type: a.Type}
	if a.TaskID != nil {
		k.TaskID = *a.TaskID
	}
	return k
}
