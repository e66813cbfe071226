package observability

import (
	"fmt"
	"time"
)

// Metrics summarizes planning activity recorded in the event log.
type Metrics struct {
	TasksCreated     int            `json:"tasks_created"`
	TasksUpdated     int            `json:"tasks_updated"`
	TasksDeleted     int            `json:"tasks_deleted"`
	StatusChanges    map[string]int `json:"status_changes"`
	TasksByType      map[string]int `json:"tasks_by_type"`
	AlertsRaised     int            `json:"alerts_raised"`
	AlertsResolved   int            `json:"alerts_resolved"`
	AutoResolved     int            `json:"auto_resolved"`
	AlertsByType     map[string]int `json:"alerts_by_type"`
	AlertsBySeverity map[string]int `json:"alerts_by_severity"`
	DiaryEntries     int            `json:"diary_entries"`
	EventCount       int            `json:"event_count"`
	OldestEvent      *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent      *time.Time     `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
	CalculateForProject(projectID string, since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator reading from eventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate aggregates every event since the given time.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	return mc.calculate(EventFilter{Since: &since})
}

// CalculateForProject aggregates the events of one project since the given time.
func (mc *metricsCalculator) CalculateForProject(projectID string, since time.Time) (*Metrics, error) {
	return mc.calculate(EventFilter{Since: &since, ProjectID: projectID})
}

func (mc *metricsCalculator) calculate(filter EventFilter) (*Metrics, error) {
	events, err := mc.eventLog.Read(filter)
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		StatusChanges:    make(map[string]int),
		TasksByType:      make(map[string]int),
		AlertsByType:     make(map[string]int),
		AlertsBySeverity: make(map[string]int),
		EventCount:       len(events),
	}

	for i, event := range events {
		t := event.Time
		if i == 0 {
			m.OldestEvent = &t
		}
		m.NewestEvent = &t

		switch event.Type {
		case "task.created":
			m.TasksCreated++
			if typ, ok := event.Data["type"].(string); ok {
				m.TasksByType[typ]++
			}
		case "task.updated":
			m.TasksUpdated++
			if status, ok := event.Data["new_status"].(string); ok {
				m.StatusChanges[status]++
			}
		case "task.deleted":
			m.TasksDeleted++
		case "alert.raised":
			m.AlertsRaised++
			if typ, ok := event.Data["alert_type"].(string); ok {
				m.AlertsByType[typ]++
			}
			if sev, ok := event.Data["severity"].(string); ok {
				m.AlertsBySeverity[sev]++
			}
		case "alert.resolved":
			m.AlertsResolved++
			if auto, ok := event.Data["auto"].(bool); ok && auto {
				m.AutoResolved++
			}
		case "diary.added":
			m.DiaryEntries++
		}
	}

	return m, nil
}
