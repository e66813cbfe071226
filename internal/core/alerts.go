package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/valter-silva-au/site-planner/pkg/models"
)

// AlertPolicy controls how the lifecycle treats alerts whose condition has
// cleared.
type AlertPolicy struct {
	// AutoResolve resolves stale alerts on each detection pass. When false,
	// alerts stay open until resolved by hand.
	AutoResolve bool
}

// DetectionResult is the outcome of one detection pass.
type DetectionResult struct {
	// Raised holds new alerts to insert. None shares a key with an open alert.
	Raised []models.Alert
	// Stale holds open alerts whose condition no longer holds.
	Stale []models.Alert
}

// AlertDetector evaluates the planning alert rules against a task list.
type AlertDetector interface {
	Detect(projectID string, tasks []models.Task, open []models.Alert, today models.Date) DetectionResult
}

type alertDetector struct{}

// NewAlertDetector creates an AlertDetector. Detection is pure: it reads
// tasks and open alerts and never touches the store.
func NewAlertDetector() AlertDetector {
	return &alertDetector{}
}

// Detect evaluates all rules and returns the alerts to raise and the open
// alerts that have gone stale. At most one unresolved alert exists per
// (task, type) key, so re-running on unchanged data raises nothing.
func (d *alertDetector) Detect(projectID string, tasks []models.Task, open []models.Alert, today models.Date) DetectionResult {
	candidates := d.evaluate(projectID, tasks, today)

	openKeys := make(map[models.AlertKey]bool, len(open))
	for _, a := range open {
		if !a.Resolved {
			openKeys[a.Key()] = true
		}
	}

	var result DetectionResult
	seen := make(map[models.AlertKey]bool, len(candidates))
	for _, c := range candidates {
		k := c.Key()
		seen[k] = true
		if openKeys[k] {
			continue
		}
		openKeys[k] = true
		result.Raised = append(result.Raised, c)
	}

	for _, a := range open {
		if !a.Resolved && !seen[a.Key()] {
			result.Stale = append(result.Stale, a)
		}
	}

	return result
}

func (d *alertDetector) evaluate(projectID string, tasks []models.Task, today models.Date) []models.Alert {
	byID := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	var alerts []models.Alert
	for _, t := range tasks {
		if a, ok := checkDelay(projectID, t, today); ok {
			alerts = append(alerts, a)
		}
		if a, ok := checkDependencyBlocked(projectID, t, byID); ok {
			alerts = append(alerts, a)
		}
		if a, ok := checkMilestoneMissed(projectID, t, today); ok {
			alerts = append(alerts, a)
		}
	}
	if a, ok := checkResourceConflicts(projectID, tasks); ok {
		alerts = append(alerts, a)
	}
	return alerts
}

// checkDelay fires when a task is past its planned end, not completed and
// has no actual end date. High and critical priority tasks are critical.
func checkDelay(projectID string, t models.Task, today models.Date) (models.Alert, bool) {
	if t.Status == models.StatusCompleted || t.ActualEndDate != nil || !t.EndDate.Before(today) {
		return models.Alert{}, false
	}

	severity := models.SeverityWarning
	if t.Priority.Rank() >= models.PriorityHigh.Rank() {
		severity = models.SeverityCritical
	}

	overdue := models.DaysBetween(t.EndDate, today)
	return newTaskAlert(projectID, t, models.AlertDelay, severity,
		fmt.Sprintf("Task %q was due %s and is %s overdue", t.Name, t.EndDate, pluralDays(overdue))), true
}

// checkDependencyBlocked fires when a task is in progress while its parent
// task is not completed. A dangling parent reference never fires.
func checkDependencyBlocked(projectID string, t models.Task, byID map[string]models.Task) (models.Alert, bool) {
	if t.ParentTaskID == nil || t.Status != models.StatusInProgress {
		return models.Alert{}, false
	}
	parent, ok := byID[*t.ParentTaskID]
	if !ok || parent.Status == models.StatusCompleted {
		return models.Alert{}, false
	}
	return newTaskAlert(projectID, t, models.AlertDependencyBlocked, models.SeverityWarning,
		fmt.Sprintf("Task %q is in progress but depends on %q, which is %s", t.Name, parent.Name, parent.Status)), true
}

// checkMilestoneMissed fires when a milestone's date has passed and it is not
// completed.
func checkMilestoneMissed(projectID string, t models.Task, today models.Date) (models.Alert, bool) {
	if !IsMilestone(t) || t.Status == models.StatusCompleted || !t.StartDate.Before(today) {
		return models.Alert{}, false
	}
	overdue := models.DaysBetween(t.StartDate, today)
	return newTaskAlert(projectID, t, models.AlertMilestoneMissed, models.SeverityCritical,
		fmt.Sprintf("Milestone %q was due %s and is %s overdue", t.Name, t.StartDate, pluralDays(overdue))), true
}

// checkResourceConflicts fires once per project when any responsible user
// holds two open tasks (in progress or not started) whose intervals overlap.
// The alert is project-wide and lists every conflicting pair.
func checkResourceConflicts(projectID string, tasks []models.Task) (models.Alert, bool) {
	byUser := make(map[string][]models.Task)
	for _, t := range tasks {
		if t.ResponsibleUserID == nil || *t.ResponsibleUserID == "" {
			continue
		}
		if t.Status != models.StatusInProgress && t.Status != models.StatusNotStarted {
			continue
		}
		byUser[*t.ResponsibleUserID] = append(byUser[*t.ResponsibleUserID], t)
	}

	users := make([]string, 0, len(byUser))
	for u := range byUser {
		users = append(users, u)
	}
	sort.Strings(users)

	var conflicts []string
	for _, u := range users {
		assigned := byUser[u]
		for i := 0; i < len(assigned); i++ {
			for j := i + 1; j < len(assigned); j++ {
				if overlaps(assigned[i], assigned[j]) {
					conflicts = append(conflicts, fmt.Sprintf("%s on %q and %q", u, assigned[i].Name, assigned[j].Name))
				}
			}
		}
	}
	if len(conflicts) == 0 {
		return models.Alert{}, false
	}

	return models.Alert{
		ProjectID: projectID,
		Type:      models.AlertResourceConflict,
		Severity:  models.SeverityInfo,
		Message:   "Overlapping assignments: " + strings.Join(conflicts, "; "),
	}, true
}

// overlaps reports whether two inclusive date intervals share at least one day.
func overlaps(a, b models.Task) bool {
	return !a.StartDate.After(b.EndDate) && !b.StartDate.After(a.EndDate)
}

func newTaskAlert(projectID string, t models.Task, typ models.AlertType, sev models.AlertSeverity, msg string) models.Alert {
	id := t.ID
	return models.Alert{
		ProjectID: projectID,
		TaskID:    &id,
		Type:      typ,
		Severity:  sev,
		Message:   msg,
	}
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
