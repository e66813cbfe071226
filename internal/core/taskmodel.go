// Package core contains the construction planning logic: task validation and
// phase grouping, progress roll-up, timeline layout, alert detection and the
// planning service that ties them to a record store.
package core

import (
	"fmt"
	"strings"

	"github.com/valter-silva-au/site-planner/pkg/models"
)

// PhaseOrder lists the phase groups in display order. Every grouping and
// per-phase summary carries exactly these keys.
var PhaseOrder = []models.Phase{
	models.PhasePreparation,
	models.PhaseGrosOeuvre,
	models.PhaseSecondOeuvre,
	models.PhaseFinitions,
	models.PhaseLivraison,
	models.PhaseOther,
}

var knownPhases = map[models.Phase]bool{
	models.PhasePreparation:  true,
	models.PhaseGrosOeuvre:   true,
	models.PhaseSecondOeuvre: true,
	models.PhaseFinitions:    true,
	models.PhaseLivraison:    true,
}

var validTaskTypes = map[models.TaskType]bool{
	models.TaskTypeTask:      true,
	models.TaskTypeMilestone: true,
	models.TaskTypePhase:     true,
}

var validStatuses = map[models.TaskStatus]bool{
	models.StatusNotStarted: true,
	models.StatusInProgress: true,
	models.StatusCompleted:  true,
	models.StatusDelayed:    true,
	models.StatusBlocked:    true,
}

// NormalizePhase maps a stored phase onto a grouping key. Matching is exact:
// a missing or unrecognized phase, including a differently cased one, maps
// to PhaseOther.
func NormalizePhase(p *models.Phase) models.Phase {
	if p == nil || !knownPhases[*p] {
		return models.PhaseOther
	}
	return *p
}

// ParsePhase converts user input to a phase key. Unlike NormalizePhase it
// ignores case and surrounding spaces.
func ParsePhase(s string) models.Phase {
	p := models.Phase(strings.ToLower(strings.TrimSpace(s)))
	return NormalizePhase(&p)
}

// ParseStatus converts user input to a TaskStatus.
func ParseStatus(s string) (models.TaskStatus, error) {
	status := models.TaskStatus(strings.ToLower(strings.TrimSpace(s)))
	if !validStatuses[status] {
		return "", &ValidationError{
			Kind:   InvalidField,
			Field:  "status",
			Detail: fmt.Sprintf("%q must be one of not_started, in_progress, completed, delayed, blocked", s),
		}
	}
	return status, nil
}

// ParsePriority converts user input to a Priority.
func ParsePriority(s string) (models.Priority, error) {
	p := models.Priority(strings.ToLower(strings.TrimSpace(s)))
	if p.Rank() < 0 {
		return "", &ValidationError{
			Kind:   InvalidField,
			Field:  "priority",
			Detail: fmt.Sprintf("%q must be one of low, medium, high, critical", s),
		}
	}
	return p, nil
}

// Validate checks a task before it enters aggregation or the store and
// returns it with defaults applied: type task, status not_started and
// priority medium when empty, and the phase normalized. Unknown phases are
// never rejected.
func Validate(task models.Task) (models.Task, error) {
	if task.StartDate.IsZero() || task.EndDate.IsZero() {
		return task, &ValidationError{Kind: MissingDate, Field: "start_date/end_date", Detail: ErrMissingDate.Error()}
	}
	if task.EndDate.Before(task.StartDate) {
		return task, &ValidationError{
			Kind:   InvalidInterval,
			Field:  "end_date",
			Detail: fmt.Sprintf("end date %s is before start date %s", task.EndDate, task.StartDate),
		}
	}
	if task.Progress < 0 || task.Progress > 100 {
		return task, &ValidationError{
			Kind:   InvalidProgress,
			Field:  "progress",
			Detail: fmt.Sprintf("%d is outside 0..100", task.Progress),
		}
	}

	if task.Type == "" {
		task.Type = models.TaskTypeTask
	}
	if !validTaskTypes[task.Type] {
		return task, &ValidationError{
			Kind:   InvalidField,
			Field:  "type",
			Detail: fmt.Sprintf("%q must be one of task, milestone, phase", task.Type),
		}
	}
	if task.Status == "" {
		task.Status = models.StatusNotStarted
	}
	if !validStatuses[task.Status] {
		return task, &ValidationError{
			Kind:   InvalidField,
			Field:  "status",
			Detail: fmt.Sprintf("%q must be one of not_started, in_progress, completed, delayed, blocked", task.Status),
		}
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.Priority.Rank() < 0 {
		return task, &ValidationError{
			Kind:   InvalidField,
			Field:  "priority",
			Detail: fmt.Sprintf("%q must be one of low, medium, high, critical", task.Priority),
		}
	}

	if task.Phase != nil {
		p := NormalizePhase(task.Phase)
		task.Phase = &p
	}
	return task, nil
}

// IsMilestone reports whether the task is a zero-duration marker.
func IsMilestone(task models.Task) bool {
	return task.Type == models.TaskTypeMilestone
}

// PhaseGroups partitions tasks by phase. Every key of PhaseOrder is present.
type PhaseGroups map[models.Phase][]models.Task

// GroupByPhase partitions tasks into the six phase groups, preserving input
// order within each group.
func GroupByPhase(tasks []models.Task) PhaseGroups {
	groups := make(PhaseGroups, len(PhaseOrder))
	for _, p := range PhaseOrder {
		groups[p] = []models.Task{}
	}
	for _, t := range tasks {
		key := NormalizePhase(t.Phase)
		groups[key] = append(groups[key], t)
	}
	return groups
}

// ConsistencyIssue flags a task whose progress and status disagree. These are
// advisory and never block a write.
type ConsistencyIssue struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

// CheckConsistency reports disagreement between progress and status:
// progress 100 without status completed, and the reverse.
func CheckConsistency(task models.Task) []ConsistencyIssue {
	var issues []ConsistencyIssue
	if task.Progress == 100 && task.Status != models.StatusCompleted {
		issues = append(issues, ConsistencyIssue{
			TaskID:  task.ID,
			Message: fmt.Sprintf("task %q is at 100%% but has status %s", task.Name, task.Status),
		})
	}
	if task.Status == models.StatusCompleted && task.Progress != 100 {
		issues = append(issues, ConsistencyIssue{
			TaskID:  task.ID,
			Message: fmt.Sprintf("task %q is completed but progress is %d%%", task.Name, task.Progress),
		})
	}
	return issues
}
