package models

import "time"

// TaskType distinguishes ordinary work items from milestones and phase
// containers.
type TaskType string

const (
	TaskTypeTask      TaskType = "task"
	TaskTypeMilestone TaskType = "milestone"
	TaskTypePhase     TaskType = "phase"
)

// Phase is the construction phase a task belongs to.
type Phase string

const (
	PhasePreparation  Phase = "preparation"
	PhaseGrosOeuvre   Phase = "gros_oeuvre"
	PhaseSecondOeuvre Phase = "second_oeuvre"
	PhaseFinitions    Phase = "finitions"
	PhaseLivraison    Phase = "livraison"
	// PhaseOther collects tasks with no phase or an unrecognized one.
	PhaseOther Phase = "other"
)

// TaskStatus represents the current lifecycle state of a task.
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not_started"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusDelayed    TaskStatus = "delayed"
	StatusBlocked    TaskStatus = "blocked"
)

// Priority represents the urgency level of a task.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank orders priorities from low (0) to critical (3). Unknown values rank -1.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityCritical:
		return 3
	default:
		return -1
	}
}

// Task is a schedulable unit of construction work within a project. Start and
// end dates are inclusive calendar days.
type Task struct {
	ID                string     `json:"id" yaml:"id" db:"id"`
	ProjectID         string     `json:"project_id" yaml:"project_id" db:"project_id"`
	Name              string     `json:"name" yaml:"name" db:"name"`
	Description       *string    `json:"description,omitempty" yaml:"description,omitempty" db:"description"`
	Type              TaskType   `json:"type" yaml:"type" db:"task_type"`
	Phase             *Phase     `json:"phase,omitempty" yaml:"phase,omitempty" db:"phase"`
	CFCLineID         *string    `json:"cfc_line_id,omitempty" yaml:"cfc_line_id,omitempty" db:"cfc_line_id"`
	StartDate         Date       `json:"start_date" yaml:"start_date" db:"start_date"`
	EndDate           Date       `json:"end_date" yaml:"end_date" db:"end_date"`
	ActualStartDate   *Date      `json:"actual_start_date,omitempty" yaml:"actual_start_date,omitempty" db:"actual_start_date"`
	ActualEndDate     *Date      `json:"actual_end_date,omitempty" yaml:"actual_end_date,omitempty" db:"actual_end_date"`
	Progress          int        `json:"progress" yaml:"progress" db:"progress"`
	Status            TaskStatus `json:"status" yaml:"status" db:"status"`
	ResponsibleUserID *string    `json:"responsible_user_id,omitempty" yaml:"responsible_user_id,omitempty" db:"responsible_user_id"`
	ParentTaskID      *string    `json:"parent_task_id,omitempty" yaml:"parent_task_id,omitempty" db:"parent_task_id"`
	Priority          Priority   `json:"priority" yaml:"priority" db:"priority"`
	CreatedAt         time.Time  `json:"created_at" yaml:"-" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" yaml:"-" db:"updated_at"`
}

// TaskUpdate is a partial update of a task. Nil fields are left unchanged.
type TaskUpdate struct {
	Name              *string     `json:"name,omitempty"`
	Description       *string     `json:"description,omitempty"`
	Type              *TaskType   `json:"type,omitempty"`
	Phase             *Phase      `json:"phase,omitempty"`
	StartDate         *Date       `json:"start_date,omitempty"`
	EndDate           *Date       `json:"end_date,omitempty"`
	ActualStartDate   *Date       `json:"actual_start_date,omitempty"`
	ActualEndDate     *Date       `json:"actual_end_date,omitempty"`
	Progress          *int        `json:"progress,omitempty"`
	Status            *TaskStatus `json:"status,omitempty"`
	ResponsibleUserID *string     `json:"responsible_user_id,omitempty"`
	ParentTaskID      *string     `json:"parent_task_id,omitempty"`
	Priority          *Priority   `json:"priority,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u TaskUpdate) IsEmpty() bool {
	return u == TaskUpdate{}
}

// Apply returns a copy of t with the non-nil fields of u applied.
func (u TaskUpdate) Apply(t Task) Task {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Description != nil {
		t.Description = optional(*u.Description)
	}
	if u.Type != nil {
		t.Type = *u.Type
	}
	if u.Phase != nil {
		t.Phase = u.Phase
	}
	if u.StartDate != nil {
		t.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		t.EndDate = *u.EndDate
	}
	if u.ActualStartDate != nil {
		t.ActualStartDate = u.ActualStartDate
	}
	if u.ActualEndDate != nil {
		t.ActualEndDate = u.ActualEndDate
	}
	if u.Progress != nil {
		t.Progress = *u.Progress
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.ResponsibleUserID != nil {
		t.ResponsibleUserID = optional(*u.ResponsibleUserID)
	}
	if u.ParentTaskID != nil {
		t.ParentTaskID = optional(*u.ParentTaskID)
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	return t
}

// optional maps an empty string to nil, the way the store clears a column.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
