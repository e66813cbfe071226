package models

import "time"

// IssueSeverity grades a problem recorded in the site diary.
type IssueSeverity string

const (
	IssueLow    IssueSeverity = "low"
	IssueMedium IssueSeverity = "medium"
	IssueHigh   IssueSeverity = "high"
)

// WorkforceEntry records one trade present on site for a diary day.
type WorkforceEntry struct {
	Trade     string   `json:"trade" yaml:"trade"`
	Company   *string  `json:"company,omitempty" yaml:"company,omitempty"`
	Headcount int      `json:"headcount" yaml:"headcount"`
	Hours     *float64 `json:"hours,omitempty" yaml:"hours,omitempty"`
}

// IssueEntry records a problem observed on site, optionally tied to a
// planning task.
type IssueEntry struct {
	Description string        `json:"description" yaml:"description"`
	Severity    IssueSeverity `json:"severity" yaml:"severity"`
	TaskID      *string       `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	Resolved    bool          `json:"resolved" yaml:"resolved"`
}

// DiaryEntry is a daily site diary record for a project.
type DiaryEntry struct {
	ID              string           `json:"id" yaml:"id"`
	ProjectID       string           `json:"project_id" yaml:"project_id"`
	EntryDate       Date             `json:"entry_date" yaml:"entry_date"`
	Weather         *string          `json:"weather,omitempty" yaml:"weather,omitempty"`
	Notes           *string          `json:"notes,omitempty" yaml:"notes,omitempty"`
	Workforce       []WorkforceEntry `json:"workforce" yaml:"workforce"`
	Issues          []IssueEntry     `json:"issues" yaml:"issues"`
	PlanningPhaseID *string          `json:"planning_phase_id,omitempty" yaml:"planning_phase_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at" yaml:"-"`
}

// Headcount returns the total number of workers recorded on the entry.
func (e DiaryEntry) Headcount() int {
	total := 0
	for _, w := range e.Workforce {
		total += w.Headcount
	}
	return total
}

// OpenIssues returns the number of unresolved issues on the entry.
func (e DiaryEntry) OpenIssues() int {
	n := 0
	for _, i := range e.Issues {
		if !i.Resolved {
			n++
		}
	}
	return n
}
