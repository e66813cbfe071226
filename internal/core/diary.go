package core

import (
	"fmt"
	"strings"

	"github.com/valter-silva-au/site-planner/pkg/models"
)

var validIssueSeverities = map[models.IssueSeverity]bool{
	models.IssueLow:    true,
	models.IssueMedium: true,
	models.IssueHigh:   true,
}

// ValidateDiaryEntry checks a site diary entry at ingestion and returns it
// with defaults applied (nil lists become empty, empty issue severity
// becomes medium).
func ValidateDiaryEntry(e models.DiaryEntry) (models.DiaryEntry, error) {
	if strings.TrimSpace(e.ProjectID) == "" {
		return e, &ValidationError{Kind: InvalidField, Field: "project_id", Detail: "project id is required"}
	}
	if e.EntryDate.IsZero() {
		return e, &ValidationError{Kind: MissingDate, Field: "entry_date", Detail: "entry date is required"}
	}

	if e.Workforce == nil {
		e.Workforce = []models.WorkforceEntry{}
	}
	for i, w := range e.Workforce {
		if strings.TrimSpace(w.Trade) == "" {
			return e, &ValidationError{Kind: InvalidField, Field: fmt.Sprintf("workforce[%d].trade", i), Detail: "trade is required"}
		}
		if w.Headcount < 0 {
			return e, &ValidationError{Kind: InvalidField, Field: fmt.Sprintf("workforce[%d].headcount", i), Detail: fmt.Sprintf("%d is negative", w.Headcount)}
		}
		if w.Hours != nil && *w.Hours < 0 {
			return e, &ValidationError{Kind: InvalidField, Field: fmt.Sprintf("workforce[%d].hours", i), Detail: "hours must not be negative"}
		}
	}

	e.Issues = append([]models.IssueEntry{}, e.Issues...)
	for i := range e.Issues {
		issue := &e.Issues[i]
		if strings.TrimSpace(issue.Description) == "" {
			return e, &ValidationError{Kind: InvalidField, Field: fmt.Sprintf("issues[%d].description", i), Detail: "description is required"}
		}
		if issue.Severity == "" {
			issue.Severity = models.IssueMedium
		}
		if !validIssueSeverities[issue.Severity] {
			return e, &ValidationError{Kind: InvalidField, Field: fmt.Sprintf("issues[%d].severity", i), Detail: fmt.Sprintf("%q must be one of low, medium, high", issue.Severity)}
		}
	}

	return e, nil
}
