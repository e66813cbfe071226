package core

import (
	"math"

	"github.com/valter-silva-au/site-planner/pkg/models"
)

// Summary is the project-level progress roll-up.
type Summary struct {
	GlobalProgress int `json:"global_progress"`
	DelayedTasks   int `json:"delayed_tasks"`
	InProgress     int `json:"in_progress"`
	Completed      int `json:"completed"`
	TotalTasks     int `json:"total_tasks"`
}

// PhaseSummary is the roll-up of a single phase group. StartDate and EndDate
// are nil when the phase has no tasks.
type PhaseSummary struct {
	TotalTasks      int          `json:"total_tasks"`
	CompletedTasks  int          `json:"completed_tasks"`
	InProgressTasks int          `json:"in_progress_tasks"`
	DelayedTasks    int          `json:"delayed_tasks"`
	AvgProgress     int          `json:"avg_progress"`
	StartDate       *models.Date `json:"start_date,omitempty"`
	EndDate         *models.Date `json:"end_date,omitempty"`
}

// Summarize computes the unweighted mean progress (rounded half away from
// zero) and per-status counts. An empty list yields the zero Summary.
func Summarize(tasks []models.Task) Summary {
	s := Summary{TotalTasks: len(tasks)}
	if len(tasks) == 0 {
		return s
	}

	sum := 0
	for _, t := range tasks {
		sum += t.Progress
		switch t.Status {
		case models.StatusDelayed:
			s.DelayedTasks++
		case models.StatusInProgress:
			s.InProgress++
		case models.StatusCompleted:
			s.Completed++
		}
	}
	s.GlobalProgress = roundedMean(sum, len(tasks))
	return s
}

// SummarizeByPhase computes a PhaseSummary for each of the six phase groups.
// All keys of PhaseOrder are present in the result.
func SummarizeByPhase(tasks []models.Task) map[models.Phase]PhaseSummary {
	groups := GroupByPhase(tasks)
	out := make(map[models.Phase]PhaseSummary, len(PhaseOrder))
	for _, phase := range PhaseOrder {
		out[phase] = summarizePhase(groups[phase])
	}
	return out
}

func summarizePhase(tasks []models.Task) PhaseSummary {
	ps := PhaseSummary{TotalTasks: len(tasks)}
	if len(tasks) == 0 {
		return ps
	}

	start, end := tasks[0].StartDate, tasks[0].EndDate
	sum := 0
	for _, t := range tasks {
		sum += t.Progress
		switch t.Status {
		case models.StatusCompleted:
			ps.CompletedTasks++
		case models.StatusInProgress:
			ps.InProgressTasks++
		case models.StatusDelayed:
			ps.DelayedTasks++
		}
		start = models.MinDate(start, t.StartDate)
		end = models.MaxDate(end, t.EndDate)
	}
	ps.AvgProgress = roundedMean(sum, len(tasks))
	ps.StartDate = &start
	ps.EndDate = &end
	return ps
}

// ProjectWindow returns the earliest planned start and the latest planned end
// across tasks, or nils for an empty list.
func ProjectWindow(tasks []models.Task) (start, end *models.Date) {
	if len(tasks) == 0 {
		return nil, nil
	}
	s, e := tasks[0].StartDate, tasks[0].EndDate
	for _, t := range tasks[1:] {
		s = models.MinDate(s, t.StartDate)
		e = models.MaxDate(e, t.EndDate)
	}
	return &s, &e
}

func roundedMean(sum, n int) int {
	return int(math.Round(float64(sum) / float64(n)))
}
