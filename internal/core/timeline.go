package core

import (
	"math"

	"github.com/valter-silva-au/site-planner/pkg/models"
)

// minMonthsToShow is the smallest number of months a timeline window spans.
const minMonthsToShow = 12

// ViewState is the user-controlled part of a timeline: zoom factor and the
// left edge of the visible window. A nil Origin means the project start.
type ViewState struct {
	Zoom   float64      `json:"zoom"`
	Origin *models.Date `json:"origin,omitempty"`
}

// BarPosition places a task on the horizontal pixel axis.
type BarPosition struct {
	Left         float64 `json:"left"`
	Width        float64 `json:"width"`
	OffsetDays   int     `json:"offset_days"`
	DurationDays int     `json:"duration_days"`
}

// Bar is a positioned task.
type Bar struct {
	Task models.Task `json:"task"`
	BarPosition
}

// PhaseRow holds the bars of one phase group, in input order.
type PhaseRow struct {
	Phase models.Phase `json:"phase"`
	Bars  []Bar        `json:"bars"`
}

// MonthHeader is one column header of the timeline.
type MonthHeader struct {
	Start models.Date `json:"start"`
	Left  float64     `json:"left"`
	Width float64     `json:"width"`
}

// MilestoneMarker is the x coordinate of a milestone on the timeline.
type MilestoneMarker struct {
	TaskID    string      `json:"task_id"`
	Name      string      `json:"name"`
	Date      models.Date `json:"date"`
	X         float64     `json:"x"`
	Completed bool        `json:"completed"`
}

// TimelineLayout is the full geometry of a rendered timeline.
type TimelineLayout struct {
	Origin     models.Date       `json:"origin"`
	Zoom       float64           `json:"zoom"`
	PxPerDay   float64           `json:"px_per_day"`
	TotalWidth float64           `json:"total_width"`
	Months     []MonthHeader     `json:"months"`
	Rows       []PhaseRow        `json:"rows"`
	Markers    []MilestoneMarker `json:"markers"`
}

// Timeline converts dates into pixel coordinates for a Gantt view.
type Timeline struct {
	cfg models.TimelineConfig
}

// NewTimeline creates a Timeline. Zero-valued fields of cfg fall back to the
// defaults of models.DefaultTimelineConfig.
func NewTimeline(cfg models.TimelineConfig) *Timeline {
	def := models.DefaultTimelineConfig()
	if cfg.DayWidth <= 0 {
		cfg.DayWidth = def.DayWidth
	}
	if cfg.MinZoom <= 0 {
		cfg.MinZoom = def.MinZoom
	}
	if cfg.MaxZoom <= 0 {
		cfg.MaxZoom = def.MaxZoom
	}
	if cfg.ZoomStep <= 0 {
		cfg.ZoomStep = def.ZoomStep
	}
	if cfg.MinBarWidth <= 0 {
		cfg.MinBarWidth = def.MinBarWidth
	}
	if cfg.PanMonths <= 0 {
		cfg.PanMonths = def.PanMonths
	}
	return &Timeline{cfg: cfg}
}

// Config returns the effective timeline configuration.
func (tl *Timeline) Config() models.TimelineConfig {
	return tl.cfg
}

// ClampZoom bounds z to [MinZoom, MaxZoom].
func (tl *Timeline) ClampZoom(z float64) float64 {
	return math.Min(tl.cfg.MaxZoom, math.Max(tl.cfg.MinZoom, z))
}

// PxPerDay returns the horizontal scale at the given (clamped) zoom.
func (tl *Timeline) PxPerDay(zoom float64) float64 {
	return tl.cfg.DayWidth * tl.ClampZoom(zoom)
}

// DefaultView returns zoom 1 anchored at the project start.
func (tl *Timeline) DefaultView() ViewState {
	return ViewState{Zoom: tl.ClampZoom(1)}
}

// ZoomIn increases the zoom by one step, saturating at MaxZoom.
func (tl *Timeline) ZoomIn(v ViewState) ViewState {
	v.Zoom = tl.ClampZoom(v.Zoom + tl.cfg.ZoomStep)
	return v
}

// ZoomOut decreases the zoom by one step, saturating at MinZoom.
func (tl *Timeline) ZoomOut(v ViewState) ViewState {
	v.Zoom = tl.ClampZoom(v.Zoom - tl.cfg.ZoomStep)
	return v
}

// Pan moves the view origin by PanMonths in the given direction (positive
// moves forward in time). fallback anchors a view with no explicit origin.
func (tl *Timeline) Pan(v ViewState, direction int, fallback models.Date) ViewState {
	origin := fallback
	if v.Origin != nil {
		origin = *v.Origin
	}
	switch {
	case direction > 0:
		origin = origin.AddMonths(tl.cfg.PanMonths)
	case direction < 0:
		origin = origin.AddMonths(-tl.cfg.PanMonths)
	}
	v.Origin = &origin
	return v
}

// ProjectStart returns the earliest start date among tasks, or today when
// the list is empty.
func ProjectStart(tasks []models.Task, today models.Date) models.Date {
	if len(tasks) == 0 {
		return today
	}
	start := tasks[0].StartDate
	for _, t := range tasks[1:] {
		start = models.MinDate(start, t.StartDate)
	}
	return start
}

// Position places a task relative to origin. Durations are inclusive, so a
// single-day task lasts one day. Negative offsets are kept; clipping is the
// renderer's job. The width floor keeps short tasks clickable and never
// feeds back into dates.
func (tl *Timeline) Position(task models.Task, origin models.Date, pxPerDay float64) BarPosition {
	offset := models.DaysBetween(origin, task.StartDate)
	duration := models.DaysBetween(task.StartDate, task.EndDate) + 1
	return BarPosition{
		Left:         float64(offset) * pxPerDay,
		Width:        math.Max(float64(duration)*pxPerDay, tl.cfg.MinBarWidth),
		OffsetDays:   offset,
		DurationDays: duration,
	}
}

// MonthsToShow returns how many months the window spans at the given zoom:
// max(12, ceil(12/zoom)).
func (tl *Timeline) MonthsToShow(zoom float64) int {
	n := int(math.Ceil(minMonthsToShow / tl.ClampZoom(zoom)))
	if n < minMonthsToShow {
		return minMonthsToShow
	}
	return n
}

// VisibleMonths returns the first day of every month from the month of
// viewOrigin through monthsToShow months later, both ends included.
func VisibleMonths(viewOrigin models.Date, monthsToShow int) []models.Date {
	first := viewOrigin.StartOfMonth()
	months := make([]models.Date, 0, monthsToShow+1)
	for i := 0; i <= monthsToShow; i++ {
		months = append(months, first.AddMonths(i))
	}
	return months
}

// MilestoneMarkers returns the x coordinate of every milestone. A milestone
// is positioned as a one-day task regardless of its end date.
func (tl *Timeline) MilestoneMarkers(tasks []models.Task, origin models.Date, pxPerDay float64) []MilestoneMarker {
	markers := []MilestoneMarker{}
	for _, t := range tasks {
		if !IsMilestone(t) {
			continue
		}
		pos := tl.Position(milestoneDay(t), origin, pxPerDay)
		markers = append(markers, MilestoneMarker{
			TaskID:    t.ID,
			Name:      t.Name,
			Date:      t.StartDate,
			X:         pos.Left,
			Completed: t.Status == models.StatusCompleted,
		})
	}
	return markers
}

// Layout computes the full timeline geometry for tasks under the given view.
// Rows follow PhaseOrder and omit empty phases.
func (tl *Timeline) Layout(tasks []models.Task, view ViewState, today models.Date) TimelineLayout {
	zoom := tl.ClampZoom(view.Zoom)
	px := tl.PxPerDay(zoom)

	origin := ProjectStart(tasks, today)
	if view.Origin != nil {
		origin = *view.Origin
	}

	layout := TimelineLayout{
		Origin:   origin,
		Zoom:     zoom,
		PxPerDay: px,
		Rows:     []PhaseRow{},
		Markers:  tl.MilestoneMarkers(tasks, origin, px),
	}

	for _, start := range VisibleMonths(origin, tl.MonthsToShow(zoom)) {
		header := MonthHeader{
			Start: start,
			Left:  float64(models.DaysBetween(origin, start)) * px,
			Width: float64(start.DaysInMonth()) * px,
		}
		layout.Months = append(layout.Months, header)
		layout.TotalWidth = header.Left + header.Width
	}

	groups := GroupByPhase(tasks)
	for _, phase := range PhaseOrder {
		group := groups[phase]
		if len(group) == 0 {
			continue
		}
		row := PhaseRow{Phase: phase, Bars: make([]Bar, 0, len(group))}
		for _, t := range group {
			positioned := t
			if IsMilestone(t) {
				positioned = milestoneDay(t)
			}
			row.Bars = append(row.Bars, Bar{Task: t, BarPosition: tl.Position(positioned, origin, px)})
		}
		layout.Rows = append(layout.Rows, row)
	}

	return layout
}

func milestoneDay(t models.Task) models.Task {
	t.EndDate = t.StartDate
	return t
}
