// Package mcp provides an MCP (Model Context Protocol) server that exposes
// project planning as tools for AI assistants.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/valter-silva-au/site-planner/internal/core"
	"github.com/valter-silva-au/site-planner/pkg/models"
)

// Server wraps the planning service and exposes it as MCP tools.
type Server struct {
	server   *gomcp.Server
	planner  core.PlanningService
	timeline *core.Timeline
	now      func() time.Time
}

// NewServer creates a new MCP server backed by planner. timeline supplies the
// zoom range and geometry for get_timeline.
func NewServer(planner core.PlanningService, timeline *core.Timeline, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		planner:  planner,
		timeline: timeline,
		now:      time.Now,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "splan", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run serves MCP over stdio, blocking until the client disconnects or the
// context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type projectInput struct {
	ProjectID string `json:"project_id" jsonschema:"the project identifier"`
}

type taskOutput struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Phase       string `json:"phase"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Progress    int    `json:"progress"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Responsible string `json:"responsible,omitempty"`
	ParentID    string `json:"parent_task_id,omitempty"`
}

type listTasksInput struct {
	ProjectID string `json:"project_id" jsonschema:"the project identifier"`
	Status    string `json:"status,omitempty" jsonschema:"filter by status (not_started, in_progress, completed, delayed, blocked)"`
	Phase     string `json:"phase,omitempty" jsonschema:"filter by phase (preparation, gros_oeuvre, second_oeuvre, finitions, livraison, other)"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type phaseOutput struct {
	Phase           string `json:"phase"`
	TotalTasks      int    `json:"total_tasks"`
	CompletedTasks  int    `json:"completed_tasks"`
	InProgressTasks int    `json:"in_progress_tasks"`
	DelayedTasks    int    `json:"delayed_tasks"`
	AvgProgress     int    `json:"avg_progress"`
	StartDate       string `json:"start_date,omitempty"`
	EndDate         string `json:"end_date,omitempty"`
}

type summaryOutput struct {
	ProjectID      string        `json:"project_id"`
	GlobalProgress int           `json:"global_progress"`
	TotalTasks     int           `json:"total_tasks"`
	Completed      int           `json:"completed"`
	InProgress     int           `json:"in_progress"`
	Delayed        int           `json:"delayed"`
	Start          string        `json:"start,omitempty"`
	End            string        `json:"end,omitempty"`
	Phases         []phaseOutput `json:"phases"`
	OpenAlerts     int           `json:"open_alerts"`
	Issues         []string      `json:"issues,omitempty"`
}

type getTimelineInput struct {
	ProjectID string  `json:"project_id" jsonschema:"the project identifier"`
	Zoom      float64 `json:"zoom,omitempty" jsonschema:"zoom factor, clamped to the configured range. Defaults to 1."`
	Origin    string  `json:"origin,omitempty" jsonschema:"left edge of the view as YYYY-MM-DD. Defaults to the project start."`
}

type barOutput struct {
	TaskID       string  `json:"task_id"`
	Name         string  `json:"name"`
	Left         float64 `json:"left"`
	Width        float64 `json:"width"`
	OffsetDays   int     `json:"offset_days"`
	DurationDays int     `json:"duration_days"`
}

type rowOutput struct {
	Phase string      `json:"phase"`
	Bars  []barOutput `json:"bars"`
}

type monthOutput struct {
	Start string  `json:"start"`
	Left  float64 `json:"left"`
	Width float64 `json:"width"`
}

type markerOutput struct {
	TaskID    string  `json:"task_id"`
	Name      string  `json:"name"`
	Date      string  `json:"date"`
	X         float64 `json:"x"`
	Completed bool    `json:"completed"`
}

type timelineOutput struct {
	Origin     string         `json:"origin"`
	Zoom       float64        `json:"zoom"`
	PxPerDay   float64        `json:"px_per_day"`
	TotalWidth float64        `json:"total_width"`
	Months     []monthOutput  `json:"months"`
	Rows       []rowOutput    `json:"rows"`
	Markers    []markerOutput `json:"markers"`
}

type alertOutput struct {
	ID         string `json:"id"`
	TaskID     string `json:"task_id,omitempty"`
	Type       string `json:"alert_type"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
	Resolved   bool   `json:"resolved"`
	ResolvedAt string `json:"resolved_at,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

type detectAlertsOutput struct {
	Raised []alertOutput `json:"raised"`
	Stale  []alertOutput `json:"stale"`
}

type resolveAlertInput struct {
	AlertID string `json:"alert_id" jsonschema:"the alert identifier"`
}

type updateProgressInput struct {
	TaskID   string `json:"task_id" jsonschema:"the task identifier"`
	Progress int    `json:"progress" jsonschema:"completion percentage between 0 and 100"`
	Status   string `json:"status,omitempty" jsonschema:"optional new status (not_started, in_progress, completed, delayed, blocked)"`
}

type messageOutput struct {
	Message string `json:"message"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List the planning tasks of a project, optionally filtered by status or phase.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_summary",
		Description: "Get the progress roll-up of a project: global progress, status counts, per-phase summaries and the project window.",
	}, s.handleGetSummary)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_timeline",
		Description: "Lay out the project's Gantt timeline: month headers, phase rows with bar pixel positions, and milestone markers.",
	}, s.handleGetTimeline)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "List the unresolved planning alerts of a project, most severe first.",
	}, s.handleGetAlerts)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "detect_alerts",
		Description: "Run alert detection for a project. Inserts new delay, dependency, milestone and resource alerts without duplicating open ones.",
	}, s.handleDetectAlerts)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "resolve_alert",
		Description: "Mark an alert as resolved. Resolving an already resolved alert keeps its original resolution time.",
	}, s.handleResolveAlert)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "update_task_progress",
		Description: "Set a task's completion percentage (0-100) and optionally its status.",
	}, s.handleUpdateProgress)
}

// --- Tool handlers ---

func (s *Server) handleListTasks(ctx context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	if input.ProjectID == "" {
		return errorResult("project_id is required"), listTasksOutput{}, nil
	}

	snap, err := s.planner.Refresh(ctx, input.ProjectID)
	if err != nil {
		return errorResult(fmt.Sprintf("listing tasks: %s", err)), listTasksOutput{}, nil
	}

	var status models.TaskStatus
	if input.Status != "" {
		if status, err = core.ParseStatus(input.Status); err != nil {
			return errorResult(err.Error()), listTasksOutput{}, nil
		}
	}
	var phase models.Phase
	if input.Phase != "" {
		phase = core.ParsePhase(input.Phase)
	}

	out := listTasksOutput{Tasks: []taskOutput{}}
	for _, t := range snap.Tasks {
		if status != "" && t.Status != status {
			continue
		}
		if phase != "" && core.NormalizePhase(t.Phase) != phase {
			continue
		}
		out.Tasks = append(out.Tasks, taskToOutput(t))
	}
	out.Count = len(out.Tasks)

	return nil, out, nil
}

func (s *Server) handleGetSummary(ctx context.Context, _ *gomcp.CallToolRequest, input projectInput) (*gomcp.CallToolResult, summaryOutput, error) {
	if input.ProjectID == "" {
		return errorResult("project_id is required"), summaryOutput{}, nil
	}

	snap, err := s.planner.Refresh(ctx, input.ProjectID)
	if err != nil {
		return errorResult(fmt.Sprintf("summarizing project: %s", err)), summaryOutput{}, nil
	}

	out := summaryOutput{
		ProjectID:      snap.ProjectID,
		GlobalProgress: snap.Summary.GlobalProgress,
		TotalTasks:     snap.Summary.TotalTasks,
		Completed:      snap.Summary.Completed,
		InProgress:     snap.Summary.InProgress,
		Delayed:        snap.Summary.DelayedTasks,
		Start:          dateString(snap.Start),
		End:            dateString(snap.End),
		Phases:         make([]phaseOutput, 0, len(core.PhaseOrder)),
		OpenAlerts:     len(snap.Alerts),
	}
	for _, phase := range core.PhaseOrder {
		ps := snap.Phases[phase]
		out.Phases = append(out.Phases, phaseOutput{
			Phase:           string(phase),
			TotalTasks:      ps.TotalTasks,
			CompletedTasks:  ps.CompletedTasks,
			InProgressTasks: ps.InProgressTasks,
			DelayedTasks:    ps.DelayedTasks,
			AvgProgress:     ps.AvgProgress,
			StartDate:       dateString(ps.StartDate),
			EndDate:         dateString(ps.EndDate),
		})
	}
	for _, issue := range snap.Issues {
		out.Issues = append(out.Issues, issue.Message)
	}

	return nil, out, nil
}

func (s *Server) handleGetTimeline(ctx context.Context, _ *gomcp.CallToolRequest, input getTimelineInput) (*gomcp.CallToolResult, timelineOutput, error) {
	if input.ProjectID == "" {
		return errorResult("project_id is required"), timelineOutput{}, nil
	}

	view := s.timeline.DefaultView()
	if input.Zoom != 0 {
		view.Zoom = s.timeline.ClampZoom(input.Zoom)
	}
	if input.Origin != "" {
		origin, err := models.ParseDate(input.Origin)
		if err != nil {
			return errorResult(fmt.Sprintf("parsing origin: %s", err)), timelineOutput{}, nil
		}
		view.Origin = &origin
	}

	snap, err := s.planner.Refresh(ctx, input.ProjectID)
	if err != nil {
		return errorResult(fmt.Sprintf("loading tasks: %s", err)), timelineOutput{}, nil
	}

	layout := s.timeline.Layout(snap.Tasks, view, models.Today(s.now()))
	return nil, layoutToOutput(layout), nil
}

func (s *Server) handleGetAlerts(ctx context.Context, _ *gomcp.CallToolRequest, input projectInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if input.ProjectID == "" {
		return errorResult("project_id is required"), getAlertsOutput{}, nil
	}

	snap, err := s.planner.Refresh(ctx, input.ProjectID)
	if err != nil {
		return errorResult(fmt.Sprintf("listing alerts: %s", err)), getAlertsOutput{}, nil
	}

	out := getAlertsOutput{
		Alerts: alertsToOutput(snap.Alerts),
		Count:  len(snap.Alerts),
	}
	return nil, out, nil
}

func (s *Server) handleDetectAlerts(ctx context.Context, _ *gomcp.CallToolRequest, input projectInput) (*gomcp.CallToolResult, detectAlertsOutput, error) {
	if input.ProjectID == "" {
		return errorResult("project_id is required"), detectAlertsOutput{}, nil
	}

	result, err := s.planner.DetectAlerts(ctx, input.ProjectID)
	if err != nil {
		return errorResult(fmt.Sprintf("detecting alerts: %s", err)), detectAlertsOutput{}, nil
	}

	out := detectAlertsOutput{
		Raised: alertsToOutput(result.Raised),
		Stale:  alertsToOutput(result.Stale),
	}
	return nil, out, nil
}

func (s *Server) handleResolveAlert(ctx context.Context, _ *gomcp.CallToolRequest, input resolveAlertInput) (*gomcp.CallToolResult, alertOutput, error) {
	if input.AlertID == "" {
		return errorResult("alert_id is required"), alertOutput{}, nil
	}

	alert, err := s.planner.ResolveAlert(ctx, input.AlertID)
	if err != nil {
		return errorResult(fmt.Sprintf("resolving alert %s: %s", input.AlertID, err)), alertOutput{}, nil
	}
	return nil, alertToOutput(*alert), nil
}

func (s *Server) handleUpdateProgress(ctx context.Context, _ *gomcp.CallToolRequest, input updateProgressInput) (*gomcp.CallToolResult, messageOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), messageOutput{}, nil
	}

	update := models.TaskUpdate{Progress: &input.Progress}
	if input.Status != "" {
		status, err := core.ParseStatus(input.Status)
		if err != nil {
			return errorResult(err.Error()), messageOutput{}, nil
		}
		update.Status = &status
	}

	if err := s.planner.UpdateTask(ctx, input.TaskID, update); err != nil {
		return errorResult(fmt.Sprintf("updating task %s: %s", input.TaskID, err)), messageOutput{}, nil
	}

	msg := fmt.Sprintf("task %s progress set to %d%%", input.TaskID, input.Progress)
	if update.Status != nil {
		msg += fmt.Sprintf(", status %s", *update.Status)
	}
	return nil, messageOutput{Message: msg}, nil
}

// --- Helpers ---

func taskToOutput(t models.Task) taskOutput {
	out := taskOutput{
		ID:        t.ID,
		Name:      t.Name,
		Type:      string(t.Type),
		Phase:     string(core.NormalizePhase(t.Phase)),
		StartDate: t.StartDate.String(),
		EndDate:   t.EndDate.String(),
		Progress:  t.Progress,
		Status:    string(t.Status),
		Priority:  string(t.Priority),
	}
	if t.ResponsibleUserID != nil {
		out.Responsible = *t.ResponsibleUserID
	}
	if t.ParentTaskID != nil {
		out.ParentID = *t.ParentTaskID
	}
	return out
}

func alertToOutput(a models.Alert) alertOutput {
	out := alertOutput{
		ID:        a.ID,
		Type:      string(a.Type),
		Severity:  string(a.Severity),
		Message:   a.Message,
		Resolved:  a.Resolved,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
	if a.TaskID != nil {
		out.TaskID = *a.TaskID
	}
	if a.ResolvedAt != nil {
		out.ResolvedAt = a.ResolvedAt.Format(time.RFC3339)
	}
	return out
}

func alertsToOutput(alerts []models.Alert) []alertOutput {
	out := make([]alertOutput, len(alerts))
	for i, a := range alerts {
		out[i] = alertToOutput(a)
	}
	return out
}

func layoutToOutput(l core.TimelineLayout) timelineOutput {
	out := timelineOutput{
		Origin:     l.Origin.String(),
		Zoom:       l.Zoom,
		PxPerDay:   l.PxPerDay,
		TotalWidth: l.TotalWidth,
		Months:     make([]monthOutput, len(l.Months)),
		Rows:       make([]rowOutput, len(l.Rows)),
		Markers:    make([]markerOutput, len(l.Markers)),
	}
	for i, m := range l.Months {
		out.Months[i] = monthOutput{Start: m.Start.String(), Left: m.Left, Width: m.Width}
	}
	for i, r := range l.Rows {
		row := rowOutput{Phase: string(r.Phase), Bars: make([]barOutput, len(r.Bars))}
		for j, b := range r.Bars {
			row.Bars[j] = barOutput{
				TaskID:       b.Task.ID,
				Name:         b.Task.Name,
				Left:         b.Left,
				Width:        b.Width,
				OffsetDays:   b.OffsetDays,
				DurationDays: b.DurationDays,
			}
		}
		out.Rows[i] = row
	}
	for i, m := range l.Markers {
		out.Markers[i] = markerOutput{
			TaskID:    m.TaskID,
			Name:      m.Name,
			Date:      m.Date.String(),
			X:         m.X,
			Completed: m.Completed,
		}
	}
	return out
}

func dateString(d *models.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
