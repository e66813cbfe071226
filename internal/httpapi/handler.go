// Package httpapi exposes the planning service over a JSON HTTP API.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/valter-silva-au/site-planner/internal/core"
	"github.com/valter-silva-au/site-planner/pkg/models"
)

// Handler serves the planning endpoints.
type Handler struct {
	planner  core.PlanningService
	timeline *core.Timeline
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewHandler creates a Handler.
func NewHandler(planner core.PlanningService, timeline *core.Timeline, log logrus.FieldLogger) *Handler {
	return &Handler{
		planner:  planner,
		timeline: timeline,
		log:      log,
		now:      time.Now,
	}
}

// TimelineResponse is the body of GET /projects/:id/timeline.
type TimelineResponse struct {
	core.TimelineLayout
	Summary core.Summary `json:"summary"`
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (h *Handler) GetPlanning(c echo.Context) error {
	snap, err := h.planner.Refresh(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, snap)
}

// GetTimeline lays out the project's Gantt chart. Query parameters: zoom
// (clamped to the configured range) and origin (YYYY-MM-DD).
func (h *Handler) GetTimeline(c echo.Context) error {
	view := h.timeline.DefaultView()
	if z := c.QueryParam("zoom"); z != "" {
		zoom, err := cast.ToFloat64E(z)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "zoom must be a number")
		}
		view.Zoom = h.timeline.ClampZoom(zoom)
	}
	if o := c.QueryParam("origin"); o != "" {
		origin, err := models.ParseDate(o)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		view.Origin = &origin
	}

	snap, err := h.planner.Refresh(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(err)
	}
	layout := h.timeline.Layout(snap.Tasks, view, models.Today(h.now()))
	return c.JSON(http.StatusOK, TimelineResponse{TimelineLayout: layout, Summary: snap.Summary})
}

func (h *Handler) CreateTask(c echo.Context) error {
	var task models.Task
	if err := c.Bind(&task); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}
	task.ProjectID = c.Param("id")

	created, err := h.planner.CreateTask(c.Request().Context(), task)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetTask(c echo.Context) error {
	task, err := h.planner.GetTask(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, task)
}

// UpdateTask applies a partial update and returns the stored task.
func (h *Handler) UpdateTask(c echo.Context) error {
	var update models.TaskUpdate
	if err := c.Bind(&update); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}

	ctx := c.Request().Context()
	id := c.Param("id")
	if err := h.planner.UpdateTask(ctx, id, update); err != nil {
		return h.fail(err)
	}
	task, err := h.planner.GetTask(ctx, id)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, task)
}

func (h *Handler) DeleteTask(c echo.Context) error {
	if err := h.planner.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
		return h.fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListAlerts(c echo.Context) error {
	snap, err := h.planner.Refresh(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"count":  len(snap.Alerts),
		"alerts": snap.Alerts,
	})
}

func (h *Handler) DetectAlerts(c echo.Context) error {
	result, err := h.planner.DetectAlerts(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"raised": nonNil(result.Raised),
		"stale":  nonNil(result.Stale),
	})
}

func (h *Handler) ResolveAlert(c echo.Context) error {
	alert, err := h.planner.ResolveAlert(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, alert)
}

func (h *Handler) ListDiary(c echo.Context) error {
	entries, err := h.planner.ListDiary(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"count":   len(entries),
		"entries": entries,
	})
}

func (h *Handler) AddDiaryEntry(c echo.Context) error {
	var entry models.DiaryEntry
	if err := c.Bind(&entry); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}
	entry.ProjectID = c.Param("id")

	created, err := h.planner.AddDiaryEntry(c.Request().Context(), entry)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusCreated, created)
}

// fail maps planning errors onto HTTP status codes. Store failures are
// logged and reported without their internal detail.
func (h *Handler) fail(err error) error {
	switch {
	case core.IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case core.IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	var se *core.StoreError
	if errors.As(err, &se) {
		h.log.WithError(err).WithField("op", se.Op).Error("store failure")
		return echo.NewHTTPError(http.StatusInternalServerError, "storage unavailable")
	}
	h.log.WithError(err).Error("unexpected failure")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}

func nonNil(alerts []models.Alert) []models.Alert {
	if alerts == nil {
		return []models.Alert{}
	}
	return alerts
}
