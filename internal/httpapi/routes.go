package httpapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/valter-silva-au/site-planner/internal/httpapi/middleware"
)

// Register mounts the planning routes and middleware on e.
func Register(e *echo.Echo, h *Handler, log logrus.FieldLogger, rateLimitPerMinute int) {
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.RateLimiter(rateLimitPerMinute, time.Minute))

	e.GET("/healthz", h.Health)

	e.GET("/projects/:id/planning", h.GetPlanning)
	e.GET("/projects/:id/timeline", h.GetTimeline)
	e.POST("/projects/:id/tasks", h.CreateTask)
	e.GET("/projects/:id/alerts", h.ListAlerts)
	e.POST("/projects/:id/alerts/detect", h.DetectAlerts)
	e.GET("/projects/:id/diary", h.ListDiary)
	e.POST("/projects/:id/diary", h.AddDiaryEntry)

	e.GET("/tasks/:id", h.GetTask)
	e.PATCH("/tasks/:id", h.UpdateTask)
	e.DELETE("/tasks/:id", h.DeleteTask)

	e.POST("/alerts/:id/resolve", h.ResolveAlert)
}

// NewEcho returns an echo instance with every route registered.
func NewEcho(h *Handler, log logrus.FieldLogger, rateLimitPerMinute int) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	Register(e, h, log, rateLimitPerMinute)
	return e
}
