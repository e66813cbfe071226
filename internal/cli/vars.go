package cli

import (
	"github.com/sirupsen/logrus"

	"github.com/valter-silva-au/site-planner/internal/core"
	"github.com/valter-silva-au/site-planner/internal/observability"
	"github.com/valter-silva-au/site-planner/pkg/models"
)

// SecretStore holds credentials such as the Slack webhook URL.
type SecretStore interface {
	Set(key, value string) error
	Delete(key string) error
}

// Service instances, set during app initialization in app.go.
var (
	BasePath string
	Config   *models.Config
	Logger   *logrus.Logger

	Planner  core.PlanningService
	Timeline *core.Timeline

	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
	Secrets     SecretStore
)
