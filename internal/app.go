// Package internal provides the App struct that wires all components of the
// site planner together and initializes the CLI layer.
package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/rueidis"
	"github.com/sirupsen/logrus"

	"github.com/valter-silva-au/site-planner/internal/cli"
	"github.com/valter-silva-au/site-planner/internal/core"
	"github.com/valter-silva-au/site-planner/internal/credential"
	"github.com/valter-silva-au/site-planner/internal/observability"
	"github.com/valter-silva-au/site-planner/internal/storage"
	"github.com/valter-silva-au/site-planner/pkg/models"
)

// HomeEnvVar overrides the base directory.
const HomeEnvVar = "SPLAN_HOME"

// Default file names under the base path.
const (
	DefaultDatabaseFile = "planning.db"
	EventLogFile        = ".splan_events.jsonl"
	DotEnvFile          = ".env"
)

// App holds all service dependencies of the site planner.
type App struct {
	BasePath string
	Config   *models.Config
	Logger   *logrus.Logger

	ConfigMgr core.ConfigurationManager

	// Storage layer
	Store *storage.SQLStore

	// Core services
	Planner  core.PlanningService
	Timeline *core.Timeline

	// Observability
	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier

	// Credentials; nil when no keyring backend is available.
	Secrets *credential.Store

	redis rueidis.Client
}

// NewApp creates and wires all components. basePath is the directory holding
// .splanconfig, the database and the event log.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Environment ---
	if err := godotenv.Load(filepath.Join(basePath, DotEnvFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", DotEnvFile, err)
	}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg
	app.Logger = observability.NewLogger(cfg.Log)

	// --- Storage layer ---
	dsn := cfg.Store.DSN
	if dsn == "" {
		dsn = filepath.Join(basePath, DefaultDatabaseFile)
	}
	app.Store, err = storage.Open(dsn)
	if err != nil {
		return nil, err
	}

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, EventLogFile))
	if err != nil {
		// Non-fatal: planning works without the event trail.
		app.Logger.WithError(err).Warn("event log disabled")
		app.EventLog = nil
	}
	var evtAdapter core.EventLogger
	if app.EventLog != nil {
		evtAdapter = &eventLogAdapter{log: app.EventLog}
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}

	// Credentials are optional; headless hosts often have no keyring.
	if secrets, err := credential.Open(); err == nil {
		app.Secrets = secrets
	} else {
		app.Logger.WithError(err).Debug("keyring unavailable")
	}

	app.Notifier = app.buildNotifier(cfg.Notifications)

	// --- Core services ---
	var notifier core.AlertNotifier
	if app.Notifier != nil {
		notifier = app.Notifier
	}
	app.Planner = core.NewPlanningService(
		app.Store,
		core.NewAlertDetector(),
		core.AlertPolicy{AutoResolve: cfg.Alerts.AutoResolve},
		notifier,
		evtAdapter,
		app.Logger,
	)
	app.Timeline = core.NewTimeline(cfg.Timeline)

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.Logger = app.Logger
	cli.Planner = app.Planner
	cli.Timeline = app.Timeline
	cli.EventLog = app.EventLog
	cli.MetricsCalc = app.MetricsCalc
	cli.Secrets = nil
	if app.Secrets != nil {
		cli.Secrets = app.Secrets
	}

	return app, nil
}

// buildNotifier assembles the configured alert sinks. It returns nil when
// notifications are disabled or no sink could be set up.
func (a *App) buildNotifier(cfg models.NotificationsConfig) observability.Notifier {
	if !cfg.Enabled {
		return nil
	}

	var sinks observability.MultiNotifier

	webhook := cfg.Slack.WebhookURL
	if webhook == "" && cfg.Slack.UseKeyring && a.Secrets != nil {
		v, err := a.Secrets.Get(credential.SlackWebhookKey)
		switch {
		case err == nil:
			webhook = v
		case errors.Is(err, credential.ErrNotFound):
			a.Logger.Warn("slack webhook not found in keyring; run 'splan secret set slack_webhook_url'")
		default:
			a.Logger.WithError(err).Warn("reading slack webhook from keyring")
		}
	}
	if webhook != "" {
		sinks = append(sinks, observability.NewSlackNotifier(webhook))
	}

	if cfg.Redis.Addr != "" {
		client, err := observability.NewRedisClient(cfg.Redis.Addr)
		if err != nil {
			a.Logger.WithError(err).Warn("redis alert fan-out disabled")
		} else {
			a.redis = client
			sinks = append(sinks, observability.NewRedisNotifier(observability.NewRueidisPublisher(client), cfg.Redis.ChannelPrefix))
		}
	}

	switch len(sinks) {
	case 0:
		return nil
	case 1:
		return sinks[0]
	default:
		return sinks
	}
}

// Close releases the database, event log and Redis connections. It is safe
// to call on a partially initialized App.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		a.redis.Close()
	}
	if a.EventLog != nil {
		if err := a.EventLog.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ResolveBasePath determines the data directory. SPLAN_HOME wins; otherwise
// the nearest ancestor of the working directory holding .splanconfig is
// used, falling back to the working directory itself.
func ResolveBasePath() string {
	if home := os.Getenv(HomeEnvVar); home != "" {
		return home
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	for dir := cwd; ; {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cwd
}

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.Event{
		Time:    time.Now().UTC(),
		Level:   "INFO",
		Type:    eventType,
		Message: eventType,
		Data:    data,
	})
}
