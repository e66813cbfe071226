package internal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valter-silva-au/site-planner/internal/cli"
	"github.com/valter-silva-au/site-planner/internal/core"
	"github.com/valter-silva-au/site-planner/internal/observability"
	"github.com/valter-silva-au/site-planner/pkg/models"
)

func newTestApp(t *testing.T, dir string) *App {
	t.Helper()
	app, err := NewApp(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestResolveBasePath_HomeSet(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(HomeEnvVar, tmpDir)

	assert.Equal(t, tmpDir, ResolveBasePath())
}

func TestResolveBasePath_FindsConfigInParent(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "site", "lot-3")
	require.NoError(t, os.MkdirAll(subDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, core.ConfigFileName), []byte("default_project_id: villa\n"), 0o644))

	t.Setenv(HomeEnvVar, "")
	t.Chdir(subDir)

	assert.Equal(t, tmpDir, ResolveBasePath())
}

func TestResolveBasePath_FallbackToCwd(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(HomeEnvVar, "")
	t.Chdir(tmpDir)

	assert.Equal(t, tmpDir, ResolveBasePath())
}

func TestNewApp_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	app := newTestApp(t, tmpDir)

	assert.Equal(t, tmpDir, app.BasePath)
	require.NotNil(t, app.Config)
	assert.Equal(t, models.DefaultTimelineConfig(), app.Config.Timeline)
	assert.False(t, app.Config.Alerts.AutoResolve)
	assert.NotNil(t, app.Planner)
	assert.NotNil(t, app.Timeline)
	assert.NotNil(t, app.EventLog)
	assert.NotNil(t, app.MetricsCalc)
	assert.Nil(t, app.Notifier, "notifications are off by default")

	assert.FileExists(t, filepath.Join(tmpDir, DefaultDatabaseFile))

	// CLI globals point at the same services.
	assert.Same(t, app.Timeline, cli.Timeline)
	assert.Equal(t, app.Planner, cli.Planner)
	assert.Equal(t, tmpDir, cli.BasePath)
}

func TestNewApp_ReadsConfigAndDotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := `
default_project_id: villa
alerts:
  auto_resolve: true
timeline:
  day_width: 10
  min_zoom: 0.5
  max_zoom: 3
  zoom_step: 0.5
  min_bar_width: 20
  pan_months: 1
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, core.ConfigFileName), []byte(cfg), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, DotEnvFile), []byte("SPLAN_LOG_LEVEL=debug\n"), 0o644))
	t.Setenv("SPLAN_LOG_LEVEL", "")
	os.Unsetenv("SPLAN_LOG_LEVEL")

	app := newTestApp(t, tmpDir)

	assert.Equal(t, "villa", app.Config.DefaultProjectID)
	assert.True(t, app.Config.Alerts.AutoResolve)
	assert.Equal(t, 10.0, app.Timeline.PxPerDay(1))
	assert.Equal(t, 30.0, app.Timeline.PxPerDay(5), "zoom clamps to configured max")
	assert.Equal(t, "debug", app.Config.Log.Level)
}

func TestNewApp_InvalidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, core.ConfigFileName), []byte("log:\n  format: xml\n"), 0o644))

	_, err := NewApp(tmpDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.format")
}

func TestNewApp_PlanningRoundTripLogsEvents(t *testing.T) {
	tmpDir := t.TempDir()
	app := newTestApp(t, tmpDir)
	ctx := context.Background()

	created, err := app.Planner.CreateTask(ctx, models.Task{
		ProjectID: "villa",
		Name:      "Terrassement",
		StartDate: models.NewDate(2024, 1, 1),
		EndDate:   models.NewDate(2024, 1, 10),
	})
	require.NoError(t, err)

	snap, err := app.Planner.Refresh(ctx, "villa")
	require.NoError(t, err)
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, created.ID, snap.Tasks[0].ID)

	events, err := app.EventLog.Read(observability.EventFilter{ProjectID: "villa"})
	require.NoError(t, err)
	assert.NotEmpty(t, events, "task creation should reach the event log")

	since := time.Now().Add(-time.Hour)
	m, err := app.MetricsCalc.CalculateForProject("villa", since)
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestBuildNotifier(t *testing.T) {
	app := newTestApp(t, t.TempDir())

	assert.Nil(t, app.buildNotifier(models.NotificationsConfig{
		Slack: models.SlackConfig{WebhookURL: "https://hooks.example.com/x"},
	}), "disabled notifications build nothing")

	n := app.buildNotifier(models.NotificationsConfig{
		Enabled: true,
		Slack:   models.SlackConfig{WebhookURL: "https://hooks.example.com/x"},
	})
	require.NotNil(t, n)
	_, multi := n.(observability.MultiNotifier)
	assert.False(t, multi, "a single sink is returned unwrapped")
}

func TestClose_PartialApp(t *testing.T) {
	assert.NoError(t, (&App{}).Close())
}
