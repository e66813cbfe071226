package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/valter-silva-au/site-planner/pkg/models"
)

// ConfigFileName is the name of the configuration file read from the base path.
const ConfigFileName = ".splanconfig"

// EnvPrefix prefixes environment variable overrides, e.g. SPLAN_STORE_DSN.
const EnvPrefix = "SPLAN"

// ConfigurationManager loads and validates the planner configuration.
type ConfigurationManager interface {
	LoadConfig() (*models.Config, error)
	ValidateConfig(cfg *models.Config) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files and environment overrides.
type viperConfigManager struct {
	// basePath is the root directory where .splanconfig resides.
	basePath string
}

// NewConfigurationManager creates a new ConfigurationManager that reads
// configuration files relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *models.Config {
	return &models.Config{
		Timeline: models.DefaultTimelineConfig(),
		Server: models.ServerConfig{
			Addr:                   ":8080",
			RateLimitPerMinute:     120,
			ShutdownTimeoutSeconds: 10,
		},
		Log: models.LogConfig{
			Level:  "info",
			Format: "text",
		},
		Notifications: models.NotificationsConfig{
			Redis: models.RedisConfig{ChannelPrefix: "splan:alerts"},
		},
	}
}

// LoadConfig reads .splanconfig from the base path and applies SPLAN_*
// environment overrides. If the file does not exist, defaults (plus any
// environment overrides) are returned.
func (cm *viperConfigManager) LoadConfig() (*models.Config, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults double as the key registry for AutomaticEnv during Unmarshal.
	v.SetDefault("default_project_id", def.DefaultProjectID)
	v.SetDefault("store.dsn", def.Store.DSN)
	v.SetDefault("timeline.day_width", def.Timeline.DayWidth)
	v.SetDefault("timeline.min_zoom", def.Timeline.MinZoom)
	v.SetDefault("timeline.max_zoom", def.Timeline.MaxZoom)
	v.SetDefault("timeline.zoom_step", def.Timeline.ZoomStep)
	v.SetDefault("timeline.min_bar_width", def.Timeline.MinBarWidth)
	v.SetDefault("timeline.pan_months", def.Timeline.PanMonths)
	v.SetDefault("alerts.auto_resolve", def.Alerts.AutoResolve)
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("server.rate_limit_per_minute", def.Server.RateLimitPerMinute)
	v.SetDefault("server.shutdown_timeout_seconds", def.Server.ShutdownTimeoutSeconds)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("notifications.enabled", def.Notifications.Enabled)
	v.SetDefault("notifications.slack.webhook_url", def.Notifications.Slack.WebhookURL)
	v.SetDefault("notifications.slack.use_keyring", def.Notifications.Slack.UseKeyring)
	v.SetDefault("notifications.redis.addr", def.Notifications.Redis.Addr)
	v.SetDefault("notifications.redis.channel_prefix", def.Notifications.Redis.ChannelPrefix)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
		}
	}

	cfg := &models.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", ConfigFileName, err)
	}
	return cfg, nil
}

var validLogFormats = map[string]bool{"text": true, "json": true}

// ValidateConfig checks the configuration for invalid values and returns a
// single error listing every problem found.
func (cm *viperConfigManager) ValidateConfig(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	tl := cfg.Timeline
	if tl.DayWidth <= 0 {
		errs = append(errs, fmt.Sprintf("timeline.day_width must be positive, got %v", tl.DayWidth))
	}
	if tl.MinZoom <= 0 {
		errs = append(errs, fmt.Sprintf("timeline.min_zoom must be positive, got %v", tl.MinZoom))
	}
	if tl.MaxZoom < tl.MinZoom {
		errs = append(errs, fmt.Sprintf("timeline.max_zoom %v is below min_zoom %v", tl.MaxZoom, tl.MinZoom))
	}
	if tl.ZoomStep <= 0 {
		errs = append(errs, fmt.Sprintf("timeline.zoom_step must be positive, got %v", tl.ZoomStep))
	}
	if tl.MinBarWidth < 0 {
		errs = append(errs, fmt.Sprintf("timeline.min_bar_width must be non-negative, got %v", tl.MinBarWidth))
	}
	if tl.PanMonths < 1 {
		errs = append(errs, fmt.Sprintf("timeline.pan_months must be at least 1, got %d", tl.PanMonths))
	}

	if cfg.Server.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Sprintf("server.rate_limit_per_minute must be non-negative, got %d", cfg.Server.RateLimitPerMinute))
	}
	if cfg.Server.ShutdownTimeoutSeconds < 0 {
		errs = append(errs, fmt.Sprintf("server.shutdown_timeout_seconds must be non-negative, got %d", cfg.Server.ShutdownTimeoutSeconds))
	}

	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("log.level %q is invalid", cfg.Log.Level))
	}
	if !validLogFormats[cfg.Log.Format] {
		errs = append(errs, fmt.Sprintf("log.format %q is invalid, must be one of: text, json", cfg.Log.Format))
	}

	n := cfg.Notifications
	if n.Enabled && n.Slack.WebhookURL == "" && !n.Slack.UseKeyring && n.Redis.Addr == "" {
		errs = append(errs, "notifications.enabled requires a slack webhook or a redis address")
	}
	if n.Slack.WebhookURL != "" && !strings.HasPrefix(n.Slack.WebhookURL, "https://") {
		errs = append(errs, "notifications.slack.webhook_url must use https")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
