package models

// TimelineConfig holds the layout constants of the Gantt timeline.
type TimelineConfig struct {
	DayWidth    float64 `yaml:"day_width" mapstructure:"day_width"`
	MinZoom     float64 `yaml:"min_zoom" mapstructure:"min_zoom"`
	MaxZoom     float64 `yaml:"max_zoom" mapstructure:"max_zoom"`
	ZoomStep    float64 `yaml:"zoom_step" mapstructure:"zoom_step"`
	MinBarWidth float64 `yaml:"min_bar_width" mapstructure:"min_bar_width"`
	PanMonths   int     `yaml:"pan_months" mapstructure:"pan_months"`
}

// DefaultTimelineConfig returns the standard timeline geometry: 20px per day
// at zoom 1, zoom between 0.5 and 2 in steps of 0.25, a 40px bar floor and
// three-month panning.
func DefaultTimelineConfig() TimelineConfig {
	return TimelineConfig{
		DayWidth:    20,
		MinZoom:     0.5,
		MaxZoom:     2.0,
		ZoomStep:    0.25,
		MinBarWidth: 40,
		PanMonths:   3,
	}
}

// AlertsConfig controls the alert lifecycle.
type AlertsConfig struct {
	// AutoResolve resolves open alerts whose condition no longer holds on
	// each detection pass. When false, alerts are only resolved manually.
	AutoResolve bool `yaml:"auto_resolve" mapstructure:"auto_resolve"`
}

// StoreConfig selects the planning record store.
type StoreConfig struct {
	// DSN is a SQLite file path or a postgres:// URL. Empty means
	// planning.db under the base path.
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Addr                   string `yaml:"addr" mapstructure:"addr"`
	RateLimitPerMinute     int    `yaml:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds"`
}

// LogConfig holds operational logging settings.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// SlackConfig holds Slack webhook settings.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
	UseKeyring bool   `yaml:"use_keyring" mapstructure:"use_keyring"`
}

// RedisConfig holds Redis pub/sub settings for alert fan-out.
type RedisConfig struct {
	Addr          string `yaml:"addr" mapstructure:"addr"`
	ChannelPrefix string `yaml:"channel_prefix" mapstructure:"channel_prefix"`
}

// NotificationsConfig holds notification settings for raised alerts.
type NotificationsConfig struct {
	Enabled bool        `yaml:"enabled" mapstructure:"enabled"`
	Slack   SlackConfig `yaml:"slack" mapstructure:"slack"`
	Redis   RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// Config holds all settings read from .splanconfig via Viper.
type Config struct {
	DefaultProjectID string              `yaml:"default_project_id" mapstructure:"default_project_id"`
	Store            StoreConfig         `yaml:"store" mapstructure:"store"`
	Timeline         TimelineConfig      `yaml:"timeline" mapstructure:"timeline"`
	Alerts           AlertsConfig        `yaml:"alerts" mapstructure:"alerts"`
	Server           ServerConfig        `yaml:"server" mapstructure:"server"`
	Log              LogConfig           `yaml:"log" mapstructure:"log"`
	Notifications    NotificationsConfig `yaml:"notifications" mapstructure:"notifications"`
}
