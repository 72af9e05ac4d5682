package config

import (
	"time"

	"github.com/deshgyan/deshgyan/internal/ailink"
)

// Config represents the complete application configuration, layered as:
// Layer 1: embedded defaults (defaults.yaml)
// Layer 2: project and user config files (~/.config/deshgyan/config.yaml)
// Layer 3: environment variables and runtime overrides
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	AILink  ailink.Config `mapstructure:"ailink"`
	Search  SearchConfig  `mapstructure:"search"`
	History HistoryConfig `mapstructure:"history"`
	UI      UIConfig      `mapstructure:"ui"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
	Debug   DebugConfig   `mapstructure:"debug"`

	// RateLimits overrides provider request budgets (requests per minute)
	// keyed by endpoint host.
	RateLimits      map[string]int `mapstructure:"rate_limits"`
	RateLimitMargin float64        `mapstructure:"rate_limit_margin"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// RateLimitRPS limits search requests per client IP. Zero disables.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`

	// AllowedOrigins lists WebSocket origins accepted besides same-host.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// SearchConfig tunes how queries are answered.
//
// Provider credentials and routing live under `ailink.*`.
type SearchConfig struct {
	PromptSlug    string        `mapstructure:"prompt_slug"`
	Role          string        `mapstructure:"role"`
	Model         string        `mapstructure:"model"`
	Timeout       time.Duration `mapstructure:"timeout"`
	ImagesEnabled bool          `mapstructure:"images_enabled"`
	ImageRole     string        `mapstructure:"image_role"`

	// Cooldown is how long a provider is skipped after a rate limit response
	// without a Retry-After hint.
	Cooldown time.Duration `mapstructure:"cooldown"`
}

// HistoryConfig bounds the recent-queries list.
type HistoryConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// UIConfig holds presentation defaults.
type UIConfig struct {
	DefaultTheme string `mapstructure:"default_theme"`
}

// CatalogConfig points at a replacement topic catalog. Empty uses the
// built-in one.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig contains logging configuration
// Supports progressive logging profiles per Fulmen Forge Workhorse Standard:
// - SIMPLE: Console output only, minimal configuration (CLI tools)
// - STRUCTURED: Structured sinks, correlation IDs (API services)
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	// Metrics are also available at the main HTTP port in JSON format
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	// Enabled controls whether health endpoints are exposed
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig contains debug and profiling configuration
type DebugConfig struct {
	// Enabled controls whether debug mode is active
	Enabled bool `mapstructure:"enabled"`

	// PprofEnabled controls whether pprof endpoints are exposed
	// WARNING: Only enable in development/staging environments
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}
