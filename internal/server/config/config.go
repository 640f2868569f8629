package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. UATRACK_SERVER_HTTP_PORT.
const EnvPrefix = "UATRACK"

// Config represents the server configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Tracking  TrackingConfig  `mapstructure:"tracking"`
	Robots    RobotsConfig    `mapstructure:"robots"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds server settings
type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"ssl_mode"`
	LogLevel string `mapstructure:"log_level"`
}

// TrackingConfig controls request tracking
type TrackingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	SaveTimeout time.Duration `mapstructure:"save_timeout"`
}

// RobotsConfig controls the crawler access gate
type RobotsConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	BlockedMarker    string   `mapstructure:"blocked_marker"`
	BlockedUserAgent string   `mapstructure:"blocked_user_agent"`
	BlockedPaths     []string `mapstructure:"blocked_paths"`
	BlockedPrefixes  []string `mapstructure:"blocked_prefixes"`
}

// DashboardConfig controls the dashboard query
type DashboardConfig struct {
	Window          time.Duration `mapstructure:"window"`
	DefaultPageSize int           `mapstructure:"default_page_size"`
	MaxPageSize     int           `mapstructure:"max_page_size"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
	File   string `mapstructure:"file"`
}

// Load reads configuration from configPath, then applies UATRACK_* environment
// overrides. A missing or empty path is not an error: defaults and the
// environment apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid server.http_port: %d", c.Server.HTTPPort)
	}

	switch strings.ToLower(c.Database.Driver) {
	case "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("unsupported database.driver: %q (supported: sqlite, postgres)", c.Database.Driver)
	}

	durations := map[string]time.Duration{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"tracking.save_timeout":   c.Tracking.SaveTimeout,
		"dashboard.window":        c.Dashboard.Window,
		"dashboard.cache_ttl":     c.Dashboard.CacheTTL,
	}
	for key, d := range durations {
		if d < 0 {
			return fmt.Errorf("invalid %s: %s must not be negative", key, d)
		}
	}

	if c.Dashboard.DefaultPageSize <= 0 {
		return fmt.Errorf("invalid dashboard.default_page_size: %d", c.Dashboard.DefaultPageSize)
	}
	if c.Dashboard.MaxPageSize < c.Dashboard.DefaultPageSize {
		return fmt.Errorf("dashboard.max_page_size (%d) must be at least dashboard.default_page_size (%d)",
			c.Dashboard.MaxPageSize, c.Dashboard.DefaultPageSize)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Database defaults (in-memory SQLite when nothing is configured)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.database", ":memory:")
	// PostgreSQL defaults (if driver is set to postgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "uatrack")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.log_level", "silent")

	// Tracking defaults
	v.SetDefault("tracking.enabled", true)
	v.SetDefault("tracking.save_timeout", "5s")

	// Robots defaults
	v.SetDefault("robots.enabled", true)
	v.SetDefault("robots.blocked_marker", "GraphConnectors")
	v.SetDefault("robots.blocked_user_agent", "")
	v.SetDefault("robots.blocked_paths", []string{"/RequestDashboard", "/TestApi", "/Privacy", "/Error"})
	v.SetDefault("robots.blocked_prefixes", []string{"/lib/", "/css/", "/js/"})

	// Dashboard defaults
	v.SetDefault("dashboard.window", "24h")
	v.SetDefault("dashboard.default_page_size", 50)
	v.SetDefault("dashboard.max_page_size", 500)
	v.SetDefault("dashboard.cache_ttl", "0s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file", "")
}
