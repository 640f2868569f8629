package cli

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/pandeptwidyaop/uatrack/internal/db"
	"github.com/pandeptwidyaop/uatrack/internal/server/config"
	"github.com/pandeptwidyaop/uatrack/internal/server/web/middleware"
	"github.com/pandeptwidyaop/uatrack/pkg/logger"
)

// loadConfig loads the configuration and sets up the global logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Setup(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
		File:   cfg.Logging.File,
	}); err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}

	return cfg, nil
}

// openDatabase connects to the configured database and migrates the schema.
func openDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	logger.InfoEvent().
		Str("driver", cfg.Driver).
		Str("database", cfg.Database).
		Msg("Connecting to database")

	database, err := db.Connect(db.Config{
		Driver:   cfg.Driver,
		Host:     cfg.Host,
		Port:     cfg.Port,
		Database: cfg.Database,
		Username: cfg.Username,
		Password: cfg.Password,
		SSLMode:  cfg.SSLMode,
		LogLevel: cfg.LogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(database); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.InfoEvent().Msg("Database migrations completed")
	return database, nil
}

// robotsPolicy builds the gate policy, falling back to the built-in crawler
// identity when none is configured.
func robotsPolicy(cfg config.RobotsConfig) middleware.RobotsPolicy {
	policy := middleware.RobotsPolicy{
		BlockedMarker:    cfg.BlockedMarker,
		BlockedUserAgent: cfg.BlockedUserAgent,
		BlockedPaths:     cfg.BlockedPaths,
		BlockedPrefixes:  cfg.BlockedPrefixes,
	}
	if policy.BlockedMarker == "" && policy.BlockedUserAgent == "" {
		defaults := middleware.DefaultRobotsPolicy()
		policy.BlockedMarker = defaults.BlockedMarker
		policy.BlockedUserAgent = defaults.BlockedUserAgent
	} else if policy.BlockedUserAgent == "" && policy.BlockedMarker == middleware.DefaultBlockedMarker {
		policy.BlockedUserAgent = middleware.DefaultBlockedUserAgent
	}
	return policy
}
