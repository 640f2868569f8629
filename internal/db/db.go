package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pandeptwidyaop/uatrack/internal/db/models"
)

// Config holds database configuration.
type Config struct {
	Driver   string // "postgres" or "sqlite"
	Host     string // for postgres
	Port     int    // for postgres
	Database string // database name for postgres, file path (or ":memory:") for sqlite
	Username string // for postgres
	Password string // for postgres
	SSLMode  string // for postgres
	LogLevel string // silent, error, warn, info (SQL statement logging)
}

// Connect establishes a connection to the database.
func Connect(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(cfg.Database))

	case "postgres", "postgresql":
		dialector = postgres.Open(postgresDSN(cfg))

	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres)", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(parseLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if strings.EqualFold(cfg.Driver, "sqlite") && isMemory(cfg.Database) {
		// Every pooled connection to ":memory:" would open a separate empty database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// AutoMigrate runs automatic migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.RequestLog{},
	)
}

func sqliteDSN(database string) string {
	if database == "" {
		database = ":memory:"
	}
	// Datetime parsing enabled so timestamps scan back into time.Time
	return database + "?_time_format=sqlite"
}

func postgresDSN(cfg Config) string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.Username, cfg.Password, cfg.SSLMode,
	)
}

func isMemory(database string) bool {
	return database == "" || strings.HasPrefix(database, ":memory:")
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Silent
	}
}
