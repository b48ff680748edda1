package database

import (
	"context"
	"fmt"
	"time"

	"users-service/pkg/logger"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogQueries      bool
}

// DSN renders the connection string for the configured driver.
func (c Config) DSN() (string, error) {
	switch c.Driver {
	case DriverPostgres, "":
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s connect_timeout=10",
			c.Host, c.User, c.Password, c.DBName, c.Port, c.SSLMode), nil
	case DriverSQLite:
		if c.Path == "" {
			return "", fmt.Errorf("sqlite driver requires a database path")
		}
		return c.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", c.Driver)
	}
}

func (c Config) dialector(dsn string) gorm.Dialector {
	if c.Driver == DriverSQLite {
		return sqlite.Open(dsn)
	}
	return postgres.Open(dsn)
}

func NewConnection(config Config) (*gorm.DB, error) {
	dsn, err := config.DSN()
	if err != nil {
		return nil, err
	}

	logger.Debug("Connecting to %s database (host=%s db=%s path=%s)",
		config.Driver, config.Host, config.DBName, config.Path)

	level := gormlogger.Warn
	if config.LogQueries {
		level = gormlogger.Info
	}

	db, err := gorm.Open(config.dialector(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	maxOpen := config.MaxOpenConns
	if config.Driver == DriverSQLite {
		// sqlite serialises writers; one connection avoids SQLITE_BUSY.
		maxOpen = 1
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	return db, nil
}

func RunMigrations(db *gorm.DB) error {
	logger.Info("Running SQL migrations...")

	migrationRunner, err := NewDialectMigrationRunner(db)
	if err != nil {
		return err
	}
	if err := migrationRunner.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

func HealthCheck(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
