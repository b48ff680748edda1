package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// sqlDriverName maps a configured driver onto its database/sql registration.
func sqlDriverName(driver string) (string, error) {
	switch driver {
	case DriverPostgres, "":
		return "pgx", nil
	case DriverSQLite:
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// NewSQLXConnection opens a sqlx handle for the same drivers NewConnection
// supports.
func NewSQLXConnection(config Config) (*sqlx.DB, error) {
	dsn, err := config.DSN()
	if err != nil {
		return nil, err
	}
	driverName, err := sqlDriverName(config.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if config.Driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// WrapSQLDB opens gorm on top of an existing pool so the migration runner can
// share a connection owned by the sqlx adapter.
func WrapSQLDB(driver string, sqlDB *sql.DB) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres, "":
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	case DriverSQLite:
		dialector = sqlite.Dialector{Conn: sqlDB}
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to wrap database handle: %w", err)
	}
	return db, nil
}
