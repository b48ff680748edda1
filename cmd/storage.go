package cmd

import (
	"fmt"
	"time"

	"users-service/internal/config"
	"users-service/internal/domain/user"
	"users-service/internal/infrastructure/database"
	"users-service/internal/infrastructure/repository"
	"users-service/pkg/logger"
)

const (
	adapterGorm   = "gorm"
	adapterSQLX   = "sqlx"
	adapterMemory = "memory"
)

// storage is an opened user repository together with the pool backing it.
type storage struct {
	repo  user.UserRepository
	close func() error
}

func databaseConfig(cfg config.DatabaseConfig) database.Config {
	return database.Config{
		Driver:          cfg.Driver,
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.Username,
		Password:        cfg.Password,
		DBName:          cfg.Name,
		SSLMode:         cfg.SSLMode,
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetime) * time.Second,
		LogQueries:      cfg.LogQueries,
	}
}

// openStorage opens the repository adapter named by cfg.Adapter, applying
// pending migrations first when cfg.AutoMigrate is set.
func openStorage(cfg config.DatabaseConfig) (*storage, error) {
	switch cfg.Adapter {
	case adapterMemory:
		logger.Warn("Using in-memory user repository; data is lost on restart")
		return &storage{
			repo:  repository.NewMemoryUserRepository(),
			close: func() error { return nil },
		}, nil

	case adapterSQLX:
		db, err := database.NewSQLXConnection(databaseConfig(cfg))
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			gdb, err := database.WrapSQLDB(cfg.Driver, db.DB)
			if err == nil {
				err = database.RunMigrations(gdb)
			}
			if err != nil {
				db.Close()
				return nil, err
			}
		}
		logger.Info("Using sqlx user repository (%s)", cfg.Driver)
		return &storage{repo: repository.NewSQLXUserRepository(db), close: db.Close}, nil

	case adapterGorm, "":
		db, err := database.NewConnection(databaseConfig(cfg))
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		if cfg.AutoMigrate {
			if err := database.RunMigrations(db); err != nil {
				sqlDB.Close()
				return nil, err
			}
		}
		logger.Info("Using gorm user repository (%s)", cfg.Driver)
		return &storage{repo: repository.NewUserRepository(db), close: sqlDB.Close}, nil

	default:
		return nil, fmt.Errorf("unsupported database adapter: %s", cfg.Adapter)
	}
}
