package database

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"users-service/pkg/logger"

	"gorm.io/gorm"
)

//go:embed migrations
var embeddedMigrations embed.FS

type Migration struct {
	ID          string
	Description string
	SQL         string
	AppliedAt   *time.Time
}

type MigrationRunner struct {
	db         *gorm.DB
	migrations fs.FS
}

func NewMigrationRunner(db *gorm.DB, migrations fs.FS) *MigrationRunner {
	return &MigrationRunner{
		db:         db,
		migrations: migrations,
	}
}

// NewDialectMigrationRunner picks the embedded migration set matching the
// dialect of db.
func NewDialectMigrationRunner(db *gorm.DB) (*MigrationRunner, error) {
	dir := "migrations/" + db.Dialector.Name()
	sub, err := fs.Sub(embeddedMigrations, dir)
	if err != nil {
		return nil, fmt.Errorf("no migrations for dialect %s: %w", db.Dialector.Name(), err)
	}
	if _, err := fs.Stat(sub, "."); err != nil {
		return nil, fmt.Errorf("no migrations for dialect %s: %w", db.Dialector.Name(), err)
	}
	return NewMigrationRunner(db, sub), nil
}

func (mr *MigrationRunner) createMigrationsTable() error {
	sql := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		id VARCHAR(255) PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	return mr.db.Exec(sql).Error
}

type appliedMigration struct {
	ID        string
	AppliedAt time.Time
}

func (mr *MigrationRunner) getAppliedMigrations() (map[string]time.Time, error) {
	var rows []appliedMigration
	err := mr.db.Raw("SELECT id, applied_at FROM schema_migrations ORDER BY id").Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	applied := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		applied[row.ID] = row.AppliedAt
	}

	return applied, nil
}

func (mr *MigrationRunner) getMigrationFiles() ([]string, error) {
	var files []string

	err := fs.WalkDir(mr.migrations, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && strings.HasSuffix(d.Name(), ".sql") {
			files = append(files, p)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func (mr *MigrationRunner) readMigrationFile(filePath string) (*Migration, error) {
	content, err := fs.ReadFile(mr.migrations, filePath)
	if err != nil {
		return nil, err
	}

	filename := path.Base(filePath)
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid migration filename format: %s", filename)
	}

	id := parts[0]
	description := strings.TrimSuffix(parts[1], ".sql")
	description = strings.ReplaceAll(description, "_", " ")

	return &Migration{
		ID:          id,
		Description: description,
		SQL:         string(content),
	}, nil
}

func (mr *MigrationRunner) RunMigrations() error {
	_, err := mr.Apply()
	return err
}

// Apply runs every pending migration, each in its own transaction, and
// returns how many were applied.
func (mr *MigrationRunner) Apply() (int, error) {
	if err := mr.createMigrationsTable(); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := mr.getAppliedMigrations()
	if err != nil {
		return 0, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	files, err := mr.getMigrationFiles()
	if err != nil {
		return 0, fmt.Errorf("failed to get migration files: %w", err)
	}

	pendingCount := 0
	for _, file := range files {
		migration, err := mr.readMigrationFile(file)
		if err != nil {
			return pendingCount, fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, ok := applied[migration.ID]; ok {
			continue
		}

		err = mr.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(migration.SQL).Error; err != nil {
				return fmt.Errorf("failed to execute migration %s: %w", migration.ID, err)
			}

			if err := tx.Exec("INSERT INTO schema_migrations (id, description) VALUES (?, ?)",
				migration.ID, migration.Description).Error; err != nil {
				return fmt.Errorf("failed to record migration %s: %w", migration.ID, err)
			}

			return nil
		})

		if err != nil {
			return pendingCount, err
		}

		logger.Info("Applied migration: %s - %s", migration.ID, migration.Description)
		pendingCount++
	}

	if pendingCount == 0 {
		logger.Info("No pending migrations to apply")
	} else {
		logger.Info("Successfully applied %d migrations", pendingCount)
	}

	return pendingCount, nil
}

func (mr *MigrationRunner) GetMigrationStatus() ([]Migration, error) {
	if err := mr.createMigrationsTable(); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := mr.getAppliedMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	files, err := mr.getMigrationFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to get migration files: %w", err)
	}

	var migrations []Migration
	for _, file := range files {
		migration, err := mr.readMigrationFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if appliedAt, ok := applied[migration.ID]; ok {
			migration.AppliedAt = &appliedAt
		}

		migrations = append(migrations, *migration)
	}

	return migrations, nil
}
