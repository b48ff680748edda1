package cmd

import (
	"fmt"
	"os"

	"users-service/internal/config"
	"users-service/internal/infrastructure/database"
	"users-service/pkg/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration management",
	Long:  "Manage database migrations for the users service",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Run pending migrations",
	Long:  "Execute all pending database migrations",
	Run:   runMigrateUp,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long:  "Display the status of all migrations",
	Run:   runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func openMigrationRunner() (*database.MigrationRunner, *gorm.DB) {
	cfg := config.Get()

	db, err := database.NewConnection(databaseConfig(cfg.Database))
	if err != nil {
		logger.Error("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	runner, err := database.NewDialectMigrationRunner(db)
	if err != nil {
		logger.Error("Failed to load migrations: %v", err)
		os.Exit(1)
	}
	return runner, db
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func runMigrateUp(cmd *cobra.Command, args []string) {
	runner, db := openMigrationRunner()
	defer closeDB(db)

	applied, err := runner.Apply()
	if err != nil {
		logger.Error("Migration failed: %v", err)
		closeDB(db)
		os.Exit(1)
	}

	fmt.Printf("Migrations completed successfully! (%d applied)\n", applied)
}

func runMigrateStatus(cmd *cobra.Command, args []string) {
	runner, db := openMigrationRunner()
	defer closeDB(db)

	migrations, err := runner.GetMigrationStatus()
	if err != nil {
		logger.Error("Failed to get migration status: %v", err)
		closeDB(db)
		os.Exit(1)
	}

	fmt.Println("Migration Status:")
	fmt.Println("================")
	for _, migration := range migrations {
		status := "Pending"
		if migration.AppliedAt != nil {
			status = fmt.Sprintf("Applied at %s", migration.AppliedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("%s - %s [%s]\n", migration.ID, migration.Description, status)
	}
}
