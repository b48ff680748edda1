package cmd

import (
	"fmt"
	"os"

	"users-service/internal/config"
	"users-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "users-service",
	Short: "Users CRUD service",
	Long: `A small users service exposing create, list, read, update and delete
over HTTP, backed by PostgreSQL or SQLite through gorm or sqlx.
Optional Redis integration provides a read-through user cache and
Idempotency-Key replay for create requests.
Example usage:
  users-service server --port 8080    # Start the HTTP API
  users-service migrate up            # Apply pending migrations
  users-service migrate status        # List migrations`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg := config.Get()
		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		if err := logger.InitWithConfig(level, cfg.Log.Format, cfg.Log.Output, cfg.Log.FilePath); err != nil {
			// Fallback to simple init if config-based init fails
			logger.Init(verbose)
			logger.Warn("Failed to initialize logger with config, using fallback: %v", err)
		}
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.users-service.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".users-service")
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	config.Init()
}
