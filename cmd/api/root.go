package main

import (
	"fmt"
	"os"

	"invoicegen/internal/config"
	"invoicegen/internal/database"
	"invoicegen/internal/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "invoicegen",
	Short: "Multi-tenant invoicing API",
	Long: `invoicegen serves the invoicing API and runs its maintenance tasks.

Configuration comes from the environment, optionally preloaded from an env file:
  DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME, DB_SSLMODE - PostgreSQL
  REDIS_URL - listing cache, the API still serves without it
  JWT_SECRET, JWT_EXPIRE_HOURS - session tokens
  LOG_LEVEL, LOG_FORMAT, LOG_OUTPUT - logging`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log := logger.WithComponent("cmd")
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "configs/.env", "Env file loaded before reading the environment")
}

// bootstrap loads configuration, sets up logging and opens the database.
func bootstrap() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Setup(logger.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}); err != nil {
		return nil, nil, fmt.Errorf("setup logger: %w", err)
	}

	db, err := database.NewConnection(cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	log := logger.WithComponent("database")
	log.Info().Str("host", cfg.Database.Host).Msg("connected to PostgreSQL")
	return cfg, db, nil
}
