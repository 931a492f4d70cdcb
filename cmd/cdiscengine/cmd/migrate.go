package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/cdiscengine/internal/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply operation cache migrations to the --cache-url database",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("status", false, "print migration status without applying")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Engine.CacheURL == "" || cfg.Engine.CacheURL == "memory://" {
		return fmt.Errorf("migrate requires a sqlite:// or postgres:// --cache-url")
	}

	database, err := db.Open(cfg.Engine.CacheURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if statusOnly, _ := cmd.Flags().GetBool("status"); !statusOnly {
		if err := db.MigrateUp(database); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		logger.Info("migrations_applied", zap.String("cache_url", cfg.Engine.CacheURL))
	}

	status, err := db.MigrateStatus(database)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}
	return writeJSON(cmd, status)
}
