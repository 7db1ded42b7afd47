package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quillchat/quill/internal/logger"
	"github.com/quillchat/quill/pkg/config"
	"github.com/quillchat/quill/pkg/controlplane/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run database migrations for the identity store.

The PostgreSQL backend uses versioned SQL migrations; this command applies
any that are pending and is required after upgrading quill when schema
changes have been made. The SQLite backend migrates its schema on open, so
this command verifies the schema instead.

Examples:
  # Run migrations with default config
  quill migrate

  # Run migrations with custom config
  quill migrate --config /etc/quill/config.yaml`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx := context.Background()
	logger.Info("Running database migrations", "type", cfg.Store.Type)

	if cfg.Store.Type == store.DatabaseTypePostgres {
		if err := store.RunMigrations(ctx, &cfg.Store); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		version, dirty, err := store.MigrationVersion(ctx, &cfg.Store)
		if err != nil {
			return fmt.Errorf("migration verification failed: %w", err)
		}
		if dirty {
			return fmt.Errorf("schema version %d is dirty; resolve manually before restarting nodes", version)
		}

		fmt.Printf("Migrations completed successfully (database type: %s, schema version: %d)\n", cfg.Store.Type, version)
		return nil
	}

	// SQLite migrates on open; opening the store with AutoMigrate forced
	// on applies the schema, then a query confirms it is usable.
	storeCfg := cfg.Store
	storeCfg.AutoMigrate = true
	cpStore, err := store.New(&storeCfg)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer func() { _ = cpStore.Close() }()

	if _, err := cpStore.ListUsers(ctx); err != nil {
		return fmt.Errorf("migration verification failed: %w", err)
	}

	fmt.Printf("Migrations completed successfully (database type: %s)\n", cfg.Store.Type)
	return nil
}
