package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql

	"github.com/quillchat/quill/internal/logger"
	"github.com/quillchat/quill/pkg/controlplane/store/migrations"
)

// runMigrations executes database migrations using golang-migrate.
// golang-migrate takes PostgreSQL advisory locks, so concurrent nodes
// cannot apply the same migration twice.
func runMigrations(ctx context.Context, connURL string) error {
	logger.Info("running database migrations")

	// golang-migrate drives a database/sql connection, not GORM
	db, err := sql.Open("pgx", connURL)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to apply, database is up to date")
	} else {
		logger.Info("migrations completed")
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if !errors.Is(err, migrate.ErrNilVersion) {
		logger.Info("current schema version", "version", version, "dirty", dirty)
		if dirty {
			logger.Warn("database schema is in dirty state, manual intervention may be required")
		}
	}

	return nil
}

// RunMigrations applies all pending migrations. Only the PostgreSQL
// backend uses versioned migrations; SQLite deployments rely on
// AutoMigrate.
func RunMigrations(ctx context.Context, cfg *Config) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Type != DatabaseTypePostgres {
		return fmt.Errorf("versioned migrations require the postgres backend, store type is %q", cfg.Type)
	}

	return runMigrations(ctx, cfg.Postgres.URL())
}

// MigrationVersion returns the current schema version and whether the
// schema is dirty. Version 0 with a nil error means no migration has
// been applied yet.
func MigrationVersion(ctx context.Context, cfg *Config) (uint, bool, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return 0, false, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Type != DatabaseTypePostgres {
		return 0, false, fmt.Errorf("versioned migrations require the postgres backend, store type is %q", cfg.Type)
	}

	db, err := sql.Open("pgx", cfg.Postgres.URL())
	if err != nil {
		return 0, false, fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return 0, false, fmt.Errorf("failed to create source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return version, dirty, nil
}
