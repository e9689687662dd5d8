// Package sqlbase holds the schema migration runner shared by SQL stores.
package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// migrationLockID is the advisory lock key held while migrating, so replicas starting together
// apply each migration once.
const migrationLockID = 7_340_231_901

var ErrInvalidMigrations = errors.New("invalid migrations")

// Migration is one forward-only schema change.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// SortMigrations orders migrations by version and rejects duplicate or non-positive versions.
func SortMigrations(migrations []Migration) ([]Migration, error) {
	sorted := append([]Migration(nil), migrations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	for i, migration := range sorted {
		if migration.Version <= 0 {
			return nil, fmt.Errorf("%w: version %d of %q must be positive", ErrInvalidMigrations, migration.Version, migration.Name)
		}

		if i > 0 && sorted[i-1].Version == migration.Version {
			return nil, fmt.Errorf("%w: version %d is declared twice", ErrInvalidMigrations, migration.Version)
		}
	}

	return sorted, nil
}

type MigrationManager struct {
	db         *sql.DB
	logger     *slog.Logger
	migrations []Migration
}

func NewMigrationManager(logger *slog.Logger, db *sql.DB, migrations []Migration) *MigrationManager {
	return &MigrationManager{
		db:         db,
		logger:     logger.With("module", "migrations"),
		migrations: migrations,
	}
}

// RunMigrations applies every migration newer than the recorded schema version. Each migration
// runs in its own transaction together with its schema_migrations row.
func (m *MigrationManager) RunMigrations(ctx context.Context) error {
	migrations, err := SortMigrations(m.migrations)
	if err != nil {
		return err
	}

	if _, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	applied := 0

	for _, migration := range migrations {
		ok, err := m.apply(ctx, migration)
		if err != nil {
			return err
		}

		if ok {
			applied++
		}
	}

	m.logger.InfoContext(ctx, "Database schema up to date", "applied", applied, "known", len(migrations))

	return nil
}

// apply runs one migration under the advisory lock unless it is already recorded.
func (m *MigrationManager) apply(ctx context.Context, migration Migration) (bool, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin migration %d: %w", migration.Version, err)
	}

	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockID); err != nil {
		return false, fmt.Errorf("failed to lock schema for migration %d: %w", migration.Version, err)
	}

	var done bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)", migration.Version,
	).Scan(&done); err != nil {
		return false, fmt.Errorf("failed to read schema version: %w", err)
	}

	if done {
		return false, nil
	}

	m.logger.InfoContext(ctx, "Applying migration", "version", migration.Version, "name", migration.Name)

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		return false, fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", migration.Version, migration.Name,
	); err != nil {
		return false, fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
	}

	return true, nil
}
