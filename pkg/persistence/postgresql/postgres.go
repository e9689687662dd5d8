// Package postgresql provides PostgreSQL persistence for workflows, their execution logs and integrations.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/BabaVossRS3/FlowForge/pkg/persistence"
	"github.com/BabaVossRS3/FlowForge/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Connection pool limits.
const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxIdleTime = 5 * time.Minute
)

// Persistence stores workflows, execution logs and integrations in PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	workflows    *WorkflowRepository
	integrations *IntegrationRepository
}

// NewPersistence connects, applies pending migrations and returns the store. The connection is
// closed again when any step fails.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := open(ctx, logger, db); err != nil {
		_ = db.Close()

		return nil, err
	}

	return &Persistence{
		db:           db,
		logger:       logger,
		workflows:    NewWorkflowRepository(db, logger),
		integrations: NewIntegrationRepository(db, logger),
	}, nil
}

func open(ctx context.Context, logger *slog.Logger, db *sql.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := sqlbase.NewMigrationManager(logger, db, migrations()).RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return p.workflows
}

func (p *Persistence) Integrations() persistence.IntegrationRepository {
	return p.integrations
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
