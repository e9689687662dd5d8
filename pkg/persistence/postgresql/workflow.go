package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/persistence"
	"github.com/google/uuid"
)

const selectWorkflows = `
	SELECT
		id
	  , user_id
	  , name
	  , description
	  , nodes
	  , edges
	  , is_active
	  , created_at
	  , updated_at
	FROM workflows
	WHERE deleted_at IS NULL
`

// WorkflowRepository stores the workflow graph as JSONB and keeps execution logs in their own table,
// so appending a log is a single INSERT.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// GetAll returns all workflows, newest first.
func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	return r.query(ctx, selectWorkflows+` ORDER BY created_at DESC`)
}

func (r *WorkflowRepository) GetByOwner(ctx context.Context, userID string) ([]*models.Workflow, error) {
	return r.query(ctx, selectWorkflows+` AND user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *WorkflowRepository) GetActive(ctx context.Context) ([]*models.Workflow, error) {
	return r.query(ctx, selectWorkflows+` AND is_active ORDER BY created_at DESC`)
}

func (r *WorkflowRepository) query(ctx context.Context, query string, args ...any) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	for _, workflow := range workflows {
		if workflow.ExecutionLogs, err = r.loadExecutionLogs(ctx, workflow.ID); err != nil {
			return nil, err
		}
	}

	return workflows, nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx, selectWorkflows+` AND id = $1`, id)

	workflow, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, fmt.Errorf("failed to scan workflow: %w", err))
	}

	if workflow.ExecutionLogs, err = r.loadExecutionLogs(ctx, id); err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return workflow, nil
}

// Save upserts the workflow row and inserts the execution logs that are not stored yet.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) (err error) {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	nodesJSON, err := json.Marshal(nonNil(workflow.Nodes))
	if err != nil {
		return fmt.Errorf("failed to marshal nodes: %w", err)
	}

	edgesJSON, err := json.Marshal(nonNil(workflow.Edges))
	if err != nil {
		return fmt.Errorf("failed to marshal edges: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflows (id, user_id, name, description, nodes, edges, is_active, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at,
			deleted_at = NULL
	`,
		workflow.ID,
		workflow.UserID,
		workflow.Name,
		workflow.Description,
		nodesJSON,
		edgesJSON,
		workflow.IsActive,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, fmt.Errorf("failed to save workflow: %w", err))
	}

	for _, entry := range workflow.ExecutionLogs {
		if err = insertExecutionLog(ctx, tx, workflow.ID, entry); err != nil {
			return persistence.NewWorkflowError("Save", workflow.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete soft deletes a workflow by setting deleted_at timestamp.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE workflows SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, fmt.Errorf("failed to delete workflow: %w", err))
	}

	return nil
}

func (r *WorkflowRepository) AppendExecutionLog(ctx context.Context, workflowID string, entry *models.ExecutionLog) error {
	var exists bool

	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM workflows WHERE id = $1 AND deleted_at IS NULL)`, workflowID,
	).Scan(&exists)
	if err != nil {
		return persistence.NewWorkflowError("AppendExecutionLog", workflowID, err)
	}

	if !exists {
		return persistence.NewWorkflowError("AppendExecutionLog", workflowID, persistence.ErrWorkflowNotFound)
	}

	if err := insertExecutionLog(ctx, r.db, workflowID, entry); err != nil {
		return persistence.NewWorkflowError("AppendExecutionLog", workflowID, err)
	}

	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertExecutionLog(ctx context.Context, db execer, workflowID string, entry *models.ExecutionLog) error {
	resultsJSON, err := json.Marshal(entry.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	contextJSON, err := json.Marshal(entry.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO execution_logs (id, workflow_id, timestamp, status, message, source, results, error, context)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (workflow_id, id) DO NOTHING
	`,
		entry.ID,
		workflowID,
		entry.Timestamp,
		entry.Status,
		entry.Message,
		entry.Source,
		resultsJSON,
		entry.Error,
		contextJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution log: %w", err)
	}

	return nil
}

func (r *WorkflowRepository) loadExecutionLogs(ctx context.Context, workflowID string) ([]*models.ExecutionLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, timestamp, status, message, source, results, error, context
		FROM execution_logs
		WHERE workflow_id = $1
		ORDER BY seq
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution logs: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	logs := make([]*models.ExecutionLog, 0)

	for rows.Next() {
		var (
			entry                    models.ExecutionLog
			resultsJSON, contextJSON []byte
		)

		err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.Status, &entry.Message, &entry.Source, &resultsJSON, &entry.Error, &contextJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution log: %w", err)
		}

		if resultsJSON != nil {
			if err := json.Unmarshal(resultsJSON, &entry.Results); err != nil {
				return nil, fmt.Errorf("failed to unmarshal results: %w", err)
			}
		}

		if contextJSON != nil {
			if err := json.Unmarshal(contextJSON, &entry.Context); err != nil {
				return nil, fmt.Errorf("failed to unmarshal context: %w", err)
			}
		}

		logs = append(logs, &entry)
	}

	return logs, rows.Err()
}

func scanWorkflow(scanner interface {
	Scan(dest ...any) error
}) (*models.Workflow, error) {
	var (
		workflow             models.Workflow
		nodesJSON, edgesJSON []byte
	)

	err := scanner.Scan(
		&workflow.ID,
		&workflow.UserID,
		&workflow.Name,
		&workflow.Description,
		&nodesJSON,
		&edgesJSON,
		&workflow.IsActive,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(nodesJSON, &workflow.Nodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}

	if err := json.Unmarshal(edgesJSON, &workflow.Edges); err != nil {
		return nil, fmt.Errorf("failed to unmarshal edges: %w", err)
	}

	return &workflow, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}
