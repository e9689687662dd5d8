// Package persistence provides the storage abstraction for workflows, their execution history and integrations.
package persistence

import (
	"context"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
)

type Persistence interface {
	Workflows() WorkflowRepository
	Integrations() IntegrationRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow documents.
type WorkflowRepository interface {
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	GetByOwner(ctx context.Context, userID string) ([]*models.Workflow, error)
	GetActive(ctx context.Context) ([]*models.Workflow, error)

	// GetByID returns ErrWorkflowNotFound when no workflow has the id.
	GetByID(ctx context.Context, id string) (*models.Workflow, error)

	// Save inserts or replaces the workflow document and assigns an id when it has none. Execution
	// logs the document carries are stored; logs already stored are never dropped by Save.
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error

	// AppendExecutionLog adds one entry to the workflow's history without rewriting the rest of the
	// document, so concurrent runs of the same workflow never drop each other's entries.
	AppendExecutionLog(ctx context.Context, workflowID string, entry *models.ExecutionLog) error
}

// IntegrationRepository stores per-user integration credentials as given, without encrypting them.
type IntegrationRepository interface {
	// Get returns ErrIntegrationNotFound when the user has no such integration.
	Get(ctx context.Context, userID, integrationID string) (*models.Integration, error)
	List(ctx context.Context, userID string) ([]*models.Integration, error)
	Save(ctx context.Context, integration *models.Integration) error
	Delete(ctx context.Context, userID, integrationID string) error
}
