package mocks

import (
	"context"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) GetByOwner(ctx context.Context, userID string) ([]*models.Workflow, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) GetActive(ctx context.Context) ([]*models.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockWorkflowRepository) AppendExecutionLog(ctx context.Context, workflowID string, entry *models.ExecutionLog) error {
	args := m.Called(ctx, workflowID, entry)

	return args.Error(0)
}

// MockIntegrationRepository is a mock implementation of persistence.IntegrationRepository interface.
type MockIntegrationRepository struct {
	mock.Mock
}

func (m *MockIntegrationRepository) Get(ctx context.Context, userID, integrationID string) (*models.Integration, error) {
	args := m.Called(ctx, userID, integrationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) List(ctx context.Context, userID string) ([]*models.Integration, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) Save(ctx context.Context, integration *models.Integration) error {
	args := m.Called(ctx, integration)

	return args.Error(0)
}

func (m *MockIntegrationRepository) Delete(ctx context.Context, userID, integrationID string) error {
	args := m.Called(ctx, userID, integrationID)

	return args.Error(0)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	WorkflowRepo    *MockWorkflowRepository
	IntegrationRepo *MockIntegrationRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		WorkflowRepo:    &MockWorkflowRepository{},
		IntegrationRepo: &MockIntegrationRepository{},
	}
}

func (m *MockPersistence) Workflows() persistence.WorkflowRepository {
	return m.WorkflowRepo
}

func (m *MockPersistence) Integrations() persistence.IntegrationRepository {
	return m.IntegrationRepo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
