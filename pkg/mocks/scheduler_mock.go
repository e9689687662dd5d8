package mocks

import (
	"context"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/workflow"
	"github.com/stretchr/testify/mock"
)

// MockScheduler is a mock implementation of services.Scheduler.
type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) Schedule(ctx context.Context, wf *models.Workflow) error {
	args := m.Called(ctx, wf)

	return args.Error(0)
}

func (m *MockScheduler) Unschedule(workflowID string) {
	m.Called(workflowID)
}

// MockRunner is a mock implementation of services.Runner.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, run workflow.Run) (*models.ExecutionLog, error) {
	args := m.Called(ctx, run)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ExecutionLog), args.Error(1)
}
