package mocks

import (
	"context"

	"github.com/BabaVossRS3/FlowForge/pkg/ai"
	"github.com/stretchr/testify/mock"
)

// MockAIProvider is a mock implementation of ai.Provider interface.
type MockAIProvider struct {
	mock.Mock
}

func (m *MockAIProvider) Complete(ctx context.Context, prompt string, opts ai.Options) (string, error) {
	args := m.Called(ctx, prompt, opts)

	return args.String(0), args.Error(1)
}

func (m *MockAIProvider) Name() string {
	args := m.Called()

	return args.String(0)
}
