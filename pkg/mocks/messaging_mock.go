package mocks

import (
	"context"

	"github.com/BabaVossRS3/FlowForge/pkg/messaging"
	"github.com/stretchr/testify/mock"
)

// MockCredentialSource is a mock implementation of actions.CredentialSource.
type MockCredentialSource struct {
	mock.Mock
}

func (m *MockCredentialSource) GetCredentials(ctx context.Context, userID, integrationID string) (map[string]string, error) {
	args := m.Called(ctx, userID, integrationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[string]string), args.Error(1)
}

// MockChatSender is a mock implementation of actions.ChatSender.
type MockChatSender struct {
	mock.Mock
}

func (m *MockChatSender) Send(ctx context.Context, platform, recipient, text string, credentials map[string]string) error {
	args := m.Called(ctx, platform, recipient, text, credentials)

	return args.Error(0)
}

// MockMailer is a mock implementation of messaging.Mailer.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, cfg messaging.SMTPConfig, email *messaging.Email) error {
	args := m.Called(ctx, cfg, email)

	return args.Error(0)
}
