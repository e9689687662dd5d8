package credentials_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/BabaVossRS3/FlowForge/pkg/credentials"
	"github.com/BabaVossRS3/FlowForge/pkg/mocks"
	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestIsSensitive(t *testing.T) {
	t.Parallel()

	for _, field := range []string{"smtpPassword", "botToken", "clientSecret", "apiKey", "authToken", "connectionString", "accessToken"} {
		assert.True(t, credentials.IsSensitive(field), field)
	}

	for _, field := range []string{"smtpHost", "smtpUser", "phoneNumberId", "webhookUrl"} {
		assert.False(t, credentials.IsSensitive(field), field)
	}
}

func TestStore_SetCredentialsEncryptsSensitiveFields(t *testing.T) {
	t.Parallel()

	vault, err := credentials.NewVault(testKey)
	require.NoError(t, err)

	repo := &mocks.MockIntegrationRepository{}
	repo.On("Get", mock.Anything, "user-1", "email").
		Return(nil, persistence.NewIntegrationError("get", "user-1", "email", persistence.ErrIntegrationNotFound))

	var saved *models.Integration

	repo.On("Save", mock.Anything, mock.AnythingOfType("*models.Integration")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*models.Integration) }).
		Return(nil)

	store := credentials.NewStore(repo, vault, slog.Default())

	decrypted, err := store.SetCredentials(context.Background(), "user-1", "email", map[string]string{
		"smtpHost":     "smtp.example.com",
		"smtpPassword": "hunter2",
		"accessToken":  "EAAB-long-token",
	})
	require.NoError(t, err)

	assert.Equal(t, "hunter2", decrypted["smtpPassword"])
	assert.Equal(t, "EAAB-long-token", decrypted["accessToken"])

	require.NotNil(t, saved)
	assert.True(t, saved.IsActive)
	assert.Equal(t, "smtp.example.com", saved.Credentials["smtpHost"])
	assert.Equal(t, "EAAB-long-token", saved.Credentials["accessToken"])
	assert.NotEqual(t, "hunter2", saved.Credentials["smtpPassword"])
	assert.True(t, strings.Contains(saved.Credentials["smtpPassword"], ":"))
}

func TestStore_GetCredentialsDecrypts(t *testing.T) {
	t.Parallel()

	vault, err := credentials.NewVault(testKey)
	require.NoError(t, err)

	encrypted, err := vault.Encrypt("xoxb-123")
	require.NoError(t, err)

	encryptedAccess, err := vault.Encrypt("legacy-access")
	require.NoError(t, err)

	repo := &mocks.MockIntegrationRepository{}
	repo.On("Get", mock.Anything, "user-1", "slack").Return(&models.Integration{
		UserID:        "user-1",
		IntegrationID: "slack",
		Credentials:   map[string]string{"botToken": encrypted, "accessToken": encryptedAccess, "channel": "C1"},
	}, nil)

	store := credentials.NewStore(repo, vault, slog.Default())

	creds, err := store.GetCredentials(context.Background(), "user-1", "slack")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"botToken": "xoxb-123", "accessToken": "legacy-access", "channel": "C1"}, creds)
}

func TestStore_GetCredentialsNotFound(t *testing.T) {
	t.Parallel()

	vault, err := credentials.NewVault(testKey)
	require.NoError(t, err)

	repo := &mocks.MockIntegrationRepository{}
	repo.On("Get", mock.Anything, "user-1", "teams").
		Return(nil, persistence.NewIntegrationError("get", "user-1", "teams", persistence.ErrIntegrationNotFound))

	_, err = credentials.NewStore(repo, vault, slog.Default()).GetCredentials(context.Background(), "user-1", "teams")
	require.ErrorIs(t, err, persistence.ErrIntegrationNotFound)
}
