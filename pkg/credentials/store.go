package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/persistence"
)

var sensitiveMarkers = []string{"password", "token", "secret", "key", "authtoken", "connectionstring"}

// accessTokenField is stored as given; long provider tokens have been corrupted by encryption before.
const accessTokenField = "accessToken"

// IsSensitive reports whether a credential field is encrypted at rest.
func IsSensitive(field string) bool {
	lower := strings.ToLower(field)

	for _, marker := range sensitiveMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	return false
}

// Store reads and writes integration credentials through the vault.
type Store struct {
	repo   persistence.IntegrationRepository
	vault  *Vault
	logger *slog.Logger
	now    func() time.Time
}

func NewStore(repo persistence.IntegrationRepository, vault *Vault, logger *slog.Logger) *Store {
	logger = logger.With("module", "credentials")

	if vault.Generated {
		logger.Warn("ENCRYPTION_KEY is not set, using a random key; stored credentials will not survive a restart")
	}

	return &Store{repo: repo, vault: vault, logger: logger, now: time.Now}
}

// GetCredentials returns the decrypted credentials of one integration.
// It returns persistence.ErrIntegrationNotFound when the user never configured it.
func (s *Store) GetCredentials(ctx context.Context, userID, integrationID string) (map[string]string, error) {
	integration, err := s.repo.Get(ctx, userID, integrationID)
	if err != nil {
		return nil, err
	}

	return s.decrypt(integration.Credentials), nil
}

// SetCredentials merges fields into the integration, creating it when needed, and returns the
// decrypted result.
func (s *Store) SetCredentials(ctx context.Context, userID, integrationID string, fields map[string]string) (map[string]string, error) {
	now := s.now().UTC()

	integration, err := s.repo.Get(ctx, userID, integrationID)
	if err != nil {
		if !persistence.IsIntegrationNotFound(err) {
			return nil, err
		}

		integration = &models.Integration{
			UserID:        userID,
			IntegrationID: integrationID,
			Credentials:   map[string]string{},
			IsActive:      true,
			CreatedAt:     now,
		}
	}

	if integration.Credentials == nil {
		integration.Credentials = map[string]string{}
	}

	for field, value := range fields {
		if value == "" || field == accessTokenField || !IsSensitive(field) {
			integration.Credentials[field] = value

			continue
		}

		encrypted, err := s.vault.Encrypt(value)
		if err != nil {
			return nil, fmt.Errorf("encrypt %s: %w", field, err)
		}

		integration.Credentials[field] = encrypted
	}

	integration.LastUpdated = now

	if err := s.repo.Save(ctx, integration); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "integration credentials updated", "user_id", userID, "integration_id", integrationID)

	return s.decrypt(integration.Credentials), nil
}

// ListCredentials returns every integration of the user keyed by integration id.
func (s *Store) ListCredentials(ctx context.Context, userID string) (map[string]map[string]string, error) {
	integrations, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[string]string, len(integrations))
	for _, integration := range integrations {
		out[integration.IntegrationID] = s.decrypt(integration.Credentials)
	}

	return out, nil
}

func (s *Store) DeleteCredentials(ctx context.Context, userID, integrationID string) error {
	return s.repo.Delete(ctx, userID, integrationID)
}

func (s *Store) decrypt(stored map[string]string) map[string]string {
	out := make(map[string]string, len(stored))

	for field, value := range stored {
		if value != "" && IsSensitive(field) {
			out[field] = s.vault.DecryptOrKeep(value)

			continue
		}

		out[field] = value
	}

	return out
}
