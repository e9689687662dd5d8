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
)

type IntegrationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewIntegrationRepository(db *sql.DB, logger *slog.Logger) *IntegrationRepository {
	return &IntegrationRepository{db: db, logger: logger}
}

const selectIntegrations = `
	SELECT user_id, integration_id, credentials, is_active, last_updated, created_at
	FROM integrations
`

func (r *IntegrationRepository) Get(ctx context.Context, userID, integrationID string) (*models.Integration, error) {
	row := r.db.QueryRowContext(ctx, selectIntegrations+` WHERE user_id = $1 AND integration_id = $2`, userID, integrationID)

	integration, err := scanIntegration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewIntegrationError("Get", userID, integrationID, persistence.ErrIntegrationNotFound)
	}

	if err != nil {
		return nil, persistence.NewIntegrationError("Get", userID, integrationID, err)
	}

	return integration, nil
}

func (r *IntegrationRepository) List(ctx context.Context, userID string) ([]*models.Integration, error) {
	rows, err := r.db.QueryContext(ctx, selectIntegrations+` WHERE user_id = $1 ORDER BY integration_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query integrations: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	integrations := make([]*models.Integration, 0)

	for rows.Next() {
		integration, err := scanIntegration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan integration: %w", err)
		}

		integrations = append(integrations, integration)
	}

	return integrations, rows.Err()
}

func (r *IntegrationRepository) Save(ctx context.Context, integration *models.Integration) error {
	now := time.Now().UTC()
	if integration.CreatedAt.IsZero() {
		integration.CreatedAt = now
	}

	integration.LastUpdated = now

	credentialsJSON, err := json.Marshal(integration.Credentials)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO integrations (user_id, integration_id, credentials, is_active, last_updated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, integration_id) DO UPDATE SET
			credentials = EXCLUDED.credentials,
			is_active = EXCLUDED.is_active,
			last_updated = EXCLUDED.last_updated
	`,
		integration.UserID,
		integration.IntegrationID,
		credentialsJSON,
		integration.IsActive,
		integration.LastUpdated,
		integration.CreatedAt,
	)
	if err != nil {
		return persistence.NewIntegrationError("Save", integration.UserID, integration.IntegrationID, err)
	}

	return nil
}

func (r *IntegrationRepository) Delete(ctx context.Context, userID, integrationID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM integrations WHERE user_id = $1 AND integration_id = $2`, userID, integrationID)
	if err != nil {
		return persistence.NewIntegrationError("Delete", userID, integrationID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewIntegrationError("Delete", userID, integrationID, persistence.ErrIntegrationNotFound)
	}

	return nil
}

func scanIntegration(scanner interface {
	Scan(dest ...any) error
}) (*models.Integration, error) {
	var (
		integration     models.Integration
		credentialsJSON []byte
	)

	err := scanner.Scan(
		&integration.UserID,
		&integration.IntegrationID,
		&credentialsJSON,
		&integration.IsActive,
		&integration.LastUpdated,
		&integration.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(credentialsJSON, &integration.Credentials); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}

	return &integration, nil
}
