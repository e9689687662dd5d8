package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

// IntegrationRepository stores one hash per user, keyed by integration id.
type IntegrationRepository struct {
	client *goredis.Client
	keys   keys
}

func (r *IntegrationRepository) Get(ctx context.Context, userID, integrationID string) (*models.Integration, error) {
	data, err := r.client.HGet(ctx, r.keys.integrations(userID), integrationID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, persistence.NewIntegrationError("Get", userID, integrationID, persistence.ErrIntegrationNotFound)
	}

	if err != nil {
		return nil, persistence.NewIntegrationError("Get", userID, integrationID, err)
	}

	var integration models.Integration
	if err := json.Unmarshal(data, &integration); err != nil {
		return nil, persistence.NewIntegrationError("Get", userID, integrationID, fmt.Errorf("failed to decode integration: %w", err))
	}

	return &integration, nil
}

func (r *IntegrationRepository) List(ctx context.Context, userID string) ([]*models.Integration, error) {
	values, err := r.client.HGetAll(ctx, r.keys.integrations(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}

	integrations := make([]*models.Integration, 0, len(values))

	for id, raw := range values {
		var integration models.Integration
		if err := json.Unmarshal([]byte(raw), &integration); err != nil {
			return nil, persistence.NewIntegrationError("List", userID, id, fmt.Errorf("failed to decode integration: %w", err))
		}

		integrations = append(integrations, &integration)
	}

	sort.Slice(integrations, func(i, j int) bool {
		return integrations[i].IntegrationID < integrations[j].IntegrationID
	})

	return integrations, nil
}

func (r *IntegrationRepository) Save(ctx context.Context, integration *models.Integration) error {
	now := time.Now().UTC()
	if integration.CreatedAt.IsZero() {
		integration.CreatedAt = now
	}

	integration.LastUpdated = now

	data, err := json.Marshal(integration)
	if err != nil {
		return fmt.Errorf("failed to marshal integration: %w", err)
	}

	if err := r.client.HSet(ctx, r.keys.integrations(integration.UserID), integration.IntegrationID, data).Err(); err != nil {
		return persistence.NewIntegrationError("Save", integration.UserID, integration.IntegrationID, err)
	}

	return nil
}

func (r *IntegrationRepository) Delete(ctx context.Context, userID, integrationID string) error {
	removed, err := r.client.HDel(ctx, r.keys.integrations(userID), integrationID).Result()
	if err != nil {
		return persistence.NewIntegrationError("Delete", userID, integrationID, err)
	}

	if removed == 0 {
		return persistence.NewIntegrationError("Delete", userID, integrationID, persistence.ErrIntegrationNotFound)
	}

	return nil
}
