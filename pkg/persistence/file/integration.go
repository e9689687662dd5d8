package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/persistence"
)

// IntegrationRepository keeps one JSON document per user and integration.
type IntegrationRepository struct {
	root string
	mu   sync.Mutex
}

func NewIntegrationRepository(root string) *IntegrationRepository {
	return &IntegrationRepository{root: root}
}

func (ir *IntegrationRepository) userDir(userID string) string {
	return filepath.Join(ir.root, "integrations", userID)
}

func (ir *IntegrationRepository) path(userID, integrationID string) string {
	return filepath.Join(ir.userDir(userID), integrationID+".json")
}

func validIntegrationKey(userID, integrationID string) error {
	if err := safeName(userID); err != nil {
		return err
	}

	return safeName(integrationID)
}

func (ir *IntegrationRepository) Get(_ context.Context, userID, integrationID string) (*models.Integration, error) {
	if err := validIntegrationKey(userID, integrationID); err != nil {
		return nil, persistence.NewIntegrationError("Get", userID, integrationID, err)
	}

	var integration models.Integration

	err := readJSON(ir.path(userID, integrationID), &integration)
	if errors.Is(err, os.ErrNotExist) {
		return nil, persistence.NewIntegrationError("Get", userID, integrationID, persistence.ErrIntegrationNotFound)
	}

	if err != nil {
		return nil, persistence.NewIntegrationError("Get", userID, integrationID, err)
	}

	return &integration, nil
}

// List returns the user's integrations ordered by integration id.
func (ir *IntegrationRepository) List(ctx context.Context, userID string) ([]*models.Integration, error) {
	if err := safeName(userID); err != nil {
		return nil, persistence.NewIntegrationError("List", userID, "", err)
	}

	files, err := fs.Glob(os.DirFS(ir.userDir(userID)), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list integration files: %w", err)
	}

	integrations := make([]*models.Integration, 0, len(files))

	for _, file := range files {
		integration, err := ir.Get(ctx, userID, strings.TrimSuffix(file, ".json"))
		if errors.Is(err, persistence.ErrIntegrationNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		integrations = append(integrations, integration)
	}

	sort.Slice(integrations, func(i, j int) bool {
		return integrations[i].IntegrationID < integrations[j].IntegrationID
	})

	return integrations, nil
}

func (ir *IntegrationRepository) Save(_ context.Context, integration *models.Integration) error {
	if err := validIntegrationKey(integration.UserID, integration.IntegrationID); err != nil {
		return persistence.NewIntegrationError("Save", integration.UserID, integration.IntegrationID, err)
	}

	now := time.Now().UTC()
	if integration.CreatedAt.IsZero() {
		integration.CreatedAt = now
	}

	integration.LastUpdated = now

	ir.mu.Lock()
	defer ir.mu.Unlock()

	if err := writeJSON(ir.path(integration.UserID, integration.IntegrationID), integration); err != nil {
		return persistence.NewIntegrationError("Save", integration.UserID, integration.IntegrationID, err)
	}

	return nil
}

func (ir *IntegrationRepository) Delete(_ context.Context, userID, integrationID string) error {
	if err := validIntegrationKey(userID, integrationID); err != nil {
		return persistence.NewIntegrationError("Delete", userID, integrationID, err)
	}

	ir.mu.Lock()
	defer ir.mu.Unlock()

	err := os.Remove(ir.path(userID, integrationID))
	if os.IsNotExist(err) {
		return persistence.NewIntegrationError("Delete", userID, integrationID, persistence.ErrIntegrationNotFound)
	}

	if err != nil {
		return persistence.NewIntegrationError("Delete", userID, integrationID, err)
	}

	return nil
}
