// Package file provides file-based persistence for workflows and integrations.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BabaVossRS3/FlowForge/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
//
// Layout:
//
//	<root>/workflows/<id>.json
//	<root>/integrations/<userId>/<integrationId>.json
type Persistence struct {
	root             string
	workflowRepo     *WorkflowRepository
	integrationsRepo *IntegrationRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:             cleanRoot,
		workflowRepo:     NewWorkflowRepository(cleanRoot),
		integrationsRepo: NewIntegrationRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Workflows() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) Integrations() persistence.IntegrationRepository {
	return fp.integrationsRepo
}

var errInvalidName = errors.New("invalid name")

// safeName rejects ids that would escape their directory.
func safeName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w %q", errInvalidName, name)
	}

	return nil
}

// writeJSON replaces the file atomically through a temporary sibling.
func writeJSON(filePath string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write: %w", err)
	}

	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to set permissions: %w", err)
	}

	return os.Rename(tmp.Name(), filePath)
}

// readJSON returns os.ErrNotExist (wrapped) when the file is missing.
func readJSON(filePath string, value any) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, value); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(filePath), err)
	}

	return nil
}
