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
	"github.com/google/uuid"
)

// WorkflowRepository keeps one JSON document per workflow.
type WorkflowRepository struct {
	root string

	// mu serializes writers so AppendExecutionLog's read-modify-write is atomic within the process.
	mu sync.Mutex
}

func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (wr *WorkflowRepository) dir() string {
	return filepath.Join(wr.root, "workflows")
}

func (wr *WorkflowRepository) path(id string) string {
	return filepath.Join(wr.dir(), id+".json")
}

// GetAll returns every stored workflow, newest first.
func (wr *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	return wr.filter(ctx, func(*models.Workflow) bool { return true })
}

func (wr *WorkflowRepository) GetByOwner(ctx context.Context, userID string) ([]*models.Workflow, error) {
	return wr.filter(ctx, func(w *models.Workflow) bool { return w.UserID == userID })
}

func (wr *WorkflowRepository) GetActive(ctx context.Context) ([]*models.Workflow, error) {
	return wr.filter(ctx, func(w *models.Workflow) bool { return w.IsActive })
}

func (wr *WorkflowRepository) filter(ctx context.Context, keep func(*models.Workflow) bool) ([]*models.Workflow, error) {
	files, err := fs.Glob(os.DirFS(wr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(files))

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		workflow, err := wr.GetByID(ctx, strings.TrimSuffix(file, ".json"))
		if errors.Is(err, persistence.ErrWorkflowNotFound) {
			// removed between the listing and the read
			continue
		}

		if err != nil {
			return nil, err
		}

		if keep(workflow) {
			workflows = append(workflows, workflow)
		}
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// GetByID returns ErrWorkflowNotFound when no document exists for the id.
func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	if err := safeName(id); err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, fmt.Errorf("%w: %w", persistence.ErrInvalidWorkflowID, err))
	}

	var workflow models.Workflow

	err := readJSON(wr.path(id), &workflow)
	if errors.Is(err, os.ErrNotExist) {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return &workflow, nil
}

// Save writes the whole document. CreatedAt is set on first save and UpdatedAt on every save.
func (wr *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	if err := safeName(workflow.ID); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, fmt.Errorf("%w: %w", persistence.ErrInvalidWorkflowID, err))
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	wr.mu.Lock()
	defer wr.mu.Unlock()

	if stored, err := wr.GetByID(ctx, workflow.ID); err == nil {
		workflow.ExecutionLogs = mergeLogs(workflow.ExecutionLogs, stored.ExecutionLogs)
	}

	if err := writeJSON(wr.path(workflow.ID), workflow); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// mergeLogs keeps stored entries missing from the incoming document, ordered by timestamp.
func mergeLogs(incoming, stored []*models.ExecutionLog) []*models.ExecutionLog {
	seen := make(map[string]bool, len(incoming))
	for _, entry := range incoming {
		seen[entry.ID] = true
	}

	merged := append([]*models.ExecutionLog(nil), incoming...)

	for _, entry := range stored {
		if !seen[entry.ID] {
			merged = append(merged, entry)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})

	return merged
}

// Delete removes the document. Deleting a missing workflow is not an error.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	if err := safeName(id); err != nil {
		return persistence.NewWorkflowError("Delete", id, fmt.Errorf("%w: %w", persistence.ErrInvalidWorkflowID, err))
	}

	wr.mu.Lock()
	defer wr.mu.Unlock()

	if err := os.Remove(wr.path(id)); err != nil && !os.IsNotExist(err) {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}

func (wr *WorkflowRepository) AppendExecutionLog(ctx context.Context, workflowID string, entry *models.ExecutionLog) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	workflow, err := wr.GetByID(ctx, workflowID)
	if err != nil {
		return err
	}

	workflow.ExecutionLogs = append(workflow.ExecutionLogs, entry)

	if err := writeJSON(wr.path(workflowID), workflow); err != nil {
		return persistence.NewWorkflowError("AppendExecutionLog", workflowID, err)
	}

	return nil
}
