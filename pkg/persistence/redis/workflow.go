package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/persistence"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// WorkflowRepository keeps execution logs in a list next to the document, so an append is one RPUSH.
type WorkflowRepository struct {
	client *goredis.Client
	logger *slog.Logger
	keys   keys
}

func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	return r.loadSet(ctx, r.keys.all())
}

func (r *WorkflowRepository) GetByOwner(ctx context.Context, userID string) ([]*models.Workflow, error) {
	return r.loadSet(ctx, r.keys.owned(userID))
}

func (r *WorkflowRepository) GetActive(ctx context.Context) ([]*models.Workflow, error) {
	return r.loadSet(ctx, r.keys.active())
}

// loadSet loads every workflow whose id is in the set, newest first. Ids without a document are skipped.
func (r *WorkflowRepository) loadSet(ctx context.Context, setKey string) ([]*models.Workflow, error) {
	ids, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow ids: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		workflow, err := r.GetByID(ctx, id)
		if errors.Is(err, persistence.ErrWorkflowNotFound) {
			r.logger.WarnContext(ctx, "stale workflow index entry", "workflow_id", id, "index", setKey)

			continue
		}

		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := r.document(ctx, id)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	entries, err := r.client.LRange(ctx, r.keys.logs(id), 0, -1).Result()
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, fmt.Errorf("failed to load execution logs: %w", err))
	}

	workflow.ExecutionLogs = make([]*models.ExecutionLog, 0, len(entries))

	for _, raw := range entries {
		var entry models.ExecutionLog
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, persistence.NewWorkflowError("GetByID", id, fmt.Errorf("failed to decode execution log: %w", err))
		}

		workflow.ExecutionLogs = append(workflow.ExecutionLogs, &entry)
	}

	return workflow, nil
}

func (r *WorkflowRepository) document(ctx context.Context, id string) (*models.Workflow, error) {
	data, err := r.client.Get(ctx, r.keys.workflow(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, persistence.ErrWorkflowNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("failed to decode workflow: %w", err)
	}

	return &workflow, nil
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	data, err := json.Marshal(workflow.WithoutLogs())
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}

	previous, err := r.document(ctx, workflow.ID)
	if err != nil && !errors.Is(err, persistence.ErrWorkflowNotFound) {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	missing, err := r.unstoredLogs(ctx, workflow)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, r.keys.workflow(workflow.ID), data, 0)
		pipe.SAdd(ctx, r.keys.all(), workflow.ID)

		if previous != nil && previous.UserID != workflow.UserID {
			pipe.SRem(ctx, r.keys.owned(previous.UserID), workflow.ID)
		}

		pipe.SAdd(ctx, r.keys.owned(workflow.UserID), workflow.ID)

		if workflow.IsActive {
			pipe.SAdd(ctx, r.keys.active(), workflow.ID)
		} else {
			pipe.SRem(ctx, r.keys.active(), workflow.ID)
		}

		if len(missing) > 0 {
			pipe.RPush(ctx, r.keys.logs(workflow.ID), missing...)
		}

		return nil
	})
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, fmt.Errorf("redis transaction failed: %w", err))
	}

	return nil
}

// unstoredLogs encodes the document's execution logs whose ids are not in the stored list yet.
func (r *WorkflowRepository) unstoredLogs(ctx context.Context, workflow *models.Workflow) ([]any, error) {
	if len(workflow.ExecutionLogs) == 0 {
		return nil, nil
	}

	stored, err := r.client.LRange(ctx, r.keys.logs(workflow.ID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load execution logs: %w", err)
	}

	seen := make(map[string]bool, len(stored))

	for _, raw := range stored {
		var entry struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal([]byte(raw), &entry); err == nil {
			seen[entry.ID] = true
		}
	}

	var missing []any

	for _, entry := range workflow.ExecutionLogs {
		if seen[entry.ID] {
			continue
		}

		encoded, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal execution log: %w", err)
		}

		missing = append(missing, encoded)
	}

	return missing, nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	previous, err := r.document(ctx, id)
	if errors.Is(err, persistence.ErrWorkflowNotFound) {
		return nil
	}

	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, r.keys.workflow(id), r.keys.logs(id))
		pipe.SRem(ctx, r.keys.all(), id)
		pipe.SRem(ctx, r.keys.active(), id)
		pipe.SRem(ctx, r.keys.owned(previous.UserID), id)

		return nil
	})
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, fmt.Errorf("redis transaction failed: %w", err))
	}

	return nil
}

func (r *WorkflowRepository) AppendExecutionLog(ctx context.Context, workflowID string, entry *models.ExecutionLog) error {
	exists, err := r.client.Exists(ctx, r.keys.workflow(workflowID)).Result()
	if err != nil {
		return persistence.NewWorkflowError("AppendExecutionLog", workflowID, err)
	}

	if exists == 0 {
		return persistence.NewWorkflowError("AppendExecutionLog", workflowID, persistence.ErrWorkflowNotFound)
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal execution log: %w", err)
	}

	if err := r.client.RPush(ctx, r.keys.logs(workflowID), encoded).Err(); err != nil {
		return persistence.NewWorkflowError("AppendExecutionLog", workflowID, err)
	}

	return nil
}
