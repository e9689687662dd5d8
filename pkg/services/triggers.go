package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/persistence"
	"github.com/BabaVossRS3/FlowForge/pkg/workflow"
)

// Triggers routes inbound webhook and chat deliveries to the active workflows they start.
type Triggers struct {
	workflows persistence.WorkflowRepository
	runner    Runner
	logger    *slog.Logger
	now       func() time.Time
}

func NewTriggers(workflows persistence.WorkflowRepository, runner Runner, logger *slog.Logger) *Triggers {
	return &Triggers{
		workflows: workflows,
		runner:    runner,
		logger:    logger.With("module", "trigger_service"),
		now:       time.Now,
	}
}

// HandleWebhook runs the first active workflow whose webhook trigger matches the id and method.
func (t *Triggers) HandleWebhook(ctx context.Context, webhookID string, req *models.WebhookRequest) (*models.ExecutionLog, error) {
	active, err := t.workflows.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active workflows: %w", err)
	}

	wf := workflow.MatchWebhook(active, webhookID, req.Method)
	if wf == nil {
		return nil, fmt.Errorf("%w: webhook %s", ErrNoMatchingWorkflow, webhookID)
	}

	if err := workflow.ValidateWebhookBody(wf.TriggerConfig().Webhook, req.Body); err != nil {
		return nil, NewValidationError("HandleWebhook", "SCHEMA_MISMATCH", err.Error(), err)
	}

	t.logger.InfoContext(ctx, "webhook matched workflow", "webhook_id", webhookID, "workflow_id", wf.ID)

	return t.runner.Run(ctx, workflow.Run{
		Workflow:    wf,
		Source:      models.ExecutionSourceWebhook,
		TriggerData: req.TriggerData(t.now()),
		Context:     map[string]any{"webhookId": webhookID},
	})
}

// HandleChat runs every active workflow whose chat trigger accepts the message. A workflow that fails
// to record its run does not stop the others.
func (t *Triggers) HandleChat(ctx context.Context, msg *models.ChatMessage) ([]*models.ExecutionLog, error) {
	active, err := t.workflows.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active workflows: %w", err)
	}

	matched := workflow.MatchChat(active, msg)

	logger := t.logger.With("platform", msg.Platform, "sender", msg.Sender())
	logger.InfoContext(ctx, "chat message received", "matched_workflows", len(matched))

	triggerData := msg.TriggerData(t.now())
	entries := make([]*models.ExecutionLog, 0, len(matched))

	for _, wf := range matched {
		entry, err := t.runner.Run(ctx, workflow.Run{
			Workflow:    wf,
			Source:      models.ExecutionSourceChat,
			TriggerData: triggerData,
			Context:     map[string]any{"platform": msg.Platform},
		})
		if err != nil {
			logger.ErrorContext(ctx, "chat triggered run not recorded", "workflow_id", wf.ID, "error", err)
		}

		if entry != nil {
			entries = append(entries, entry)
		}
	}

	return entries, nil
}
