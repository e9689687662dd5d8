package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BabaVossRS3/FlowForge/pkg/eventbus"
	"github.com/BabaVossRS3/FlowForge/pkg/events"
	"github.com/BabaVossRS3/FlowForge/pkg/log"
	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/otelhelper"
	"github.com/BabaVossRS3/FlowForge/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

type runMessages struct {
	success string
	failure string
}

var messagesBySource = map[models.ExecutionSource]runMessages{
	models.ExecutionSourceManual:   {"Workflow executed successfully", "Workflow execution failed"},
	models.ExecutionSourceWebhook:  {"Webhook triggered workflow execution", "Webhook workflow execution failed"},
	models.ExecutionSourceChat:     {"Chat message triggered workflow execution", "Chat message workflow execution failed"},
	models.ExecutionSourceSchedule: {"Scheduled workflow executed successfully", "Scheduled workflow execution failed"},
}

// Run describes one execution request.
type Run struct {
	Workflow *models.Workflow
	Source   models.ExecutionSource

	// Graph overrides the workflow's stored graph, e.g. for unsaved editor changes.
	Graph *models.Graph

	// TriggerData seeds trigger nodes. Nil makes trigger nodes generate sample data.
	TriggerData map[string]any

	// Context is copied into the execution log entry.
	Context map[string]any
}

// Runner executes a workflow, appends the outcome to its execution log and publishes an execution event.
type Runner struct {
	executor  *Executor
	workflows persistence.WorkflowRepository
	publisher eventbus.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewRunner builds a runner. A nil publisher disables execution events.
func NewRunner(executor *Executor, workflows persistence.WorkflowRepository, publisher eventbus.EventPublisher, logger *slog.Logger) *Runner {
	return &Runner{
		executor:  executor,
		workflows: workflows,
		publisher: publisher,
		logger:    logger.With("module", "workflow_runner"),
		now:       time.Now,
	}
}

// Run walks the graph and records the attempt. The returned entry carries the run's status; the
// error is only non-nil when the entry could not be appended to the workflow's log.
func (r *Runner) Run(ctx context.Context, run Run) (*models.ExecutionLog, error) {
	wf := run.Workflow
	executionID := uuid.New().String()
	started := r.now()

	logger := r.logger.With("workflow_id", wf.ID, "execution_id", executionID, "source", run.Source)
	ctx = log.ContextWithLogger(ctx, logger)

	ctx, span := otelhelper.StartSpan(ctx, r.executor.tracer, "workflow.run",
		attribute.String(otelhelper.WorkflowIDKey, wf.ID),
		attribute.String(otelhelper.WorkflowNameKey, wf.Name),
		attribute.String(otelhelper.ExecutionIDKey, executionID),
		attribute.String(otelhelper.ExecutionSourceKey, string(run.Source)),
	)
	defer span.End()

	r.publish(ctx, wf, events.WorkflowExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.WorkflowExecutionStartedEvent, wf.ID, wf.UserID),
		ExecutionID: executionID,
		Source:      string(run.Source),
	})

	graph := run.Graph
	if graph == nil {
		graph = wf.Graph()
	}

	results, walkErr := r.executor.Execute(ctx, graph, wf.UserID, run.TriggerData)
	duration := r.now().Sub(started)

	messages, ok := messagesBySource[run.Source]
	if !ok {
		messages = messagesBySource[models.ExecutionSourceManual]
	}

	entry := &models.ExecutionLog{
		ID:        executionID,
		Timestamp: started,
		Source:    run.Source,
		Context:   run.Context,
	}

	executed, failed := countResults(results)

	if walkErr != nil {
		entry.Status = models.ExecutionStatusFailure
		entry.Message = messages.failure
		entry.Error = walkErr.Error()

		otelhelper.SetError(span, walkErr)
		logger.ErrorContext(ctx, messages.failure, "error", walkErr, "duration", duration)

		r.publish(ctx, wf, events.WorkflowExecutionFailed{
			BaseEvent:     events.NewBaseEvent(events.WorkflowExecutionFailedEvent, wf.ID, wf.UserID),
			ExecutionID:   executionID,
			Source:        string(run.Source),
			DurationMs:    duration.Milliseconds(),
			Error:         walkErr.Error(),
			NodesExecuted: executed,
		})
	} else {
		entry.Status = models.ExecutionStatusSuccess
		entry.Message = messages.success
		entry.Results = results

		logger.InfoContext(ctx, messages.success, "nodes", executed, "failed_nodes", failed, "duration", duration)

		r.publish(ctx, wf, events.WorkflowExecutionCompleted{
			BaseEvent:     events.NewBaseEvent(events.WorkflowExecutionCompletedEvent, wf.ID, wf.UserID),
			ExecutionID:   executionID,
			Source:        string(run.Source),
			DurationMs:    duration.Milliseconds(),
			NodesExecuted: executed,
			NodesFailed:   failed,
		})
	}

	if r.workflows == nil || wf.ID == "" {
		return entry, nil
	}

	if err := r.workflows.AppendExecutionLog(ctx, wf.ID, entry); err != nil {
		logger.ErrorContext(ctx, "failed to append execution log", "error", err)

		return entry, fmt.Errorf("append execution log: %w", err)
	}

	return entry, nil
}

// RunByID reloads the workflow before running it, so long-lived schedules see the latest graph.
// Inactive, deleted and empty workflows are skipped with a nil entry and nothing is logged.
func (r *Runner) RunByID(ctx context.Context, workflowID string, source models.ExecutionSource, triggerData map[string]any) (*models.ExecutionLog, error) {
	wf, err := r.workflows.GetByID(ctx, workflowID)
	if err != nil {
		if errors.Is(err, persistence.ErrWorkflowNotFound) {
			r.logger.WarnContext(ctx, "workflow no longer exists", "workflow_id", workflowID)

			return nil, nil
		}

		return nil, err
	}

	if !wf.IsActive {
		r.logger.InfoContext(ctx, "skipping inactive workflow", "workflow_id", workflowID)

		return nil, nil
	}

	if len(wf.Nodes) == 0 {
		r.logger.InfoContext(ctx, "skipping workflow without nodes", "workflow_id", workflowID)

		return nil, nil
	}

	return r.Run(ctx, Run{Workflow: wf, Source: source, TriggerData: triggerData})
}

func (r *Runner) publish(ctx context.Context, wf *models.Workflow, event eventbus.Event) {
	if r.publisher == nil {
		return
	}

	if err := r.publisher.Publish(ctx, wf.ID, event); err != nil {
		log.FromContext(ctx, r.logger).WarnContext(ctx, "failed to publish execution event",
			"event_type", event.GetType(), "error", err)
	}
}

func countResults(results *models.Results) (executed, failed int) {
	for _, key := range results.Keys() {
		result, _ := results.Get(key)
		if result == nil || result.Kind == models.ResultKindVariable {
			continue
		}

		executed++

		if result.Status == models.NodeStatusFailed {
			failed++
		}
	}

	return executed, failed
}
