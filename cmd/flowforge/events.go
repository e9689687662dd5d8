package main

import (
	"context"
	"log/slog"

	"github.com/BabaVossRS3/FlowForge/pkg/eventbus"
	"github.com/BabaVossRS3/FlowForge/pkg/events"
)

// subscribeExecutionEvents logs the execution events published by the runner.
func subscribeExecutionEvents(ctx context.Context, bus eventbus.EventSubscriber, logger *slog.Logger) error {
	logger = logger.With("module", "execution_events")

	completed := eventbus.Typed(func(ctx context.Context, event *events.WorkflowExecutionCompleted) error {
		logger.InfoContext(ctx, "workflow execution completed",
			"workflow_id", event.WorkflowID,
			"execution_id", event.ExecutionID,
			"source", event.Source,
			"duration_ms", event.DurationMs,
			"nodes_executed", event.NodesExecuted,
			"nodes_failed", event.NodesFailed,
		)

		return nil
	})

	failed := eventbus.Typed(func(ctx context.Context, event *events.WorkflowExecutionFailed) error {
		logger.WarnContext(ctx, "workflow execution failed",
			"workflow_id", event.WorkflowID,
			"execution_id", event.ExecutionID,
			"source", event.Source,
			"error", event.Error,
		)

		return nil
	})

	if err := bus.Handle(events.WorkflowExecutionCompletedEvent, completed); err != nil {
		return err
	}

	if err := bus.Handle(events.WorkflowExecutionFailedEvent, failed); err != nil {
		return err
	}

	return bus.Subscribe(ctx)
}
