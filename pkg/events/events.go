// Package events defines the notifications published when workflows run.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every workflow execution event.
const Topic = "flowforge.workflow.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowExecutionStartedEvent   EventType = "workflow.execution.started"
	WorkflowExecutionCompletedEvent EventType = "workflow.execution.completed"
	WorkflowExecutionFailedEvent    EventType = "workflow.execution.failed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	UserID     string         `json:"user_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID, userID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		UserID:     userID,
	}
}

type WorkflowExecutionStarted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Source      string `json:"source"`
}

func (w WorkflowExecutionStarted) GetType() EventType {
	return WorkflowExecutionStartedEvent
}

type WorkflowExecutionCompleted struct {
	BaseEvent

	ExecutionID   string `json:"execution_id"`
	Source        string `json:"source"`
	DurationMs    int64  `json:"duration_ms"`
	NodesExecuted int    `json:"nodes_executed"`
	NodesFailed   int    `json:"nodes_failed"`
}

func (w WorkflowExecutionCompleted) GetType() EventType {
	return WorkflowExecutionCompletedEvent
}

type WorkflowExecutionFailed struct {
	BaseEvent

	ExecutionID   string `json:"execution_id"`
	Source        string `json:"source"`
	DurationMs    int64  `json:"duration_ms"`
	Error         string `json:"error"`
	NodesExecuted int    `json:"nodes_executed"`
}

func (w WorkflowExecutionFailed) GetType() EventType {
	return WorkflowExecutionFailedEvent
}
