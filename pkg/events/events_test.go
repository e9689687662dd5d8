package events_test

import (
	"encoding/json"
	"testing"

	"github.com/BabaVossRS3/FlowForge/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowExecutionEvents_Types(t *testing.T) {
	t.Parallel()

	assert.Equal(t, events.WorkflowExecutionStartedEvent, events.WorkflowExecutionStarted{}.GetType())
	assert.Equal(t, events.WorkflowExecutionCompletedEvent, events.WorkflowExecutionCompleted{}.GetType())
	assert.Equal(t, events.WorkflowExecutionFailedEvent, events.WorkflowExecutionFailed{}.GetType())
}

func TestWorkflowExecutionFailed_JSON(t *testing.T) {
	t.Parallel()

	event := events.WorkflowExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.WorkflowExecutionFailedEvent, "wf-1", "user-1"),
		ExecutionID: "exec-1",
		Source:      "schedule",
		Error:       "no trigger data available for AI evaluation",
	}

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any

	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "wf-1", decoded["workflow_id"])
	assert.Equal(t, "workflow.execution.failed", decoded["type"])
	assert.Equal(t, "exec-1", decoded["execution_id"])
	assert.NotEmpty(t, decoded["id"])
}
