package workflow_test

import (
	"testing"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultsWithTrigger() *models.Results {
	results := models.NewResults()
	results.Set("trigger-1", &models.NodeResult{
		Kind:   "trigger",
		Status: models.NodeStatusCompleted,
		Data: map[string]any{
			"message": "Trigger executed",
			"triggerData": map[string]any{
				"message": "Order approved",
				"body":    map[string]any{"amount": 42.5, "items": []any{"a", "b"}},
			},
		},
	})
	results.Set("http-1", &models.NodeResult{
		Kind:   "action",
		Status: models.NodeStatusCompleted,
		Data:   map[string]any{"statusCode": 201, "url": "https://example.com"},
	})

	return results
}

func TestResolveValue_Literals(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		operand models.Operand
		want    any
	}{
		{"string from number", models.Operand{Value: 12.0, Type: models.ValueTypeString}, "12"},
		{"number from string", models.Operand{Value: "3.5", Type: models.ValueTypeNumber}, 3.5},
		{"boolean from string", models.Operand{Value: "true", Type: models.ValueTypeBoolean}, true},
		{"boolean from bool", models.Operand{Value: true, Type: models.ValueTypeBoolean}, true},
		{"boolean from other", models.Operand{Value: "yes", Type: models.ValueTypeBoolean}, false},
		{"unknown type passes through", models.Operand{Value: []any{1.0}, Type: "custom"}, []any{1.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := workflow.ResolveValue(tt.operand, models.NewResults())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveValue_TriggerField(t *testing.T) {
	t.Parallel()

	results := resultsWithTrigger()

	got, err := workflow.ResolveValue(models.Operand{Type: models.ValueTypeTrigger, TriggerID: "trigger-1", TriggerField: "body.amount"}, results)
	require.NoError(t, err)
	assert.InDelta(t, 42.5, got, 0.0001)

	got, err = workflow.ResolveValue(models.Operand{Type: models.ValueTypeTrigger, TriggerID: "trigger-1", TriggerField: "body.items.1"}, results)
	require.NoError(t, err)
	assert.Equal(t, "b", got)

	got, err = workflow.ResolveValue(models.Operand{Type: models.ValueTypeTrigger, TriggerID: "trigger-1", TriggerField: "body.missing.deeper"}, results)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolveValue_TriggerErrors(t *testing.T) {
	t.Parallel()

	results := resultsWithTrigger()

	var resolutionErr *workflow.ResolutionError

	_, err := workflow.ResolveValue(models.Operand{Type: models.ValueTypeTrigger, TriggerID: "nope", TriggerField: "message"}, results)
	require.ErrorAs(t, err, &resolutionErr)
	assert.Equal(t, "nope", resolutionErr.TriggerID)

	_, err = workflow.ResolveValue(models.Operand{Type: models.ValueTypeTrigger, TriggerID: "http-1", TriggerField: "message"}, results)
	require.ErrorAs(t, err, &resolutionErr)

	_, err = workflow.ResolveValue(models.Operand{Type: models.ValueTypeTrigger, TriggerField: "message"}, results)
	require.ErrorAs(t, err, &resolutionErr)
}

func TestResolveVariable(t *testing.T) {
	t.Parallel()

	results := resultsWithTrigger()

	assert.Equal(t, 201, workflow.ResolveVariable("http-1.statusCode", results))
	assert.Equal(t, "Order approved", workflow.ResolveVariable("trigger-1.triggerData.message", results))
	assert.Nil(t, workflow.ResolveVariable("missing.value", results))
	assert.Nil(t, workflow.ResolveVariable("", results))

	whole, ok := workflow.ResolveVariable("http-1", results).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://example.com", whole["url"])
}
