package workflow_test

import (
	"testing"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compare(left any, leftType models.ValueType, operator models.Operator, right any, rightType models.ValueType) *models.CompareCondition {
	return &models.CompareCondition{
		LeftValue:  left,
		LeftType:   leftType,
		Operator:   operator,
		RightValue: right,
		RightType:  rightType,
	}
}

func insensitive(c *models.CompareCondition) *models.CompareCondition {
	caseSensitive := false
	c.CaseSensitive = &caseSensitive

	return c
}

func TestEvaluate_Compare(t *testing.T) {
	t.Parallel()

	str, num, variable := models.ValueTypeString, models.ValueTypeNumber, models.ValueTypeVariable

	tests := []struct {
		name    string
		compare *models.CompareCondition
		want    bool
	}{
		{"equal strings", compare("a", str, models.OperatorEqual, "a", str), true},
		{"equal is case sensitive by default", compare("Approved", str, models.OperatorEqual, "approved", str), false},
		{"equal ignoring case", insensitive(compare("Approved", str, models.OperatorEqual, "approved", str)), true},
		{"not equal", compare("a", str, models.OperatorNotEqual, "b", str), true},
		{"loose equality across types", compare("10", str, models.OperatorEqual, 10, num), true},
		{"greater", compare("10", num, models.OperatorGreater, "9", num), true},
		{"greater or equal", compare(5, num, models.OperatorGreaterOrEqual, 5, num), true},
		{"less", compare(1, num, models.OperatorLess, 2, num), true},
		{"less or equal fails", compare(3, num, models.OperatorLessOrEqual, 2, num), false},
		{"non numeric compares false", compare("abc", num, models.OperatorGreater, 1, num), false},
		{"missing variable is not less", compare("missing.amount", variable, models.OperatorLess, 10, num), false},
		{"missing variable is not greater or equal", compare("missing.amount", variable, models.OperatorGreaterOrEqual, 10, num), false},
		{"zero is not at most a missing variable", compare(0, num, models.OperatorLessOrEqual, "missing.amount", variable), false},
		{"contains", compare("hello world", str, models.OperatorContains, "world", str), true},
		{"contains ignoring case", insensitive(compare("Hello World", str, models.OperatorContains, "WORLD", str)), true},
		{"starts with", compare("hello", str, models.OperatorStartsWith, "he", str), true},
		{"ends with", compare("hello", str, models.OperatorEndsWith, "lo", str), true},
		{"matches", compare("order-123", str, models.OperatorMatches, `^order-\d+$`, str), true},
		{"matches ignoring case", insensitive(compare("ORDER-1", str, models.OperatorMatches, `^order`, str)), true},
		{"invalid regex is false", compare("x", str, models.OperatorMatches, `(`, str), false},
		{"is empty", compare("", str, models.OperatorIsEmpty, nil, ""), true},
		{"is not empty", compare("x", str, models.OperatorIsNotEmpty, nil, ""), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := workflow.Evaluate(&models.ConditionConfig{Type: models.ConditionTypeCompare, Compare: tt.compare}, models.NewResults())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_UnaryNeverResolvesRightSide(t *testing.T) {
	t.Parallel()

	// The right operand points at a trigger that does not exist; resolving it would fail.
	cfg := &models.ConditionConfig{Compare: &models.CompareCondition{
		LeftValue:      "",
		LeftType:       models.ValueTypeString,
		Operator:       models.OperatorIsEmpty,
		RightType:      models.ValueTypeTrigger,
		RightTriggerID: "missing",
	}}

	got, err := workflow.Evaluate(cfg, models.NewResults())
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvaluate_FailsClosed(t *testing.T) {
	t.Parallel()

	cfg := &models.ConditionConfig{Compare: &models.CompareCondition{
		LeftType:         models.ValueTypeTrigger,
		LeftTriggerID:    "missing",
		LeftTriggerField: "message",
		Operator:         models.OperatorNotEqual,
		RightValue:       "x",
		RightType:        models.ValueTypeString,
	}}

	got, err := workflow.Evaluate(cfg, models.NewResults())
	assert.False(t, got)

	var evalErr *workflow.ConditionEvaluationError

	require.ErrorAs(t, err, &evalErr)

	var resolutionErr *workflow.ResolutionError

	require.ErrorAs(t, err, &resolutionErr)

	assert.False(t, workflow.EvaluateCondition(cfg, models.NewResults()))

	unknown := &models.ConditionConfig{Compare: compare("a", models.ValueTypeString, "between", "b", models.ValueTypeString)}
	assert.False(t, workflow.EvaluateCondition(unknown, models.NewResults()))
}

func TestEvaluate_NoConfigPasses(t *testing.T) {
	t.Parallel()

	assert.True(t, workflow.EvaluateCondition(nil, models.NewResults()))
	assert.True(t, workflow.EvaluateCondition(&models.ConditionConfig{}, models.NewResults()))
}

func TestEvaluate_Logic(t *testing.T) {
	t.Parallel()

	results := resultsWithTrigger()

	approved := models.LogicRule{Field: "trigger-1.triggerData.message", Operator: models.OperatorContains, Value: "approved"}
	created := models.LogicRule{Field: "http-1.statusCode", Operator: models.OperatorEqual, Value: "201"}
	missing := models.LogicRule{Field: "http-1.body", Operator: models.OperatorIsNotEmpty}

	tests := []struct {
		name  string
		logic *models.LogicCondition
		want  bool
	}{
		{"and all true", &models.LogicCondition{LogicType: models.LogicAnd, Conditions: []models.LogicRule{approved, created}}, true},
		{"and one false", &models.LogicCondition{LogicType: models.LogicAnd, Conditions: []models.LogicRule{approved, missing}}, false},
		{"or one true", &models.LogicCondition{LogicType: models.LogicOr, Conditions: []models.LogicRule{missing, created}}, true},
		{"not of and", &models.LogicCondition{LogicType: models.LogicNot, Conditions: []models.LogicRule{approved, missing}}, true},
		{"empty and is vacuously true", &models.LogicCondition{LogicType: models.LogicAnd}, true},
		{"empty or is false", &models.LogicCondition{LogicType: models.LogicOr}, false},
		{"empty not is false", &models.LogicCondition{LogicType: models.LogicNot}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := workflow.Evaluate(&models.ConditionConfig{Logic: tt.logic}, results)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := workflow.Evaluate(&models.ConditionConfig{Logic: &models.LogicCondition{LogicType: "XOR"}}, results)
	require.Error(t, err)
}
