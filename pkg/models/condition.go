package models

import (
	"encoding/json"
	"fmt"
)

// ConditionType discriminates the condition sub-configurations.
type ConditionType string

const (
	ConditionTypeAI      ConditionType = "ai"
	ConditionTypeCompare ConditionType = "compare"
	ConditionTypeLogic   ConditionType = "logic"
)

// ValueType says how a compare operand is resolved.
type ValueType string

const (
	ValueTypeString   ValueType = "string"
	ValueTypeNumber   ValueType = "number"
	ValueTypeBoolean  ValueType = "boolean"
	ValueTypeTrigger  ValueType = "trigger"
	ValueTypeVariable ValueType = "variable"
)

// Operator is a comparison operator of a compare or logic condition.
type Operator string

const (
	OperatorEqual          Operator = "=="
	OperatorNotEqual       Operator = "!="
	OperatorGreater        Operator = ">"
	OperatorGreaterOrEqual Operator = ">="
	OperatorLess           Operator = "<"
	OperatorLessOrEqual    Operator = "<="
	OperatorContains       Operator = "contains"
	OperatorStartsWith     Operator = "startsWith"
	OperatorEndsWith       Operator = "endsWith"
	OperatorMatches        Operator = "matches"
	OperatorIsEmpty        Operator = "isEmpty"
	OperatorIsNotEmpty     Operator = "isNotEmpty"
)

// IsUnary reports whether the operator only looks at the left operand.
func (o Operator) IsUnary() bool {
	return o == OperatorIsEmpty || o == OperatorIsNotEmpty
}

// Logic group types.
const (
	LogicAnd = "AND"
	LogicOr  = "OR"
	LogicNot = "NOT"
)

// ConditionConfig is the tagged union of condition node configurations.
type ConditionConfig struct {
	Type    ConditionType     `json:"type,omitempty"`
	AI      *AICondition      `json:"ai,omitempty"`
	Compare *CompareCondition `json:"compare,omitempty"`
	Logic   *LogicCondition   `json:"logic,omitempty"`
}

// Operand is one side of a comparison.
type Operand struct {
	Value        any
	Type         ValueType
	TriggerID    string
	TriggerField string
}

// CompareCondition compares two resolved operands.
type CompareCondition struct {
	LeftValue         any       `json:"leftValue,omitempty"`
	LeftType          ValueType `json:"leftType,omitempty"`
	LeftTriggerID     string    `json:"leftTriggerId,omitempty"`
	LeftTriggerField  string    `json:"leftTriggerField,omitempty"`
	Operator          Operator  `json:"operator"`
	RightValue        any       `json:"rightValue,omitempty"`
	RightType         ValueType `json:"rightType,omitempty"`
	RightTriggerID    string    `json:"rightTriggerId,omitempty"`
	RightTriggerField string    `json:"rightTriggerField,omitempty"`
	CaseSensitive     *bool     `json:"caseSensitive,omitempty"`
}

func (c *CompareCondition) Left() Operand {
	return Operand{Value: c.LeftValue, Type: c.LeftType, TriggerID: c.LeftTriggerID, TriggerField: c.LeftTriggerField}
}

func (c *CompareCondition) Right() Operand {
	return Operand{Value: c.RightValue, Type: c.RightType, TriggerID: c.RightTriggerID, TriggerField: c.RightTriggerField}
}

// IsCaseSensitive defaults to true when the flag is not set.
func (c *CompareCondition) IsCaseSensitive() bool {
	return c.CaseSensitive == nil || *c.CaseSensitive
}

// LogicCondition combines simple field rules.
type LogicCondition struct {
	LogicType  string      `json:"logicType"`
	Conditions []LogicRule `json:"conditions"`
}

// LogicRule compares a variable path against a string literal.
type LogicRule struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// AICondition asks the AI provider to judge the triggering message.
type AICondition struct {
	AIType string `json:"aiType,omitempty"`
	Prompt string `json:"prompt,omitempty"`
}

type conditionConfigAlias ConditionConfig

func (c *ConditionConfig) UnmarshalJSON(data []byte) error {
	var alias conditionConfigAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	*c = ConditionConfig(alias)

	return c.normalize()
}

func (c *ConditionConfig) normalize() error {
	if c.Type == "" {
		switch {
		case c.AI != nil:
			c.Type = ConditionTypeAI
		case c.Compare != nil:
			c.Type = ConditionTypeCompare
		case c.Logic != nil:
			c.Type = ConditionTypeLogic
		}

		return nil
	}

	switch c.Type {
	case ConditionTypeAI:
		if c.AI == nil {
			c.AI = &AICondition{}
		}
	case ConditionTypeCompare:
		if c.Compare == nil {
			return fmt.Errorf("condition type %q requires a compare config", c.Type)
		}
	case ConditionTypeLogic:
		if c.Logic == nil {
			return fmt.Errorf("condition type %q requires a logic config", c.Type)
		}
	default:
		return fmt.Errorf("unknown condition type %q", c.Type)
	}

	return nil
}
