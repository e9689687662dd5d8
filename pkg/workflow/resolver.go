// Package workflow executes workflow graphs: it resolves operands, evaluates conditions, dispatches
// node side effects and records what every node did.
package workflow

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
)

// ResolutionError is returned when an operand references execution state that does not exist.
type ResolutionError struct {
	Type      models.ValueType
	TriggerID string
	Reason    string
}

func (e *ResolutionError) Error() string {
	if e.TriggerID != "" {
		return fmt.Sprintf("resolve %s operand from %s: %s", e.Type, e.TriggerID, e.Reason)
	}

	return fmt.Sprintf("resolve %s operand: %s", e.Type, e.Reason)
}

// ResolveValue turns an operand into a concrete value using the results recorded so far.
// Missing path segments resolve to nil; only missing trigger results are errors.
func ResolveValue(operand models.Operand, results *models.Results) (any, error) {
	switch operand.Type {
	case models.ValueTypeString:
		return toString(operand.Value), nil
	case models.ValueTypeNumber:
		return toNumber(operand.Value), nil
	case models.ValueTypeBoolean:
		return operand.Value == true || operand.Value == "true", nil
	case models.ValueTypeTrigger:
		return resolveTriggerField(operand.TriggerID, operand.TriggerField, results)
	case models.ValueTypeVariable:
		path, _ := operand.Value.(string)

		return ResolveVariable(path, results), nil
	default:
		return operand.Value, nil
	}
}

func resolveTriggerField(triggerID, field string, results *models.Results) (any, error) {
	if triggerID == "" || field == "" {
		return nil, &ResolutionError{
			Type:   models.ValueTypeTrigger,
			Reason: "trigger id and field are required",
		}
	}

	result, ok := results.Get(triggerID)
	if !ok || result == nil {
		return nil, &ResolutionError{
			Type:      models.ValueTypeTrigger,
			TriggerID: triggerID,
			Reason:    "trigger not found in execution results",
		}
	}

	data, _ := result.Data.(map[string]any)

	triggerData, ok := data["triggerData"].(map[string]any)
	if !ok || triggerData == nil {
		return nil, &ResolutionError{
			Type:      models.ValueTypeTrigger,
			TriggerID: triggerID,
			Reason:    "no trigger data recorded",
		}
	}

	return lookupPath(triggerData, strings.Split(field, ".")), nil
}

// ResolveVariable reads "<key>.<path>" where key names a results entry and path indexes its data.
func ResolveVariable(path string, results *models.Results) any {
	if path == "" {
		return nil
	}

	key, rest, _ := strings.Cut(path, ".")

	result, ok := results.Get(key)
	if !ok || result == nil {
		return nil
	}

	if rest == "" {
		return result.Data
	}

	return lookupPath(result.Data, strings.Split(rest, "."))
}

func lookupPath(value any, segments []string) any {
	current := value

	for _, segment := range segments {
		switch typed := current.(type) {
		case nil:
			return nil
		case map[string]any:
			current = typed[segment]
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(typed) {
				return nil
			}

			current = typed[index]
		case map[string]string:
			item, ok := typed[segment]
			if !ok {
				return nil
			}

			current = item
		default:
			return nil
		}
	}

	return current
}

// toString renders a value the way a message template would show it.
func toString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

// toNumber coerces a value to float64. Values that are not numeric become NaN.
func toNumber(value any) float64 {
	switch typed := value.(type) {
	case nil:
		return 0
	case float64:
		return typed
	case float32:
		return float64(typed)
	case int:
		return float64(typed)
	case int64:
		return float64(typed)
	case int32:
		return float64(typed)
	case bool:
		if typed {
			return 1
		}

		return 0
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return 0
		}

		number, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}

		return number
	default:
		rv := reflect.ValueOf(value)
		if rv.CanInt() {
			return float64(rv.Int())
		}

		if rv.CanFloat() {
			return rv.Float()
		}

		return math.NaN()
	}
}
