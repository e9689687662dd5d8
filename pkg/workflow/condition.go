package workflow

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
)

// ConditionEvaluationError describes why a deterministic condition could not be evaluated.
// The evaluator fails closed: callers treat it as a false outcome.
type ConditionEvaluationError struct {
	Operator models.Operator
	Err      error
}

func (e *ConditionEvaluationError) Error() string {
	if e.Operator == "" {
		return fmt.Sprintf("condition evaluation failed: %v", e.Err)
	}

	return fmt.Sprintf("condition evaluation failed for operator %q: %v", e.Operator, e.Err)
}

func (e *ConditionEvaluationError) Unwrap() error {
	return e.Err
}

// Evaluate evaluates a compare or logic condition. A config with neither passes.
// Any error comes with a false outcome.
func Evaluate(cfg *models.ConditionConfig, results *models.Results) (bool, error) {
	switch {
	case cfg == nil:
		return true, nil
	case cfg.Compare != nil:
		return evaluateCompare(cfg.Compare, results)
	case cfg.Logic != nil:
		return evaluateLogic(cfg.Logic, results)
	default:
		return true, nil
	}
}

// EvaluateCondition collapses Evaluate's error into a false outcome.
func EvaluateCondition(cfg *models.ConditionConfig, results *models.Results) bool {
	ok, err := Evaluate(cfg, results)

	return ok && err == nil
}

func evaluateCompare(compare *models.CompareCondition, results *models.Results) (bool, error) {
	left, err := ResolveValue(compare.Left(), results)
	if err != nil {
		return false, &ConditionEvaluationError{Operator: compare.Operator, Err: err}
	}

	if compare.Operator.IsUnary() {
		return applyUnary(compare.Operator, left), nil
	}

	right, err := ResolveValue(compare.Right(), results)
	if err != nil {
		return false, &ConditionEvaluationError{Operator: compare.Operator, Err: err}
	}

	return applyBinary(compare.Operator, left, right, compare.IsCaseSensitive())
}

func evaluateLogic(logic *models.LogicCondition, results *models.Results) (bool, error) {
	outcomes := make([]bool, 0, len(logic.Conditions))

	for _, rule := range logic.Conditions {
		left := ResolveVariable(rule.Field, results)

		var (
			ok  bool
			err error
		)

		if rule.Operator.IsUnary() {
			ok = applyUnary(rule.Operator, left)
		} else {
			ok, err = applyBinary(rule.Operator, left, toString(rule.Value), true)
			if err != nil {
				return false, err
			}
		}

		outcomes = append(outcomes, ok)
	}

	switch strings.ToUpper(logic.LogicType) {
	case models.LogicAnd, "":
		return all(outcomes), nil
	case models.LogicOr:
		for _, ok := range outcomes {
			if ok {
				return true, nil
			}
		}

		return false, nil
	case models.LogicNot:
		return !all(outcomes), nil
	default:
		return false, &ConditionEvaluationError{Err: fmt.Errorf("unknown logic type %q", logic.LogicType)}
	}
}

func all(outcomes []bool) bool {
	for _, ok := range outcomes {
		if !ok {
			return false
		}
	}

	return true
}

func applyUnary(operator models.Operator, value any) bool {
	empty := isEmpty(value)
	if operator == models.OperatorIsEmpty {
		return empty
	}

	return !empty
}

func isEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return typed == ""
	case []any:
		return len(typed) == 0
	default:
		rv := reflect.ValueOf(value)

		return rv.Kind() == reflect.Slice && rv.Len() == 0
	}
}

func applyBinary(operator models.Operator, left, right any, caseSensitive bool) (bool, error) {
	switch operator {
	case models.OperatorEqual:
		return equals(left, right, caseSensitive), nil
	case models.OperatorNotEqual:
		return !equals(left, right, caseSensitive), nil
	case models.OperatorGreater:
		return ordinal(left) > ordinal(right), nil
	case models.OperatorGreaterOrEqual:
		return ordinal(left) >= ordinal(right), nil
	case models.OperatorLess:
		return ordinal(left) < ordinal(right), nil
	case models.OperatorLessOrEqual:
		return ordinal(left) <= ordinal(right), nil
	case models.OperatorContains:
		l, r := foldCase(left, right, caseSensitive)

		return strings.Contains(l, r), nil
	case models.OperatorStartsWith:
		l, r := foldCase(left, right, caseSensitive)

		return strings.HasPrefix(l, r), nil
	case models.OperatorEndsWith:
		l, r := foldCase(left, right, caseSensitive)

		return strings.HasSuffix(l, r), nil
	case models.OperatorMatches:
		pattern := toString(right)
		if !caseSensitive {
			pattern = "(?i)" + pattern
		}

		re, err := regexp.Compile(pattern)
		if err != nil {
			// An invalid pattern never matches.
			return false, nil
		}

		return re.MatchString(toString(left)), nil
	default:
		return false, &ConditionEvaluationError{Operator: operator, Err: fmt.Errorf("unsupported operator")}
	}
}

func foldCase(left, right any, caseSensitive bool) (string, string) {
	l, r := toString(left), toString(right)
	if caseSensitive {
		return l, r
	}

	return strings.ToLower(l), strings.ToLower(r)
}

// equals is loose equality: strings compared to numbers or booleans are compared numerically.
// With caseSensitive false both sides are compared as lower-cased strings.
func equals(left, right any, caseSensitive bool) bool {
	if !caseSensitive {
		l, r := foldCase(left, right, false)

		return l == r
	}

	if left == nil || right == nil {
		return left == nil && right == nil
	}

	ls, leftIsString := left.(string)
	rs, rightIsString := right.(string)

	if leftIsString && rightIsString {
		return ls == rs
	}

	if isScalar(left) && isScalar(right) {
		l, r := toNumber(left), toNumber(right)

		return !math.IsNaN(l) && l == r
	}

	return reflect.DeepEqual(left, right)
}

// ordinal is the number a relational operator compares. A missing value is NaN, so every
// ordering against it is false.
func ordinal(value any) float64 {
	if value == nil {
		return math.NaN()
	}

	return toNumber(value)
}

func isScalar(value any) bool {
	switch value.(type) {
	case string, bool, float64, float32, int, int32, int64:
		return true
	default:
		return false
	}
}
