// Package conditions evaluates rule conditions against arbitrary event data.
package conditions

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/dukex/caseflow/pkg/models"
)

// Evaluate folds the conditions left to right into a single boolean.
//
// The accumulator starts as true and the first condition is folded with AND.
// Each condition's Logical field selects how the *following* condition is
// folded; it has no effect on the condition that carries it. So
// [{x == 1, OR}, {y == 2}] is evaluated as (true AND x == 1) OR y == 2.
// An empty list is true.
func Evaluate(conditions []models.WorkflowCondition, data any) bool {
	result := true
	combinator := models.LogicalAnd

	for _, condition := range conditions {
		conditionResult := EvaluateOne(condition, data)

		if combinator == models.LogicalOr {
			result = result || conditionResult
		} else {
			result = result && conditionResult
		}

		combinator = condition.Logical
		if combinator == "" {
			combinator = models.LogicalAnd
		}
	}

	return result
}

// EvaluateOne applies a single condition's operator to the value found at its field.
// Unknown operators evaluate to false.
func EvaluateOne(condition models.WorkflowCondition, data any) bool {
	value, found := Lookup(data, condition.Field)
	if !found {
		value = nil
	}

	switch condition.Operator {
	case models.OperatorEquals:
		return strictEqual(value, condition.Value)
	case models.OperatorNotEquals:
		return !strictEqual(value, condition.Value)
	case models.OperatorContains:
		return strings.Contains(FormatValue(value), FormatValue(condition.Value))
	case models.OperatorGreaterThan:
		return toNumber(value) > toNumber(condition.Value)
	case models.OperatorLessThan:
		return toNumber(value) < toNumber(condition.Value)
	case models.OperatorIn:
		items, ok := toSlice(condition.Value)

		return ok && includes(items, value)
	case models.OperatorNotIn:
		items, ok := toSlice(condition.Value)

		return ok && !includes(items, value)
	case models.OperatorExists:
		return value != nil
	case models.OperatorNotExists:
		return value == nil
	default:
		return false
	}
}

// strictEqual compares raw values without type coercion. Numbers compare by
// value across Go numeric types; maps and slices are never equal.
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	af, aNum := numeric(a)
	bf, bNum := numeric(b)

	if aNum || bNum {
		return aNum && bNum && af == bf
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)

		return ok && av == bv
	case bool:
		bv, ok := b.(bool)

		return ok && av == bv
	default:
		return false
	}
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// toNumber coerces like a loose numeric conversion: missing values are NaN,
// booleans are 0/1, blank strings are 0 and unparsable strings are NaN.
func toNumber(v any) float64 {
	if n, ok := numeric(v); ok {
		return n
	}

	switch val := v.(type) {
	case bool:
		if val {
			return 1
		}

		return 0
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0
		}

		n, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}

		return n
	default:
		return math.NaN()
	}
}

// FormatValue renders a JSON-like value as text. Numbers never use exponent
// notation, slices are comma joined and nil is "".
func FormatValue(v any) string {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	}

	if items, ok := toSlice(v); ok {
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = FormatValue(item)
		}

		return strings.Join(parts, ",")
	}

	return fmt.Sprint(v)
}

func toSlice(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}

	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}

	return items, true
}

func includes(items []any, value any) bool {
	for _, item := range items {
		if strictEqual(item, value) {
			return true
		}
	}

	return false
}
