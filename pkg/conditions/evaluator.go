// Package conditions evaluates field/operator/value predicates against contact and event records.
package conditions

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/campaignhq/automation/pkg/models"
	"github.com/spf13/cast"
)

// EvaluateAll reports whether every condition holds for record. An empty list holds.
func EvaluateAll(conditions []models.Condition, record map[string]any) bool {
	for _, condition := range conditions {
		if !Evaluate(condition, record) {
			return false
		}
	}

	return true
}

// Evaluate reports whether a single condition holds for record.
// It never panics: unknown operators and incomparable operands evaluate to false.
func Evaluate(condition models.Condition, record map[string]any) bool {
	actual := Resolve(record, condition.Field)

	switch condition.Operator {
	case models.OperatorEquals:
		return equal(actual, condition.Value)
	case models.OperatorNotEquals:
		return !equal(actual, condition.Value)
	case models.OperatorGreaterThan:
		return compare(actual, condition.Value, func(a, b float64) bool { return a > b })
	case models.OperatorLessThan:
		return compare(actual, condition.Value, func(a, b float64) bool { return a < b })
	case models.OperatorContains:
		return actual != nil && strings.Contains(stringify(actual), stringify(condition.Value))
	case models.OperatorNotContains:
		// A missing field contains nothing, but like the ordering operators it fails closed.
		return actual != nil && !strings.Contains(stringify(actual), stringify(condition.Value))
	case models.OperatorIn:
		list, ok := asList(condition.Value)

		return ok && member(actual, list)
	case models.OperatorNotIn:
		list, ok := asList(condition.Value)

		return ok && !member(actual, list)
	default:
		return false
	}
}

// Resolve follows a dot-separated path through nested maps. Missing keys resolve to nil.
func Resolve(record map[string]any, path string) any {
	if record == nil || path == "" {
		return nil
	}

	var current any = record

	for _, key := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			current = node[key]
		case map[string]string:
			value, ok := node[key]
			if !ok {
				return nil
			}

			current = value
		default:
			return nil
		}
	}

	return current
}

func equal(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}

	if a, ok := number(actual); ok {
		if b, ok := number(expected); ok {
			return a == b
		}

		return false
	}

	return reflect.DeepEqual(actual, expected)
}

func compare(actual, expected any, cmp func(a, b float64) bool) bool {
	a, ok := numeric(actual)
	if !ok {
		return false
	}

	b, ok := numeric(expected)
	if !ok {
		return false
	}

	return cmp(a, b)
}

// number accepts values that are numbers by type, so equality never crosses from string to number.
func number(value any) (float64, bool) {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		f, err := cast.ToFloat64E(v)

		return f, err == nil
	default:
		return 0, false
	}
}

// numeric additionally accepts numeric strings for ordering comparisons.
func numeric(value any) (float64, bool) {
	if f, ok := number(value); ok {
		return f, true
	}

	s, ok := value.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return 0, false
	}

	f, err := cast.ToFloat64E(strings.TrimSpace(s))

	return f, err == nil
}

func stringify(value any) string {
	if value == nil {
		return ""
	}

	if list, ok := asList(value); ok {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, stringify(item))
		}

		return strings.Join(parts, ",")
	}

	s, err := cast.ToStringE(value)
	if err != nil {
		encoded, jsonErr := json.Marshal(value)
		if jsonErr != nil {
			return ""
		}

		return string(encoded)
	}

	return s
}

func asList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		list := make([]any, len(v))
		for i, s := range v {
			list[i] = s
		}

		return list, true
	case nil, []byte:
		return nil, false
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	list := make([]any, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}

	return list, true
}

func member(actual any, list []any) bool {
	for _, item := range list {
		if equal(actual, item) {
			return true
		}
	}

	return false
}
