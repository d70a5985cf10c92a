// Package vals implements the value semantics shared by the compiler's
// constant folding and the runtime: truthiness, text coercion, equality,
// indexing, arithmetic, and the Model record type.
//
// Runtime values are nil, string, int, float64, bool, []any, map[string]any
// and Fielder implementations.
package vals

import (
	"math"
	"strconv"
)

// Truthy reports whether a value counts as true in conditions. Lists are true
// when non-empty, nil is false, and a bool is itself. Every other value,
// including 0 and "", is present and therefore true.
func Truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case []any:
		return len(v) > 0
	default:
		return true
	}
}

// ToText converts a value to the text shown when it is bound into the view.
// Only strings and numbers have a text form; every other value renders as the
// empty string.
func ToText(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return formatFloat(v)
	default:
		return ""
	}
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseNum parses a number literal. It returns nil if s is not a number.
func ParseNum(s string) any {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) {
		return f
	}
	return nil
}

// Returns v as a float64 if it is a number.
func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// Returns v as an int if it is an integral number.
func toInt(v any) (int, bool) {
	switch v := v.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return int(v), true
		}
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i, true
		}
	}
	return 0, false
}
