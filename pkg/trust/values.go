package trust

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

// Dynamic-payload accessors. Events and receipts carry tri-state booleans
// (absent, explicitly false, truthy), so most checks distinguish "is false"
// from "is not truthy"; both predicates live here so the evaluators read
// like the rules they implement.

// truthy reports whether v is truthy: nil, false, empty strings, zero
// numbers, and empty collections are falsy; everything else is truthy.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case []map[string]any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// isFalse reports whether v is the boolean false exactly.
func isFalse(v any) bool {
	b, ok := v.(bool)
	return ok && !b
}

// isTrue reports whether v is the boolean true exactly.
func isTrue(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

// asInt converts a numeric value to int.
func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), true
		}
		if f, err := t.Float64(); err == nil {
			return int(f), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// asFloat converts a numeric value to float64.
func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// strField returns m[key] as a string, or "" when absent or non-string.
func strField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// mapField returns m[key] as a map, or nil when absent or non-map.
func mapField(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

// anyList converts list-shaped values into []any. Returns nil, false for
// non-list values.
func anyList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out, true
	default:
		return nil, false
	}
}

// listField returns m[key] as a list, tolerating absence and junk (lenient).
func listField(m map[string]any, key string) []any {
	l, _ := anyList(m[key])
	return l
}

// stringsIn returns the string members of a list value.
func stringsIn(v any) []string {
	l, ok := anyList(v)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(l))
	for _, e := range l {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// containsString reports whether a list value contains s.
func containsString(v any, s string) bool {
	l, _ := anyList(v)
	for _, e := range l {
		if es, ok := e.(string); ok && es == s {
			return true
		}
	}
	return false
}

// evalFault is the single intentional panic payload inside the evaluators.
// It is recovered at the evaluator boundary and mapped to the guaranteed
// INVALID_STATE + ACCOUNTABILITY_BREAK pair; no other code path panics for
// control flow.
type evalFault struct {
	Kind    string
	Message string
}

func (f evalFault) Error() string { return f.Kind + ": " + f.Message }

func fault(kind, format string, args ...any) {
	panic(evalFault{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// mustList returns m[key] as a list. Absent keys yield an empty list; a
// present non-list value is a structural fault.
func mustList(m map[string]any, key string) []any {
	v, ok := m[key]
	if !ok {
		return nil
	}
	if v == nil {
		fault("TypeError", "field %q is null, expected list", key)
	}
	l, ok := anyList(v)
	if !ok {
		fault("TypeError", "field %q has type %T, expected list", key, v)
	}
	return l
}

// valuesEqual compares two dynamic payload values, treating numeric values
// of different widths as equal when they represent the same number. Safe on
// uncomparable values (maps, slices).
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	return reflect.DeepEqual(a, b)
}

// coerceInt converts a value to int, faulting on values that cannot carry an
// integer (structural fault, mapped at the evaluator boundary). Numeric
// strings convert.
func coerceInt(v any) int {
	if i, ok := asInt(v); ok {
		return i
	}
	if s, ok := v.(string); ok {
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
	}
	fault("ValueError", "cannot coerce %T to int", v)
	return 0
}

// mustIntOr0 applies int(value or 0) semantics: falsy values become zero,
// numeric values convert, and non-numeric truthy values are a structural
// fault.
func mustIntOr0(v any) int {
	if !truthy(v) {
		return 0
	}
	i, ok := asInt(v)
	if !ok {
		fault("ValueError", "cannot coerce %T to int", v)
	}
	return i
}
