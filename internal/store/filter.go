package store

import (
	"reflect"
)

// Matches reports whether rec satisfies filter. Numbers compare by value
// regardless of their Go type; maps and slices compare element by element.
// A nil filter value matches both an explicit null and a missing key, as a
// MongoDB equality filter does.
func Matches(rec Record, filter Filter) bool {
	for k, want := range filter {
		got, ok := rec[k]
		if !ok && want != nil {
			return false
		}
		if !Equal(got, want) {
			return false
		}
	}
	return true
}

// Equal is the value equality used by Matches.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Map:
		if vb.Kind() != reflect.Map || va.Len() != vb.Len() {
			return false
		}
		for _, key := range va.MapKeys() {
			other := vb.MapIndex(key)
			if !other.IsValid() || !Equal(va.MapIndex(key).Interface(), other.Interface()) {
				return false
			}
		}
		return true
	case reflect.Slice, reflect.Array:
		if vb.Kind() != reflect.Slice && vb.Kind() != reflect.Array {
			return false
		}
		if va.Len() != vb.Len() {
			return false
		}
		for i := 0; i < va.Len(); i++ {
			if !Equal(va.Index(i).Interface(), vb.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
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
	}
	return 0, false
}

// Clone returns a deep copy of rec, so callers can't alias stored state.
func Clone(rec Record) Record {
	if rec == nil {
		return nil
	}
	return cloneValue(rec).(Record)
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = cloneValue(val)
		}
		return out
	}
	return v
}
