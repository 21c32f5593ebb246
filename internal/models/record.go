package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is one row flowing through the pipeline. A nil value means null.
type Record map[string]any

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		switch tv := v.(type) {
		case []any:
			cp := make([]any, len(tv))
			copy(cp, tv)
			out[k] = cp
		case map[string]any:
			out[k] = map[string]any(Record(tv).Clone())
		default:
			out[k] = v
		}
	}
	return out
}

// String returns the value under key as a string when it is set.
func (r Record) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	switch tv := v.(type) {
	case string:
		return tv, true
	default:
		return fmt.Sprint(tv), true
	}
}

// Int returns the value under key as an integer.
func (r Record) Int(key string) (int64, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%s is not set", key)
	}
	switch tv := v.(type) {
	case int:
		return int64(tv), nil
	case int64:
		return tv, nil
	case float64:
		return int64(tv), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(tv), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s=%q is not an integer", key, tv)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s has unsupported type %T", key, v)
	}
}
