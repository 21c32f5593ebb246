package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"tap-timebutler/internal/models"
)

// DateTimeOutputLayout is how coerced date-time values are rendered.
const DateTimeOutputLayout = "2006-01-02T15:04:05.000000Z07:00"

// Layouts the Timebutler exports use for dates and timestamps.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"2.1.2006 15:04",
	"2.1.2006",
}

// CoercionError reports a value that does not fit its declared type.
type CoercionError struct {
	Stream   string
	Property string
	Type     string
	Value    any
	Err      error
}

func (e *CoercionError) Error() string {
	msg := fmt.Sprintf("stream %s: cannot coerce %s=%v to %s", e.Stream, e.Property, e.Value, e.Type)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CoercionError) Unwrap() error {
	return e.Err
}

// Transform converts a sanitized record into the types the descriptor declares.
// Properties the schema does not know are dropped; properties absent from the
// record stay absent.
func Transform(d *Descriptor, rec models.Record) (models.Record, error) {
	out := make(models.Record, len(rec))
	for _, p := range d.Properties {
		v, ok := rec[p.Name]
		if !ok {
			continue
		}
		cv, err := coerce(p, v)
		if err != nil {
			return nil, &CoercionError{
				Stream:   d.Stream,
				Property: p.Name,
				Type:     p.PrimaryType(),
				Value:    v,
				Err:      err,
			}
		}
		out[p.Name] = cv
	}
	return out, nil
}

func coerce(p Property, v any) (any, error) {
	if v == nil {
		if p.Nullable() {
			return nil, nil
		}
		return nil, fmt.Errorf("null is not allowed")
	}

	switch p.PrimaryType() {
	case "integer":
		return toInteger(v)
	case "number":
		return toNumber(v)
	case "boolean":
		return toBoolean(v)
	case "string":
		if p.IsDateTime() {
			return toDateTime(v)
		}
		return fmt.Sprint(v), nil
	default:
		return v, nil
	}
}

func toInteger(v any) (any, error) {
	switch tv := v.(type) {
	case int:
		return int64(tv), nil
	case int64:
		return tv, nil
	case float64:
		if tv != math.Trunc(tv) {
			return nil, fmt.Errorf("not a whole number")
		}
		return int64(tv), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(tv), 10, 64)
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

func toNumber(v any) (any, error) {
	switch tv := v.(type) {
	case int:
		return float64(tv), nil
	case int64:
		return float64(tv), nil
	case float64:
		return tv, nil
	case string:
		s := strings.TrimSpace(tv)
		// German exports use a decimal comma.
		if strings.Contains(s, ",") && !strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ",", ".")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

func toBoolean(v any) (any, error) {
	switch tv := v.(type) {
	case bool:
		return tv, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(tv)) {
		case "true", "1", "yes", "ja", "y", "j":
			return true, nil
		case "false", "0", "no", "nein", "n":
			return false, nil
		}
		return nil, fmt.Errorf("not a boolean")
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

func toDateTime(v any) (any, error) {
	switch tv := v.(type) {
	case time.Time:
		return tv.UTC().Format(DateTimeOutputLayout), nil
	case string:
		t, err := ParseDateTime(tv)
		if err != nil {
			return nil, err
		}
		return t.UTC().Format(DateTimeOutputLayout), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

// ParseDateTime parses s with the first matching Timebutler layout. Values without
// a zone are taken as UTC.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date-time %q", s)
}
