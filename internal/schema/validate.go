package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// FieldIssue describes one field whose value did not conform.
type FieldIssue struct {
	Field  string
	Reason string
}

// ValidationError reports every way a payload failed to match a schema.
type ValidationError struct {
	Schema     string
	Missing    []string
	Unexpected []string
	Invalid    []FieldIssue
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Unexpected, ", "))
	}
	for _, iss := range e.Invalid {
		parts = append(parts, fmt.Sprintf("%s: %s", iss.Field, iss.Reason))
	}
	return fmt.Sprintf("schema %s: %s", e.Schema, strings.Join(parts, "; "))
}

// Fields lists every offending field name.
func (e *ValidationError) Fields() []string {
	out := append([]string{}, e.Missing...)
	out = append(out, e.Unexpected...)
	for _, iss := range e.Invalid {
		out = append(out, iss.Field)
	}
	return out
}

// Validate checks data against the schema and maps it to a Record. All
// declared fields must be present and conform; undeclared keys are rejected.
func (s *Schema) Validate(data map[string]any) (Record, error) {
	if s == nil {
		return Record{}, fmt.Errorf("schema: nil schema")
	}
	verr := &ValidationError{Schema: s.Name}
	values := make([]any, len(s.Fields))
	for i, f := range s.Fields {
		raw, ok := data[f.Name]
		if !ok || raw == nil {
			verr.Missing = append(verr.Missing, f.Name)
			continue
		}
		v, reason := coerce(f.Type, raw)
		if reason != "" {
			verr.Invalid = append(verr.Invalid, FieldIssue{Field: f.Name, Reason: reason})
			continue
		}
		values[i] = v
	}
	for k := range data {
		if _, ok := s.Field(k); !ok {
			verr.Unexpected = append(verr.Unexpected, k)
		}
	}
	sort.Strings(verr.Unexpected)

	if len(verr.Missing) > 0 || len(verr.Unexpected) > 0 || len(verr.Invalid) > 0 {
		return Record{}, verr
	}
	return Record{schema: s, values: values}, nil
}

func coerce(t Type, raw any) (any, string) {
	switch t {
	case TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Sprintf("want string, got %T", raw)
		}
		if strings.TrimSpace(s) == "" {
			return nil, "empty string"
		}
		return s, ""
	case TypeNumber:
		f, ok := toFloat(raw)
		if !ok {
			return nil, fmt.Sprintf("want number, got %T", raw)
		}
		return f, ""
	case TypeInteger:
		f, ok := toFloat(raw)
		if !ok || f != math.Trunc(f) {
			return nil, fmt.Sprintf("want integer, got %v", raw)
		}
		return int64(f), ""
	case TypeBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Sprintf("want boolean, got %T", raw)
		}
		return b, ""
	default:
		return nil, fmt.Sprintf("unsupported type %q", t)
	}
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
