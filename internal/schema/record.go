package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FieldValue pairs a declared field with its validated value.
type FieldValue struct {
	Field Field
	Value any
}

// Text renders the value for display.
func (fv FieldValue) Text() string {
	switch v := fv.Value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Record is a validated evaluation. Values are kept in schema order.
type Record struct {
	schema *Schema
	values []any
}

func (r Record) Schema() *Schema { return r.schema }

// IsZero reports whether the record was never validated.
func (r Record) IsZero() bool { return r.schema == nil }

// Fields returns every field with its value in schema-declared order.
func (r Record) Fields() []FieldValue {
	if r.schema == nil {
		return nil
	}
	out := make([]FieldValue, 0, len(r.values))
	for i, f := range r.schema.Fields {
		out = append(out, FieldValue{Field: f, Value: r.values[i]})
	}
	return out
}

// Get returns the display text of a field, or "" when it is not declared.
func (r Record) Get(name string) string {
	if r.schema == nil {
		return ""
	}
	for i, f := range r.schema.Fields {
		if f.Name == name {
			return FieldValue{Field: f, Value: r.values[i]}.Text()
		}
	}
	return ""
}

// Value returns the typed value of a field.
func (r Record) Value(name string) (any, bool) {
	if r.schema == nil {
		return nil, false
	}
	for i, f := range r.schema.Fields {
		if f.Name == name {
			return r.values[i], true
		}
	}
	return nil, false
}

// MarshalJSON encodes the record as an object whose keys follow schema order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fv := range r.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(fv.Field.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(fv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
