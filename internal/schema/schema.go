package schema

import (
	"strings"
)

// Type is the primitive type a field value must conform to.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
)

// Field declares one named member of an evaluation.
type Field struct {
	Name        string
	Title       string
	Type        Type
	Description string
}

// Schema is a closed, ordered set of fields. Every field is required.
type Schema struct {
	Name   string
	Fields []Field
	// Summary names the field surfaced alone when only a verdict is wanted.
	Summary string
}

// FieldNames returns the declared field names in order.
func (s *Schema) FieldNames() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		out = append(out, f.Name)
	}
	return out
}

// Field looks up a declared field by name.
func (s *Schema) Field(name string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// SummaryField returns the field used for verdict-only output, falling back
// to the last declared field.
func (s *Schema) SummaryField() Field {
	if f, ok := s.Field(s.Summary); ok {
		return f
	}
	if s == nil || len(s.Fields) == 0 {
		return Field{}
	}
	return s.Fields[len(s.Fields)-1]
}

// TitleOf returns a human label for a field, deriving one from the snake_case
// name when no title is declared.
func (f Field) TitleOf() string {
	if strings.TrimSpace(f.Title) != "" {
		return f.Title
	}
	parts := strings.Split(f.Name, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
