package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errEmptyPayload = errors.New("empty payload")

// ParseError reports where a model reply stopped being valid JSON.
type ParseError struct {
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid JSON at offset %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DecodeObject parses a model reply into a JSON object. Markdown code fences
// around the payload are tolerated, as are payloads that were encoded twice
// (a JSON string holding the object) or carry double-escaped unicode.
func DecodeObject(raw []byte) (map[string]any, error) {
	body := StripFences(raw)
	if len(body) == 0 {
		return nil, &ParseError{Err: errEmptyPayload}
	}
	var out map[string]any
	err := json.Unmarshal(body, &out)
	if err == nil && out != nil {
		return out, nil
	}
	if norm, nerr := NormalizeJSONUnicode(body); nerr == nil {
		var again map[string]any
		if json.Unmarshal(norm, &again) == nil && again != nil {
			return again, nil
		}
	}
	if err == nil {
		return nil, &ParseError{Err: errors.New("payload is not an object")}
	}
	return nil, newParseError(err)
}

func newParseError(err error) *ParseError {
	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		return &ParseError{Offset: syn.Offset, Err: err}
	}
	var typ *json.UnmarshalTypeError
	if errors.As(err, &typ) {
		return &ParseError{Offset: typ.Offset, Err: fmt.Errorf("payload is a JSON %s, not an object", typ.Value)}
	}
	return &ParseError{Err: err}
}

// StripFences trims whitespace and a surrounding ```json ... ``` block.
func StripFences(raw []byte) []byte {
	body := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(body, []byte("```")) {
		return body
	}
	body = body[3:]
	if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
		// drop the info string ("json")
		body = body[nl+1:]
	} else {
		body = bytes.TrimPrefix(body, []byte("json"))
	}
	body = bytes.TrimSpace(body)
	body = bytes.TrimSuffix(body, []byte("```"))
	return bytes.TrimSpace(body)
}

// MarshalNoEscape encodes v into JSON without HTML-escaping <, > and &.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Remove trailing newline from json.Encoder.Encode
	out := bytes.TrimRight(buf.Bytes(), "\n")
	return out, nil
}

// UnescapeUnicodeString converts literal \uXXXX escapes left in a decoded
// string into the characters they name.
func UnescapeUnicodeString(s string) (string, error) {
	if !strings.Contains(s, `\u`) {
		return s, nil
	}
	// Trick: force JSON to treat the string as a quoted JSON string
	esc := strings.ReplaceAll(s, `"`, `\"`)
	var out string
	if err := json.Unmarshal([]byte(`"`+esc+`"`), &out); err != nil {
		return "", err
	}
	return out, nil
}

// NormalizeJSONUnicode parses JSON bytes and recursively unescapes any remaining
// double-escaped unicode sequences (e.g. "\\u003e") inside string values.
// A payload that is itself a quoted JSON document is unwrapped first.
func NormalizeJSONUnicode(raw []byte) ([]byte, error) {
	var anyVal any
	if err := json.Unmarshal(raw, &anyVal); err != nil {
		return nil, err
	}
	if s, ok := anyVal.(string); ok {
		if err := json.Unmarshal([]byte(s), &anyVal); err != nil {
			return nil, errors.New("NormalizeJSONUnicode: cannot parse JSON payload")
		}
	}
	return MarshalNoEscape(deepUnescape(anyVal))
}

// deepUnescape recursively traverses maps and slices,
// unescaping unicode sequences in all string values.
func deepUnescape(v any) any {
	switch x := v.(type) {
	case string:
		if s, err := UnescapeUnicodeString(x); err == nil {
			return s
		}
		return x
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = deepUnescape(x[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = deepUnescape(vv)
		}
		return out
	default:
		return v
	}
}
