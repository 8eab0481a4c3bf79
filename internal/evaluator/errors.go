package evaluator

import "fmt"

// Kind classifies why an evaluation failed.
type Kind int

const (
	// KindMalformedOutput means the reply could not be parsed as a JSON object.
	KindMalformedOutput Kind = iota + 1
	// KindSchemaViolation means the reply parsed but did not match the schema.
	KindSchemaViolation
	// KindBackendFailure covers transport, API and cancellation errors.
	KindBackendFailure
)

func (k Kind) String() string {
	switch k {
	case KindMalformedOutput:
		return "malformed output"
	case KindSchemaViolation:
		return "schema violation"
	case KindBackendFailure:
		return "backend failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// RequestError is the single terminal error of Evaluate once attempts are
// exhausted.
type RequestError struct {
	Kind     Kind
	Attempts int
	Cause    error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("evaluate: %s after %d attempt(s): %v", e.Kind, e.Attempts, e.Cause)
}

func (e *RequestError) Unwrap() error { return e.Cause }

// attemptError tags the failure of one attempt with its kind.
type attemptError struct {
	kind Kind
	err  error
}

func (e *attemptError) Error() string { return e.err.Error() }
func (e *attemptError) Unwrap() error { return e.err }
