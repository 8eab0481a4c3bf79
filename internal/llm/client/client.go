package llmclient

import (
	"context"
	"encoding/json"
	"errors"

	"ideabot/internal/schema"
)

// ErrInvalidJSON is returned when the backend produced no usable text.
var ErrInvalidJSON = errors.New("llm: invalid JSON from model")

// Request is one structured generation call.
type Request struct {
	Model  string
	Prompt string
	// Schema shapes the reply; nil asks for free-form JSON.
	Schema *schema.Schema
}

// LLMClient defines the interface for LLM providers.
type LLMClient interface {
	Name() string
	Close() error
	// GenerateJSON returns the model's raw reply. Parsing and validation are
	// left to the caller.
	GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error)
}
