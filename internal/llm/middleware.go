package llm

import (
	"context"
	"encoding/json"
	"log"

	llmclient "ideabot/internal/llm/client"
)

// Middleware decorates an LLMClient to inject cross-cutting concerns.
type Middleware func(llmclient.LLMClient) llmclient.LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.LLMClient, mws ...Middleware) llmclient.LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// WithLogging logs request size and errors. Provide a custom logger or nil
// to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next llmclient.LLMClient
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) GenerateJSON(ctx context.Context, req llmclient.Request) (json.RawMessage, error) {
	tag := RequestIDFrom(ctx)
	l.log.Printf("LLM request (%s attempt %d, %s): %d bytes", tag, AttemptFrom(ctx)+1, l.next.Name(), len(req.Prompt))
	raw, err := l.next.GenerateJSON(ctx, req)
	if err != nil {
		l.log.Printf("LLM error (%s attempt %d): %v", tag, AttemptFrom(ctx)+1, err)
	}
	return raw, err
}
