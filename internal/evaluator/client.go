package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"ideabot/internal/llm"
	llmclient "ideabot/internal/llm/client"
	"ideabot/internal/retry"
	"ideabot/internal/schema"
	"ideabot/internal/util/jsonutil"
)

const (
	// DefaultTimeout is the pause taken before every backend call.
	DefaultTimeout = 10 * time.Second
	// MaxAttempts bounds the request-parse-validate cycle.
	MaxAttempts = 3
	// DefaultCallTimeout is the per-attempt share of the overall deadline.
	DefaultCallTimeout = 60 * time.Second
)

// Request is one evaluation.
type Request struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Schema       *schema.Schema
	// Timeout is the throttle pause; zero means DefaultTimeout.
	Timeout time.Duration
}

// Client issues structured requests and enforces the schema on the reply.
type Client struct {
	llm         llmclient.LLMClient
	policy      retry.Policy
	callTimeout time.Duration
	log         *log.Logger
	newID       func() string
}

type Option func(*Client)

// WithPolicy replaces the retry policy. Its Delay is overridden per request.
func WithPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithCallTimeout sets the per-attempt budget used for the overall deadline.
// Zero disables the deadline.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) { c.callTimeout = d }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func New(cli llmclient.LLMClient, opts ...Option) *Client {
	c := &Client{
		llm:         cli,
		policy:      retry.Policy{MaxAttempts: MaxAttempts, Delay: DefaultTimeout},
		callTimeout: DefaultCallTimeout,
		log:         log.Default(),
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ComposePrompt joins the system and user segments with a blank line.
func ComposePrompt(system, user string) string {
	return system + "\n\n" + user
}

// Evaluate sends the composed prompt, parses the reply and validates it
// against req.Schema. Every attempt is preceded by the throttle pause; any
// failure is retried the same way until the attempts run out, at which point
// a *RequestError carrying the last failure is returned.
func (c *Client) Evaluate(ctx context.Context, req Request) (schema.Record, error) {
	if req.Schema == nil {
		return schema.Record{}, errors.New("evaluate: schema is required")
	}
	delay := req.Timeout
	if delay <= 0 {
		delay = DefaultTimeout
	}
	id := c.newID()
	policy := c.policy.WithDelay(delay)
	max := policy.MaxAttempts
	if max < 1 {
		max = 1
	}
	policy.OnRetry = func(attempt int, err error) {
		c.log.Printf("evaluation %s: attempt %d/%d failed (%s): %v; retrying in %s",
			id, attempt+1, max, kindOf(err), err, delay)
	}

	ctx = llm.WithRequestID(ctx, id)
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, policy.Budget(c.callTimeout))
		defer cancel()
	}

	prompt := ComposePrompt(req.SystemPrompt, req.UserPrompt)
	var (
		rec      schema.Record
		attempts int
	)
	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		attempts = attempt + 1
		r, err := c.attempt(llm.WithAttempt(ctx, attempt), req, prompt)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil {
		rerr := toRequestError(err, attempts)
		c.log.Printf("evaluation %s: giving up: %v", id, rerr)
		return schema.Record{}, rerr
	}
	c.log.Printf("evaluation %s: validated %s after %d attempt(s)", id, req.Schema.Name, attempts)
	return rec, nil
}

func (c *Client) attempt(ctx context.Context, req Request, prompt string) (schema.Record, error) {
	raw, err := c.llm.GenerateJSON(ctx, llmclient.Request{
		Model:  req.Model,
		Prompt: prompt,
		Schema: req.Schema,
	})
	if err != nil {
		if errors.Is(err, llmclient.ErrInvalidJSON) {
			return schema.Record{}, &attemptError{kind: KindMalformedOutput, err: err}
		}
		return schema.Record{}, &attemptError{kind: KindBackendFailure, err: err}
	}
	obj, err := jsonutil.DecodeObject(raw)
	if err != nil {
		return schema.Record{}, &attemptError{kind: KindMalformedOutput, err: fmt.Errorf("parse reply: %w", err)}
	}
	rec, err := req.Schema.Validate(obj)
	if err != nil {
		return schema.Record{}, &attemptError{kind: KindSchemaViolation, err: err}
	}
	return rec, nil
}

func kindOf(err error) Kind {
	var ae *attemptError
	if errors.As(err, &ae) {
		return ae.kind
	}
	return KindBackendFailure
}

func toRequestError(err error, attempts int) *RequestError {
	var ae *attemptError
	if errors.As(err, &ae) && err == error(ae) {
		return &RequestError{Kind: ae.kind, Attempts: attempts, Cause: ae.err}
	}
	// Interrupted pause, possibly joined with the previous attempt's failure.
	return &RequestError{Kind: KindBackendFailure, Attempts: attempts, Cause: err}
}
