package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmclient "ideabot/internal/llm/client"
	"ideabot/internal/retry"
	"ideabot/internal/schema"
)

type reply struct {
	raw string
	err error
}

// scriptedClient plays back one reply per call and records the timeline
type scriptedClient struct {
	replies  []reply
	requests []llmclient.Request
	events   *[]string
	onCall   func()
}

func (s *scriptedClient) Name() string { return "scripted" }
func (s *scriptedClient) Close() error { return nil }
func (s *scriptedClient) GenerateJSON(ctx context.Context, req llmclient.Request) (json.RawMessage, error) {
	s.requests = append(s.requests, req)
	*s.events = append(*s.events, "call")
	if s.onCall != nil {
		s.onCall()
	}
	if len(s.replies) == 0 {
		return nil, errors.New("script exhausted")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	if r.err != nil {
		return nil, r.err
	}
	return json.RawMessage(r.raw), nil
}

type harness struct {
	client *Client
	llm    *scriptedClient
	events []string
	sleeps []time.Duration
	logs   bytes.Buffer
}

func newHarness(replies ...reply) *harness {
	h := &harness{}
	h.llm = &scriptedClient{replies: replies, events: &h.events}
	sleep := func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		h.sleeps = append(h.sleeps, d)
		h.events = append(h.events, "sleep")
		return nil
	}
	h.client = New(h.llm,
		WithPolicy(retry.Policy{MaxAttempts: MaxAttempts, Sleep: sleep}),
		WithLogger(log.New(&h.logs, "", 0)),
	)
	h.client.newID = func() string { return "eval-1" }
	return h
}

func validReply(conclusion string) reply {
	return reply{raw: fmt.Sprintf(`{
		"dream_outcome": "hours saved",
		"likelihood_of_achievement": "likely",
		"time_delay": "a week",
		"effort_and_sacrifice": "small",
		"conclusion": %q
	}`, conclusion)}
}

func request() Request {
	return Request{
		Model:        "gemini-test",
		SystemPrompt: "you are a business idea validator",
		UserPrompt:   "evaluate: cats",
		Schema:       schema.ValueFormula,
		Timeout:      2 * time.Second,
	}
}

func TestEvaluateReturnsValidatedRecord(t *testing.T) {
	h := newHarness(validReply("go for it"))

	rec, err := h.client.Evaluate(context.Background(), request())
	require.NoError(t, err)

	assert.Equal(t, "hours saved", rec.Get("dream_outcome"))
	assert.Equal(t, "likely", rec.Get("likelihood_of_achievement"))
	assert.Equal(t, "a week", rec.Get("time_delay"))
	assert.Equal(t, "small", rec.Get("effort_and_sacrifice"))
	assert.Equal(t, "go for it", rec.Get("conclusion"))
	assert.Equal(t, []string{"sleep", "call"}, h.events)

	require.Len(t, h.llm.requests, 1)
	got := h.llm.requests[0]
	assert.Equal(t, "you are a business idea validator\n\nevaluate: cats", got.Prompt)
	assert.Equal(t, "gemini-test", got.Model)
	assert.Same(t, schema.ValueFormula, got.Schema)
}

func TestEvaluateExhaustsAttempts(t *testing.T) {
	cases := []struct {
		name  string
		reply reply
		kind  Kind
	}{
		{"malformed", reply{raw: `{"dream_outcome": "unterminated`}, KindMalformedOutput},
		{"empty reply", reply{err: llmclient.ErrInvalidJSON}, KindMalformedOutput},
		{"missing field", reply{raw: `{"dream_outcome":"a","likelihood_of_achievement":"b","time_delay":"c","effort_and_sacrifice":"d"}`}, KindSchemaViolation},
		{"backend", reply{err: errors.New("503 unavailable")}, KindBackendFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(tc.reply, tc.reply, tc.reply, validReply("never reached"))

			rec, err := h.client.Evaluate(context.Background(), request())
			require.Error(t, err)
			assert.True(t, rec.IsZero())

			var rerr *RequestError
			require.True(t, errors.As(err, &rerr))
			assert.Equal(t, tc.kind, rerr.Kind)
			assert.Equal(t, 3, rerr.Attempts)
			assert.Len(t, h.llm.requests, 3)
			assert.Equal(t, []string{"sleep", "call", "sleep", "call", "sleep", "call"}, h.events)
		})
	}
}

func TestEvaluateSchemaViolationCarriesFields(t *testing.T) {
	missing := reply{raw: `{"dream_outcome":"a","likelihood_of_achievement":"b","time_delay":"c","effort_and_sacrifice":"d"}`}
	h := newHarness(missing, missing, missing)

	_, err := h.client.Evaluate(context.Background(), request())
	var verr *schema.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"conclusion"}, verr.Missing)
}

func TestEvaluateStopsAtFirstSuccess(t *testing.T) {
	h := newHarness(reply{raw: "not json"}, validReply("second time lucky"), validReply("third"))

	rec, err := h.client.Evaluate(context.Background(), request())
	require.NoError(t, err)

	assert.Equal(t, "second time lucky", rec.Get("conclusion"))
	assert.Len(t, h.llm.requests, 2)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, h.sleeps)
	assert.Contains(t, h.logs.String(), "evaluation eval-1: attempt 1/3 failed (malformed output)")
}

func TestEvaluateMixedFailuresUseLastKind(t *testing.T) {
	h := newHarness(
		reply{err: errors.New("reset by peer")},
		reply{raw: "{"},
		reply{raw: `{"conclusion":"only"}`},
	)
	_, err := h.client.Evaluate(context.Background(), request())
	var rerr *RequestError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, KindSchemaViolation, rerr.Kind)
}

func TestEvaluateRetriesBackendTimeouts(t *testing.T) {
	h := newHarness(
		reply{err: fmt.Errorf("googleapi: request timed out: %w", context.DeadlineExceeded)},
		validReply("recovered"),
	)

	rec, err := h.client.Evaluate(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "recovered", rec.Get("conclusion"))
	assert.Equal(t, []string{"sleep", "call", "sleep", "call"}, h.events)
	assert.Contains(t, h.logs.String(), "attempt 1/3 failed (backend failure)")
}

func TestEvaluateStopsWhenCallerGivesUp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newHarness(validReply("never used"))
	h.llm.replies = nil
	h.llm.onCall = cancel

	_, err := h.client.Evaluate(ctx, request())
	var rerr *RequestError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, KindBackendFailure, rerr.Kind)
	assert.Equal(t, 1, rerr.Attempts)
	assert.Len(t, h.llm.requests, 1)
}

func TestEvaluateDefaultsThrottle(t *testing.T) {
	h := newHarness(validReply("ok"))
	req := request()
	req.Timeout = 0

	_, err := h.client.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{DefaultTimeout}, h.sleeps)
}

func TestEvaluateCanceledBeforeFirstCall(t *testing.T) {
	h := newHarness(validReply("ok"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.client.Evaluate(ctx, request())
	var rerr *RequestError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, KindBackendFailure, rerr.Kind)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.llm.requests)
}

func TestEvaluateRequiresSchema(t *testing.T) {
	h := newHarness()
	req := request()
	req.Schema = nil
	_, err := h.client.Evaluate(context.Background(), req)
	require.Error(t, err)
	assert.Empty(t, h.events)
}

func TestEvaluateWithFakeBackend(t *testing.T) {
	c := New(llmclient.NewFakeClient(),
		WithPolicy(retry.Policy{MaxAttempts: MaxAttempts, Sleep: func(context.Context, time.Duration) error { return nil }}),
		WithLogger(log.New(io.Discard, "", 0)),
	)
	req := request()
	req.Schema = schema.BusinessAnalysis

	rec, err := c.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "fake Next Steps", rec.Get("next_steps"))
}
