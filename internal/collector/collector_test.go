package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideabot/internal/evaluator"
	"ideabot/internal/prompts"
	"ideabot/internal/schema"
)

type fakeEvaluator struct {
	mu   sync.Mutex
	reqs []evaluator.Request
	err  error
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, req evaluator.Request) (schema.Record, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.err != nil {
		return schema.Record{}, f.err
	}
	return req.Schema.Validate(map[string]any{
		"dream_outcome":             "outcome",
		"likelihood_of_achievement": "likely",
		"time_delay":                "soon",
		"effort_and_sacrifice":      "little",
		"conclusion":                "verdict for: " + req.UserPrompt,
	})
}

func (f *fakeEvaluator) requests() []evaluator.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]evaluator.Request(nil), f.reqs...)
}

type inbox struct {
	mu   sync.Mutex
	msgs []string
}

func (b *inbox) Send(ctx context.Context, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, text)
	return nil
}

func (b *inbox) last() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.msgs) == 0 {
		return ""
	}
	return b.msgs[len(b.msgs)-1]
}

// narrativeOnly renders the collected description unchanged
var narrativeOnly = prompts.Template{Name: "raw", Text: prompts.Placeholder}

func newCollector(t *testing.T, strategy Strategy, eval Evaluator) *Collector {
	t.Helper()
	return New(eval, strategy, Settings{
		Model:    "gemini-test",
		Template: narrativeOnly,
		Schema:   schema.ValueFormula,
		Timeout:  time.Second,
	}, NewStore(16, time.Hour), log.New(io.Discard, "", 0))
}

func TestMultiStageWalksEveryStage(t *testing.T) {
	eval := &fakeEvaluator{}
	c := newCollector(t, MultiStage(), eval)
	out := &inbox{}
	ctx := context.Background()

	assert.Equal(t, StageIdle, c.StageOf("u1"))
	require.NoError(t, c.Start(ctx, "u1", "Ada", out))
	assert.Equal(t, []string{
		"Hi Ada! Describe me your business idea.",
		"I will ask you four short questions about your idea.",
		MultiStage().Questions[0].Prompt,
	}, out.msgs)

	want := []Stage{StageAwaitingSolution, StageAwaitingResults, StageAwaitingEffort}
	assert.Equal(t, StageAwaitingProblem, c.StageOf("u1"))
	for i, answer := range []string{"cats", "dogs", "fast"} {
		require.NoError(t, c.Handle(ctx, "u1", answer, out))
		assert.Equal(t, want[i], c.StageOf("u1"))
		assert.Equal(t, MultiStage().Questions[i+1].Prompt, out.last())
	}
	assert.Empty(t, eval.requests())

	require.NoError(t, c.Handle(ctx, "u1", "easy", out))

	reqs := eval.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Problem: cats\nSolution: dogs\nResults: fast\nEffort: easy", reqs[0].UserPrompt)
	assert.Equal(t, prompts.SystemPrompt, reqs[0].SystemPrompt)
	assert.Equal(t, "gemini-test", reqs[0].Model)
	assert.Equal(t, time.Second, reqs[0].Timeout)

	n := len(out.msgs)
	assert.Equal(t, waitMessage, out.msgs[n-2])
	assert.Equal(t, "**Dream Outcome**\noutcome\n\n"+
		"**Likelihood Of Achievement**\nlikely\n\n"+
		"**Time Delay**\nsoon\n\n"+
		"**Effort And Sacrifice**\nlittle\n\n"+
		"**Conclusion**\nverdict for: Problem: cats\nSolution: dogs\nResults: fast\nEffort: easy", out.msgs[n-1])

	assert.Equal(t, StageIdle, c.StageOf("u1"))
	assert.ErrorIs(t, c.Handle(ctx, "u1", "more", out), ErrNoSession)
}

func TestRestartDiscardsPartialAnswers(t *testing.T) {
	eval := &fakeEvaluator{}
	c := newCollector(t, MultiStage(), eval)
	out := &inbox{}
	ctx := context.Background()

	require.NoError(t, c.Start(ctx, "u1", "", out))
	require.NoError(t, c.Handle(ctx, "u1", "old problem", out))
	require.NoError(t, c.Handle(ctx, "u1", "old solution", out))

	require.NoError(t, c.Start(ctx, "u1", "", out))
	assert.Equal(t, StageAwaitingProblem, c.StageOf("u1"))
	for _, answer := range []string{"a", "b", "c", "d"} {
		require.NoError(t, c.Handle(ctx, "u1", answer, out))
	}

	reqs := eval.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Problem: a\nSolution: b\nResults: c\nEffort: d", reqs[0].UserPrompt)
}

func TestBlankAnswerRepeatsQuestion(t *testing.T) {
	c := newCollector(t, MultiStage(), &fakeEvaluator{})
	out := &inbox{}
	ctx := context.Background()

	require.NoError(t, c.Start(ctx, "u1", "", out))
	require.NoError(t, c.Handle(ctx, "u1", "  \n ", out))
	assert.Equal(t, StageAwaitingProblem, c.StageOf("u1"))
	assert.Equal(t, MultiStage().Questions[0].Prompt, out.last())
}

func TestAnswersAreStoredUntouched(t *testing.T) {
	eval := &fakeEvaluator{}
	c := newCollector(t, MultiStage(), eval)
	out := &inbox{}
	ctx := context.Background()

	require.NoError(t, c.Start(ctx, "u1", "", out))
	for _, answer := range []string{"  cats ", "dogs\n", "fast", "\teasy"} {
		require.NoError(t, c.Handle(ctx, "u1", answer, out))
	}

	reqs := eval.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Problem:   cats \nSolution: dogs\n\nResults: fast\nEffort: \teasy", reqs[0].UserPrompt)
}

func TestSettingsRequest(t *testing.T) {
	s := Settings{
		Model:        "gemini-test",
		SystemPrompt: prompts.SystemPrompt,
		Template:     prompts.Template{Name: "t", Text: "Idea: " + prompts.Placeholder},
		Schema:       schema.BusinessAnalysis,
		Timeout:      3 * time.Second,
	}
	assert.Equal(t, evaluator.Request{
		Model:        "gemini-test",
		SystemPrompt: prompts.SystemPrompt,
		UserPrompt:   "Idea: cats",
		Schema:       schema.BusinessAnalysis,
		Timeout:      3 * time.Second,
	}, s.Request("cats"))
}

func TestEvaluationFailureIsReportedAndSessionEnds(t *testing.T) {
	eval := &fakeEvaluator{err: &evaluator.RequestError{Kind: evaluator.KindMalformedOutput, Attempts: 3, Cause: errors.New("bad")}}
	c := newCollector(t, MultiStage(), eval)
	out := &inbox{}
	ctx := context.Background()

	require.NoError(t, c.Start(ctx, "u1", "", out))
	for _, answer := range []string{"a", "b", "c", "d"} {
		require.NoError(t, c.Handle(ctx, "u1", answer, out))
	}
	assert.Equal(t, failureMessage, out.last())
	assert.Equal(t, StageIdle, c.StageOf("u1"))
}

func TestResetDiscardsSession(t *testing.T) {
	c := newCollector(t, MultiStage(), &fakeEvaluator{})
	out := &inbox{}
	ctx := context.Background()

	require.NoError(t, c.Reset(ctx, "u1", out))
	assert.Equal(t, idleMessage, out.last())

	require.NoError(t, c.Start(ctx, "u1", "", out))
	require.NoError(t, c.Handle(ctx, "u1", "cats", out))
	require.NoError(t, c.Reset(ctx, "u1", out))
	assert.Equal(t, resetMessage, out.last())
	assert.Equal(t, StageIdle, c.StageOf("u1"))
}

func TestSingleMessageSubmitsDirectly(t *testing.T) {
	eval := &fakeEvaluator{}
	c := newCollector(t, SingleMessage(), eval)
	out := &inbox{}

	require.NoError(t, c.Handle(context.Background(), "u1", "a marketplace for dog walkers", out))

	reqs := eval.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "a marketplace for dog walkers", reqs[0].UserPrompt)
	assert.Equal(t, []string{waitMessage, "verdict for: a marketplace for dog walkers"}, out.msgs)
	assert.Equal(t, StageIdle, c.StageOf("u1"))
}

func TestSingleMessageStartShowsGuide(t *testing.T) {
	c := newCollector(t, SingleMessage(), &fakeEvaluator{})
	out := &inbox{}

	require.NoError(t, c.Start(context.Background(), "u1", "", out))
	assert.Equal(t, []string{"Hi! Describe me your business idea.", SingleMessage().Questions[0].Prompt}, out.msgs)
	assert.Equal(t, StageAwaitingIdea, c.StageOf("u1"))
}

func TestSessionsDoNotShareAnswers(t *testing.T) {
	eval := &fakeEvaluator{}
	c := newCollector(t, MultiStage(), eval)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("user-%d", i)
			out := &inbox{}
			if err := c.Start(ctx, key, "", out); err != nil {
				t.Error(err)
				return
			}
			for _, field := range []string{"p", "s", "r", "e"} {
				if err := c.Handle(ctx, key, fmt.Sprintf("%s%d", field, i), out); err != nil {
					t.Error(err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	reqs := eval.requests()
	require.Len(t, reqs, 8)
	seen := map[string]bool{}
	for _, r := range reqs {
		seen[r.UserPrompt] = true
	}
	for i := 0; i < 8; i++ {
		want := fmt.Sprintf("Problem: p%d\nSolution: s%d\nResults: r%d\nEffort: e%d", i, i, i, i)
		assert.True(t, seen[want], "missing narrative %q", want)
	}
}

func TestStrategyByName(t *testing.T) {
	s, ok := StrategyByName("")
	require.True(t, ok)
	assert.Equal(t, ModeMultiStage, s.Name)

	s, ok = StrategyByName("Single_Message")
	require.True(t, ok)
	assert.True(t, s.VerdictOnly)

	_, ok = StrategyByName("wizard")
	assert.False(t, ok)
}
