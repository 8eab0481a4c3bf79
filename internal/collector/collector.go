package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"ideabot/internal/evaluator"
	"ideabot/internal/prompts"
	"ideabot/internal/schema"
)

// ErrNoSession is returned by Handle when free text arrives for a key with no
// open session and the strategy does not start one implicitly.
var ErrNoSession = errors.New("collector: no active session")

const (
	waitMessage    = "I will validate your idea. Please wait..."
	failureMessage = "Sorry, something went wrong while validating your idea. Please try again later."
	resetMessage   = "Okay, I discarded your answers. Start again whenever you are ready."
	idleMessage    = "There is nothing to reset."
)

// Outbox delivers text back to the user of one session.
type Outbox interface {
	Send(ctx context.Context, text string) error
}

// OutboxFunc adapts a function to Outbox.
type OutboxFunc func(ctx context.Context, text string) error

func (f OutboxFunc) Send(ctx context.Context, text string) error { return f(ctx, text) }

// Evaluator is the structured request client used once a session completes.
type Evaluator interface {
	Evaluate(ctx context.Context, req evaluator.Request) (schema.Record, error)
}

// Settings are the evaluation parameters shared by every session.
type Settings struct {
	Model        string
	SystemPrompt string
	Template     prompts.Template
	Schema       *schema.Schema
	Timeout      time.Duration
}

// Request builds the evaluation of one idea description.
func (s Settings) Request(idea string) evaluator.Request {
	return evaluator.Request{
		Model:        s.Model,
		SystemPrompt: s.SystemPrompt,
		UserPrompt:   s.Template.Render(idea),
		Schema:       s.Schema,
		Timeout:      s.Timeout,
	}
}

// Collector runs the dialogue that gathers an idea description and submits
// it for evaluation. Events for one key must be delivered one at a time;
// events for different keys may be handled concurrently.
type Collector struct {
	eval     Evaluator
	strategy Strategy
	settings Settings
	store    *Store
	log      *log.Logger
	now      func() time.Time
}

func New(eval Evaluator, strategy Strategy, settings Settings, store *Store, logger *log.Logger) *Collector {
	if logger == nil {
		logger = log.Default()
	}
	if store == nil {
		store = NewStore(0, 0)
	}
	if settings.SystemPrompt == "" {
		settings.SystemPrompt = prompts.SystemPrompt
	}
	return &Collector{
		eval:     eval,
		strategy: strategy,
		settings: settings,
		store:    store,
		log:      logger,
		now:      time.Now,
	}
}

func (c *Collector) Strategy() Strategy { return c.strategy }

// Start opens a fresh session for key, discarding any partial one, and sends
// the greeting and first question. name may be empty.
func (c *Collector) Start(ctx context.Context, key, name string, out Outbox) error {
	sess := newSession(key, c.now())
	if prev, ok := c.store.Put(sess); ok {
		prev.closed.Store(true)
		c.log.Printf("collector: restarting session %s", key)
	}

	greeting := "Hi! Describe me your business idea."
	if name = strings.TrimSpace(name); name != "" {
		greeting = fmt.Sprintf("Hi %s! Describe me your business idea.", name)
	}
	msgs := []string{greeting}
	if c.strategy.Intro != "" {
		msgs = append(msgs, c.strategy.Intro)
	}
	msgs = append(msgs, c.strategy.Questions[0].Prompt)
	return sendAll(ctx, out, msgs...)
}

// Reset discards the session for key, if any, and confirms to the user.
func (c *Collector) Reset(ctx context.Context, key string, out Outbox) error {
	prev, ok := c.store.Remove(key)
	if !ok {
		return sendAll(ctx, out, idleMessage)
	}
	prev.closed.Store(true)
	c.log.Printf("collector: session %s reset", key)
	return sendAll(ctx, out, resetMessage)
}

// StageOf reports where the session for key is.
func (c *Collector) StageOf(key string) Stage {
	sess, ok := c.store.Get(key)
	if !ok {
		return StageIdle
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.stage(c.strategy)
}

// Handle records text as the answer to the current question. When it was
// the last answer the description is evaluated and the assessment sent; the
// session is gone afterwards whatever the outcome.
func (c *Collector) Handle(ctx context.Context, key, text string, out Outbox) error {
	for {
		sess, ok := c.store.Get(key)
		if !ok {
			if !c.strategy.AutoStart {
				return ErrNoSession
			}
			sess = newSession(key, c.now())
			c.store.Put(sess)
		}
		sess.mu.Lock()
		if sess.closed.Load() {
			sess.mu.Unlock()
			continue
		}
		err := c.handleLocked(ctx, sess, text, out)
		sess.mu.Unlock()
		return err
	}
}

func (c *Collector) handleLocked(ctx context.Context, sess *Session, text string, out Outbox) error {
	q := c.strategy.Questions[sess.step]
	if strings.TrimSpace(text) == "" {
		return sendAll(ctx, out, q.Prompt)
	}
	sess.answers = append(sess.answers, Answer{Key: q.Key, Label: q.Label, Text: text})
	sess.step++

	if sess.step < len(c.strategy.Questions) {
		c.store.Touch(sess)
		return sendAll(ctx, out, c.strategy.Questions[sess.step].Prompt)
	}

	sess.closed.Store(true)
	c.store.Release(sess)
	return c.submit(ctx, sess, out)
}

func (c *Collector) submit(ctx context.Context, sess *Session, out Outbox) error {
	if err := sendAll(ctx, out, waitMessage); err != nil {
		return err
	}
	idea := Narrative(sess.answers)
	rec, err := c.eval.Evaluate(ctx, c.settings.Request(idea))
	if err != nil {
		c.log.Printf("collector: evaluation for %s failed: %v", sess.Key, err)
		return sendAll(ctx, out, failureMessage)
	}
	c.log.Printf("collector: session %s evaluated in %s", sess.Key, c.now().Sub(sess.StartedAt).Round(time.Millisecond))
	return sendAll(ctx, out, Format(rec, c.strategy.VerdictOnly))
}

func sendAll(ctx context.Context, out Outbox, msgs ...string) error {
	for _, m := range msgs {
		if err := out.Send(ctx, m); err != nil {
			return fmt.Errorf("send reply: %w", err)
		}
	}
	return nil
}
