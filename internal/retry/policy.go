// Package retry runs an operation under a bounded attempt budget with a fixed
// pause before every attempt.
package retry

import (
	"context"
	"errors"
	"time"
)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits on a timer and honors cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Policy describes how many times an operation runs and how long to wait
// before each run. The wait happens before the first attempt too: it paces
// calls to the backend rather than backing off.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	// Retryable decides whether a failed attempt may be followed by another.
	// Nil retries every failure. Do stops on its own once ctx is done,
	// whatever the error says.
	Retryable func(error) bool
	// Sleep defaults to the real timer.
	Sleep SleepFunc
	// OnRetry is called after a failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

// Default is three attempts with a ten second pause.
func Default() Policy {
	return Policy{MaxAttempts: 3, Delay: 10 * time.Second}
}

// WithDelay returns a copy of p using d as the pause.
func (p Policy) WithDelay(d time.Duration) Policy {
	p.Delay = d
	return p
}

// Budget is the worst-case wall time of Do when each attempt takes at most
// perAttempt.
func (p Policy) Budget(perAttempt time.Duration) time.Duration {
	return time.Duration(p.attempts()) * (p.Delay + perAttempt)
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempt
// budget is spent. Attempts are numbered from zero. The returned error is the
// one produced by the last attempt, or the context error if a pause was
// interrupted.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	max := p.attempts()

	var last error
	for attempt := 0; attempt < max; attempt++ {
		if err := sleep(ctx, p.Delay); err != nil {
			if last != nil {
				return errors.Join(err, last)
			}
			return err
		}
		last = fn(ctx, attempt)
		if last == nil {
			return nil
		}
		if attempt == max-1 || ctx.Err() != nil || (p.Retryable != nil && !p.Retryable(last)) {
			return last
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, last)
		}
	}
	return last
}
