// Package resilience provides retry with exponential backoff for calls to
// external services.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/sethvargo/go-retry"
	"thematic/internal/domain"
	"thematic/internal/logger"
)

// maxJitter is the upper bound of the random delay added to every backoff.
const maxJitter = 100 * time.Millisecond

// maxShift caps the exponent so delays cannot overflow.
const maxShift = 30

// Retrier runs an operation up to MaxAttempts times. Each attempt gets its own
// PerAttemptTimeout. After failed attempt k (0-based) it waits
// BaseDelay*2^k plus jitter.
type Retrier struct {
	policy  domain.RetryPolicy
	logger  *slog.Logger
	jitter  func() time.Duration
	onDelay func(attempt int, d time.Duration)
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithJitter replaces the random jitter source.
func WithJitter(fn func() time.Duration) Option {
	return func(r *Retrier) { r.jitter = fn }
}

// WithDelayObserver registers fn to be called with every backoff delay
// before the wait starts.
func WithDelayObserver(fn func(attempt int, d time.Duration)) Option {
	return func(r *Retrier) { r.onDelay = fn }
}

// NewRetrier creates a Retrier. A policy with MaxAttempts below one is
// treated as a single attempt.
func NewRetrier(policy domain.RetryPolicy, l *slog.Logger, opts ...Option) *Retrier {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	r := &Retrier{
		policy: policy,
		logger: logger.OrDiscard(l),
		jitter: func() time.Duration { return rand.N(maxJitter) },
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// With returns a copy of r whose log records carry args.
func (r *Retrier) With(args ...any) *Retrier {
	c := *r
	c.logger = r.logger.With(args...)
	return &c
}

// Policy returns the effective policy.
func (r *Retrier) Policy() domain.RetryPolicy {
	return r.policy
}

func (r *Retrier) backoff() retry.Backoff {
	k := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		if k >= r.policy.MaxAttempts-1 {
			return 0, true
		}
		shift := k
		if shift > maxShift {
			shift = maxShift
		}
		d := r.policy.BaseDelay<<shift + r.jitter()
		if r.onDelay != nil {
			r.onDelay(k, d)
		}
		k++
		return d, false
	})
}

type outcome[T any] struct {
	v   T
	err error
}

// runAttempt returns when op does or when ctx expires, whichever is first.
// A result that arrives after ctx expired counts as ctx.Err().
func runAttempt[T any](ctx context.Context, op func(ctx context.Context) (T, error)) (T, error) {
	done := make(chan outcome[T], 1)
	go func() {
		v, err := op(ctx)
		done <- outcome[T]{v: v, err: err}
	}()

	var zero T
	select {
	case o := <-done:
		if o.err == nil && ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return o.v, o.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Do runs op under r's policy and returns its first successful result, or
// the last failure once attempts are exhausted. Cancelling ctx stops
// retrying and returns the context error. An attempt is abandoned at its
// timeout even if op ignores its context.
func Do[T any](ctx context.Context, r *Retrier, op func(ctx context.Context) (T, error)) (T, error) {
	var (
		result  T
		attempt int
	)
	maxAttempts := r.policy.MaxAttempts

	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		attempt++
		attemptCtx, cancel := r.attemptContext(ctx)
		defer cancel()

		v, err := runAttempt(attemptCtx, op)
		if err == nil {
			if attempt > 1 {
				r.logger.Info("call succeeded after retry", "attempt", attempt)
			}
			result = v
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			r.logger.Warn("attempt timed out",
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"timeout", r.policy.PerAttemptTimeout,
			)
		} else {
			r.logger.Warn("call failed",
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"error", err.Error(),
			)
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Warn("all retry attempts failed", "max_attempts", maxAttempts)
		}
		var zero T
		return zero, err
	}
	return result, nil
}

func (r *Retrier) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.policy.PerAttemptTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.policy.PerAttemptTimeout)
}
