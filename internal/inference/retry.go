package inference

import (
	"context"
	"errors"
	"time"

	"github.com/spigell/resume-insight/internal/utils"
)

const defaultBackoffBase = time.Second

// Policy describes how an outbound call is retried. Every transport shares it.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Retryable   func(err error) bool
	Sleep       func(ctx context.Context, d time.Duration) error

	// OnRetry is called before sleeping between attempts. attempt is 0-based.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// NewPolicy returns a policy with exponential backoff and the default retry predicate.
func NewPolicy(maxAttempts int, base time.Duration) Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return Policy{
		MaxAttempts: maxAttempts,
		Backoff:     ExponentialBackoff(base),
		Retryable:   DefaultRetryable,
		Sleep:       utils.WaitFor,
	}
}

// ExponentialBackoff returns base * 2^attempt.
func ExponentialBackoff(base time.Duration) func(int) time.Duration {
	if base <= 0 {
		base = defaultBackoffBase
	}
	return func(attempt int) time.Duration {
		if attempt < 0 {
			attempt = 0
		}
		return base << uint(attempt)
	}
}

// DefaultRetryable retries everything except errors marked Permanent.
func DefaultRetryable(err error) bool {
	var permanent *permanentError
	return !errors.As(err, &permanent)
}

// Do calls fn until it succeeds, returns a non-retryable error or the attempts
// run out. attempt passed to fn is 0-based.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	backoff := p.Backoff
	if backoff == nil {
		backoff = ExponentialBackoff(defaultBackoffBase)
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = DefaultRetryable
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = utils.WaitFor
	}

	var last error
	for attempt := 0; attempt < attempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		last = err

		if !retryable(err) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if attempt == attempts-1 {
			break
		}

		wait := backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}

	return &ExhaustedError{Attempts: attempts, Last: last}
}
