package inference

import (
	"context"
	"errors"
	"testing"
	"time"
)

func noSleep(recorded *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		if recorded != nil {
			*recorded = append(*recorded, d)
		}
		return nil
	}
}

func TestExponentialBackoff(t *testing.T) {
	t.Parallel()

	backoff := ExponentialBackoff(100 * time.Millisecond)
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}
	for attempt, expected := range want {
		if got := backoff(attempt); got != expected {
			t.Fatalf("attempt %d: expected %s, got %s", attempt, expected, got)
		}
	}

	if got := ExponentialBackoff(0)(1); got != 2*time.Second {
		t.Fatalf("expected default base to be used, got %s", got)
	}
}

func TestPolicyStopsAtCeiling(t *testing.T) {
	t.Parallel()

	var waits []time.Duration
	policy := NewPolicy(3, time.Second)
	policy.Sleep = noSleep(&waits)

	calls := 0
	err := policy.Do(context.Background(), func(context.Context, int) error {
		calls++
		return ErrUnreachable
	})

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 || calls != 3 {
		t.Fatalf("expected 3 attempts, got %d (calls %d)", exhausted.Attempts, calls)
	}
	if !IsUnreachable(err) {
		t.Fatalf("expected exhausted error to unwrap to ErrUnreachable")
	}
	if len(waits) != 2 || waits[0] != time.Second || waits[1] != 2*time.Second {
		t.Fatalf("unexpected backoff sequence: %v", waits)
	}
}

func TestPolicyReturnsOnSuccess(t *testing.T) {
	t.Parallel()

	policy := NewPolicy(5, time.Millisecond)
	policy.Sleep = noSleep(nil)

	calls := 0
	err := policy.Do(context.Background(), func(_ context.Context, attempt int) error {
		calls++
		if attempt < 1 {
			return &StatusError{Code: 429}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestPolicyDoesNotRetryPermanent(t *testing.T) {
	t.Parallel()

	policy := NewPolicy(3, time.Millisecond)
	policy.Sleep = noSleep(nil)

	boom := errors.New("boom")
	calls := 0
	err := policy.Do(context.Background(), func(context.Context, int) error {
		calls++
		return Permanent(boom)
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single call, got %d", calls)
	}
}

func TestPolicyStopsWhenContextDone(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	policy := NewPolicy(5, time.Millisecond)
	policy.Sleep = noSleep(nil)

	calls := 0
	err := policy.Do(ctx, func(context.Context, int) error {
		calls++
		cancel()
		return ErrUnreachable
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single call, got %d", calls)
	}
}
