package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testRetry(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		Logger:      NewLogger(false),
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := testRetry(3).Do(context.Background(), "flaky", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d; want 3", calls)
	}
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := testRetry(2).Do(context.Background(), "always-broken", func() error {
		calls++
		return errors.New("still broken")
	})

	if err == nil {
		t.Fatal("Do returned nil for a permanently failing operation")
	}
	if calls != 2 {
		t.Errorf("calls = %d; want the bounded 2", calls)
	}
}

func TestRetryPermanentStopsImmediately(t *testing.T) {
	sentinel := errors.New("blocked")
	calls := 0
	err := testRetry(5).Do(context.Background(), "blocked-op", func() error {
		calls++
		return Permanent(sentinel)
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v; want the wrapped sentinel", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d; permanent failures must not be retried", calls)
	}
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := testRetry(3).Do(ctx, "cancelled-op", func() error {
		calls++
		return errors.New("transient")
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v; want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d; want 1 before the cancel is observed", calls)
	}
}
