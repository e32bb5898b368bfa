package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func retryOnly(maxAttempts int) Config {
	return Config{
		Retry: RetryPolicy{
			MaxAttempts:    maxAttempts,
			InitialBackoff: 1 * time.Millisecond,
			MaxBackoff:     2 * time.Millisecond,
			Multiplier:     2,
		},
		Breaker: BreakerPolicy{Enabled: false},
	}
}

func TestExecuteRetriesTransientStoreFailure(t *testing.T) {
	exec := NewExecutor(retryOnly(3), nil)

	attempts := 0
	errDown := errors.New("connection reset")
	err := exec.Execute(context.Background(), "postgres.search_chunks", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errDown
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{
			Retryable:     errors.Is(err, errDown),
			RecordFailure: true,
		}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteStopsOnPermanentFailure(t *testing.T) {
	exec := NewExecutor(retryOnly(3), nil)

	attempts := 0
	errBadQuery := errors.New("syntax error")
	err := exec.Execute(context.Background(), "postgres.search_chunks", func(context.Context) error {
		attempts++
		return errBadQuery
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: false}
	})
	if !errors.Is(err, errBadQuery) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteStopsRetryingWhenContextCanceled(t *testing.T) {
	exec := NewExecutor(Config{
		Retry: RetryPolicy{
			MaxAttempts:    5,
			InitialBackoff: 50 * time.Millisecond,
			MaxBackoff:     100 * time.Millisecond,
			Multiplier:     2,
		},
		Breaker: BreakerPolicy{Enabled: false},
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempts := 0
	errDown := errors.New("embedder unreachable")
	err := exec.Execute(ctx, "ollama.embed", func(context.Context) error {
		attempts++
		cancel()
		return errDown
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	})
	if !errors.Is(err, errDown) {
		t.Fatalf("expected store error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected backoff to abort after 1 attempt, got %d", attempts)
	}
}

func breakerConfig() Config {
	return Config{
		Retry: RetryPolicy{
			MaxAttempts:    1,
			InitialBackoff: 1 * time.Millisecond,
			MaxBackoff:     1 * time.Millisecond,
			Multiplier:     2,
		},
		Breaker: BreakerPolicy{
			Enabled:          true,
			MinRequests:      2,
			FailureRatio:     0.5,
			OpenTimeout:      50 * time.Millisecond,
			HalfOpenMaxCalls: 1,
		},
	}
}

func TestExecuteOpensBreakerAfterRepeatedFailures(t *testing.T) {
	exec := NewExecutor(breakerConfig(), nil)

	errDown := errors.New("qdrant unreachable")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: true}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "qdrant.search", func(context.Context) error {
			return errDown
		}, classifier)
		if !errors.Is(err, errDown) {
			t.Fatalf("expected store error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "qdrant.search", func(context.Context) error {
		t.Fatalf("open breaker must not call the store")
		return nil
	}, classifier)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
}

func TestBreakersAreIndependentPerOperation(t *testing.T) {
	exec := NewExecutor(breakerConfig(), nil)

	errDown := errors.New("qdrant unreachable")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{Retryable: false, RecordFailure: true}
	}

	for i := 0; i < 2; i++ {
		_ = exec.Execute(context.Background(), "qdrant.search", func(context.Context) error {
			return errDown
		}, classifier)
	}

	called := false
	err := exec.Execute(context.Background(), "postgres.search_chunks", func(context.Context) error {
		called = true
		return nil
	}, classifier)
	if err != nil {
		t.Fatalf("healthy store must not be affected, got %v", err)
	}
	if !called {
		t.Fatalf("expected healthy store operation to run")
	}
}
