package graphdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dot-do/neo4j-sub002/internal/apperrors"
)

func TestRetryTransaction_SucceedsWithoutRetry(t *testing.T) {
	calls := 0
	result, err := retryTransaction(context.Background(), time.Second, func(ctx context.Context) (any, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Fatalf("result = %v, want ok", result)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRetryTransaction_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	result, err := retryTransaction(context.Background(), 5*time.Second, func(ctx context.Context) (any, error) {
		calls++
		if calls < 3 {
			return nil, &apperrors.CypherError{Code: apperrors.CodeTransientConflict, Message: "conflict"}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Fatalf("result = %v, want ok", result)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryTransaction_NonRetryableReturnsImmediately(t *testing.T) {
	calls := 0
	sentinel := errors.New("not retryable")
	_, err := retryTransaction(context.Background(), 5*time.Second, func(ctx context.Context) (any, error) {
		calls++
		return nil, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want %v", err, sentinel)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry for non-retryable error)", calls)
	}
}

func TestRetryTransaction_GivesUpAfterMaxRetryTime(t *testing.T) {
	calls := 0
	_, err := retryTransaction(context.Background(), 10*time.Millisecond, func(ctx context.Context) (any, error) {
		calls++
		return nil, &apperrors.CypherError{Code: apperrors.CodeTransientConflict, Message: "conflict"}
	})
	if err == nil {
		t.Fatal("expected error once max retry time elapses")
	}
	if calls < 1 {
		t.Fatalf("calls = %d, want at least 1", calls)
	}
}

func TestRetryBackoff_CapsAtFiveSeconds(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := retryBackoff(attempt)
		if d > 5*time.Second {
			t.Fatalf("retryBackoff(%d) = %v, want <= 5s", attempt, d)
		}
		if d <= 0 {
			t.Fatalf("retryBackoff(%d) = %v, want > 0", attempt, d)
		}
	}
}
