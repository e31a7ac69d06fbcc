package graphdb

import (
	"context"
	"math/rand"
	"time"

	"github.com/dot-do/neo4j-sub002/internal/apperrors"
)

// retryBackoff computes the delay before attempt n (1-indexed) of a retried
// transaction function: 1000*2^(n-1) ms plus up to 1000ms of jitter, capped
// at 5000ms, mirroring the Neo4j driver's exponential backoff contract.
func retryBackoff(attempt int) time.Duration {
	base := 1000 * (1 << uint(attempt-1))
	if base > 5000 {
		base = 5000
	}
	jitter := rand.Intn(1000)
	d := base + jitter
	if d > 5000 {
		d = 5000
	}
	return time.Duration(d) * time.Millisecond
}

// retryTransaction runs fn, retrying on apperrors.IsRetryable errors with
// exponential backoff until maxRetryTime has elapsed since the first
// attempt. Non-retryable errors return immediately.
func retryTransaction(ctx context.Context, maxRetryTime time.Duration, fn func(ctx context.Context) (any, error)) (any, error) {
	start := time.Now()
	attempt := 0
	for {
		attempt++
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !apperrors.IsRetryable(err) {
			return nil, err
		}
		if time.Since(start) >= maxRetryTime {
			return nil, err
		}
		delay := retryBackoff(attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}
