// Package retry implements bounded fixed-interval retries for idempotent
// calls against external tools that may not be ready yet.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Do calls fn up to attempts times, sleeping interval between tries.
// It returns nil on the first success, the last error once attempts are
// exhausted, or the context error if ctx is canceled while waiting.
func Do(ctx context.Context, attempts int, interval time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("retry: attempts must be >= 1, got %d", attempts)
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}

		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
