package services

import (
	"context"
	"fmt"
	"log"
	"time"
)

type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

var DefaultRetryConfig = RetryConfig{
	MaxRetries:     2,
	InitialBackoff: 250 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
}

// RetryError reports that every attempt failed, carrying the total
// attempt count (initial call plus retries) and the last failure.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// WithRetry runs fn until it succeeds or the retry budget is spent.
// Only transient failures are retried; parse and not-found failures
// return immediately because retrying replays the same response.
func WithRetry(ctx context.Context, config RetryConfig, fn func() error) error {
	var lastErr error
	backoff := config.InitialBackoff
	attempts := 0

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
			case <-time.After(backoff):
			}

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}

		attempts++
		err := fn()
		if err == nil {
			return nil
		}

		if !IsTransient(err) {
			return err
		}

		lastErr = err
		if attempt < config.MaxRetries {
			log.Printf("Retry attempt %d/%d failed: %v", attempt+1, config.MaxRetries, err)
		}
	}

	return &RetryError{Attempts: attempts, Err: lastErr}
}
