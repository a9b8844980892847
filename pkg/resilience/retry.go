package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryConfig controls retry behavior for an operation.
type RetryConfig struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	EnableJitter      bool

	// RetryableErrors limits retries to the listed errors. Empty means
	// every error is retryable unless RetryableChecker says otherwise.
	RetryableErrors []error

	// RetryableChecker overrides RetryableErrors when set.
	RetryableChecker func(error) bool
}

// Operation is a cancellable unit of work executed under retry.
type Operation func(ctx context.Context) (interface{}, error)

// DefaultRetryConfig returns sensible defaults for network calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		EnableJitter:      true,
		RetryableChecker:  func(err error) bool { return true },
	}
}

// Retry executes the operation with exponential backoff until it
// succeeds, the attempts are exhausted, or the context ends. Context
// errors and open-circuit errors are never retried.
func Retry(ctx context.Context, config RetryConfig, op Operation) (interface{}, error) {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if errors.Is(err, ErrCircuitOpen) {
			return nil, err
		}
		if !isRetryable(err, config) {
			return nil, err
		}
		if attempt == config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(calculateBackoff(attempt, config)):
		}
	}

	return nil, lastErr
}

func isRetryable(err error, config RetryConfig) bool {
	if config.RetryableChecker != nil {
		return config.RetryableChecker(err)
	}
	if len(config.RetryableErrors) == 0 {
		return true
	}
	for _, candidate := range config.RetryableErrors {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	multiplier := config.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	backoff := float64(config.InitialBackoff) * math.Pow(multiplier, float64(attempt-1))
	if max := float64(config.MaxBackoff); config.MaxBackoff > 0 && backoff > max {
		backoff = max
	}

	if config.EnableJitter {
		// Up to 25% random jitter to avoid synchronized retries
		backoff += backoff * 0.25 * rand.Float64()
		if max := float64(config.MaxBackoff); config.MaxBackoff > 0 && backoff > max {
			backoff = max
		}
	}

	return time.Duration(backoff)
}
