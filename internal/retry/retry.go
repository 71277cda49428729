// Package retry runs idempotent remote calls with exponential backoff.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts int           // total attempts, 1 disables retrying
	InitialWait time.Duration // wait before the second attempt
	MaxWait     time.Duration // upper bound for a single wait
	Multiplier  float64       // backoff multiplier
	Jitter      float64       // jitter factor (0-1)
}

// DefaultConfig returns the defaults used when a config leaves MaxAttempts at 0
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		InitialWait: 200 * time.Millisecond,
		MaxWait:     5 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.1,
	}
}

// RetryableError marks an error as worth another attempt
type RetryableError struct {
	Err error
}

func (e RetryableError) Error() string {
	return e.Err.Error()
}

func (e RetryableError) Unwrap() error {
	return e.Err
}

// Retryable wraps err so that Do retries it
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return RetryableError{Err: err}
}

// IsRetryable reports whether err was marked with Retryable
func IsRetryable(err error) bool {
	var re RetryableError
	return errors.As(err, &re)
}

// Do executes fn until it succeeds, returns a non-retryable error, the
// attempts run out or ctx is done. The returned error is unwrapped from the
// retryable marker.
func Do[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var zero T
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultConfig()
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := backoff(cfg, attempt)
		logrus.Debugf("retry: attempt %d/%d failed: %v, waiting %s", attempt, cfg.MaxAttempts, err, wait)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}
	}

	var re RetryableError
	if errors.As(lastErr, &re) {
		return zero, re.Err
	}
	return zero, lastErr
}

func backoff(cfg Config, attempt int) time.Duration {
	multiplier := cfg.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	wait := float64(cfg.InitialWait) * math.Pow(multiplier, float64(attempt-1))
	if cfg.MaxWait > 0 && wait > float64(cfg.MaxWait) {
		wait = float64(cfg.MaxWait)
	}
	if cfg.Jitter > 0 {
		wait += wait * cfg.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(wait)
}
