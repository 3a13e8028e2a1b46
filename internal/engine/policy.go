package engine

import (
	"time"

	"github.com/mrz1836/checkin/internal/constants"
	checkinerrors "github.com/mrz1836/checkin/internal/errors"
)

// RetryPolicy decides how many attempts a run gets, how long to wait
// between them, and which failure kinds are worth another attempt.
type RetryPolicy struct {
	// MaxAttempts is the total attempt budget. Must be at least 1.
	MaxAttempts int

	// BaseDelay is multiplied by the failed attempt's number to get the
	// backoff before the next attempt.
	BaseDelay time.Duration

	// MaxDelay caps the backoff when positive.
	MaxDelay time.Duration

	// Retryable lists the failure kinds that may be retried. Kinds missing
	// from the map are retried; set a kind to false to stop on it.
	Retryable map[checkinerrors.Kind]bool
}

// DefaultRetryPolicy retries every failure kind up to three attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: constants.DefaultMaxAttempts,
		BaseDelay:   constants.DefaultBaseDelay,
	}
}

// Validate rejects an attempt budget below one with ErrConfiguration.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return checkinerrors.Wrapf(checkinerrors.ErrConfiguration,
			"max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay < 0 {
		return checkinerrors.Wrapf(checkinerrors.ErrConfiguration,
			"retry base delay cannot be negative, got %s", p.BaseDelay)
	}
	return nil
}

// ShouldRetry reports whether a failure of kind may be retried.
func (p RetryPolicy) ShouldRetry(kind checkinerrors.Kind) bool {
	if p.Retryable == nil {
		return true
	}
	retry, ok := p.Retryable[kind]
	return !ok || retry
}

// Backoff returns the linear delay after attempt failed: attempt * BaseDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}
	d := time.Duration(attempt) * p.BaseDelay
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
