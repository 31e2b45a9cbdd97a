package clients

import (
	"errors"
	"fmt"
	"time"
)

// TransientError wraps a network or HTTP failure that the caller may retry
// with backoff. RetryAfter carries the server's Retry-After hint when one
// was present.
type TransientError struct {
	Op         string
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: transient error (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: transient error: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// ConfigurationError signals invalid credentials or connection parameters.
// It is fatal to the current sync attempt and is not retried.
type ConfigurationError struct {
	Op     string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: configuration error: %s", e.Op, e.Reason)
}

// TimeoutError signals that polling exceeded the configured max wait. It is
// a local give-up only; the remote job may still complete, so the operation
// handle stays reconcilable.
type TimeoutError struct {
	Op      string
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Op, e.Elapsed)
}

// IsTransient reports whether err is retryable
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsConfiguration reports whether err is a non-retryable configuration error
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsTimeout reports whether err is a poll timeout
func IsTimeout(err error) bool {
	var to *TimeoutError
	return errors.As(err, &to)
}
