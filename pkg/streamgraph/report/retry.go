package report

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// RetryConfig configures how Save is retried.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int

	// InitialBackoff is the wait before the second attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier applied to backoff after each attempt.
	BackoffFactor float64

	// Jitter is the random jitter factor (0.0-1.0).
	Jitter float64

	// Retryable optionally overrides IsTransient.
	Retryable func(error) bool
}

// DefaultRetry retries a busy database a few times within a second.
var DefaultRetry = RetryConfig{
	MaxAttempts:    4,
	InitialBackoff: 50 * time.Millisecond,
	MaxBackoff:     500 * time.Millisecond,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// NoRetry disables retries.
var NoRetry = RetryConfig{MaxAttempts: 1}

// RetryError is returned by SaveWithRetry when every attempt failed or the
// error was not retryable.
type RetryError struct {
	RunID    string
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("save report %s: %v (attempts: %d)", e.RunID, e.Err, e.Attempts)
}

func (e *RetryError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a SQLite busy or locked condition
// that a later attempt may not hit.
func IsTransient(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

// SaveWithRetry saves r, retrying transient failures with exponential
// backoff. It gives up early when ctx is done.
func SaveWithRetry(ctx context.Context, store Store, r *Report, cfg RetryConfig) error {
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsTransient
	}
	attempts := max(cfg.MaxAttempts, 1)
	backoff := cfg.InitialBackoff

	var err error
	for attempt := 1; ; attempt++ {
		if err = store.Save(r); err == nil {
			return nil
		}
		if attempt >= attempts || !retryable(err) {
			return &RetryError{RunID: r.RunID, Attempts: attempt, Err: err}
		}

		select {
		case <-ctx.Done():
			return &RetryError{RunID: r.RunID, Attempts: attempt, Err: errors.Join(err, ctx.Err())}
		case <-time.After(jittered(backoff, cfg.Jitter)):
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffFactor)
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
}

// jittered returns base +/- base*jitter*random.
func jittered(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return base
	}
	return time.Duration(float64(base) + float64(base)*jitter*(rand.Float64()*2-1))
}
