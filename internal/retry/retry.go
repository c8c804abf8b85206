// Package retry wraps fallible external calls with bounded retries and
// exponential backoff. It is the single choke point for every outbound call
// to the scraping, classification and mail providers: clients supply an
// error classifier, so adding a new provider never adds new retry code.
package retry

import (
	"context"
	"errors"
	"time"
)

// Class is the outcome of classifying an error.
type Class int

const (
	// Transient errors (timeouts, 5xx, rate limits, connection resets)
	// are retried up to Policy.MaxAttempts.
	Transient Class = iota
	// Permanent errors (validation, 4xx other than 429, not-found,
	// unparseable responses) short-circuit immediately.
	Permanent
)

// Classifier maps an error to a Class. A nil classifier treats every
// error as transient.
type Classifier func(error) Class

// Policy configures the executor.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Classify    Classifier
}

// DefaultPolicy returns the policy used by the workers unless a call site
// overrides it: 3 attempts, 2s base delay doubling per attempt, 30s cap.
func DefaultPolicy(classify Classifier) Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2,
		Classify:    classify,
	}
}

// permanentError marks an error as non-retryable regardless of the
// policy's classifier.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// AsPermanent wraps err so the executor never retries it.
func AsPermanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with AsPermanent or
// classified permanent by the given classifier.
func IsPermanent(err error, classify Classifier) bool {
	var pe *permanentError
	if errors.As(err, &pe) {
		return true
	}
	if classify != nil {
		return classify(err) == Permanent
	}
	return false
}

// Do invokes op until it succeeds, fails permanently, or the policy's
// attempts are exhausted. The last error is surfaced on exhaustion.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if IsPermanent(err, p.Classify) {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		delay := p.delay(attempt)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}

// Run is Do for operations without a result value.
func Run(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// delay returns base × multiplier^(attempt−1), capped at MaxDelay.
func (p Policy) delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 2
	}

	d := float64(base)
	for i := 1; i < attempt; i++ {
		d *= mult
	}

	delay := time.Duration(d)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}
