package retry

import (
	"context"
	"time"
)

// Policy controls retry behavior for external calls.
// Delay grows exponentially: BaseDelay, 2*BaseDelay, 4*BaseDelay, ...
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Timeout     time.Duration // per-attempt timeout, 0 disables

	// Retryable reports whether an error is worth another attempt
	// (rate limits, transient server failures). Nil retries everything.
	Retryable func(error) bool
}

// DefaultPolicy matches the failure semantics shared by all enrichment calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		Timeout:     10 * time.Second,
	}
}

// Do runs fn under the policy. The final error from the last attempt is
// returned; callers treat it as "unavailable" rather than fatal.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	delay := p.BaseDelay

	for i := 0; i < attempts; i++ {
		err = p.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}

		if delay > 0 && i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return err
}

func (p Policy) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.Timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return fn(attemptCtx)
}
