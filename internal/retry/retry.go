// Package retry runs S3 calls under a bounded exponential backoff policy.
//
// Only errors classified as transient are retried; permanent, integrity, local
// I/O and cancellation failures end the loop on the first occurrence.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/errors"
)

// Policy bounds the retry loop of a single remote operation.
//
// Delays grow as BaseDelay * 2^(attempt-1) with ±25% jitter. No delay exceeds
// MaxDelay, jitter included. A zero MaxDelay selects the default; a MaxDelay
// below BaseDelay is raised to BaseDelay.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first one
	MaxAttempts int

	// BaseDelay is the delay before the second attempt
	BaseDelay time.Duration

	// MaxDelay caps any single delay
	MaxDelay time.Duration
}

// DefaultPolicy returns the policy used when none is configured:
// 5 attempts, 200ms base delay, 10s maximum delay.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

// Notify is called before each retry with the failed attempt number (1-based),
// its error and the delay until the next attempt.
type Notify func(attempt int, err error, delay time.Duration)

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// capped bounds every delay of the wrapped backoff, jitter included.
type capped struct {
	backoff.BackOff
	max time.Duration
}

func (c capped) NextBackOff() time.Duration {
	d := c.BackOff.NextBackOff()
	if d == backoff.Stop {
		return d
	}
	return min(d, c.max)
}

//nolint:ireturn // backoff composes decorators through its interface.
func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0.25
	b.MaxElapsedTime = 0
	b.Reset()

	if p.MaxAttempts == 1 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	return backoff.WithContext(backoff.WithMaxRetries(capped{BackOff: b, max: p.MaxDelay}, uint64(p.MaxAttempts-1)), ctx)
}

// Do runs fn until it succeeds, fails with a non-transient error, the attempts
// are exhausted or ctx ends. It returns the last error of fn, or the context
// error when ctx ended while waiting.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error, notify Notify) error {
	p = p.normalized()

	attempt := 0
	op := func() error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !errors.Classify(err).Retryable() {
			return backoff.Permanent(err)
		}
		return err
	}

	onRetry := func(err error, delay time.Duration) {
		if notify != nil {
			notify(attempt, err, delay)
		}
	}

	return backoff.RetryNotify(op, p.backOff(ctx), onRetry)
}
