// Package resilience holds the per-process retry, rate limiting and circuit breaking
// used around outbound provider calls. State is in memory and not shared between instances.
package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"marketapi/internal/config"
)

const jitter = 0.5

// RetryPolicy bounds how often and how slowly an operation is retried.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// PolicyFromConfig builds a RetryPolicy from resilience settings.
func PolicyFromConfig(cfg config.ResilienceConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     cfg.RetryMaxAttempts,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
	}
}

// Permanent marks err so Retry returns it immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Notify is called before each wait with the attempt that just failed.
type Notify func(attempt int, err error, wait time.Duration)

// Retry runs op until it succeeds, returns a Permanent error, the attempts run out
// or ctx is done. Waits grow exponentially with randomized jitter.
func Retry(ctx context.Context, p RetryPolicy, op func(ctx context.Context) error, notify Notify) error {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	eb.RandomizationFactor = jitter
	eb.MaxElapsedTime = 0

	var b backoff.BackOff = eb
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	b = backoff.WithContext(b, ctx)

	attempt := 0
	return backoff.RetryNotify(
		func() error {
			attempt++
			return op(ctx)
		},
		b,
		func(err error, wait time.Duration) {
			if notify != nil {
				notify(attempt, err, wait)
			}
		},
	)
}
