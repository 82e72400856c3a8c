package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerSettings configures every breaker created by Breakers.
type BreakerSettings struct {
	// Failures is the number of consecutive failures that opens a breaker.
	Failures uint32
	// OpenTimeout is how long a breaker stays open before letting a probe through.
	OpenTimeout time.Duration
	// IsSuccessful decides which errors do not count as failures. Nil counts every error.
	IsSuccessful func(err error) bool
	// OnStateChange observes transitions.
	OnStateChange func(key string, from, to gobreaker.State)
}

// Breakers lazily creates one circuit breaker per key.
type Breakers struct {
	mu       sync.Mutex
	settings BreakerSettings
	m        map[string]*gobreaker.CircuitBreaker
}

func NewBreakers(s BreakerSettings) *Breakers {
	if s.Failures == 0 {
		s.Failures = 5
	}
	return &Breakers{settings: s, m: make(map[string]*gobreaker.CircuitBreaker)}
}

func (b *Breakers) get(key string) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	cb, ok := b.m[key]
	if ok {
		return cb
	}
	failures := b.settings.Failures
	cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        key,
		MaxRequests: 1,
		Timeout:     b.settings.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		OnStateChange: b.settings.OnStateChange,
		IsSuccessful:  b.settings.IsSuccessful,
	})
	b.m[key] = cb
	return cb
}

// Execute runs fn through the breaker for key.
func (b *Breakers) Execute(key string, fn func() (any, error)) (any, error) {
	return b.get(key).Execute(fn)
}

// State returns the breaker state for key. Unknown keys are closed.
func (b *Breakers) State(key string) gobreaker.State {
	b.mu.Lock()
	cb, ok := b.m[key]
	b.mu.Unlock()
	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}

// Snapshot returns the state name of every known breaker.
func (b *Breakers) Snapshot() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]string, len(b.m))
	for k, cb := range b.m {
		out[k] = cb.State().String()
	}
	return out
}

// IsOpen reports whether err was produced by a breaker refusing the call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
