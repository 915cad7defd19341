package backoff

import (
	"context"
	"time"
)

const (
	defaultInitialInterval = 4 * time.Second
	defaultMultiplier      = 2.0
	defaultMaxAttempts     = 3
)

// Sleeper waits for d or until ctx is cancelled. Injectable for tests.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Policy implements deterministic exponential backoff: the first retry waits
// the initial interval, every following retry multiplies it.
type Policy struct {
	initialInterval time.Duration
	multiplier      float64
	maxAttempts     int
	sleeper         Sleeper
}

// Option configures a Policy.
type Option func(*Policy)

// WithInitialInterval sets the delay before the first retry.
func WithInitialInterval(d time.Duration) Option {
	return func(p *Policy) {
		p.initialInterval = d
	}
}

// WithMultiplier sets the backoff multiplier.
func WithMultiplier(m float64) Option {
	return func(p *Policy) {
		p.multiplier = m
	}
}

// WithMaxAttempts sets the total number of attempts, including the first.
func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		p.maxAttempts = n
	}
}

// WithSleeper replaces the real clock, used by tests.
func WithSleeper(s Sleeper) Option {
	return func(p *Policy) {
		p.sleeper = s
	}
}

// New creates a Policy with default values and optional overrides.
func New(opts ...Option) *Policy {
	p := &Policy{
		initialInterval: defaultInitialInterval,
		multiplier:      defaultMultiplier,
		maxAttempts:     defaultMaxAttempts,
		sleeper:         sleep,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// MaxAttempts returns the configured attempt budget.
func (p *Policy) MaxAttempts() int {
	return p.maxAttempts
}

// Do runs fn up to the attempt budget, sleeping between attempts. The attempt
// index passed to fn is zero-based. Returns nil on the first success, the
// last error otherwise.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	var err error
	interval := p.initialInterval

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if attempt > 0 {
			if serr := p.sleeper(ctx, interval); serr != nil {
				return serr
			}
			interval = time.Duration(float64(interval) * p.multiplier)
		}

		err = fn(ctx, attempt)
		if err == nil {
			return nil
		}
	}

	return err
}
