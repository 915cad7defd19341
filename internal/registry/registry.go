// Package registry owns provider rotation and cooldown state for every
// currency. It replaces ambient global maps with an explicitly constructed
// object so resolution calls share one instance and tests get a fresh one.
package registry

import (
	"sync"
	"time"

	"github.com/vadiminshakov/chainprobe/internal/domain"
	"go.uber.org/zap"
)

type cooldownKey struct {
	currency domain.Currency
	provider string
}

// Registry selects providers round-robin per currency, skipping the ones in
// cooldown. Safe for concurrent use by many lookup tasks.
type Registry struct {
	mu        sync.Mutex
	providers map[domain.Currency][]domain.ProviderDescriptor
	next      map[domain.Currency]int
	cooldowns map[cooldownKey]time.Time

	now             func() time.Time
	failureCooldown time.Duration
	logger          *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces the wall clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithFailureCooldown sets the cooldown applied when the resolver reports a
// provider as exhausted. Zero disables automatic cooldown.
func WithFailureCooldown(d time.Duration) Option {
	return func(r *Registry) {
		r.failureCooldown = d
	}
}

// New creates an empty Registry.
func New(logger *zap.Logger, opts ...Option) *Registry {
	r := &Registry{
		providers: make(map[domain.Currency][]domain.ProviderDescriptor),
		next:      make(map[domain.Currency]int),
		cooldowns: make(map[cooldownKey]time.Time),
		now:       time.Now,
		logger:    logger,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// RegisterProviders stores the ordered provider list for a currency,
// replacing any previous list and resetting rotation.
func (r *Registry) RegisterProviders(currency domain.Currency, providers []domain.ProviderDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[currency] = append([]domain.ProviderDescriptor(nil), providers...)
	r.next[currency] = 0
}

// ProviderCount returns the number of providers registered for a currency,
// regardless of cooldown state.
func (r *Registry) ProviderCount(currency domain.Currency) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.providers[currency])
}

// NextProvider returns the next provider in round-robin order that is not
// cooling down. It inspects each provider at most once, so it terminates even
// when every provider is cooling down, returning domain.ErrNoProvider.
func (r *Registry) NextProvider(currency domain.Currency) (domain.ProviderDescriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.providers[currency]
	if len(list) == 0 {
		return domain.ProviderDescriptor{}, domain.ErrNoProvider
	}

	now := r.now()
	start := r.next[currency]
	for i := 0; i < len(list); i++ {
		idx := (start + i) % len(list)
		p := list[idx]
		if until, ok := r.cooldowns[cooldownKey{currency, p.Name}]; ok && until.After(now) {
			continue
		}
		r.next[currency] = (idx + 1) % len(list)
		return p, nil
	}

	return domain.ProviderDescriptor{}, domain.ErrNoProvider
}

// SetCooldown excludes a provider from rotation until now + d. A later call
// supersedes the previous window; entries are never deleted, time expires them.
func (r *Registry) SetCooldown(currency domain.Currency, providerName string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cooldowns[cooldownKey{currency, providerName}] = r.now().Add(d)
}

// ProviderExhausted is the resolver's failure sink: a provider that burned its
// whole retry budget gets the configured failure cooldown.
func (r *Registry) ProviderExhausted(currency domain.Currency, providerName string) {
	if r.failureCooldown <= 0 {
		return
	}

	r.SetCooldown(currency, providerName, r.failureCooldown)
	r.logger.Warn("provider cooled down after exhausting retries",
		zap.String("currency", currency.String()),
		zap.String("provider", providerName),
		zap.Duration("cooldown", r.failureCooldown))
}
