// Package resolver implements the balance resolution pipeline: provider
// rotation, per-provider retry with exponential backoff, response extraction
// and secondary-token aggregation. All failure modes degrade to a zero
// balance plus diagnostics; a single address's lookup must never abort the
// broader scan.
package resolver

import (
	"context"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/chainprobe/internal/domain"
	"github.com/vadiminshakov/chainprobe/internal/extract"
	"github.com/vadiminshakov/chainprobe/pkg/backoff"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// Doer issues HTTP requests. Satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ProviderSource hands out providers in rotation order. Implemented by
// registry.Registry.
type ProviderSource interface {
	NextProvider(currency domain.Currency) (domain.ProviderDescriptor, error)
	ProviderCount(currency domain.Currency) int
}

// FailureSink is notified when a provider burns its whole retry budget.
// Whether that triggers a cooldown is the sink's policy, not the pipeline's.
type FailureSink interface {
	ProviderExhausted(currency domain.Currency, providerName string)
}

// ChainAccess performs the actual balance lookups for one access method.
type ChainAccess interface {
	// NativeBalance returns the address's native balance in smallest units.
	NativeBalance(ctx context.Context, p domain.ProviderDescriptor, address string) (*big.Int, error)
	// TokenBalance returns a secondary-token balance, or (nil, nil) when the
	// provider has no way to answer token queries.
	TokenBalance(ctx context.Context, p domain.ProviderDescriptor, address string, token domain.TokenConfig) (*big.Int, error)
}

// Resolver orchestrates provider iteration and retries for balance queries.
type Resolver struct {
	providers ProviderSource
	sink      FailureSink
	networks  map[domain.Currency]domain.NetworkConfig
	policy    *backoff.Policy
	access    map[string]ChainAccess
	logger    *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFailureSink wires the exhaustion notifications, typically to the registry.
func WithFailureSink(s FailureSink) Option {
	return func(r *Resolver) {
		r.sink = s
	}
}

// WithHTTPClient replaces the HTTP client used by REST providers.
func WithHTTPClient(c Doer) Option {
	return func(r *Resolver) {
		r.access[domain.AccessREST] = &restAccess{client: c}
	}
}

// WithBackoffPolicy replaces the retry policy, used by tests.
func WithBackoffPolicy(p *backoff.Policy) Option {
	return func(r *Resolver) {
		r.policy = p
	}
}

// WithAccess registers a ChainAccess for an access-method tag.
func WithAccess(method string, a ChainAccess) Option {
	return func(r *Resolver) {
		r.access[method] = a
	}
}

// New creates a Resolver. networks supplies per-currency token maps; it may
// be nil when no currency defines secondary tokens.
func New(logger *zap.Logger, providers ProviderSource, networks map[domain.Currency]domain.NetworkConfig, opts ...Option) *Resolver {
	r := &Resolver{
		providers: providers,
		networks:  networks,
		policy:    backoff.New(),
		access:    map[string]ChainAccess{},
		logger:    logger,
	}
	r.access[domain.AccessREST] = &restAccess{client: &http.Client{Timeout: defaultTimeout}}
	r.access[domain.AccessEVMRPC] = NewEVMAccess()

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve looks up the balances for one address. It never fails: exhaustion,
// cooldown and missing configuration all degrade to a zero result.
func (r *Resolver) Resolve(ctx context.Context, currency domain.Currency, address string) domain.BalanceResult {
	result := domain.ZeroBalance()

	total := r.providers.ProviderCount(currency)
	if total == 0 {
		r.logger.Debug("no providers registered, skipping",
			zap.String("currency", currency.String()))
		return result
	}

	for i := 0; i < total; i++ {
		p, err := r.providers.NextProvider(currency)
		if err != nil {
			r.logger.Warn("every provider is cooling down",
				zap.String("currency", currency.String()),
				zap.String("address", address))
			return result
		}

		access, ok := r.accessFor(p)
		if !ok {
			r.logger.Error("provider has unknown access method",
				zap.String("provider", p.Name),
				zap.String("access_method", p.AccessMethod))
			continue
		}

		native, err := r.nativeWithRetry(ctx, access, p, address)
		if err != nil {
			r.logger.Warn("provider exhausted, rotating to next",
				zap.String("currency", currency.String()),
				zap.String("provider", p.Name),
				zap.String("address", address),
				zap.Error(err))
			if r.sink != nil {
				r.sink.ProviderExhausted(currency, p.Name)
			}
			continue
		}

		result.Native = native
		if native.Sign() > 0 {
			r.collectTokens(ctx, access, currency, p, address, &result)
		}
		return result
	}

	r.logger.Error("all providers exhausted, returning zero balance",
		zap.String("currency", currency.String()),
		zap.String("address", address))
	return result
}

func (r *Resolver) accessFor(p domain.ProviderDescriptor) (ChainAccess, bool) {
	method := p.AccessMethod
	if method == "" {
		method = domain.AccessREST
	}
	a, ok := r.access[method]
	return a, ok
}

func (r *Resolver) nativeWithRetry(ctx context.Context, access ChainAccess, p domain.ProviderDescriptor, address string) (*big.Int, error) {
	var native *big.Int

	err := r.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		n, err := access.NativeBalance(ctx, p, address)
		if err != nil {
			fields := []zap.Field{
				zap.String("provider", p.Name),
				zap.String("address", address),
				zap.Int("retries_left", r.policy.MaxAttempts() - attempt - 1),
				zap.Error(err),
			}
			if errors.Is(err, domain.ErrRateLimited) {
				r.logger.Warn("provider rate limited", fields...)
			} else {
				r.logger.Warn("balance request failed", fields...)
			}
			return err
		}
		native = n
		return nil
	})

	return native, err
}

// collectTokens performs single-shot secondary-token lookups, keeping only
// strictly positive balances.
func (r *Resolver) collectTokens(ctx context.Context, access ChainAccess, currency domain.Currency, p domain.ProviderDescriptor, address string, result *domain.BalanceResult) {
	cfg, ok := r.networks[currency]
	if !ok || len(cfg.Tokens) == 0 {
		return
	}

	for symbol, token := range cfg.Tokens {
		amount, err := access.TokenBalance(ctx, p, address, token)
		if err != nil {
			r.logger.Warn("token lookup failed",
				zap.String("currency", currency.String()),
				zap.String("token", symbol),
				zap.String("provider", p.Name),
				zap.String("address", address),
				zap.Error(err))
			continue
		}
		result.AddToken(symbol, amount)
	}
}

// restAccess queries flat REST endpoints built from URL templates.
type restAccess struct {
	client Doer
}

func (a *restAccess) NativeBalance(ctx context.Context, p domain.ProviderDescriptor, address string) (*big.Int, error) {
	body, err := a.get(ctx, p, buildURL(p.URLTemplate, address, "", p.APIKey))
	if err != nil {
		return nil, err
	}

	if p.TextResponse {
		return extract.ParseAmount(string(body))
	}

	n, present, err := extract.Amount(body, p.ResponsePath)
	if err != nil {
		return nil, errors.Wrapf(err, "provider %s", p.Name)
	}
	if !present {
		// the request succeeded, the chain reports no funds
		return new(big.Int), nil
	}
	return n, nil
}

func (a *restAccess) TokenBalance(ctx context.Context, p domain.ProviderDescriptor, address string, token domain.TokenConfig) (*big.Int, error) {
	if p.TokenURLTemplate == "" {
		return nil, nil
	}

	body, err := a.get(ctx, p, buildURL(p.TokenURLTemplate, address, token.Contract, p.APIKey))
	if err != nil {
		return nil, err
	}

	path := p.TokenResponsePath
	if path == "" {
		path = p.ResponsePath
	}

	n, present, err := extract.Amount(body, path)
	if err != nil {
		return nil, errors.Wrapf(err, "provider %s", p.Name)
	}
	if !present {
		return new(big.Int), nil
	}
	return n, nil
}

func (a *restAccess) get(ctx context.Context, p domain.ProviderDescriptor, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "provider %s", p.Name)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "provider %s", p.Name)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.Wrapf(domain.ErrRateLimited, "provider %s", p.Name)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("provider %s returned status %d", p.Name, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func buildURL(template, address, token, apiKey string) string {
	u := strings.ReplaceAll(template, "{address}", address)
	u = strings.ReplaceAll(u, "{token}", token)
	if apiKey != "" {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u += sep + "apikey=" + url.QueryEscape(apiKey)
	}
	return u
}
