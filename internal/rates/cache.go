// Package rates maintains a background-refreshed map of USD prices for the
// tracked currencies. Resolution tasks read it concurrently; the refresh loop
// is the only writer.
package rates

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/vadiminshakov/chainprobe/internal/domain"
	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// Doer issues HTTP requests. Satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Cache holds the last known USD price per currency symbol. Staleness up to
// one refresh interval is acceptable by design.
type Cache struct {
	mu    sync.RWMutex
	rates map[string]float64

	feedURL  string
	symbols  []string
	fallback map[string]float64
	client   Doer
	logger   *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c Doer) Option {
	return func(cache *Cache) {
		cache.client = c
	}
}

// New creates a Cache that refreshes from feedURL. The feed must answer with
// a JSON object mapping each symbol to {"usd": <price>}. fallback supplies
// the hardcoded prices used when a refresh fails entirely.
func New(logger *zap.Logger, feedURL string, symbols []string, fallback map[string]float64, opts ...Option) *Cache {
	c := &Cache{
		rates:    make(map[string]float64),
		feedURL:  feedURL,
		symbols:  symbols,
		fallback: fallback,
		client:   &http.Client{Timeout: defaultTimeout},
		logger:   logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Rate returns the last cached USD price for a currency, 0 if never priced.
func (c *Cache) Rate(currency domain.Currency) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.rates[currency.String()]
}

// Refresh fetches current prices from the feed. On success only the symbols
// present in the response are overwritten; previously cached values survive a
// partial answer. On total failure the whole cache is replaced with the
// hardcoded fallback prices so USD valuation always has something to work with.
func (c *Cache) Refresh(ctx context.Context) error {
	body, err := c.fetch(ctx)
	if err != nil {
		c.applyFallback()
		return errors.Wrap(err, "rate feed unavailable")
	}

	if code := gjson.GetBytes(body, "status.error_code"); code.Exists() {
		c.applyFallback()
		return errors.Errorf("rate feed returned error code %d", code.Int())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sym := range c.symbols {
		price := gjson.GetBytes(body, sym+".usd")
		if !price.Exists() {
			continue
		}
		c.rates[sym] = price.Float()
	}

	return nil
}

// Start performs an initial synchronous refresh, then refreshes on a fixed
// interval until ctx is cancelled. Runs as its own background task, decoupling
// price staleness from query latency.
func (c *Cache) Start(ctx context.Context, interval time.Duration) {
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("initial rate refresh failed, fallback prices in effect", zap.Error(err))
	}

	c.Run(ctx, interval)
}

// Run refreshes on a fixed interval without the initial refresh, for callers
// that already primed the cache with a synchronous Refresh.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.logger.Warn("rate refresh failed, fallback prices in effect", zap.Error(err))
			}
		}
	}
}

func (c *Cache) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("rate feed status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (c *Cache) applyFallback() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rates = make(map[string]float64, len(c.fallback))
	for sym, price := range c.fallback {
		c.rates[sym] = price
	}
}
