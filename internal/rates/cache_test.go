package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fallbackPrices = map[string]float64{"bitcoin": 60000, "ethereum": 2500}

func feedServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRefresh(t *testing.T) {
	symbols := []string{"bitcoin", "ethereum"}

	t.Run("success overwrites returned symbols", func(t *testing.T) {
		srv := feedServer(t, http.StatusOK, `{"bitcoin":{"usd":64123.5},"ethereum":{"usd":3210.0}}`)
		c := New(zap.NewNop(), srv.URL, symbols, fallbackPrices)

		require.NoError(t, c.Refresh(context.Background()))
		assert.Equal(t, 64123.5, c.Rate("bitcoin"))
		assert.Equal(t, 3210.0, c.Rate("ethereum"))
	})

	t.Run("partial response keeps previous values", func(t *testing.T) {
		srv := feedServer(t, http.StatusOK, `{"bitcoin":{"usd":64123.5},"ethereum":{"usd":3210.0}}`)
		c := New(zap.NewNop(), srv.URL, symbols, fallbackPrices)
		require.NoError(t, c.Refresh(context.Background()))

		partial := feedServer(t, http.StatusOK, `{"bitcoin":{"usd":65000.0}}`)
		c.feedURL = partial.URL

		require.NoError(t, c.Refresh(context.Background()))
		assert.Equal(t, 65000.0, c.Rate("bitcoin"))
		assert.Equal(t, 3210.0, c.Rate("ethereum"), "symbol missing from response must stay cached")
	})

	t.Run("network failure applies fallback", func(t *testing.T) {
		c := New(zap.NewNop(), "http://127.0.0.1:1/nowhere", symbols, fallbackPrices)

		assert.Error(t, c.Refresh(context.Background()))
		assert.Equal(t, 60000.0, c.Rate("bitcoin"))
		assert.Equal(t, 2500.0, c.Rate("ethereum"))
	})

	t.Run("error indicator applies fallback over cached values", func(t *testing.T) {
		srv := feedServer(t, http.StatusOK, `{"bitcoin":{"usd":64123.5},"ethereum":{"usd":3210.0}}`)
		c := New(zap.NewNop(), srv.URL, symbols, fallbackPrices)
		require.NoError(t, c.Refresh(context.Background()))

		failing := feedServer(t, http.StatusOK, `{"status":{"error_code":429,"error_message":"rate limited"}}`)
		c.feedURL = failing.URL

		assert.Error(t, c.Refresh(context.Background()))
		assert.Equal(t, 60000.0, c.Rate("bitcoin"), "half-successful parse must not leak stale values")
	})

	t.Run("non-2xx applies fallback", func(t *testing.T) {
		srv := feedServer(t, http.StatusBadGateway, ``)
		c := New(zap.NewNop(), srv.URL, symbols, fallbackPrices)

		assert.Error(t, c.Refresh(context.Background()))
		assert.Equal(t, 60000.0, c.Rate("bitcoin"))
	})
}

func TestStartRefreshesPeriodically(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":61000.0}}`))
	}))
	t.Cleanup(srv.Close)

	c := New(zap.NewNop(), srv.URL, []string{"bitcoin"}, fallbackPrices)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 61000.0, c.Rate("bitcoin"))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not stop on context cancellation")
	}
}

func TestRunSkipsInitialRefresh(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":61000.0}}`))
	}))
	t.Cleanup(srv.Close)

	c := New(zap.NewNop(), srv.URL, []string{"bitcoin"}, fallbackPrices)
	require.NoError(t, c.Refresh(context.Background()))
	require.Equal(t, int32(1), calls.Load())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Hour)
		close(done)
	}()

	// a caller that primed the cache must not trigger a second fetch
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	<-done
}

func TestRateUnpriced(t *testing.T) {
	c := New(zap.NewNop(), "http://example.com", nil, nil)
	assert.Zero(t, c.Rate("bitcoin"))
}
