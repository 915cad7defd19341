package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/chainprobe/internal/domain"
	"go.uber.org/zap"
)

const btc = domain.Currency("bitcoin")

func testProviders(names ...string) []domain.ProviderDescriptor {
	out := make([]domain.ProviderDescriptor, 0, len(names))
	for _, n := range names {
		out = append(out, domain.ProviderDescriptor{Name: n, URLTemplate: "https://example.com/{address}"})
	}
	return out
}

func TestRotationFairness(t *testing.T) {
	r := New(zap.NewNop())
	r.RegisterProviders(btc, testProviders("p1", "p2", "p3"))

	seen := make(map[string]int)
	for i := 0; i < 3; i++ {
		p, err := r.NextProvider(btc)
		require.NoError(t, err)
		seen[p.Name]++
	}
	assert.Equal(t, map[string]int{"p1": 1, "p2": 1, "p3": 1}, seen)

	// next round starts over in the same order
	p, err := r.NextProvider(btc)
	require.NoError(t, err)
	assert.Equal(t, "p1", p.Name)
}

func TestCooldownRespected(t *testing.T) {
	now := time.Now()
	r := New(zap.NewNop(), WithClock(func() time.Time { return now }))
	r.RegisterProviders(btc, testProviders("p1", "p2"))

	r.SetCooldown(btc, "p1", time.Minute)

	for i := 0; i < 4; i++ {
		p, err := r.NextProvider(btc)
		require.NoError(t, err)
		assert.Equal(t, "p2", p.Name)
	}

	// after the window elapses p1 is eligible again
	now = now.Add(time.Minute + time.Second)
	names := make(map[string]bool)
	for i := 0; i < 2; i++ {
		p, err := r.NextProvider(btc)
		require.NoError(t, err)
		names[p.Name] = true
	}
	assert.True(t, names["p1"])
}

func TestAllCooldownReturnsNoProvider(t *testing.T) {
	now := time.Now()
	r := New(zap.NewNop(), WithClock(func() time.Time { return now }))
	r.RegisterProviders(btc, testProviders("p1", "p2"))

	r.SetCooldown(btc, "p1", time.Minute)
	r.SetCooldown(btc, "p2", time.Minute)

	_, err := r.NextProvider(btc)
	assert.ErrorIs(t, err, domain.ErrNoProvider)
}

func TestEmptyListReturnsNoProvider(t *testing.T) {
	r := New(zap.NewNop())

	_, err := r.NextProvider(btc)
	assert.ErrorIs(t, err, domain.ErrNoProvider)
	assert.Zero(t, r.ProviderCount(btc))
}

func TestRegisterReplacesList(t *testing.T) {
	r := New(zap.NewNop())
	r.RegisterProviders(btc, testProviders("p1", "p2"))
	r.RegisterProviders(btc, testProviders("p3"))

	require.Equal(t, 1, r.ProviderCount(btc))
	p, err := r.NextProvider(btc)
	require.NoError(t, err)
	assert.Equal(t, "p3", p.Name)
}

func TestCooldownSuperseded(t *testing.T) {
	now := time.Now()
	r := New(zap.NewNop(), WithClock(func() time.Time { return now }))
	r.RegisterProviders(btc, testProviders("p1"))

	r.SetCooldown(btc, "p1", time.Hour)
	r.SetCooldown(btc, "p1", time.Millisecond)

	now = now.Add(time.Second)
	p, err := r.NextProvider(btc)
	require.NoError(t, err)
	assert.Equal(t, "p1", p.Name)
}

func TestProviderExhausted(t *testing.T) {
	t.Run("applies failure cooldown", func(t *testing.T) {
		now := time.Now()
		r := New(zap.NewNop(),
			WithClock(func() time.Time { return now }),
			WithFailureCooldown(5*time.Minute))
		r.RegisterProviders(btc, testProviders("p1", "p2"))

		r.ProviderExhausted(btc, "p1")

		p, err := r.NextProvider(btc)
		require.NoError(t, err)
		assert.Equal(t, "p2", p.Name)
	})

	t.Run("disabled by default", func(t *testing.T) {
		r := New(zap.NewNop())
		r.RegisterProviders(btc, testProviders("p1"))

		r.ProviderExhausted(btc, "p1")

		p, err := r.NextProvider(btc)
		require.NoError(t, err)
		assert.Equal(t, "p1", p.Name)
	})
}
