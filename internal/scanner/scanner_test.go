package scanner

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/chainprobe/internal/domain"
	"go.uber.org/zap"
)

type fakeResolver struct {
	results map[domain.Currency]domain.BalanceResult
}

func (f *fakeResolver) Resolve(_ context.Context, currency domain.Currency, _ string) domain.BalanceResult {
	if r, ok := f.results[currency]; ok {
		return r
	}
	return domain.ZeroBalance()
}

type fakeRates map[string]float64

func (f fakeRates) Rate(currency domain.Currency) float64 {
	return f[currency.String()]
}

type fakeDeriver struct {
	err error
}

func (f *fakeDeriver) Address(currency domain.Currency, _ domain.KeyMaterial, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "addr-" + currency.String(), nil
}

func testNetworks() map[domain.Currency]domain.NetworkConfig {
	return map[domain.Currency]domain.NetworkConfig{
		"bitcoin":  {DerivationPath: "m/44'/0'/0'/0/0", Exponent: 8},
		"ethereum": {DerivationPath: "m/44'/60'/0'/0/0", Exponent: 18},
		"tron": {
			DerivationPath: "m/44'/195'/0'/0/0",
			Exponent:       6,
			Tokens:         map[string]domain.TokenConfig{"tether": {Contract: "c", Exponent: 6}},
		},
	}
}

func TestScanOnce(t *testing.T) {
	resolver := &fakeResolver{results: map[domain.Currency]domain.BalanceResult{
		"bitcoin": {Native: big.NewInt(50_000_000)}, // 0.5 BTC
		"tron": {
			Native: big.NewInt(2_000_000), // 2 TRX
			Tokens: map[string]*big.Int{"tether": big.NewInt(3_000_000)}, // 3 USDT
		},
	}}
	rates := fakeRates{"bitcoin": 60000, "tron": 0.1, "tether": 1}

	s := New(zap.NewNop(), resolver, rates, &fakeDeriver{}, testNetworks())

	reports, err := s.ScanOnce(context.Background(), domain.KeyMaterial{Seed: []byte("irrelevant")})
	require.NoError(t, err)
	require.Len(t, reports, 3)

	// reports come back in currency order
	assert.Equal(t, domain.Currency("bitcoin"), reports[0].Currency)
	assert.Equal(t, domain.Currency("ethereum"), reports[1].Currency)
	assert.Equal(t, domain.Currency("tron"), reports[2].Currency)

	assert.Equal(t, "addr-bitcoin", reports[0].Address)
	assert.Equal(t, "30000", reports[0].USD.StringFixed(0), "0.5 BTC at 60000")

	assert.True(t, reports[1].Result.IsZero())
	assert.True(t, reports[1].USD.IsZero())

	// 2 TRX * 0.1 + 3 USDT * 1 = 3.2
	assert.Equal(t, "3.20", reports[2].USD.StringFixed(2))
}

func TestScanOnceDerivationFailureEscalates(t *testing.T) {
	s := New(zap.NewNop(), &fakeResolver{}, fakeRates{}, &fakeDeriver{err: domain.ErrUnsupportedCurrency}, testNetworks())

	_, err := s.ScanOnce(context.Background(), domain.KeyMaterial{Seed: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrUnsupportedCurrency)
}

func TestScanOnceUnpricedCurrency(t *testing.T) {
	resolver := &fakeResolver{results: map[domain.Currency]domain.BalanceResult{
		"bitcoin": {Native: big.NewInt(100)},
	}}

	s := New(zap.NewNop(), resolver, fakeRates{}, &fakeDeriver{}, testNetworks())

	reports, err := s.ScanOnce(context.Background(), domain.KeyMaterial{Seed: []byte("x")})
	require.NoError(t, err)
	assert.True(t, reports[0].USD.IsZero(), "never-priced currency values at zero, not an error")
}
