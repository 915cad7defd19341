// Package scanner fans out one balance lookup task per configured currency
// and prices the results in USD. Valuation happens here, at the boundary:
// on-chain amounts stay arbitrary-precision integers everywhere below.
package scanner

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/chainprobe/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BalanceResolver resolves balances for one address. Implemented by
// resolver.Resolver.
type BalanceResolver interface {
	Resolve(ctx context.Context, currency domain.Currency, address string) domain.BalanceResult
}

// RateSource supplies USD prices. Implemented by rates.Cache.
type RateSource interface {
	Rate(currency domain.Currency) float64
}

// AddressDeriver derives chain addresses. Implemented by derive.Table.
type AddressDeriver interface {
	Address(currency domain.Currency, km domain.KeyMaterial, path string) (string, error)
}

// Report is the outcome of one currency's lookup within a scan cycle.
type Report struct {
	Currency domain.Currency
	Address  string
	Result   domain.BalanceResult
	USD      decimal.Decimal
}

// Scanner runs one lookup task per currency; tasks do not block each other.
type Scanner struct {
	resolver BalanceResolver
	rates    RateSource
	deriver  AddressDeriver
	networks map[domain.Currency]domain.NetworkConfig
	logger   *zap.Logger
}

// New creates a Scanner over the configured networks.
func New(logger *zap.Logger, resolver BalanceResolver, rates RateSource, deriver AddressDeriver, networks map[domain.Currency]domain.NetworkConfig) *Scanner {
	return &Scanner{
		resolver: resolver,
		rates:    rates,
		deriver:  deriver,
		networks: networks,
		logger:   logger,
	}
}

// ScanOnce derives an address for every configured currency from the key
// material and resolves its balances concurrently. A derivation failure
// aborts the scan: it is a configuration error, not a transient condition.
// Resolution failures never abort — they surface as zero results.
func (s *Scanner) ScanOnce(ctx context.Context, km domain.KeyMaterial) ([]Report, error) {
	currencies := make([]domain.Currency, 0, len(s.networks))
	for cur := range s.networks {
		currencies = append(currencies, cur)
	}
	sort.Slice(currencies, func(i, j int) bool { return currencies[i] < currencies[j] })

	reports := make([]Report, len(currencies))
	g, ctx := errgroup.WithContext(ctx)

	for i, cur := range currencies {
		i, cur := i, cur
		g.Go(func() error {
			cfg := s.networks[cur]

			addr, err := s.deriver.Address(cur, km, cfg.DerivationPath)
			if err != nil {
				return errors.Wrapf(err, "derive address for %s", cur)
			}

			result := s.resolver.Resolve(ctx, cur, addr)
			report := Report{
				Currency: cur,
				Address:  addr,
				Result:   result,
				USD:      s.valueUSD(cur, cfg, result),
			}
			reports[i] = report

			if !result.IsZero() {
				s.logger.Info("funded address discovered",
					zap.String("currency", cur.String()),
					zap.String("address", addr),
					zap.String("usd", report.USD.StringFixed(2)))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *Scanner) valueUSD(currency domain.Currency, cfg domain.NetworkConfig, result domain.BalanceResult) decimal.Decimal {
	usd := decimal.Zero

	if result.Native != nil && result.Native.Sign() > 0 {
		rate := decimal.NewFromFloat(s.rates.Rate(currency))
		usd = usd.Add(decimal.NewFromBigInt(result.Native, -cfg.Exponent).Mul(rate))
	}

	for symbol, amount := range result.Tokens {
		tokenCfg, ok := cfg.Tokens[symbol]
		if !ok {
			continue
		}
		rate := decimal.NewFromFloat(s.rates.Rate(domain.Currency(symbol)))
		usd = usd.Add(decimal.NewFromBigInt(amount, -tokenCfg.Exponent).Mul(rate))
	}

	return usd
}
