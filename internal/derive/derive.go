// Package derive turns root key material into per-chain addresses. Each
// supported chain is one Strategy in a closed table; adding a chain means
// adding a variant, not widening shared branches.
package derive

import (
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/chainprobe/internal/domain"
)

// Strategy derives a chain address from root key material and a BIP44-style
// derivation path. Implementations must match the chain's standard derivation
// and encoding rules exactly: a wrong address never matches funded accounts.
type Strategy interface {
	Derive(km domain.KeyMaterial, path string) (string, error)
}

// Table dispatches derivation by currency.
type Table struct {
	strategies map[domain.Currency]Strategy
}

// New builds the table with the builtin chain strategies.
func New() *Table {
	litecoin := chaincfg.MainNetParams
	litecoin.Name = "litecoin"
	litecoin.PubKeyHashAddrID = 0x30
	litecoin.HDCoinType = 2

	dogecoin := chaincfg.MainNetParams
	dogecoin.Name = "dogecoin"
	dogecoin.PubKeyHashAddrID = 0x1e
	dogecoin.HDCoinType = 3

	return &Table{strategies: map[domain.Currency]Strategy{
		"bitcoin":  btcFamily{params: &chaincfg.MainNetParams},
		"litecoin": btcFamily{params: &litecoin},
		"dogecoin": btcFamily{params: &dogecoin},
		"ethereum": evmChain{},
		"bnb":      evmChain{},
		"tron":     tronChain{},
		"solana":   solanaChain{},
	}}
}

// Register adds or replaces the strategy for a currency.
func (t *Table) Register(currency domain.Currency, s Strategy) {
	t.strategies[currency] = s
}

// Address derives the address for a currency. Unknown currencies escalate
// with domain.ErrUnsupportedCurrency: silently skipping a chain the operator
// believes is covered would waste the whole scan.
func (t *Table) Address(currency domain.Currency, km domain.KeyMaterial, path string) (string, error) {
	s, ok := t.strategies[currency]
	if !ok {
		return "", errors.Wrap(domain.ErrUnsupportedCurrency, currency.String())
	}

	addr, err := s.Derive(km, path)
	if err != nil {
		return "", errors.Wrapf(err, "derive %s address", currency)
	}
	return addr, nil
}

// keyAtPath walks a BIP44-style path from the master key.
func keyAtPath(km domain.KeyMaterial, path string, params *chaincfg.Params) (*hdkeychain.ExtendedKey, error) {
	seed, err := km.RootSeed()
	if err != nil {
		return nil, err
	}

	steps, err := parsePath(path)
	if err != nil {
		return nil, err
	}

	key, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, errors.Wrap(err, "master key from seed")
	}
	for _, step := range steps {
		if key, err = key.Derive(step); err != nil {
			return nil, errors.Wrapf(err, "derive step %d", step)
		}
	}
	return key, nil
}

func parsePath(path string) ([]uint32, error) {
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] != "m" {
		return nil, errors.Errorf("invalid derivation path %q", path)
	}

	steps := make([]uint32, 0, len(parts)-1)
	for _, part := range parts[1:] {
		hardened := strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h")
		if hardened {
			part = part[:len(part)-1]
		}
		idx, err := strconv.ParseUint(part, 10, 32)
		if err != nil || idx >= hdkeychain.HardenedKeyStart {
			return nil, errors.Errorf("invalid derivation path segment %q", part)
		}
		step := uint32(idx)
		if hardened {
			step += hdkeychain.HardenedKeyStart
		}
		steps = append(steps, step)
	}
	return steps, nil
}
