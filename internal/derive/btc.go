package derive

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/vadiminshakov/chainprobe/internal/domain"
)

// btcFamily covers bitcoin-lineage chains that share BIP44 derivation and
// base58check P2PKH encoding, differing only in network parameters.
type btcFamily struct {
	params *chaincfg.Params
}

func (b btcFamily) Derive(km domain.KeyMaterial, path string) (string, error) {
	key, err := keyAtPath(km, path, b.params)
	if err != nil {
		return "", err
	}

	addr, err := key.Address(b.params)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}
