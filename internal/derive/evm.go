package derive

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vadiminshakov/chainprobe/internal/domain"
)

// evmChain derives EIP-55 checksummed hex addresses: secp256k1 public key,
// keccak256, last 20 bytes. Shared by ethereum and bnb.
type evmChain struct{}

func (evmChain) Derive(km domain.KeyMaterial, path string) (string, error) {
	key, err := keyAtPath(km, path, &chaincfg.MainNetParams)
	if err != nil {
		return "", err
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return "", err
	}

	return crypto.PubkeyToAddress(priv.ToECDSA().PublicKey).Hex(), nil
}
