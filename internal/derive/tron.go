package derive

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
	"github.com/vadiminshakov/chainprobe/internal/domain"
)

const tronAddressPrefix = 0x41

// tronChain uses the EVM keccak pubkey hash prefixed with 0x41 and encoded
// as base58check, yielding the familiar T-addresses.
type tronChain struct{}

func (tronChain) Derive(km domain.KeyMaterial, path string) (string, error) {
	key, err := keyAtPath(km, path, &chaincfg.MainNetParams)
	if err != nil {
		return "", err
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return "", err
	}

	pub := crypto.FromECDSAPub(&priv.ToECDSA().PublicKey)
	hash := crypto.Keccak256(pub[1:])

	payload := append([]byte{tronAddressPrefix}, hash[12:]...)
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])

	return base58.Encode(append(payload, second[:4]...)), nil
}
