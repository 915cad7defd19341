package domain

import (
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
)

// KeyMaterial is the root secret from which per-chain addresses are derived.
// Either Seed or Mnemonic must be set; when both are present Seed wins.
type KeyMaterial struct {
	Seed     []byte
	Mnemonic string
}

// RootSeed returns the BIP39 seed bytes, deriving them from the mnemonic
// when no explicit seed was supplied.
func (k KeyMaterial) RootSeed() ([]byte, error) {
	if len(k.Seed) > 0 {
		return k.Seed, nil
	}
	if k.Mnemonic == "" {
		return nil, errors.New("key material has neither seed nor mnemonic")
	}
	if !bip39.IsMnemonicValid(k.Mnemonic) {
		return nil, errors.New("invalid mnemonic phrase")
	}
	return bip39.NewSeed(k.Mnemonic, ""), nil
}
