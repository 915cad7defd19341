package derive

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/chainprobe/internal/domain"
)

// solanaChain derives an ed25519 keypair via SLIP-0010 at the configured
// path (wallets use m/44'/501'/0'/0') and encodes the public key as base58.
type solanaChain struct{}

func (solanaChain) Derive(km domain.KeyMaterial, path string) (string, error) {
	seed, err := km.RootSeed()
	if err != nil {
		return "", err
	}

	steps, err := parsePath(path)
	if err != nil {
		return "", err
	}

	key, err := slip10Derive(seed, steps)
	if err != nil {
		return "", err
	}

	priv := ed25519.NewKeyFromSeed(key)
	return base58.Encode(priv.Public().(ed25519.PublicKey)), nil
}

// slip10Derive walks the SLIP-0010 ed25519 tree: HMAC-SHA512 from the
// "ed25519 seed" master key, hardened child steps only.
func slip10Derive(seed []byte, steps []uint32) ([]byte, error) {
	mac := hmac.New(sha512.New, []byte("ed25519 seed"))
	mac.Write(seed)
	sum := mac.Sum(nil)
	key, chain := sum[:32], sum[32:]

	for _, step := range steps {
		if step < hdkeychain.HardenedKeyStart {
			return nil, errors.Errorf("ed25519 derivation step %d is not hardened", step)
		}

		data := make([]byte, 0, 37)
		data = append(data, 0x00)
		data = append(data, key...)
		data = binary.BigEndian.AppendUint32(data, step)

		mac = hmac.New(sha512.New, chain)
		mac.Write(data)
		sum = mac.Sum(nil)
		key, chain = sum[:32], sum[32:]
	}

	return key, nil
}
