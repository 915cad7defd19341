package domain

// Currency identifies a blockchain network by its canonical lowercase name,
// e.g. "bitcoin", "ethereum", "tron".
type Currency string

func (c Currency) String() string {
	return string(c)
}

// TokenConfig describes a secondary token hosted on a base chain.
type TokenConfig struct {
	// Contract is the token contract address (EVM) or mint/asset id.
	Contract string
	// Exponent is the token's decimal exponent (6 for USDT, 18 for most ERC-20).
	Exponent int32
}

// NetworkConfig is the static per-chain configuration, read-only at run time.
type NetworkConfig struct {
	// DerivationPath is the BIP44-style path used to derive the chain address,
	// e.g. "m/44'/0'/0'/0/0".
	DerivationPath string
	// Exponent is the decimal exponent of the chain's native unit
	// (8 for satoshis, 18 for wei).
	Exponent int32
	// Tokens maps secondary-token symbols to their lookup configuration.
	Tokens map[string]TokenConfig
}
