package domain

import "math/big"

// BalanceResult holds balances discovered for one address. Amounts are always
// arbitrary-precision integers in the asset's smallest indivisible unit
// (satoshis, wei, lamports); conversion to human-readable or USD values
// happens only at the boundary.
type BalanceResult struct {
	Native *big.Int
	// Tokens maps secondary-token symbols to strictly positive balances.
	// Zero token balances are never recorded.
	Tokens map[string]*big.Int
}

// ZeroBalance returns an empty result with a zero native balance.
func ZeroBalance() BalanceResult {
	return BalanceResult{Native: new(big.Int)}
}

// IsZero reports whether the result carries no funds at all.
func (b BalanceResult) IsZero() bool {
	return (b.Native == nil || b.Native.Sign() == 0) && len(b.Tokens) == 0
}

// AddToken records a token balance, ignoring nil, zero and negative amounts.
func (b *BalanceResult) AddToken(symbol string, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	if b.Tokens == nil {
		b.Tokens = make(map[string]*big.Int)
	}
	b.Tokens[symbol] = amount
}
