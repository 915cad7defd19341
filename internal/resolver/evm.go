package resolver

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/chainprobe/internal/domain"
)

// erc20BalanceOf is the 4-byte selector of balanceOf(address).
var erc20BalanceOf = []byte{0x70, 0xa0, 0x82, 0x31}

type evmClient interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	Close()
}

// EVMAccess answers balance queries over an EVM JSON-RPC endpoint instead of
// a flat REST call: native balances via eth_getBalance, token balances via an
// ERC-20 balanceOf contract read. The provider's URL template holds the bare
// RPC endpoint.
type EVMAccess struct {
	dial func(ctx context.Context, rawurl string) (evmClient, error)
}

// NewEVMAccess creates the RPC-backed ChainAccess.
func NewEVMAccess() *EVMAccess {
	return &EVMAccess{
		dial: func(ctx context.Context, rawurl string) (evmClient, error) {
			return ethclient.DialContext(ctx, rawurl)
		},
	}
}

func (a *EVMAccess) NativeBalance(ctx context.Context, p domain.ProviderDescriptor, address string) (*big.Int, error) {
	client, err := a.dial(ctx, p.URLTemplate)
	if err != nil {
		return nil, errors.Wrapf(err, "dial rpc provider %s", p.Name)
	}
	defer client.Close()

	balance, err := client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "provider %s", p.Name)
	}
	return balance, nil
}

func (a *EVMAccess) TokenBalance(ctx context.Context, p domain.ProviderDescriptor, address string, token domain.TokenConfig) (*big.Int, error) {
	client, err := a.dial(ctx, p.URLTemplate)
	if err != nil {
		return nil, errors.Wrapf(err, "dial rpc provider %s", p.Name)
	}
	defer client.Close()

	contract := common.HexToAddress(token.Contract)
	data := make([]byte, 0, 36)
	data = append(data, erc20BalanceOf...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(address).Bytes(), 32)...)

	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "provider %s balanceOf", p.Name)
	}
	return new(big.Int).SetBytes(out), nil
}
