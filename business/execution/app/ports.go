// Package app contains the precondition checker and trade executor for
// the execution context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ChainReader is the read-only chain surface the precondition checks need.
type ChainReader interface {
	Ping(ctx context.Context) error
	NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}
