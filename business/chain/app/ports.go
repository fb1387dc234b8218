// Package app contains application services and port definitions for the chain context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dexarb/business/chain/domain"
)

// Reader provides the read-only chain queries the core needs.
type Reader interface {
	// Ping verifies node reachability with a cheap call.
	Ping(ctx context.Context) error

	// NativeBalance returns the native-currency balance of an address in wei.
	NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error)

	// TokenBalance returns the ERC20 balance of owner for a token contract.
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)

	// Allowance returns the ERC20 allowance granted by owner to spender.
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}

// GasOracle provides gas price information.
type GasOracle interface {
	// GasPrice retrieves the current suggested gas price.
	GasPrice(ctx context.Context) (*domain.GasPrice, error)

	// EstimateGas estimates the gas needed for calldata against an address.
	EstimateGas(ctx context.Context, data []byte, to common.Address) (uint64, error)
}

// HeadTracker follows the chain head.
type HeadTracker interface {
	// Start begins tracking. Non-blocking; tracking stops when ctx ends.
	Start(ctx context.Context) error

	// Latest returns the most recently observed head (zero before the first poll).
	Latest() domain.Head

	// State returns the tracker's connectivity state.
	State() domain.ConnectionState
}
