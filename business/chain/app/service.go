package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dexarb/business/chain/domain"
)

// ChainService coordinates chain access for the other contexts.
type ChainService struct {
	reader  Reader
	gas     GasOracle
	tracker HeadTracker
}

// NewChainService creates a ChainService.
func NewChainService(reader Reader, gas GasOracle, tracker HeadTracker) *ChainService {
	return &ChainService{
		reader:  reader,
		gas:     gas,
		tracker: tracker,
	}
}

// Ping verifies node reachability.
func (s *ChainService) Ping(ctx context.Context) error {
	return s.reader.Ping(ctx)
}

// NativeBalance returns the native balance of an address in wei.
func (s *ChainService) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return s.reader.NativeBalance(ctx, addr)
}

// TokenBalance returns an ERC20 balance.
func (s *ChainService) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return s.reader.TokenBalance(ctx, token, owner)
}

// Allowance returns an ERC20 allowance.
func (s *ChainService) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	return s.reader.Allowance(ctx, token, owner, spender)
}

// GasPrice returns the current suggested gas price.
func (s *ChainService) GasPrice(ctx context.Context) (*domain.GasPrice, error) {
	return s.gas.GasPrice(ctx)
}

// EstimateGas estimates gas for calldata against an address.
func (s *ChainService) EstimateGas(ctx context.Context, data []byte, to common.Address) (uint64, error) {
	return s.gas.EstimateGas(ctx, data, to)
}

// LatestHead returns the most recently observed chain head.
func (s *ChainService) LatestHead() domain.Head {
	return s.tracker.Latest()
}

// ConnectionState returns the head tracker's connectivity state.
func (s *ChainService) ConnectionState() domain.ConnectionState {
	return s.tracker.State()
}
