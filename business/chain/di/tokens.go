// Package di exposes typed DI tokens for the chain context.
package di

import (
	"github.com/fd1az/dexarb/business/chain/app"
	"github.com/fd1az/dexarb/internal/di"
)

// Private services, internal wiring only.
var (
	Reader      = di.NewToken[app.Reader]("chain.Reader")
	GasOracle   = di.NewToken[app.GasOracle]("chain.GasOracle")
	HeadTracker = di.NewToken[app.HeadTracker]("chain.HeadTracker")
)

// Public services exposed to other modules.
var (
	ChainService = di.NewToken[*app.ChainService]("chain.ChainService")
)

// GetReader resolves the chain reader.
func GetReader(c di.ServiceRegistry) app.Reader {
	return di.GetToken(c, Reader)
}

// GetGasOracle resolves the gas oracle.
func GetGasOracle(c di.ServiceRegistry) app.GasOracle {
	return di.GetToken(c, GasOracle)
}

// GetHeadTracker resolves the head tracker.
func GetHeadTracker(c di.ServiceRegistry) app.HeadTracker {
	return di.GetToken(c, HeadTracker)
}

// GetChainService resolves the chain service.
func GetChainService(c di.ServiceRegistry) *app.ChainService {
	return di.GetToken(c, ChainService)
}
