// Package chain implements the chain bounded context: node reads, gas
// pricing and head tracking over a shared client.
package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/dexarb/business/chain/app"
	chainDI "github.com/fd1az/dexarb/business/chain/di"
	"github.com/fd1az/dexarb/business/chain/infra/ethereum"
	"github.com/fd1az/dexarb/internal/config"
	"github.com/fd1az/dexarb/internal/di"
	"github.com/fd1az/dexarb/internal/logger"
	"github.com/fd1az/dexarb/internal/monolith"
)

// Module implements the chain bounded context.
type Module struct{}

// RegisterServices registers all chain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, chainDI.Reader, func(sr di.ServiceRegistry) app.Reader {
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)

		reader, err := ethereum.NewReader(client, log)
		if err != nil {
			panic("failed to create chain reader: " + err.Error())
		}
		return reader
	})

	di.RegisterToken(c, chainDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)

		oracle, err := ethereum.NewGasOracle(client, ethereum.DefaultGasOracleConfig(), log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	di.RegisterToken(c, chainDI.HeadTracker, func(sr di.ServiceRegistry) app.HeadTracker {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)

		trackerCfg := ethereum.DefaultHeadTrackerConfig(cfg.Chain.WebSocketURL)
		if cfg.Chain.PollInterval > 0 {
			trackerCfg.PollInterval = cfg.Chain.PollInterval
		}

		tracker, err := ethereum.NewHeadTracker(client, trackerCfg, log)
		if err != nil {
			panic("failed to create head tracker: " + err.Error())
		}
		return tracker
	})

	di.RegisterToken(c, chainDI.ChainService, func(sr di.ServiceRegistry) *app.ChainService {
		reader := chainDI.GetReader(sr)
		oracle := chainDI.GetGasOracle(sr)
		tracker := chainDI.GetHeadTracker(sr)
		return app.NewChainService(reader, oracle, tracker)
	})

	return nil
}

// Startup verifies node reachability and begins head tracking.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	svc := chainDI.GetChainService(mono.Services())

	if err := svc.Ping(ctx); err != nil {
		return err
	}

	tracker := chainDI.GetHeadTracker(mono.Services())
	if err := tracker.Start(ctx); err != nil {
		return err
	}

	log.Info(ctx, "chain module started",
		"chain_id", mono.Config().Chain.ChainID,
	)
	return nil
}
