// Package execution implements the trade execution bounded context.
package execution

import (
	"context"
	"fmt"

	chainDI "github.com/fd1az/dexarb/business/chain/di"
	"github.com/fd1az/dexarb/business/execution/app"
	executionDI "github.com/fd1az/dexarb/business/execution/di"
	venueDI "github.com/fd1az/dexarb/business/venue/di"
	"github.com/fd1az/dexarb/internal/config"
	"github.com/fd1az/dexarb/internal/di"
	"github.com/fd1az/dexarb/internal/logger"
	"github.com/fd1az/dexarb/internal/monolith"
)

// Module implements the execution bounded context.
type Module struct{}

// RegisterServices registers the executor and precondition checker.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, executionDI.PreconditionChecker, func(sr di.ServiceRegistry) *app.PreconditionChecker {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		chainSvc := chainDI.GetChainService(sr)

		floor, err := cfg.Execution.GasReserveFloor()
		if err != nil {
			panic(fmt.Sprintf("invalid gas reserve floor: %v", err))
		}

		return app.NewPreconditionChecker(chainSvc, cfg.Execution.WalletAddressHex(), floor, log)
	})

	di.RegisterToken(c, executionDI.Executor, func(sr di.ServiceRegistry) *app.Executor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		registry := venueDI.GetVenueRegistry(sr)

		execCfg := app.ExecutorConfig{
			SlippageTolerance:   cfg.Execution.SlippageToleranceFraction(),
			MaxQuoteAge:         cfg.Arbitrage.MaxQuoteAge,
			ConfirmationTimeout: cfg.Execution.ConfirmationTimeout,
			Wallet:              cfg.Execution.WalletAddressHex(),
		}

		executor, err := app.NewExecutor(registry, execCfg, log)
		if err != nil {
			panic("failed to create executor: " + err.Error())
		}
		return executor
	})

	return nil
}

// Startup initializes the execution module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "execution module started",
		"slippage_pct", mono.Config().Execution.SlippageTolerancePercent,
		"dry_run", mono.Config().Execution.DryRun,
	)
	return nil
}
