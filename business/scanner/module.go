// Package scanner implements the arbitrage detection bounded context.
package scanner

import (
	"context"

	chainDI "github.com/fd1az/dexarb/business/chain/di"
	"github.com/fd1az/dexarb/business/scanner/app"
	scannerDI "github.com/fd1az/dexarb/business/scanner/di"
	venueDI "github.com/fd1az/dexarb/business/venue/di"
	"github.com/fd1az/dexarb/internal/config"
	"github.com/fd1az/dexarb/internal/di"
	"github.com/fd1az/dexarb/internal/logger"
	"github.com/fd1az/dexarb/internal/monolith"
)

// Module implements the scanner bounded context.
type Module struct{}

// RegisterServices registers the opportunity scanner with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, scannerDI.Scanner, func(sr di.ServiceRegistry) *app.Scanner {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		registry := venueDI.GetVenueRegistry(sr)
		chainSvc := chainDI.GetChainService(sr)

		scannerCfg := app.ScannerConfig{
			MaxPriceImpactPercent: cfg.Arbitrage.MaxPriceImpactPercentDecimal(),
		}

		s, err := app.NewScanner(registry, chainSvc, scannerCfg, log)
		if err != nil {
			panic("failed to create scanner: " + err.Error())
		}
		return s
	})

	return nil
}

// Startup initializes the scanner module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "scanner module started",
		"min_profit_pct", mono.Config().Arbitrage.MinProfitPercent,
		"max_impact_pct", mono.Config().Arbitrage.MaxPriceImpactPercent,
	)
	return nil
}
