// Package venue implements the venue bounded context: quoting and swap
// submission across the configured DEX venues.
package venue

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dexarb/business/venue/app"
	venueDI "github.com/fd1az/dexarb/business/venue/di"
	"github.com/fd1az/dexarb/business/venue/infra/sim"
	"github.com/fd1az/dexarb/business/venue/infra/uniswapv2"
	"github.com/fd1az/dexarb/business/venue/infra/uniswapv3"
	"github.com/fd1az/dexarb/internal/config"
	"github.com/fd1az/dexarb/internal/di"
	"github.com/fd1az/dexarb/internal/logger"
	"github.com/fd1az/dexarb/internal/monolith"
)

// Simulated fills shave off 0.1% to keep dry-run results conservative.
var simHaircut = decimal.NewFromFloat(0.001)

// Module implements the venue bounded context. Sender is the optional
// wallet capability; it is required only when dry-run mode is disabled.
type Module struct {
	Sender app.TransactionSender
}

// RegisterServices registers the venue registry with all configured venues.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, venueDI.VenueRegistry, func(sr di.ServiceRegistry) *app.Registry {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)

		registry := app.NewRegistry()

		for _, vc := range cfg.Venues {
			provider, err := newProvider(ethClient, vc, log)
			if err != nil {
				panic(fmt.Sprintf("failed to create provider for venue %s: %v", vc.Name, err))
			}
			registry.RegisterProvider(provider)

			executor, err := m.newExecutor(cfg, vc, provider, log)
			if err != nil {
				panic(fmt.Sprintf("failed to create executor for venue %s: %v", vc.Name, err))
			}
			registry.RegisterExecutor(executor)
		}

		return registry
	})

	return nil
}

func newProvider(client *ethclient.Client, vc config.VenueConfig, log logger.LoggerInterface) (app.QuoteProvider, error) {
	switch vc.Kind {
	case config.VenueKindUniswapV2:
		return uniswapv2.NewProvider(client, vc, log)
	case config.VenueKindUniswapV3:
		return uniswapv3.NewProvider(client, vc, log)
	default:
		return nil, fmt.Errorf("unknown venue kind: %s", vc.Kind)
	}
}

func (m *Module) newExecutor(cfg *config.Config, vc config.VenueConfig, provider app.QuoteProvider, log logger.LoggerInterface) (app.SwapExecutor, error) {
	if cfg.Execution.DryRun {
		return sim.NewExecutor(provider, simHaircut, log), nil
	}

	if m.Sender == nil {
		return nil, fmt.Errorf("live execution requires a transaction sender")
	}

	switch vc.Kind {
	case config.VenueKindUniswapV2:
		return uniswapv2.NewExecutor(provider.ID(), vc.RouterAddressHex(), m.Sender, log)
	case config.VenueKindUniswapV3:
		return uniswapv3.NewExecutor(provider.ID(), vc.RouterAddressHex(), vc.FeeTier, m.Sender, log)
	default:
		return nil, fmt.Errorf("unknown venue kind: %s", vc.Kind)
	}
}

// Startup validates the venue configuration against the running chain.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	registry := venueDI.GetVenueRegistry(mono.Services())
	if registry.Count() < 2 {
		return fmt.Errorf("arbitrage needs at least 2 venues, %d registered", registry.Count())
	}

	log.Info(ctx, "venue module started",
		"venues", registry.Count(),
		"dry_run", mono.Config().Execution.DryRun,
	)
	return nil
}
