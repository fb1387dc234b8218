// Package bot implements the supervising loop bounded context.
package bot

import (
	"context"
	"fmt"

	botDI "github.com/fd1az/dexarb/business/bot/di"
	"github.com/fd1az/dexarb/business/bot/infra"
	executionApp "github.com/fd1az/dexarb/business/execution/app"
	executionDI "github.com/fd1az/dexarb/business/execution/di"
	scannerDI "github.com/fd1az/dexarb/business/scanner/di"
	venueDomain "github.com/fd1az/dexarb/business/venue/domain"
	"github.com/fd1az/dexarb/internal/asset"

	"github.com/fd1az/dexarb/business/bot/app"
	"github.com/fd1az/dexarb/internal/config"
	"github.com/fd1az/dexarb/internal/di"
	"github.com/fd1az/dexarb/internal/logger"
	"github.com/fd1az/dexarb/internal/monolith"
)

// Module implements the bot bounded context.
type Module struct{}

// RegisterServices registers the health state, notifier, and loop.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, botDI.HealthState, func(sr di.ServiceRegistry) *app.HealthState {
		cfg := sr.Get("config").(*config.Config)
		return app.NewHealthState(cfg.Bot.MaxConsecutiveFailures)
	})

	di.RegisterToken(c, botDI.Broadcaster, func(sr di.ServiceRegistry) *app.Broadcaster {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewBroadcaster(log, buildSenders(cfg, log)...)
	})

	di.RegisterToken(c, botDI.Loop, func(sr di.ServiceRegistry) *app.Loop {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		assets := sr.Get("assetRegistry").(*asset.Registry)

		loopCfg, err := buildLoopConfig(cfg, assets)
		if err != nil {
			panic("invalid bot configuration: " + err.Error())
		}

		loop, err := app.NewLoop(
			scannerDI.GetScanner(sr),
			executionDI.GetExecutor(sr),
			executionDI.GetPreconditionChecker(sr),
			botDI.GetHealthState(sr),
			botDI.GetBroadcaster(sr),
			loopCfg,
			log,
		)
		if err != nil {
			panic("failed to create loop: " + err.Error())
		}
		return loop
	})

	return nil
}

// Startup resolves the loop so configuration errors surface at boot
// instead of on the first tick.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	_ = botDI.GetLoop(mono.Services())

	mono.Logger().Info(ctx, "bot module started",
		"pair", fmt.Sprintf("%s/%s", mono.Config().Tokens.Base, mono.Config().Tokens.Quote),
		"scan_interval", mono.Config().Bot.ScanInterval,
		"max_concurrent", mono.Config().Bot.MaxConcurrentTrades,
		"dry_run", mono.Config().Execution.DryRun,
	)
	return nil
}

func buildLoopConfig(cfg *config.Config, assets *asset.Registry) (app.LoopConfig, error) {
	base, ok := assets.GetBySymbolAndChain(cfg.Tokens.Base, cfg.Chain.ChainID)
	if !ok {
		return app.LoopConfig{}, fmt.Errorf("unknown base token %q on chain %d", cfg.Tokens.Base, cfg.Chain.ChainID)
	}
	quote, ok := assets.GetBySymbolAndChain(cfg.Tokens.Quote, cfg.Chain.ChainID)
	if !ok {
		return app.LoopConfig{}, fmt.Errorf("unknown quote token %q on chain %d", cfg.Tokens.Quote, cfg.Chain.ChainID)
	}

	pair, err := venueDomain.NewPair(base, quote)
	if err != nil {
		return app.LoopConfig{}, err
	}

	reference, err := asset.ParseString(base, cfg.Arbitrage.ReferenceTradeSize)
	if err != nil {
		return app.LoopConfig{}, fmt.Errorf("arbitrage.reference_trade_size: %w", err)
	}
	funding, err := asset.ParseString(quote, cfg.Execution.FundingAmount)
	if err != nil {
		return app.LoopConfig{}, fmt.Errorf("execution.funding_amount: %w", err)
	}

	// Both legs spend through venue routers: the quote token funds the buy
	// leg and the base token is sold on the sell leg.
	var allowances []executionApp.AllowanceRequirement
	for i := range cfg.Venues {
		router := cfg.Venues[i].RouterAddressHex()
		allowances = append(allowances,
			executionApp.AllowanceRequirement{Token: quote.Address(), Spender: router, Minimum: funding.Raw()},
			executionApp.AllowanceRequirement{Token: base.Address(), Spender: router, Minimum: reference.Raw()},
		)
	}

	return app.LoopConfig{
		Pair:                pair,
		ReferenceAmount:     reference,
		FundingAmount:       funding,
		MinProfitPercent:    cfg.Arbitrage.MinProfitPercentDecimal(),
		MaxConcurrentTrades: cfg.Bot.MaxConcurrentTrades,
		ScanInterval:        cfg.Bot.ScanInterval,
		HealthCheckInterval: cfg.Bot.HealthCheckInterval,
		Allowances:          allowances,
	}, nil
}

func buildSenders(cfg *config.Config, log logger.LoggerInterface) []app.Sender {
	senders := []app.Sender{infra.NewLogSender(log)}
	if cfg.Notify.Console {
		senders = append(senders, infra.NewConsoleSender())
	}
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, infra.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.WebSocketPushURL != "" {
		senders = append(senders, infra.NewWebSocketSender(cfg.Notify.WebSocketPushURL))
	}
	return senders
}
