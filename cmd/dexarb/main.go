// Package main is the entry point for the DEX arbitrage bot.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fd1az/dexarb/business/bot"
	botDI "github.com/fd1az/dexarb/business/bot/di"
	"github.com/fd1az/dexarb/business/chain"
	chainDI "github.com/fd1az/dexarb/business/chain/di"
	"github.com/fd1az/dexarb/business/execution"
	"github.com/fd1az/dexarb/business/scanner"
	"github.com/fd1az/dexarb/business/venue"
	"github.com/fd1az/dexarb/internal/apm"
	"github.com/fd1az/dexarb/internal/config"
	"github.com/fd1az/dexarb/internal/health"
	"github.com/fd1az/dexarb/internal/logger"
	"github.com/fd1az/dexarb/internal/metrics"
	"github.com/fd1az/dexarb/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env if present, ignore when absent.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dexarb %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	log := logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
	log.Info(ctx, "starting dexarb",
		"version", version,
		"environment", cfg.App.Environment,
		"chain_id", cfg.Chain.ChainID,
		"dry_run", cfg.Execution.DryRun,
	)

	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}

		traceProvider = apm.NewTraceProvider(
			apm.WithServiceName(cfg.Telemetry.ServiceName),
			apm.WithProvider(apm.ZipkinProvider, cfg.Telemetry.OTLPEndpoint, log),
		)
		log.Info(ctx, "tracing initialized", "endpoint", cfg.Telemetry.OTLPEndpoint)

		if _, err := metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.NewPrometheusConfig()),
		); err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Dependency order: chain provides the shared client reads, venue the
	// quoting surface, scanner and execution sit on both, bot supervises.
	modules := []monolith.Module{
		&chain.Module{},
		&venue.Module{},
		&scanner.Module{},
		&execution.Module{},
		&bot.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	healthPort := cfg.Telemetry.HealthPort
	if healthPort == 0 {
		healthPort = 8081
	}
	healthServer := health.NewServer(healthPort, version, log)
	healthServer.RegisterCheck("chain", func(ctx context.Context) (bool, string) {
		if err := chainDI.GetChainService(mono.Services()).Ping(ctx); err != nil {
			return false, err.Error()
		}
		return true, "node reachable"
	})
	healthServer.RegisterCheck("gas", func(ctx context.Context) (bool, string) {
		price, err := chainDI.GetChainService(mono.Services()).GasPrice(ctx)
		if err != nil {
			return false, err.Error()
		}
		return true, fmt.Sprintf("%.2f gwei", price.Gwei())
	})
	healthServer.RegisterCheck("bot", func(ctx context.Context) (bool, string) {
		snap := botDI.GetHealthState(mono.Services()).Snapshot()
		if !snap.Healthy {
			return false, fmt.Sprintf("suspended after %d consecutive failure points", snap.ConsecutiveFailures)
		}
		return true, "scanning"
	})
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", healthPort)
	}
	defer healthServer.Stop(ctx)

	loop := botDI.GetLoop(mono.Services())

	errCh := make(chan error, 1)
	go func() {
		errCh <- loop.Run(ctx)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("bot loop exited: %w", err)
		}
	}

	log.Info(ctx, "shutting down")
	return nil
}
