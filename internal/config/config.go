// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Venues    []VenueConfig   `mapstructure:"venues"`
	Tokens    TokensConfig    `mapstructure:"tokens"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Bot       BotConfig       `mapstructure:"bot"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// ChainConfig holds chain node configuration.
type ChainConfig struct {
	HTTPURL        string        `mapstructure:"http_url"`
	WebSocketURL   string        `mapstructure:"websocket_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
}

// VenueKind identifies the adapter implementation for a venue.
type VenueKind string

const (
	VenueKindUniswapV2 VenueKind = "uniswap_v2"
	VenueKindUniswapV3 VenueKind = "uniswap_v3"
)

// VenueConfig describes one DEX venue on the configured chain.
type VenueConfig struct {
	Name            string    `mapstructure:"name"`
	Kind            VenueKind `mapstructure:"kind"`
	RouterAddress   string    `mapstructure:"router_address"`
	FactoryAddress  string    `mapstructure:"factory_address"`
	QuoterAddress   string    `mapstructure:"quoter_address"`   // v3 only
	FeeTier         int       `mapstructure:"fee_tier"`         // v3 only, hundredths of a bip
	FeePercent      float64   `mapstructure:"fee_percent"`      // v2 swap fee, e.g. 0.3
	RequestsPerMin  int       `mapstructure:"requests_per_min"` // adapter rate limit
}

// RouterAddressHex returns the router address as common.Address.
func (c *VenueConfig) RouterAddressHex() common.Address {
	return common.HexToAddress(c.RouterAddress)
}

// FactoryAddressHex returns the factory address as common.Address.
func (c *VenueConfig) FactoryAddressHex() common.Address {
	return common.HexToAddress(c.FactoryAddress)
}

// QuoterAddressHex returns the quoter address as common.Address.
func (c *VenueConfig) QuoterAddressHex() common.Address {
	return common.HexToAddress(c.QuoterAddress)
}

// TokenConfig describes a custom token to register at startup.
type TokenConfig struct {
	Address  string `mapstructure:"address"`
	Symbol   string `mapstructure:"symbol"`
	Name     string `mapstructure:"name"`
	Decimals uint8  `mapstructure:"decimals"`
}

// TokensConfig selects the traded pair and any custom token definitions.
type TokensConfig struct {
	Base   string        `mapstructure:"base"`  // token being arbitraged, e.g. WETH
	Quote  string        `mapstructure:"quote"` // funding token, e.g. USDC
	Custom []TokenConfig `mapstructure:"custom"`
}

// ArbitrageConfig holds detection thresholds.
type ArbitrageConfig struct {
	ReferenceTradeSize    string        `mapstructure:"reference_trade_size"` // whole base-token units
	MinProfitPercent      float64       `mapstructure:"min_profit_percent"`
	MaxPriceImpactPercent float64       `mapstructure:"max_price_impact_percent"`
	MaxQuoteAge           time.Duration `mapstructure:"max_quote_age"`
}

// MinProfitPercentDecimal returns the threshold as decimal.Decimal.
func (c *ArbitrageConfig) MinProfitPercentDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitPercent)
}

// MaxPriceImpactPercentDecimal returns the impact cap as decimal.Decimal.
func (c *ArbitrageConfig) MaxPriceImpactPercentDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxPriceImpactPercent)
}

// ExecutionConfig holds trade execution settings.
type ExecutionConfig struct {
	FundingAmount            string        `mapstructure:"funding_amount"` // whole quote-token units per attempt
	SlippageTolerancePercent float64       `mapstructure:"slippage_tolerance_percent"`
	GasReserveFloorWei       string        `mapstructure:"gas_reserve_floor_wei"`
	WalletAddress            string        `mapstructure:"wallet_address"`
	ConfirmationTimeout      time.Duration `mapstructure:"confirmation_timeout"`
	DryRun                   bool          `mapstructure:"dry_run"`
}

// SlippageToleranceFraction returns the tolerance as a fraction (0.5% -> 0.005).
func (c *ExecutionConfig) SlippageToleranceFraction() decimal.Decimal {
	return decimal.NewFromFloat(c.SlippageTolerancePercent).Div(decimal.NewFromInt(100))
}

// GasReserveFloor returns the native-currency floor in wei.
func (c *ExecutionConfig) GasReserveFloor() (*big.Int, error) {
	floor, ok := new(big.Int).SetString(c.GasReserveFloorWei, 10)
	if !ok {
		return nil, fmt.Errorf("invalid execution.gas_reserve_floor_wei: %q", c.GasReserveFloorWei)
	}
	return floor, nil
}

// WalletAddressHex returns the recipient wallet address.
func (c *ExecutionConfig) WalletAddressHex() common.Address {
	return common.HexToAddress(c.WalletAddress)
}

// BotConfig holds the supervising loop settings.
type BotConfig struct {
	ScanInterval           time.Duration `mapstructure:"scan_interval"`
	HealthCheckInterval    time.Duration `mapstructure:"health_check_interval"`
	MaxConcurrentTrades    int64         `mapstructure:"max_concurrent_trades"`
	MaxConsecutiveFailures int           `mapstructure:"max_consecutive_failures"`
}

// NotifyConfig holds notification sink settings.
type NotifyConfig struct {
	Console          bool   `mapstructure:"console"`
	TelegramToken    string `mapstructure:"telegram_token"`
	TelegramChatID   string `mapstructure:"telegram_chat_id"`
	WebSocketPushURL string `mapstructure:"websocket_push_url"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
	HealthPort     int    `mapstructure:"health_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ARB")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Config file is optional: env vars can carry everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	// Chain
	v.BindEnv("chain.http_url", "ARB_CHAIN_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("chain.websocket_url", "ARB_CHAIN_WS_URL", "ETH_WS_URL")
	v.BindEnv("chain.chain_id", "ARB_CHAIN_ID", "ETH_CHAIN_ID")

	// Arbitrage
	v.BindEnv("arbitrage.min_profit_percent", "ARB_MIN_PROFIT_PERCENT")
	v.BindEnv("arbitrage.max_price_impact_percent", "ARB_MAX_PRICE_IMPACT_PERCENT")
	v.BindEnv("arbitrage.reference_trade_size", "ARB_REFERENCE_TRADE_SIZE")

	// Execution
	v.BindEnv("execution.wallet_address", "ARB_WALLET_ADDRESS", "WALLET_ADDRESS")
	v.BindEnv("execution.dry_run", "ARB_DRY_RUN")
	v.BindEnv("execution.slippage_tolerance_percent", "ARB_SLIPPAGE_TOLERANCE_PERCENT")

	// Notify
	v.BindEnv("notify.telegram_token", "ARB_TELEGRAM_TOKEN", "TELEGRAM_TOKEN")
	v.BindEnv("notify.telegram_chat_id", "ARB_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")
	v.BindEnv("notify.websocket_push_url", "ARB_WS_PUSH_URL")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "dexarb")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Chain defaults
	v.SetDefault("chain.chain_id", 1)
	v.SetDefault("chain.request_timeout", "5s")
	v.SetDefault("chain.poll_interval", "12s") // ~1 block time

	// Token defaults
	v.SetDefault("tokens.base", "WETH")
	v.SetDefault("tokens.quote", "USDC")

	// Arbitrage defaults
	v.SetDefault("arbitrage.reference_trade_size", "1")
	v.SetDefault("arbitrage.min_profit_percent", 0.3)
	v.SetDefault("arbitrage.max_price_impact_percent", 1.0)
	v.SetDefault("arbitrage.max_quote_age", "10s")

	// Execution defaults
	v.SetDefault("execution.funding_amount", "1000")
	v.SetDefault("execution.slippage_tolerance_percent", 0.5)
	v.SetDefault("execution.gas_reserve_floor_wei", "50000000000000000") // 0.05 ETH
	v.SetDefault("execution.confirmation_timeout", "90s")
	v.SetDefault("execution.dry_run", true)

	// Bot defaults
	v.SetDefault("bot.scan_interval", "15s")
	v.SetDefault("bot.health_check_interval", "60s")
	v.SetDefault("bot.max_concurrent_trades", 1)
	v.SetDefault("bot.max_consecutive_failures", 3)

	// Notify defaults
	v.SetDefault("notify.console", true)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "dexarb")
	v.SetDefault("telemetry.prometheus_port", 9090)
	v.SetDefault("telemetry.health_port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Chain.HTTPURL == "" {
		return fmt.Errorf("chain.http_url is required")
	}
	if len(c.Venues) < 2 {
		return fmt.Errorf("at least 2 venues are required, got %d", len(c.Venues))
	}

	seen := make(map[string]bool, len(c.Venues))
	for i := range c.Venues {
		venue := &c.Venues[i]
		if venue.Name == "" {
			return fmt.Errorf("venues[%d].name is required", i)
		}
		if seen[venue.Name] {
			return fmt.Errorf("duplicate venue name: %s", venue.Name)
		}
		seen[venue.Name] = true

		switch venue.Kind {
		case VenueKindUniswapV2:
			if !common.IsHexAddress(venue.RouterAddress) {
				return fmt.Errorf("venue %s: invalid router_address: %s", venue.Name, venue.RouterAddress)
			}
			if !common.IsHexAddress(venue.FactoryAddress) {
				return fmt.Errorf("venue %s: invalid factory_address: %s", venue.Name, venue.FactoryAddress)
			}
		case VenueKindUniswapV3:
			if !common.IsHexAddress(venue.QuoterAddress) {
				return fmt.Errorf("venue %s: invalid quoter_address: %s", venue.Name, venue.QuoterAddress)
			}
			if !common.IsHexAddress(venue.RouterAddress) {
				return fmt.Errorf("venue %s: invalid router_address: %s", venue.Name, venue.RouterAddress)
			}
		default:
			return fmt.Errorf("venue %s: unknown kind: %s", venue.Name, venue.Kind)
		}
	}

	if c.Tokens.Base == "" || c.Tokens.Quote == "" {
		return fmt.Errorf("tokens.base and tokens.quote are required")
	}
	if c.Tokens.Base == c.Tokens.Quote {
		return fmt.Errorf("tokens.base and tokens.quote must differ")
	}

	if c.Arbitrage.MinProfitPercent < 0 {
		return fmt.Errorf("arbitrage.min_profit_percent cannot be negative")
	}
	if c.Arbitrage.MaxPriceImpactPercent <= 0 {
		return fmt.Errorf("arbitrage.max_price_impact_percent must be positive")
	}

	if c.Execution.SlippageTolerancePercent < 0 || c.Execution.SlippageTolerancePercent >= 100 {
		return fmt.Errorf("execution.slippage_tolerance_percent must be in [0, 100)")
	}
	if _, err := c.Execution.GasReserveFloor(); err != nil {
		return err
	}
	if !c.Execution.DryRun && !common.IsHexAddress(c.Execution.WalletAddress) {
		return fmt.Errorf("execution.wallet_address is required when dry_run is disabled")
	}

	if c.Bot.MaxConcurrentTrades < 1 {
		return fmt.Errorf("bot.max_concurrent_trades must be at least 1")
	}
	if c.Bot.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("bot.max_consecutive_failures must be at least 1")
	}

	return nil
}
