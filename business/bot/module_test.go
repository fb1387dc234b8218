package bot

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dexarb/internal/asset"
	"github.com/fd1az/dexarb/internal/config"
)

func loopConfigFixtures() (*config.Config, *asset.Registry) {
	cfg := &config.Config{
		Chain: config.ChainConfig{ChainID: 1},
		Venues: []config.VenueConfig{
			{Name: "uniswap_v2", Kind: config.VenueKindUniswapV2, RouterAddress: "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"},
			{Name: "uniswap_v3", Kind: config.VenueKindUniswapV3, RouterAddress: "0xE592427A0AEce92De3Edee1F18E0157C05861564"},
		},
		Tokens: config.TokensConfig{Base: "WETH", Quote: "USDC"},
		Arbitrage: config.ArbitrageConfig{
			ReferenceTradeSize: "1.0",
			MinProfitPercent:   0.3,
		},
		Execution: config.ExecutionConfig{FundingAmount: "1000"},
		Bot: config.BotConfig{
			ScanInterval:        2 * time.Second,
			HealthCheckInterval: 30 * time.Second,
			MaxConcurrentTrades: 2,
		},
	}

	registry := asset.NewRegistry()
	registry.Register(asset.MustNewToken(1,
		common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), "WETH", "Wrapped Ether", 18))
	registry.Register(asset.MustNewToken(1,
		common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), "USDC", "USD Coin", 6))
	return cfg, registry
}

func TestBuildLoopConfig_AllowancesPerRouter(t *testing.T) {
	cfg, registry := loopConfigFixtures()

	lc, err := buildLoopConfig(cfg, registry)
	if err != nil {
		t.Fatalf("buildLoopConfig: %v", err)
	}

	// One quote-token and one base-token allowance per venue router.
	if got, want := len(lc.Allowances), 2*len(cfg.Venues); got != want {
		t.Fatalf("allowances: got %d, want %d", got, want)
	}

	base, _ := registry.GetBySymbolAndChain("WETH", 1)
	quote, _ := registry.GetBySymbolAndChain("USDC", 1)
	wantFunding := new(big.Int).Mul(big.NewInt(1000), big.NewInt(1_000_000)) // 1000 USDC in 6 decimals
	wantReference, _ := new(big.Int).SetString("1000000000000000000", 10)    // 1 WETH in 18 decimals

	for i := range cfg.Venues {
		router := cfg.Venues[i].RouterAddressHex()
		q := lc.Allowances[2*i]
		b := lc.Allowances[2*i+1]

		if q.Token != quote.Address() {
			t.Errorf("venue %d: quote allowance token = %s, want %s", i, q.Token, quote.Address())
		}
		if q.Spender != router || b.Spender != router {
			t.Errorf("venue %d: spender mismatch, want router %s", i, router)
		}
		if q.Minimum.Cmp(wantFunding) != 0 {
			t.Errorf("venue %d: funding minimum = %s, want %s", i, q.Minimum, wantFunding)
		}
		if b.Token != base.Address() {
			t.Errorf("venue %d: base allowance token = %s, want %s", i, b.Token, base.Address())
		}
		if b.Minimum.Cmp(wantReference) != 0 {
			t.Errorf("venue %d: reference minimum = %s, want %s", i, b.Minimum, wantReference)
		}
	}

	if lc.Pair.Base.Symbol() != "WETH" || lc.Pair.Quote.Symbol() != "USDC" {
		t.Errorf("pair = %s/%s, want WETH/USDC", lc.Pair.Base.Symbol(), lc.Pair.Quote.Symbol())
	}
	if lc.MaxConcurrentTrades != 2 {
		t.Errorf("max concurrent = %d, want 2", lc.MaxConcurrentTrades)
	}
}

func TestBuildLoopConfig_UnknownTokenFails(t *testing.T) {
	cfg, registry := loopConfigFixtures()
	cfg.Tokens.Base = "WBTC"

	if _, err := buildLoopConfig(cfg, registry); err == nil {
		t.Fatal("expected error for token missing from the registry")
	}
}
