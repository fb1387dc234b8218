// Package uniswapv2 implements venue quoting and swapping against a
// Uniswap V2 style constant-product DEX.
package uniswapv2

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dexarb/business/venue/app"
	"github.com/fd1az/dexarb/business/venue/domain"
	"github.com/fd1az/dexarb/business/venue/infra/evm"
	"github.com/fd1az/dexarb/internal/apperror"
	"github.com/fd1az/dexarb/internal/asset"
	"github.com/fd1az/dexarb/internal/cache"
	"github.com/fd1az/dexarb/internal/circuitbreaker"
	"github.com/fd1az/dexarb/internal/config"
	"github.com/fd1az/dexarb/internal/logger"
	"github.com/fd1az/dexarb/internal/ratelimit"
	"github.com/fd1az/dexarb/internal/retry"
)

const (
	tracerName = "github.com/fd1az/dexarb/business/venue/infra/uniswapv2"
	meterName  = "github.com/fd1az/dexarb/business/venue/infra/uniswapv2"

	// Default swap gas for a single-hop V2 trade.
	defaultSwapGas = 150000
)

var _ app.QuoteProvider = (*Provider)(nil)

var hundred = decimal.NewFromInt(100)

// providerMetrics holds OTEL metric instruments.
type providerMetrics struct {
	quotesTotal  metric.Int64Counter
	quoteErrors  metric.Int64Counter
	quoteLatency metric.Float64Histogram
}

// Provider quotes swaps using pair reserves and the router's getAmountsOut.
type Provider struct {
	venueID domain.VenueID
	client  *ethclient.Client
	router  common.Address
	factory common.Address
	fee     decimal.Decimal // swap fee as a fraction, e.g. 0.003

	factoryABI abi.ABI
	pairABI    abi.ABI
	routerABI  abi.ABI

	pairCache *cache.Cache[string, common.Address]
	cb        *circuitbreaker.CircuitBreaker[[]byte]
	limiter   *ratelimit.Limiter
	retryPol  retry.Policy
	logger    logger.LoggerInterface

	tracer  trace.Tracer
	metrics *providerMetrics
}

// NewProvider creates a Uniswap V2 venue provider.
func NewProvider(client *ethclient.Client, cfg config.VenueConfig, log logger.LoggerInterface) (*Provider, error) {
	factoryABI, err := abi.JSON(strings.NewReader(FactoryABI))
	if err != nil {
		return nil, fmt.Errorf("parse factory ABI: %w", err)
	}
	pairABI, err := abi.JSON(strings.NewReader(PairABI))
	if err != nil {
		return nil, fmt.Errorf("parse pair ABI: %w", err)
	}
	routerABI, err := abi.JSON(strings.NewReader(RouterABI))
	if err != nil {
		return nil, fmt.Errorf("parse router ABI: %w", err)
	}

	feePercent := cfg.FeePercent
	if feePercent <= 0 {
		feePercent = 0.3
	}

	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = 300
	}

	p := &Provider{
		venueID:    domain.VenueID(cfg.Name),
		client:     client,
		router:     cfg.RouterAddressHex(),
		factory:    cfg.FactoryAddressHex(),
		fee:        decimal.NewFromFloat(feePercent).Div(hundred),
		factoryABI: factoryABI,
		pairABI:    pairABI,
		routerABI:  routerABI,
		pairCache:  cache.New[string, common.Address](10 * time.Minute),
		cb:         circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig(cfg.Name + "-quoter")),
		limiter:    ratelimit.New(rpm),
		retryPol:   retry.DefaultPolicy(),
		logger:     log,
		tracer:     otel.Tracer(tracerName),
	}

	if err := p.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return p, nil
}

func (p *Provider) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	p.metrics = &providerMetrics{}

	p.metrics.quotesTotal, err = meter.Int64Counter(
		"venue_quotes_total",
		metric.WithDescription("Total quote requests"),
		metric.WithUnit("{quote}"),
	)
	if err != nil {
		return err
	}

	p.metrics.quoteErrors, err = meter.Int64Counter(
		"venue_quote_errors_total",
		metric.WithDescription("Total quote errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	p.metrics.quoteLatency, err = meter.Float64Histogram(
		"venue_quote_latency_ms",
		metric.WithDescription("Quote request latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// ID returns the venue identifier.
func (p *Provider) ID() domain.VenueID {
	return p.venueID
}

// GetQuote quotes amountIn of tokenIn against the pair's current reserves.
// Missing pools come back as the unavailable variant with a nil error.
func (p *Provider) GetQuote(ctx context.Context, tokenIn, tokenOut *asset.Token, amountIn asset.Amount) (*domain.VenueQuote, error) {
	ctx, span := p.tracer.Start(ctx, "uniswapv2.get_quote",
		trace.WithAttributes(
			attribute.String("venue", p.venueID.String()),
			attribute.String("token_in", tokenIn.Symbol()),
			attribute.String("token_out", tokenOut.Symbol()),
			attribute.String("amount_in", amountIn.Raw().String()),
		),
	)
	defer span.End()

	start := time.Now()
	attrs := metric.WithAttributes(attribute.String("venue", p.venueID.String()))
	p.metrics.quotesTotal.Add(ctx, 1, attrs)
	defer func() {
		p.metrics.quoteLatency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	}()

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
	}

	pair, err := p.pairAddress(ctx, tokenIn.Address(), tokenOut.Address())
	if err != nil {
		p.metrics.quoteErrors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, "pair lookup failed")
		return nil, err
	}
	if pair == (common.Address{}) {
		span.AddEvent("pool_not_found")
		q := domain.Unavailable(p.venueID, apperror.New(apperror.CodePoolNotFound,
			apperror.WithContext(fmt.Sprintf("%s/%s on %s", tokenIn.Symbol(), tokenOut.Symbol(), p.venueID))))
		return &q, nil
	}

	reserveIn, reserveOut, err := p.reserves(ctx, pair, tokenIn.Address(), tokenOut.Address())
	if err != nil {
		p.metrics.quoteErrors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, "reserves read failed")
		return nil, err
	}

	amountOutRaw, err := p.amountOut(ctx, amountIn.Raw(), tokenIn.Address(), tokenOut.Address())
	if err != nil {
		p.metrics.quoteErrors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, "getAmountsOut failed")
		return nil, err
	}

	amountOut := asset.NewAmount(tokenOut, amountOutRaw)
	impact := p.priceImpact(amountIn.Raw(), amountOutRaw, reserveIn, reserveOut)

	quote := domain.NewQuote(p.venueID, amountIn, amountOut, impact)
	quote.LiquidityEstimate = asset.NewAmount(tokenOut, reserveOut).ToDecimal()
	quote.GasEstimate = defaultSwapGas

	span.SetAttributes(
		attribute.String("amount_out", amountOutRaw.String()),
		attribute.String("impact_percent", impact.StringFixed(4)),
	)
	span.SetStatus(codes.Ok, "quote received")

	p.logger.Debug(ctx, "uniswapv2 quote",
		"venue", p.venueID.String(),
		"pair", tokenIn.Symbol()+"/"+tokenOut.Symbol(),
		"amount_in", amountIn.String(),
		"amount_out", amountOut.String(),
		"impact_percent", impact.StringFixed(4),
	)

	return &quote, nil
}

// priceImpact compares the realized output against the zero-size (spot)
// output at current reserves, both fee-adjusted.
func (p *Provider) priceImpact(amountIn, amountOut, reserveIn, reserveOut *big.Int) decimal.Decimal {
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 || amountOut.Sign() == 0 {
		return hundred
	}

	in := decimal.NewFromBigInt(amountIn, 0)
	spot := in.
		Mul(decimal.NewFromInt(1).Sub(p.fee)).
		Mul(decimal.NewFromBigInt(reserveOut, 0)).
		Div(decimal.NewFromBigInt(reserveIn, 0))
	if spot.IsZero() {
		return hundred
	}

	out := decimal.NewFromBigInt(amountOut, 0)
	impact := spot.Sub(out).Div(spot).Mul(hundred)
	if impact.IsNegative() {
		return decimal.Zero
	}
	return impact
}

// pairAddress resolves (and caches) the pair contract for a token pair.
func (p *Provider) pairAddress(ctx context.Context, a, b common.Address) (common.Address, error) {
	t0, t1 := evm.SortTokens(a, b)
	key := t0.Hex() + ":" + t1.Hex()

	if addr, ok := p.pairCache.Get(ctx, key); ok {
		return addr, nil
	}

	callData, err := p.factoryABI.Pack("getPair", t0, t1)
	if err != nil {
		return common.Address{}, fmt.Errorf("encode getPair: %w", err)
	}

	result, err := p.call(ctx, p.factory, callData)
	if err != nil {
		return common.Address{}, err
	}

	outputs, err := p.factoryABI.Unpack("getPair", result)
	if err != nil {
		return common.Address{}, fmt.Errorf("decode getPair: %w", err)
	}

	addr := outputs[0].(common.Address)
	if addr != (common.Address{}) {
		p.pairCache.Set(ctx, key, addr, 10*time.Minute)
	}
	return addr, nil
}

// reserves fetches pair reserves oriented as (reserveIn, reserveOut).
func (p *Provider) reserves(ctx context.Context, pair, tokenIn, tokenOut common.Address) (*big.Int, *big.Int, error) {
	callData, err := p.pairABI.Pack("getReserves")
	if err != nil {
		return nil, nil, fmt.Errorf("encode getReserves: %w", err)
	}

	result, err := p.call(ctx, pair, callData)
	if err != nil {
		return nil, nil, err
	}

	outputs, err := p.pairABI.Unpack("getReserves", result)
	if err != nil {
		return nil, nil, fmt.Errorf("decode getReserves: %w", err)
	}

	reserve0 := outputs[0].(*big.Int)
	reserve1 := outputs[1].(*big.Int)

	// Pair contracts store reserves in token0/token1 order (lower address first).
	t0, _ := evm.SortTokens(tokenIn, tokenOut)
	if tokenIn == t0 {
		return reserve0, reserve1, nil
	}
	return reserve1, reserve0, nil
}

// amountOut asks the router for the fee-adjusted output along a direct path.
func (p *Provider) amountOut(ctx context.Context, amountIn *big.Int, tokenIn, tokenOut common.Address) (*big.Int, error) {
	callData, err := p.routerABI.Pack("getAmountsOut", amountIn, []common.Address{tokenIn, tokenOut})
	if err != nil {
		return nil, fmt.Errorf("encode getAmountsOut: %w", err)
	}

	result, err := p.call(ctx, p.router, callData)
	if err != nil {
		return nil, err
	}

	outputs, err := p.routerABI.Unpack("getAmountsOut", result)
	if err != nil {
		return nil, fmt.Errorf("decode getAmountsOut: %w", err)
	}

	amounts := outputs[0].([]*big.Int)
	if len(amounts) < 2 {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext("getAmountsOut returned short path"))
	}
	return amounts[len(amounts)-1], nil
}

// call executes a read-only contract call through the retry policy and
// circuit breaker.
func (p *Provider) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	result, err := retry.Do(ctx, p.retryPol, func(ctx context.Context) ([]byte, error) {
		return p.cb.Execute(func() ([]byte, error) {
			return p.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		})
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("call to %s failed", to.Hex())))
	}
	return result, nil
}

// Close releases provider resources.
func (p *Provider) Close() error {
	p.pairCache.Close()
	return nil
}
