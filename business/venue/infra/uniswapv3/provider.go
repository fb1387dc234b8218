// Package uniswapv3 implements venue quoting and swapping against Uniswap V3.
package uniswapv3

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
	"github.com/fd1az/dexarb/internal/apperror"
	"github.com/fd1az/dexarb/internal/asset"
	"github.com/fd1az/dexarb/internal/circuitbreaker"
	"github.com/fd1az/dexarb/internal/config"
	"github.com/fd1az/dexarb/internal/logger"
	"github.com/fd1az/dexarb/internal/ratelimit"
	"github.com/fd1az/dexarb/internal/retry"
)

const (
	tracerName = "github.com/fd1az/dexarb/business/venue/infra/uniswapv3"
	meterName  = "github.com/fd1az/dexarb/business/venue/infra/uniswapv3"

	// Denominator of the probe trade used to approximate the spot rate.
	probeDivisor = 1000
)

var _ app.QuoteProvider = (*Provider)(nil)

var hundred = decimal.NewFromInt(100)

// providerMetrics holds OTEL metric instruments.
type providerMetrics struct {
	quotesTotal  metric.Int64Counter
	quoteErrors  metric.Int64Counter
	quoteLatency metric.Float64Histogram
}

// Provider quotes through the QuoterV2 contract, trying each fee tier and
// keeping the best output.
type Provider struct {
	venueID   domain.VenueID
	client    *ethclient.Client
	quoter    common.Address
	quoterABI abi.ABI
	feeTiers  []int

	cb       *circuitbreaker.CircuitBreaker[[]byte]
	limiter  *ratelimit.Limiter
	retryPol retry.Policy
	logger   logger.LoggerInterface

	tracer  trace.Tracer
	metrics *providerMetrics
}

// NewProvider creates a Uniswap V3 venue provider.
func NewProvider(client *ethclient.Client, cfg config.VenueConfig, log logger.LoggerInterface) (*Provider, error) {
	quoterABI, err := abi.JSON(strings.NewReader(QuoterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("parse quoter ABI: %w", err)
	}

	feeTiers := []int{FeeTier005, FeeTier030, FeeTier100}
	if cfg.FeeTier > 0 {
		feeTiers = append([]int{cfg.FeeTier}, feeTiers...)
	}

	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = 300
	}

	p := &Provider{
		venueID:   domain.VenueID(cfg.Name),
		client:    client,
		quoter:    cfg.QuoterAddressHex(),
		quoterABI: quoterABI,
		feeTiers:  feeTiers,
		cb:        circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig(cfg.Name + "-quoter")),
		limiter:   ratelimit.New(rpm),
		retryPol:  retry.DefaultPolicy(),
		logger:    log,
		tracer:    otel.Tracer(tracerName),
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

// GetQuote quotes amountIn across the configured fee tiers and keeps the
// best output. Price impact is approximated by comparing the effective rate
// against the rate of a small probe trade on the winning tier.
func (p *Provider) GetQuote(ctx context.Context, tokenIn, tokenOut *asset.Token, amountIn asset.Amount) (*domain.VenueQuote, error) {
	ctx, span := p.tracer.Start(ctx, "uniswapv3.get_quote",
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

	var best *QuoteResult
	var bestTier int

	for _, tier := range p.feeTiers {
		result, err := p.quoteTier(ctx, tokenIn.Address(), tokenOut.Address(), amountIn.Raw(), tier)
		if err != nil {
			span.AddEvent("fee_tier_failed",
				trace.WithAttributes(
					attribute.Int("fee_tier", tier),
					attribute.String("error", err.Error()),
				),
			)
			continue
		}

		if best == nil || result.AmountOut.Cmp(best.AmountOut) > 0 {
			best = result
			bestTier = tier
		}
	}

	if best == nil {
		span.AddEvent("pool_not_found")
		q := domain.Unavailable(p.venueID, apperror.New(apperror.CodePoolNotFound,
			apperror.WithContext(fmt.Sprintf("no v3 pool quoted %s/%s on %s",
				tokenIn.Symbol(), tokenOut.Symbol(), p.venueID))))
		return &q, nil
	}

	amountOut := asset.NewAmount(tokenOut, best.AmountOut)
	impact := p.probeImpact(ctx, tokenIn.Address(), tokenOut.Address(), amountIn.Raw(), best.AmountOut, bestTier)

	quote := domain.NewQuote(p.venueID, amountIn, amountOut, impact)
	quote.FeeTier = bestTier
	quote.GasEstimate = best.GasEstimate.Uint64()

	span.SetAttributes(
		attribute.String("amount_out", best.AmountOut.String()),
		attribute.Int("fee_tier", bestTier),
		attribute.String("impact_percent", impact.StringFixed(4)),
	)
	span.SetStatus(codes.Ok, "quote received")

	p.logger.Debug(ctx, "uniswapv3 quote",
		"venue", p.venueID.String(),
		"pair", tokenIn.Symbol()+"/"+tokenOut.Symbol(),
		"amount_in", amountIn.String(),
		"amount_out", amountOut.String(),
		"fee_tier", bestTier,
	)

	return &quote, nil
}

// probeImpact quotes a probe trade (amountIn/probeDivisor) on the winning
// tier and treats its rate as near-spot. Falls back to zero impact when the
// probe cannot be quoted; the scanner's impact cap then only reflects the
// other leg.
func (p *Provider) probeImpact(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, amountOut *big.Int, tier int) decimal.Decimal {
	probeIn := new(big.Int).Div(amountIn, big.NewInt(probeDivisor))
	if probeIn.Sign() == 0 {
		return decimal.Zero
	}

	probe, err := p.quoteTier(ctx, tokenIn, tokenOut, probeIn, tier)
	if err != nil || probe.AmountOut.Sign() == 0 {
		return decimal.Zero
	}

	probeRate := decimal.NewFromBigInt(probe.AmountOut, 0).Div(decimal.NewFromBigInt(probeIn, 0))
	effRate := decimal.NewFromBigInt(amountOut, 0).Div(decimal.NewFromBigInt(amountIn, 0))
	if probeRate.IsZero() {
		return decimal.Zero
	}

	impact := probeRate.Sub(effRate).Div(probeRate).Mul(hundred)
	if impact.IsNegative() {
		return decimal.Zero
	}
	return impact
}

// quoteTier calls QuoterV2.quoteExactInputSingle for one fee tier.
func (p *Provider) quoteTier(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, tier int) (*QuoteResult, error) {
	callData, err := p.quoterABI.Pack("quoteExactInputSingle", QuoteExactInputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               big.NewInt(int64(tier)),
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		return nil, fmt.Errorf("encode quote call: %w", err)
	}

	result, err := retry.Do(ctx, p.retryPol, func(ctx context.Context) ([]byte, error) {
		return p.cb.Execute(func() ([]byte, error) {
			return p.client.CallContract(ctx, ethereum.CallMsg{To: &p.quoter, Data: callData}, nil)
		})
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("quoter call failed for fee tier %d", tier)))
	}

	outputs, err := p.quoterABI.Unpack("quoteExactInputSingle", result)
	if err != nil {
		return nil, fmt.Errorf("decode quote result: %w", err)
	}
	if len(outputs) < 4 {
		return nil, fmt.Errorf("unexpected output length: %d", len(outputs))
	}

	return &QuoteResult{
		AmountOut:               outputs[0].(*big.Int),
		SqrtPriceX96After:       outputs[1].(*big.Int),
		InitializedTicksCrossed: outputs[2].(uint32),
		GasEstimate:             outputs[3].(*big.Int),
	}, nil
}
