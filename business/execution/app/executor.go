package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dexarb/business/execution/domain"
	scannerDomain "github.com/fd1az/dexarb/business/scanner/domain"
	venueApp "github.com/fd1az/dexarb/business/venue/app"
	venueDomain "github.com/fd1az/dexarb/business/venue/domain"
	"github.com/fd1az/dexarb/internal/apperror"
	"github.com/fd1az/dexarb/internal/asset"
	"github.com/fd1az/dexarb/internal/logger"
)

const (
	tracerName = "github.com/fd1az/dexarb/business/execution/app"
	meterName  = "github.com/fd1az/dexarb/business/execution/app"
)

// ExecutorConfig holds execution parameters.
type ExecutorConfig struct {
	SlippageTolerance   decimal.Decimal // fraction, e.g. 0.005
	MaxQuoteAge         time.Duration   // opportunities older than this are refused
	ConfirmationTimeout time.Duration   // per-leg submission-to-confirmation budget
	Wallet              common.Address
}

// executorMetrics holds OTEL metric instruments.
type executorMetrics struct {
	executions   metric.Int64Counter
	legFailures  metric.Int64Counter
	partialFills metric.Int64Counter
	realizedWei  metric.Float64Histogram
}

// Executor drives the two sequential legs of an arbitrage trade. The buy
// leg must fully confirm before the sell leg is built, because the sell
// leg's minimum output is derived from the buy leg's realized output.
//
// The caller owns the execution slot; Execute does not guard against
// concurrent invocation.
type Executor struct {
	venues *venueApp.Registry
	config ExecutorConfig
	logger logger.LoggerInterface

	tracer  trace.Tracer
	metrics *executorMetrics
}

// NewExecutor creates an Executor over the venue registry.
func NewExecutor(venues *venueApp.Registry, cfg ExecutorConfig, log logger.LoggerInterface) (*Executor, error) {
	e := &Executor{
		venues: venues,
		config: cfg,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return e, nil
}

func (e *Executor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &executorMetrics{}

	e.metrics.executions, err = meter.Int64Counter(
		"trade_executions_total",
		metric.WithDescription("Total trade execution attempts"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return err
	}

	e.metrics.legFailures, err = meter.Int64Counter(
		"trade_leg_failures_total",
		metric.WithDescription("Failed trade legs by kind"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return err
	}

	e.metrics.partialFills, err = meter.Int64Counter(
		"trade_partial_fills_total",
		metric.WithDescription("Trades where the sell leg failed after a confirmed buy"),
		metric.WithUnit("{trade}"),
	)
	if err != nil {
		return err
	}

	e.metrics.realizedWei, err = meter.Float64Histogram(
		"trade_realized_profit",
		metric.WithDescription("Realized profit in raw quote units"),
		metric.WithUnit("{unit}"),
	)
	return err
}

// Execute runs the buy leg then the sell leg for one opportunity, funding
// the buy leg with inputAmount of the pair's quote token. A failed buy leg
// returns with no position; a failed sell leg after a confirmed buy is the
// distinct partial-fill outcome and leaves the position for the operator.
func (e *Executor) Execute(ctx context.Context, opp *scannerDomain.Opportunity, inputAmount asset.Amount) (*domain.TradeResult, error) {
	ctx, span := e.tracer.Start(ctx, "execution.execute",
		trace.WithAttributes(
			attribute.String("opportunity_id", opp.ID),
			attribute.String("buy_venue", opp.BuyVenue.String()),
			attribute.String("sell_venue", opp.SellVenue.String()),
			attribute.String("input", inputAmount.String()),
		),
	)
	defer span.End()

	e.metrics.executions.Add(ctx, 1)

	attempt := &domain.TradeAttempt{
		ID:          uuid.NewString(),
		Opportunity: opp,
		InputAmount: inputAmount,
		Status:      domain.StatusPending,
		StartedAt:   time.Now(),
	}

	if e.config.MaxQuoteAge > 0 && opp.MaxQuoteAge() > e.config.MaxQuoteAge {
		err := apperror.New(apperror.CodeStaleQuote,
			apperror.WithContext(fmt.Sprintf("quotes are %s old, max %s",
				opp.MaxQuoteAge().Round(time.Millisecond), e.config.MaxQuoteAge)))
		span.AddEvent("stale_quotes")
		return e.failed(ctx, span, attempt, nil, nil, err), err
	}

	buyReceipt, err := e.buyLeg(ctx, attempt)
	if err != nil {
		e.metrics.legFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("leg", "buy")))
		return e.failed(ctx, span, attempt, nil, nil, err), err
	}
	attempt.Status = domain.StatusBuyConfirmed

	sellReceipt, err := e.sellLeg(ctx, attempt, buyReceipt)
	if err != nil {
		e.metrics.legFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("leg", "sell")))
		e.metrics.partialFills.Add(ctx, 1)
		return e.failed(ctx, span, attempt, buyReceipt, nil, err), err
	}
	attempt.Status = domain.StatusSellConfirmed

	profit, perr := sellReceipt.AmountOut.SignedDiff(inputAmount)
	realized := decimal.Zero
	if perr == nil {
		realized = decimal.NewFromBigInt(profit, 0)
	}
	e.metrics.realizedWei.Record(ctx, realized.InexactFloat64())

	result := &domain.TradeResult{
		AttemptID:      attempt.ID,
		Opportunity:    opp,
		Status:         domain.StatusSellConfirmed,
		BuyReceipt:     buyReceipt,
		SellReceipt:    sellReceipt,
		InputAmount:    inputAmount,
		OutputAmount:   sellReceipt.AmountOut,
		RealizedProfit: realized,
		FinishedAt:     time.Now(),
	}

	e.logger.Info(ctx, "trade executed",
		"attempt", attempt.ID,
		"buy_venue", opp.BuyVenue,
		"sell_venue", opp.SellVenue,
		"input", inputAmount.String(),
		"output", sellReceipt.AmountOut.String(),
		"realized_profit_raw", realized.String(),
	)
	span.SetStatus(codes.Ok, "executed")

	return result, nil
}

// buyLeg swaps quote→base on the buy venue. The minimum output is the
// quote-implied base amount shaved by the slippage tolerance, floored to
// raw base units.
func (e *Executor) buyLeg(ctx context.Context, attempt *domain.TradeAttempt) (*venueDomain.SwapReceipt, error) {
	opp := attempt.Opportunity
	pair := opp.Pair

	buyRate := opp.BuyQuote.Rate() // quote units per one whole base unit
	if !buyRate.IsPositive() {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext("buy venue rate is zero"))
	}

	expectedBase := attempt.InputAmount.ToDecimal().Div(buyRate)
	minOut, err := asset.FromDecimalFloor(pair.Base,
		expectedBase.Mul(decimal.NewFromInt(1).Sub(e.config.SlippageTolerance)))
	if err != nil {
		return nil, fmt.Errorf("buy leg minimum output: %w", err)
	}
	attempt.MinOutBuy = minOut

	executor, err := e.venues.Executor(opp.BuyVenue)
	if err != nil {
		return nil, err
	}

	legCtx, cancel := e.legContext(ctx)
	defer cancel()

	attempt.Status = domain.StatusBuySubmitted
	receipt, err := executor.SubmitSwap(legCtx, venueDomain.SwapRequest{
		Venue:        opp.BuyVenue,
		TokenIn:      pair.Quote,
		TokenOut:     pair.Base,
		AmountIn:     attempt.InputAmount,
		MinAmountOut: minOut,
		Recipient:    e.config.Wallet,
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeBuyLegFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("buy leg on %s", opp.BuyVenue)))
	}

	return receipt, nil
}

// sellLeg swaps base→quote on the sell venue using the buy leg's actual
// confirmed output as input. The minimum output derives from that realized
// amount, never the original quoted estimate.
func (e *Executor) sellLeg(ctx context.Context, attempt *domain.TradeAttempt, buyReceipt *venueDomain.SwapReceipt) (*venueDomain.SwapReceipt, error) {
	opp := attempt.Opportunity
	pair := opp.Pair

	sellRate := opp.SellQuote.Rate()
	if !sellRate.IsPositive() {
		return nil, apperror.New(apperror.CodePartialFill,
			apperror.WithContext("sell venue rate is zero after confirmed buy leg"))
	}

	expectedQuote := buyReceipt.AmountOut.ToDecimal().Mul(sellRate)
	minOut, err := asset.FromDecimalFloor(pair.Quote,
		expectedQuote.Mul(decimal.NewFromInt(1).Sub(e.config.SlippageTolerance)))
	if err != nil {
		return nil, apperror.New(apperror.CodePartialFill,
			apperror.WithCause(err),
			apperror.WithContext("sell leg minimum output"))
	}
	attempt.MinOutSell = minOut

	executor, err := e.venues.Executor(opp.SellVenue)
	if err != nil {
		return nil, apperror.New(apperror.CodePartialFill,
			apperror.WithCause(err),
			apperror.WithContext("sell venue unavailable after confirmed buy leg"))
	}

	legCtx, cancel := e.legContext(ctx)
	defer cancel()

	attempt.Status = domain.StatusSellSubmitted
	receipt, err := executor.SubmitSwap(legCtx, venueDomain.SwapRequest{
		Venue:        opp.SellVenue,
		TokenIn:      pair.Base,
		TokenOut:     pair.Quote,
		AmountIn:     buyReceipt.AmountOut,
		MinAmountOut: minOut,
		Recipient:    e.config.Wallet,
	})
	if err != nil {
		return nil, apperror.New(apperror.CodePartialFill,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("sell leg on %s after confirmed buy, position held in %s",
				opp.SellVenue, pair.Base.Symbol())))
	}

	return receipt, nil
}

func (e *Executor) legContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.ConfirmationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.config.ConfirmationTimeout)
}

func (e *Executor) failed(ctx context.Context, span trace.Span, attempt *domain.TradeAttempt, buyReceipt, sellReceipt *venueDomain.SwapReceipt, cause error) *domain.TradeResult {
	attempt.Status = domain.StatusFailed

	span.RecordError(cause)
	span.SetStatus(codes.Error, "execution failed")

	level := e.logger.Warn
	if apperror.IsCode(cause, apperror.CodePartialFill) {
		// Unintended position held; this must reach the operator.
		level = e.logger.Error
	}
	level(ctx, "trade failed",
		"attempt", attempt.ID,
		"buy_venue", attempt.Opportunity.BuyVenue,
		"sell_venue", attempt.Opportunity.SellVenue,
		"error", cause,
	)

	return &domain.TradeResult{
		AttemptID:   attempt.ID,
		Opportunity: attempt.Opportunity,
		Status:      domain.StatusFailed,
		BuyReceipt:  buyReceipt,
		SellReceipt: sellReceipt,
		InputAmount: attempt.InputAmount,
		Err:         cause,
		FinishedAt:  time.Now(),
	}
}
