// Package sim provides a dry-run swap executor that fills legs from live
// quotes without touching the chain.
package sim

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
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dexarb/business/venue/app"
	"github.com/fd1az/dexarb/business/venue/domain"
	"github.com/fd1az/dexarb/internal/apperror"
	"github.com/fd1az/dexarb/internal/logger"
)

const tracerName = "github.com/fd1az/dexarb/business/venue/infra/sim"

var _ app.SwapExecutor = (*Executor)(nil)

// Executor simulates a fill by re-quoting the leg on the venue's own
// provider and applying a fixed haircut for realism. Fills below the
// request's minimum-output bound are rejected, mirroring the on-chain
// revert behavior.
type Executor struct {
	provider app.QuoteProvider
	haircut  decimal.Decimal // fraction of output shaved off, e.g. 0.001
	logger   logger.LoggerInterface
	tracer   trace.Tracer
}

// NewExecutor creates a simulator backed by the given quote provider.
func NewExecutor(provider app.QuoteProvider, haircutFraction decimal.Decimal, log logger.LoggerInterface) *Executor {
	return &Executor{
		provider: provider,
		haircut:  haircutFraction,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}
}

// ID returns the venue identifier of the underlying provider.
func (e *Executor) ID() domain.VenueID {
	return e.provider.ID()
}

// SubmitSwap simulates the swap and returns a receipt marked Simulated.
func (e *Executor) SubmitSwap(ctx context.Context, req domain.SwapRequest) (*domain.SwapReceipt, error) {
	ctx, span := e.tracer.Start(ctx, "sim.submit_swap",
		trace.WithAttributes(
			attribute.String("venue", e.ID().String()),
			attribute.String("amount_in", req.AmountIn.Raw().String()),
			attribute.String("min_amount_out", req.MinAmountOut.Raw().String()),
		),
	)
	defer span.End()

	quote, err := e.provider.GetQuote(ctx, req.TokenIn, req.TokenOut, req.AmountIn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "simulated swap rejected")
		return nil, apperror.New(apperror.CodeSwapRejected,
			apperror.WithCause(err),
			apperror.WithContext("simulated fill could not re-quote"))
	}
	if !quote.IsUsable() {
		return nil, apperror.New(apperror.CodeSwapRejected,
			apperror.WithCause(quote.Reason()),
			apperror.WithContext("simulated fill found no liquidity"))
	}

	fill, err := quote.AmountOut.MulDecimalFloor(decimal.NewFromInt(1).Sub(e.haircut))
	if err != nil {
		return nil, err
	}

	ok, err := fill.GreaterThanOrEqual(req.MinAmountOut)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.New(apperror.CodeSwapRejected,
			apperror.WithContext(fmt.Sprintf("simulated fill %s below minimum %s",
				fill.String(), req.MinAmountOut.String())))
	}

	// Pseudo hash so notifications and logs stay traceable per attempt.
	id := uuid.New()
	txHash := common.BytesToHash(id[:])

	e.logger.Info(ctx, "simulated swap filled",
		"venue", e.ID().String(),
		"amount_in", req.AmountIn.String(),
		"amount_out", fill.String(),
		"tx", txHash.Hex(),
	)

	return &domain.SwapReceipt{
		Venue:     e.ID(),
		TxHash:    txHash,
		AmountIn:  req.AmountIn,
		AmountOut: fill,
		GasUsed:   quote.GasEstimate,
		Timestamp: time.Now(),
		Simulated: true,
	}, nil
}
