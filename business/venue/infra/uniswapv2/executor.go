package uniswapv2

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dexarb/business/venue/app"
	"github.com/fd1az/dexarb/business/venue/domain"
	"github.com/fd1az/dexarb/business/venue/infra/evm"
	"github.com/fd1az/dexarb/internal/apperror"
	"github.com/fd1az/dexarb/internal/asset"
	"github.com/fd1az/dexarb/internal/logger"
	"github.com/fd1az/dexarb/internal/retry"
)

var _ app.SwapExecutor = (*Executor)(nil)

// Executor submits swapExactTokensForTokens trades through the wallet
// boundary and recovers the realized output from the mined receipt.
type Executor struct {
	venueID   domain.VenueID
	router    common.Address
	routerABI abi.ABI
	sender    app.TransactionSender
	retryPol  retry.Policy
	logger    logger.LoggerInterface
	tracer    trace.Tracer
}

// NewExecutor creates a Uniswap V2 swap executor.
func NewExecutor(venueID domain.VenueID, router common.Address, sender app.TransactionSender, log logger.LoggerInterface) (*Executor, error) {
	routerABI, err := abi.JSON(strings.NewReader(RouterABI))
	if err != nil {
		return nil, fmt.Errorf("parse router ABI: %w", err)
	}

	return &Executor{
		venueID:   venueID,
		router:    router,
		routerABI: routerABI,
		sender:    sender,
		retryPol:  retry.DefaultPolicy(),
		logger:    log,
		tracer:    otel.Tracer(tracerName),
	}, nil
}

// ID returns the venue identifier.
func (e *Executor) ID() domain.VenueID {
	return e.venueID
}

// SubmitSwap submits a single-hop swap and blocks until it mines.
func (e *Executor) SubmitSwap(ctx context.Context, req domain.SwapRequest) (*domain.SwapReceipt, error) {
	ctx, span := e.tracer.Start(ctx, "uniswapv2.submit_swap",
		trace.WithAttributes(
			attribute.String("venue", e.venueID.String()),
			attribute.String("token_in", req.TokenIn.Symbol()),
			attribute.String("token_out", req.TokenOut.Symbol()),
			attribute.String("amount_in", req.AmountIn.Raw().String()),
			attribute.String("min_amount_out", req.MinAmountOut.Raw().String()),
		),
	)
	defer span.End()

	deadline := req.Deadline
	if deadline.IsZero() {
		deadline = time.Now().Add(2 * time.Minute)
	}

	callData, err := e.routerABI.Pack("swapExactTokensForTokens",
		req.AmountIn.Raw(),
		req.MinAmountOut.Raw(),
		[]common.Address{req.TokenIn.Address(), req.TokenOut.Address()},
		req.Recipient,
		big.NewInt(deadline.Unix()),
	)
	if err != nil {
		return nil, fmt.Errorf("encode swap: %w", err)
	}

	// Retry covers only the pre-broadcast submission step; once a hash is
	// returned the transaction is in flight and must not be resent.
	hash, err := retry.Do(ctx, e.retryPol, func(ctx context.Context) (common.Hash, error) {
		return e.sender.Send(ctx, e.router, callData, defaultSwapGas)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "swap rejected")
		return nil, apperror.New(apperror.CodeSwapRejected,
			apperror.WithCause(err),
			apperror.WithContext("swap submission failed on "+e.venueID.String()))
	}

	span.SetAttributes(attribute.String("tx_hash", hash.Hex()))
	e.logger.Info(ctx, "swap submitted",
		"venue", e.venueID.String(), "tx", hash.Hex(), "amount_in", req.AmountIn.String())

	receipt, err := e.sender.WaitMined(ctx, hash)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "confirmation timeout")
		return nil, apperror.New(apperror.CodeSwapTimeout,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("confirmation wait failed for %s", hash.Hex())))
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		err := apperror.New(apperror.CodeSwapRejected,
			apperror.WithContext(fmt.Sprintf("swap %s reverted on %s", hash.Hex(), e.venueID)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "swap reverted")
		return nil, err
	}

	outRaw := evm.ReceiptOutput(receipt, req.TokenOut.Address(), req.Recipient)
	amountOut := asset.NewAmount(req.TokenOut, outRaw)

	span.SetAttributes(attribute.String("amount_out", outRaw.String()))
	span.SetStatus(codes.Ok, "confirmed")

	return &domain.SwapReceipt{
		Venue:       e.venueID,
		TxHash:      hash,
		AmountIn:    req.AmountIn,
		AmountOut:   amountOut,
		GasUsed:     receipt.GasUsed,
		BlockNumber: receipt.BlockNumber.Uint64(),
		Timestamp:   time.Now(),
	}, nil
}
