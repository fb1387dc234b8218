package app

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dexarb/internal/apperror"
	"github.com/fd1az/dexarb/internal/logger"
)

// AllowanceRequirement is one token allowance an execution needs in place.
type AllowanceRequirement struct {
	Token   common.Address
	Spender common.Address
	Minimum *big.Int
}

// Readiness is the outcome of a precondition pass. Reason names the first
// failing check; later checks are not evaluated.
type Readiness struct {
	Ready  bool
	Code   apperror.Code
	Reason string
}

// PreconditionChecker verifies chain-state invariants before an execution
// attempt. Read-only and safe to call repeatedly or concurrently.
type PreconditionChecker struct {
	chain           ChainReader
	wallet          common.Address
	gasReserveFloor *big.Int
	logger          logger.LoggerInterface
	tracer          trace.Tracer
}

// NewPreconditionChecker creates a checker bound to one wallet.
func NewPreconditionChecker(chain ChainReader, wallet common.Address, gasReserveFloor *big.Int, log logger.LoggerInterface) *PreconditionChecker {
	return &PreconditionChecker{
		chain:           chain,
		wallet:          wallet,
		gasReserveFloor: gasReserveFloor,
		logger:          log,
		tracer:          otel.Tracer(tracerName),
	}
}

// CheckReadiness runs connectivity, gas reserve and allowance checks in
// order, short-circuiting on the first failure.
func (p *PreconditionChecker) CheckReadiness(ctx context.Context, required []AllowanceRequirement) (Readiness, error) {
	ctx, span := p.tracer.Start(ctx, "execution.check_readiness",
		trace.WithAttributes(attribute.Int("allowances", len(required))),
	)
	defer span.End()

	if err := p.chain.Ping(ctx); err != nil {
		span.AddEvent("connectivity_failed")
		return p.notReady(ctx, span, apperror.CodeChainConnectionFailed,
			"node unreachable"), nil
	}

	balance, err := p.chain.NativeBalance(ctx, p.wallet)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "balance read failed")
		return Readiness{}, err
	}
	if p.gasReserveFloor != nil && balance.Cmp(p.gasReserveFloor) < 0 {
		return p.notReady(ctx, span, apperror.CodeInsufficientBalance,
			fmt.Sprintf("native balance %s wei below gas reserve floor %s wei",
				balance, p.gasReserveFloor)), nil
	}

	for _, req := range required {
		allowance, err := p.chain.Allowance(ctx, req.Token, p.wallet, req.Spender)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "allowance read failed")
			return Readiness{}, err
		}
		if req.Minimum != nil && allowance.Cmp(req.Minimum) < 0 {
			return p.notReady(ctx, span, apperror.CodeInsufficientAllowance,
				fmt.Sprintf("allowance %s for spender %s on token %s below required %s",
					allowance, req.Spender.Hex(), req.Token.Hex(), req.Minimum)), nil
		}
	}

	span.SetStatus(codes.Ok, "ready")
	return Readiness{Ready: true}, nil
}

func (p *PreconditionChecker) notReady(ctx context.Context, span trace.Span, code apperror.Code, reason string) Readiness {
	span.AddEvent("not_ready", trace.WithAttributes(
		attribute.String("code", string(code)),
		attribute.String("reason", reason),
	))
	span.SetStatus(codes.Ok, "not ready")
	p.logger.Warn(ctx, "preconditions not met", "code", code, "reason", reason)
	return Readiness{Ready: false, Code: code, Reason: reason}
}
