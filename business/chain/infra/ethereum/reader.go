// Package ethereum provides chain infrastructure adapters backed by go-ethereum.
package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dexarb/business/chain/app"
	"github.com/fd1az/dexarb/internal/apperror"
	"github.com/fd1az/dexarb/internal/circuitbreaker"
	"github.com/fd1az/dexarb/internal/logger"
)

const (
	tracerName = "github.com/fd1az/dexarb/business/chain/infra/ethereum"
	meterName  = "github.com/fd1az/dexarb/business/chain/infra/ethereum"
)

// ERC20ABI covers the two read calls the precondition checks need.
const ERC20ABI = `[
	{
		"inputs": [{"internalType": "address", "name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "owner", "type": "address"},
			{"internalType": "address", "name": "spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

var _ app.Reader = (*Reader)(nil)

// readerMetrics holds OTEL metric instruments.
type readerMetrics struct {
	readsTotal metric.Int64Counter
	readErrors metric.Int64Counter
}

// Reader implements chain reads over a shared ethclient.
type Reader struct {
	client   *ethclient.Client
	erc20ABI abi.ABI
	cb       *circuitbreaker.CircuitBreaker[[]byte]
	logger   logger.LoggerInterface
	tracer   trace.Tracer
	metrics  *readerMetrics
}

// NewReader creates a chain reader.
func NewReader(client *ethclient.Client, log logger.LoggerInterface) (*Reader, error) {
	parsed, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 ABI: %w", err)
	}

	r := &Reader{
		client:   client,
		erc20ABI: parsed,
		cb:       circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("chain-reader")),
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}

	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return r, nil
}

func (r *Reader) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &readerMetrics{}

	r.metrics.readsTotal, err = meter.Int64Counter(
		"chain_reads_total",
		metric.WithDescription("Total chain read calls"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return err
	}

	r.metrics.readErrors, err = meter.Int64Counter(
		"chain_read_errors_total",
		metric.WithDescription("Total chain read failures"),
		metric.WithUnit("{error}"),
	)
	return err
}

// Ping verifies reachability by fetching the latest block number.
func (r *Reader) Ping(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "chain.ping")
	defer span.End()

	r.metrics.readsTotal.Add(ctx, 1)

	if _, err := r.client.BlockNumber(ctx); err != nil {
		r.metrics.readErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "ping failed")
		return apperror.New(apperror.CodeChainConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("node unreachable"))
	}

	span.SetStatus(codes.Ok, "reachable")
	return nil
}

// NativeBalance returns the native-currency balance of an address in wei.
func (r *Reader) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	ctx, span := r.tracer.Start(ctx, "chain.native_balance",
		trace.WithAttributes(attribute.String("address", addr.Hex())),
	)
	defer span.End()

	r.metrics.readsTotal.Add(ctx, 1)

	balance, err := r.client.BalanceAt(ctx, addr, nil)
	if err != nil {
		r.metrics.readErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "balance read failed")
		return nil, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("balance query failed for "+addr.Hex()))
	}

	span.SetStatus(codes.Ok, "fetched")
	return balance, nil
}

// TokenBalance returns the ERC20 balance of owner.
func (r *Reader) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	ctx, span := r.tracer.Start(ctx, "chain.token_balance",
		trace.WithAttributes(
			attribute.String("token", token.Hex()),
			attribute.String("owner", owner.Hex()),
		),
	)
	defer span.End()

	return r.readUint256(ctx, span, token, "balanceOf", owner)
}

// Allowance returns the ERC20 allowance granted by owner to spender.
func (r *Reader) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	ctx, span := r.tracer.Start(ctx, "chain.allowance",
		trace.WithAttributes(
			attribute.String("token", token.Hex()),
			attribute.String("owner", owner.Hex()),
			attribute.String("spender", spender.Hex()),
		),
	)
	defer span.End()

	return r.readUint256(ctx, span, token, "allowance", owner, spender)
}

func (r *Reader) readUint256(ctx context.Context, span trace.Span, contract common.Address, method string, args ...interface{}) (*big.Int, error) {
	r.metrics.readsTotal.Add(ctx, 1)

	callData, err := r.erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}

	result, err := r.cb.Execute(func() ([]byte, error) {
		return r.client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: callData}, nil)
	})
	if err != nil {
		r.metrics.readErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, method+" failed")
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s call failed on %s", method, contract.Hex())))
	}

	outputs, err := r.erc20ABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}

	span.SetStatus(codes.Ok, "fetched")
	return outputs[0].(*big.Int), nil
}
