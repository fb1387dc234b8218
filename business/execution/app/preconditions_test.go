package app

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dexarb/internal/apperror"
	"github.com/fd1az/dexarb/internal/logger"
)

// fakeChain scripts each read and counts calls for short-circuit checks.
type fakeChain struct {
	pingErr        error
	balance        *big.Int
	balanceErr     error
	allowances     map[common.Address]*big.Int
	pingCalls      int
	balanceCalls   int
	allowanceCalls int
}

func (f *fakeChain) Ping(context.Context) error {
	f.pingCalls++
	return f.pingErr
}

func (f *fakeChain) NativeBalance(context.Context, common.Address) (*big.Int, error) {
	f.balanceCalls++
	return f.balance, f.balanceErr
}

func (f *fakeChain) Allowance(_ context.Context, token, _, _ common.Address) (*big.Int, error) {
	f.allowanceCalls++
	if a, ok := f.allowances[token]; ok {
		return a, nil
	}
	return big.NewInt(0), nil
}

var (
	wallet   = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	tokenA   = common.HexToAddress("0x4444444444444444444444444444444444444444")
	tokenB   = common.HexToAddress("0x5555555555555555555555555555555555555555")
	spender1 = common.HexToAddress("0x6666666666666666666666666666666666666666")
)

func TestCheckReadiness_AllPass(t *testing.T) {
	chain := &fakeChain{
		balance: big.NewInt(2_000_000),
		allowances: map[common.Address]*big.Int{
			tokenA: big.NewInt(500),
		},
	}
	checker := NewPreconditionChecker(chain, wallet, big.NewInt(1_000_000), logger.Nop())

	readiness, err := checker.CheckReadiness(context.Background(), []AllowanceRequirement{
		{Token: tokenA, Spender: spender1, Minimum: big.NewInt(100)},
	})
	if err != nil {
		t.Fatalf("CheckReadiness: %v", err)
	}
	if !readiness.Ready {
		t.Errorf("not ready: %s", readiness.Reason)
	}
}

func TestCheckReadiness_ConnectivityShortCircuits(t *testing.T) {
	chain := &fakeChain{pingErr: errors.New("unreachable")}
	checker := NewPreconditionChecker(chain, wallet, big.NewInt(1), logger.Nop())

	readiness, err := checker.CheckReadiness(context.Background(), []AllowanceRequirement{
		{Token: tokenA, Spender: spender1, Minimum: big.NewInt(1)},
	})
	if err != nil {
		t.Fatalf("CheckReadiness: %v", err)
	}
	if readiness.Ready {
		t.Fatal("ready despite unreachable node")
	}
	if readiness.Code != apperror.CodeChainConnectionFailed {
		t.Errorf("code = %s, want CHAIN_CONNECTION_FAILED", readiness.Code)
	}
	if chain.balanceCalls != 0 || chain.allowanceCalls != 0 {
		t.Errorf("later checks ran after connectivity failure: balance=%d allowance=%d",
			chain.balanceCalls, chain.allowanceCalls)
	}
}

func TestCheckReadiness_GasReserveFloor(t *testing.T) {
	chain := &fakeChain{balance: big.NewInt(999)}
	checker := NewPreconditionChecker(chain, wallet, big.NewInt(1000), logger.Nop())

	readiness, err := checker.CheckReadiness(context.Background(), []AllowanceRequirement{
		{Token: tokenA, Spender: spender1, Minimum: big.NewInt(1)},
	})
	if err != nil {
		t.Fatalf("CheckReadiness: %v", err)
	}
	if readiness.Ready {
		t.Fatal("ready despite balance below floor")
	}
	if readiness.Code != apperror.CodeInsufficientBalance {
		t.Errorf("code = %s, want INSUFFICIENT_BALANCE", readiness.Code)
	}
	if chain.allowanceCalls != 0 {
		t.Errorf("allowance checks ran after balance failure: %d", chain.allowanceCalls)
	}
}

func TestCheckReadiness_AllowanceBelowMinimum(t *testing.T) {
	chain := &fakeChain{
		balance: big.NewInt(10_000),
		allowances: map[common.Address]*big.Int{
			tokenA: big.NewInt(1000),
			tokenB: big.NewInt(5),
		},
	}
	checker := NewPreconditionChecker(chain, wallet, big.NewInt(1), logger.Nop())

	readiness, err := checker.CheckReadiness(context.Background(), []AllowanceRequirement{
		{Token: tokenA, Spender: spender1, Minimum: big.NewInt(100)},
		{Token: tokenB, Spender: spender1, Minimum: big.NewInt(100)},
	})
	if err != nil {
		t.Fatalf("CheckReadiness: %v", err)
	}
	if readiness.Ready {
		t.Fatal("ready despite insufficient allowance")
	}
	if readiness.Code != apperror.CodeInsufficientAllowance {
		t.Errorf("code = %s, want INSUFFICIENT_ALLOWANCE", readiness.Code)
	}
}

func TestCheckReadiness_ReadOnlyAndRepeatable(t *testing.T) {
	chain := &fakeChain{balance: big.NewInt(10_000)}
	checker := NewPreconditionChecker(chain, wallet, big.NewInt(1), logger.Nop())

	for i := 0; i < 3; i++ {
		readiness, err := checker.CheckReadiness(context.Background(), nil)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if !readiness.Ready {
			t.Fatalf("run %d not ready: %s", i, readiness.Reason)
		}
	}
	if chain.pingCalls != 3 {
		t.Errorf("ping calls = %d, want 3", chain.pingCalls)
	}
}
