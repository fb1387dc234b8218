package uniswapv2

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/dexarb/business/venue/domain"
	"github.com/fd1az/dexarb/business/venue/infra/evm"
	"github.com/fd1az/dexarb/internal/apperror"
	"github.com/fd1az/dexarb/internal/asset"
	"github.com/fd1az/dexarb/internal/logger"
	"github.com/fd1az/dexarb/internal/retry"
)

var (
	testBase = asset.MustNewToken(1,
		common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), "WETH", "Wrapped Ether", 18)
	testQuote = asset.MustNewToken(1,
		common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), "USDC", "USD Coin", 6)
	testRouter = common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	testWallet = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

// fakeSender fails Send failBefore times before succeeding. WaitMined
// returns the canned receipt.
type fakeSender struct {
	failBefore int
	sendCalls  int
	waitCalls  int
	receipt    *types.Receipt
}

func (s *fakeSender) Send(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (common.Hash, error) {
	s.sendCalls++
	if s.sendCalls <= s.failBefore {
		return common.Hash{}, errors.New("nonce too low")
	}
	return common.HexToHash("0xabc"), nil
}

func (s *fakeSender) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	s.waitCalls++
	return s.receipt, nil
}

func (s *fakeSender) From() common.Address { return testWallet }

func minedReceipt(amountOut *big.Int) *types.Receipt {
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		GasUsed:     150000,
		BlockNumber: big.NewInt(19_000_000),
		Logs: []*types.Log{{
			Address: testQuote.Address(),
			Topics: []common.Hash{
				evm.TransferTopic,
				common.BytesToHash(testRouter.Bytes()),
				common.BytesToHash(testWallet.Bytes()),
			},
			Data: common.LeftPadBytes(amountOut.Bytes(), 32),
		}},
	}
}

func testSwapRequest() domain.SwapRequest {
	return domain.SwapRequest{
		Venue:        domain.VenueID("uniswap_v2"),
		TokenIn:      testBase,
		TokenOut:     testQuote,
		AmountIn:     asset.NewAmount(testBase, big.NewInt(1_000_000_000_000_000_000)),
		MinAmountOut: asset.NewAmount(testQuote, big.NewInt(2_900_000_000)),
		Recipient:    testWallet,
		Deadline:     time.Now().Add(time.Minute),
	}
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func TestSubmitSwap_RetriesTransientSendFailure(t *testing.T) {
	out := big.NewInt(3_000_000_000)
	sender := &fakeSender{failBefore: 1, receipt: minedReceipt(out)}

	e, err := NewExecutor(domain.VenueID("uniswap_v2"), testRouter, sender, logger.Nop())
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	e.retryPol = fastPolicy()

	receipt, err := e.SubmitSwap(context.Background(), testSwapRequest())
	if err != nil {
		t.Fatalf("SubmitSwap: %v", err)
	}

	if sender.sendCalls != 2 {
		t.Errorf("send calls = %d, want 2 (one transient failure, one success)", sender.sendCalls)
	}
	if sender.waitCalls != 1 {
		t.Errorf("wait calls = %d, want 1", sender.waitCalls)
	}
	if receipt.AmountOut.Raw().Cmp(out) != 0 {
		t.Errorf("amount out = %s, want %s", receipt.AmountOut.Raw(), out)
	}
}

func TestSubmitSwap_ExhaustedRetriesRejects(t *testing.T) {
	sender := &fakeSender{failBefore: 100}

	e, err := NewExecutor(domain.VenueID("uniswap_v2"), testRouter, sender, logger.Nop())
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	e.retryPol = fastPolicy()

	_, err = e.SubmitSwap(context.Background(), testSwapRequest())
	if !apperror.IsCode(err, apperror.CodeSwapRejected) {
		t.Fatalf("error = %v, want %s", err, apperror.CodeSwapRejected)
	}
	if sender.sendCalls != 3 {
		t.Errorf("send calls = %d, want 3 (policy exhausted)", sender.sendCalls)
	}
	if sender.waitCalls != 0 {
		t.Errorf("wait calls = %d, want 0", sender.waitCalls)
	}
}

func TestSubmitSwap_RevertedReceiptIsRejected(t *testing.T) {
	receipt := minedReceipt(big.NewInt(0))
	receipt.Status = types.ReceiptStatusFailed
	sender := &fakeSender{receipt: receipt}

	e, err := NewExecutor(domain.VenueID("uniswap_v2"), testRouter, sender, logger.Nop())
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}

	_, err = e.SubmitSwap(context.Background(), testSwapRequest())
	if !apperror.IsCode(err, apperror.CodeSwapRejected) {
		t.Fatalf("error = %v, want %s", err, apperror.CodeSwapRejected)
	}
}
