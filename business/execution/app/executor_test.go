package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dexarb/business/execution/domain"
	scannerDomain "github.com/fd1az/dexarb/business/scanner/domain"
	venueApp "github.com/fd1az/dexarb/business/venue/app"
	venueDomain "github.com/fd1az/dexarb/business/venue/domain"
	"github.com/fd1az/dexarb/internal/apperror"
	"github.com/fd1az/dexarb/internal/asset"
	"github.com/fd1az/dexarb/internal/logger"
)

// Zero-decimal test tokens keep raw units equal to whole units so the
// floor-rounding expectations stay readable.
var (
	testBase = asset.MustNewToken(1,
		common.HexToAddress("0x1111111111111111111111111111111111111111"),
		"BASE", "Base Token", 0)
	testQuote = asset.MustNewToken(1,
		common.HexToAddress("0x2222222222222222222222222222222222222222"),
		"QUOTE", "Quote Token", 0)
)

// spyExecutor records swap submissions and returns a canned fill.
type spyExecutor struct {
	id    venueDomain.VenueID
	out   uint64
	err   error
	calls int
	last  venueDomain.SwapRequest
}

func (s *spyExecutor) ID() venueDomain.VenueID { return s.id }

func (s *spyExecutor) SubmitSwap(_ context.Context, req venueDomain.SwapRequest) (*venueDomain.SwapReceipt, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &venueDomain.SwapReceipt{
		Venue:     s.id,
		AmountIn:  req.AmountIn,
		AmountOut: asset.NewAmountFromUint64(req.TokenOut, s.out),
		Timestamp: time.Now(),
	}, nil
}

// makeOpportunity builds an opportunity whose buy venue rate is buyOut
// quote per base and sell venue rate is sellOut per sellIn base.
func makeOpportunity(buyID, sellID venueDomain.VenueID, buyIn, buyOut, sellIn, sellOut uint64) *scannerDomain.Opportunity {
	pair := venueDomain.Pair{Base: testBase, Quote: testQuote}
	buyQuote := venueDomain.NewQuote(buyID,
		asset.NewAmountFromUint64(testBase, buyIn),
		asset.NewAmountFromUint64(testQuote, buyOut),
		decimal.Zero)
	sellQuote := venueDomain.NewQuote(sellID,
		asset.NewAmountFromUint64(testBase, sellIn),
		asset.NewAmountFromUint64(testQuote, sellOut),
		decimal.Zero)
	return &scannerDomain.Opportunity{
		ID:        "test-opportunity",
		Pair:      pair,
		BuyVenue:  buyID,
		SellVenue: sellID,
		BuyQuote:  &buyQuote,
		SellQuote: &sellQuote,
		Timestamp: time.Now(),
	}
}

func newTestExecutor(t *testing.T, slippage string, executors ...*spyExecutor) *Executor {
	t.Helper()

	registry := venueApp.NewRegistry()
	for _, ex := range executors {
		registry.RegisterExecutor(ex)
	}

	cfg := ExecutorConfig{
		SlippageTolerance: decimal.RequireFromString(slippage),
		Wallet:            common.HexToAddress("0x3333333333333333333333333333333333333333"),
	}
	e, err := NewExecutor(registry, cfg, logger.Nop())
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	return e
}

func TestExecute_BuyFailure_NoSellLeg(t *testing.T) {
	buy := &spyExecutor{id: "buyv", err: errors.New("reverted")}
	sell := &spyExecutor{id: "sellv", out: 100}
	e := newTestExecutor(t, "0.005", buy, sell)

	opp := makeOpportunity("buyv", "sellv", 1, 1, 10, 11)
	result, err := e.Execute(context.Background(), opp, asset.NewAmountFromUint64(testQuote, 100))

	if err == nil {
		t.Fatal("expected error from failed buy leg")
	}
	if !apperror.IsCode(err, apperror.CodeBuyLegFailed) {
		t.Errorf("error code = %v, want BUY_LEG_FAILED", err)
	}
	if sell.calls != 0 {
		t.Errorf("sell leg invoked %d times after failed buy, want 0", sell.calls)
	}
	if result.Status != domain.StatusFailed {
		t.Errorf("status = %s, want failed", result.Status)
	}
	if result.BuyReceipt != nil {
		t.Error("failed buy must not produce a receipt")
	}
}

func TestExecute_SellMinDerivedFromActualBuyOutput(t *testing.T) {
	// Buy venue rate 1 quote/base: funding 105 implies 105 base expected,
	// min 104 (floor of 104.475 at 0.5% slippage). The venue fills 104,
	// at its own minimum, so the sell minimum must derive from 104:
	// 104 * 1.1 * 0.995 = 113.828 floored to 113 -- not the 105-based 114.
	buy := &spyExecutor{id: "buyv", out: 104}
	sell := &spyExecutor{id: "sellv", out: 114}
	e := newTestExecutor(t, "0.005", buy, sell)

	opp := makeOpportunity("buyv", "sellv", 1, 1, 10, 11)
	result, err := e.Execute(context.Background(), opp, asset.NewAmountFromUint64(testQuote, 105))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := buy.last.MinAmountOut.Raw().Uint64(); got != 104 {
		t.Errorf("buy leg minimum = %d, want 104", got)
	}
	if got := sell.last.AmountIn.Raw().Uint64(); got != 104 {
		t.Errorf("sell leg input = %d, want the actual buy output 104", got)
	}
	if got := sell.last.MinAmountOut.Raw().Uint64(); got != 113 {
		t.Errorf("sell leg minimum = %d, want 113 (derived from actual output)", got)
	}
	if !result.Success() {
		t.Errorf("result not successful: %v", result.Err)
	}
}

func TestExecute_SellFailure_IsPartialFill(t *testing.T) {
	buy := &spyExecutor{id: "buyv", out: 100}
	sell := &spyExecutor{id: "sellv", err: errors.New("reverted")}
	e := newTestExecutor(t, "0.005", buy, sell)

	opp := makeOpportunity("buyv", "sellv", 1, 1, 10, 11)
	result, err := e.Execute(context.Background(), opp, asset.NewAmountFromUint64(testQuote, 100))

	if err == nil {
		t.Fatal("expected error from failed sell leg")
	}
	if !apperror.IsCode(err, apperror.CodePartialFill) {
		t.Errorf("error code = %v, want PARTIAL_FILL", err)
	}
	if result.BuyReceipt == nil {
		t.Error("partial fill must carry the confirmed buy receipt")
	}
	if result.Status != domain.StatusFailed {
		t.Errorf("status = %s, want failed", result.Status)
	}
}

func TestExecute_LegOrderIsSequential(t *testing.T) {
	buy := &spyExecutor{id: "buyv", out: 100}
	sell := &spyExecutor{id: "sellv", out: 110}
	e := newTestExecutor(t, "0.005", buy, sell)

	// The sell leg input equals the buy receipt output, which is only
	// knowable after the buy confirms; verify the data dependency held.
	opp := makeOpportunity("buyv", "sellv", 1, 1, 10, 11)
	if _, err := e.Execute(context.Background(), opp, asset.NewAmountFromUint64(testQuote, 100)); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if buy.calls != 1 || sell.calls != 1 {
		t.Fatalf("calls buy=%d sell=%d, want 1 each", buy.calls, sell.calls)
	}
	if got := sell.last.AmountIn.Raw().Uint64(); got != 100 {
		t.Errorf("sell input = %d, want buy output 100", got)
	}
}

func TestExecute_StaleQuotes_Refused(t *testing.T) {
	buy := &spyExecutor{id: "buyv", out: 100}
	sell := &spyExecutor{id: "sellv", out: 110}

	registry := venueApp.NewRegistry()
	registry.RegisterExecutor(buy)
	registry.RegisterExecutor(sell)

	cfg := ExecutorConfig{
		SlippageTolerance: decimal.RequireFromString("0.005"),
		MaxQuoteAge:       10 * time.Millisecond,
		Wallet:            common.HexToAddress("0x3333333333333333333333333333333333333333"),
	}
	e, err := NewExecutor(registry, cfg, logger.Nop())
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}

	opp := makeOpportunity("buyv", "sellv", 1, 1, 10, 11)
	time.Sleep(20 * time.Millisecond)

	_, err = e.Execute(context.Background(), opp, asset.NewAmountFromUint64(testQuote, 100))
	if !apperror.IsCode(err, apperror.CodeStaleQuote) {
		t.Errorf("error = %v, want STALE_QUOTE", err)
	}
	if buy.calls != 0 {
		t.Errorf("buy leg invoked %d times on stale quotes, want 0", buy.calls)
	}
}

func TestExecute_RealizedProfit(t *testing.T) {
	buy := &spyExecutor{id: "buyv", out: 100}
	sell := &spyExecutor{id: "sellv", out: 108}
	e := newTestExecutor(t, "0.005", buy, sell)

	opp := makeOpportunity("buyv", "sellv", 1, 1, 10, 11)
	result, err := e.Execute(context.Background(), opp, asset.NewAmountFromUint64(testQuote, 100))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !result.RealizedProfit.Equal(decimal.NewFromInt(8)) {
		t.Errorf("realized profit = %s, want 8", result.RealizedProfit)
	}
}
