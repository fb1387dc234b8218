package domain_test

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexarb/business/venue/domain"
	"github.com/fd1az/dexarb/internal/asset"
)

func TestQuote_Rate(t *testing.T) {
	// 1 WETH in, 3000 USDC out: rate is 3000 output per whole input.
	in := asset.NewAmount(asset.WETH, new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	out := asset.NewAmount(asset.USDC, big.NewInt(3000_000_000))

	q := domain.NewQuote("uniswap-v2", in, out, decimal.Zero)

	if !q.Rate().Equal(decimal.NewFromInt(3000)) {
		t.Errorf("rate = %s, want 3000", q.Rate().String())
	}
}

func TestQuote_RateZeroInput(t *testing.T) {
	in := asset.NewAmount(asset.WETH, big.NewInt(0))
	out := asset.NewAmount(asset.USDC, big.NewInt(1_000_000))

	q := domain.NewQuote("uniswap-v2", in, out, decimal.Zero)

	if !q.Rate().IsZero() {
		t.Errorf("rate = %s, want 0 for zero input", q.Rate().String())
	}
}

func TestQuote_ZeroOutputIsUsable(t *testing.T) {
	in := asset.NewAmount(asset.WETH, big.NewInt(1e18))
	out := asset.NewAmount(asset.USDC, big.NewInt(0))

	q := domain.NewQuote("uniswap-v3", in, out, decimal.Zero)

	if !q.IsUsable() {
		t.Error("zero-output quote should still be usable")
	}
	if !q.Rate().IsZero() {
		t.Errorf("rate = %s, want 0", q.Rate().String())
	}
}

func TestQuote_Unavailable(t *testing.T) {
	cause := errors.New("no pool for pair")
	q := domain.Unavailable("uniswap-v2", cause)

	if q.IsUsable() {
		t.Error("unavailable quote must not be usable")
	}
	if !errors.Is(q.Reason(), cause) {
		t.Errorf("reason = %v, want %v", q.Reason(), cause)
	}

	var nilQuote *domain.VenueQuote
	if nilQuote.IsUsable() {
		t.Error("nil quote must not be usable")
	}
}

func TestQuote_Stale(t *testing.T) {
	in := asset.NewAmount(asset.WETH, big.NewInt(1e18))
	out := asset.NewAmount(asset.USDC, big.NewInt(3000_000_000))

	q := domain.NewQuote("uniswap-v2", in, out, decimal.Zero)
	q.Timestamp = time.Now().Add(-time.Minute)

	if !q.Stale(30 * time.Second) {
		t.Error("minute-old quote should be stale at a 30s limit")
	}
	if q.Stale(2 * time.Minute) {
		t.Error("minute-old quote should not be stale at a 2m limit")
	}
	if q.Stale(0) {
		t.Error("non-positive max age disables staleness")
	}
}
