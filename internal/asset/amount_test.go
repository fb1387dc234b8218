package asset_test

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexarb/internal/asset"
)

func TestAmount_Basic(t *testing.T) {
	// 1 ETH = 1e18 wei
	oneETH := asset.NewAmount(asset.ETH, big.NewInt(1e18))

	if oneETH.IsZero() {
		t.Error("expected non-zero amount")
	}

	d := oneETH.ToDecimal()
	if !d.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", d.String())
	}

	if oneETH.String() != "1 ETH" {
		t.Errorf("expected '1 ETH', got '%s'", oneETH.String())
	}
}

func TestAmount_Add(t *testing.T) {
	oneETH := asset.NewAmount(asset.ETH, big.NewInt(1e18))
	twoETH := asset.NewAmount(asset.ETH, big.NewInt(2e18))

	sum, err := oneETH.Add(twoETH)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !sum.ToDecimal().Equal(decimal.NewFromInt(3)) {
		t.Errorf("expected 3, got %s", sum.ToDecimal().String())
	}
}

func TestAmount_CannotMixTokens(t *testing.T) {
	oneETH := asset.NewAmount(asset.ETH, big.NewInt(1e18))
	oneUSDC := asset.NewAmount(asset.USDC, big.NewInt(1e6))

	if _, err := oneETH.Add(oneUSDC); err == nil {
		t.Error("expected error when adding different tokens")
	}
	if _, err := oneETH.Cmp(oneUSDC); err == nil {
		t.Error("expected error when comparing different tokens")
	}
	if _, err := oneETH.SignedDiff(oneUSDC); err == nil {
		t.Error("expected error when diffing different tokens")
	}
}

func TestAmount_SubNegativeError(t *testing.T) {
	oneETH := asset.NewAmount(asset.ETH, big.NewInt(1e18))
	twoETH := asset.NewAmount(asset.ETH, big.NewInt(2e18))

	if _, err := oneETH.Sub(twoETH); err == nil {
		t.Error("expected error for negative result")
	}
}

func TestAmount_SignedDiffToleratesNegative(t *testing.T) {
	small := asset.NewAmount(asset.USDC, big.NewInt(100_000_000))
	large := asset.NewAmount(asset.USDC, big.NewInt(108_000_000))

	diff, err := small.SignedDiff(large)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff.Cmp(big.NewInt(-8_000_000)) != 0 {
		t.Errorf("expected -8000000, got %s", diff.String())
	}
}

func TestAmount_MulDecimalFloor(t *testing.T) {
	tests := []struct {
		name   string
		raw    int64
		factor string
		want   int64
	}{
		{"exact", 1000, "0.5", 500},
		{"floors fraction", 105, "0.995", 104}, // 104.475
		{"identity", 123, "1", 123},
		{"zero factor", 123, "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := asset.NewAmount(asset.USDC, big.NewInt(tt.raw))
			factor := decimal.RequireFromString(tt.factor)

			got, err := a.MulDecimalFloor(factor)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Raw().Cmp(big.NewInt(tt.want)) != 0 {
				t.Errorf("expected %d, got %s", tt.want, got.Raw().String())
			}
		})
	}

	a := asset.NewAmount(asset.USDC, big.NewInt(100))
	if _, err := a.MulDecimalFloor(decimal.NewFromInt(-1)); err == nil {
		t.Error("expected error for negative factor")
	}
}

func TestFromDecimalFloor(t *testing.T) {
	// 1.2345678 USDC has one digit more than USDC's 6 decimals can carry.
	d := decimal.RequireFromString("1.2345678")

	got, err := asset.FromDecimalFloor(asset.USDC, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Raw().Cmp(big.NewInt(1_234_567)) != 0 {
		t.Errorf("expected 1234567, got %s", got.Raw().String())
	}
}

func TestParseDecimal_RejectsExcessPrecision(t *testing.T) {
	d := decimal.RequireFromString("1.2345678")

	if _, err := asset.ParseDecimal(asset.USDC, d); err == nil {
		t.Error("expected error for sub-raw-unit precision")
	}
}

func TestParseString(t *testing.T) {
	got, err := asset.ParseString(asset.WETH, "1.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := new(big.Int).SetInt64(15)
	want.Mul(want, new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil))
	if got.Raw().Cmp(want) != 0 {
		t.Errorf("expected %s, got %s", want.String(), got.Raw().String())
	}

	if _, err := asset.ParseString(asset.WETH, "not-a-number"); err == nil {
		t.Error("expected error for invalid string")
	}
	if _, err := asset.ParseString(asset.WETH, "-1"); err == nil {
		t.Error("expected error for negative value")
	}
}

func TestAmount_Comparisons(t *testing.T) {
	a := asset.NewAmount(asset.USDC, big.NewInt(100))
	b := asset.NewAmount(asset.USDC, big.NewInt(200))

	ge, err := b.GreaterThanOrEqual(a)
	if err != nil || !ge {
		t.Errorf("expected 200 >= 100, err=%v", err)
	}
	lt, err := a.LessThan(b)
	if err != nil || !lt {
		t.Errorf("expected 100 < 200, err=%v", err)
	}
	if !a.Equals(asset.NewAmount(asset.USDC, big.NewInt(100))) {
		t.Error("expected equal amounts")
	}
	if a.Equals(b) {
		t.Error("expected unequal amounts")
	}
}
