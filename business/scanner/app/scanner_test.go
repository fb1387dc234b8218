package app

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexarb/business/scanner/domain"
	venueApp "github.com/fd1az/dexarb/business/venue/app"
	venueDomain "github.com/fd1az/dexarb/business/venue/domain"
	"github.com/fd1az/dexarb/internal/asset"
	"github.com/fd1az/dexarb/internal/logger"
)

// stubProvider returns a canned quote for its venue.
type stubProvider struct {
	id      venueDomain.VenueID
	out     uint64
	impact  string
	failErr error // non-nil simulates a transport failure
	noPool  bool  // simulates the explicit unavailable variant
}

func (s *stubProvider) ID() venueDomain.VenueID { return s.id }

func (s *stubProvider) GetQuote(_ context.Context, _, tokenOut *asset.Token, amountIn asset.Amount) (*venueDomain.VenueQuote, error) {
	if s.failErr != nil {
		return nil, s.failErr
	}
	if s.noPool {
		q := venueDomain.Unavailable(s.id, errors.New("no pool"))
		return &q, nil
	}
	impact := decimal.Zero
	if s.impact != "" {
		impact = decimal.RequireFromString(s.impact)
	}
	q := venueDomain.NewQuote(s.id, amountIn, asset.NewAmountFromUint64(tokenOut, s.out), impact)
	return &q, nil
}

func testPair(t *testing.T) venueDomain.Pair {
	t.Helper()
	pair, err := venueDomain.NewPair(asset.WETH, asset.USDC)
	if err != nil {
		t.Fatalf("NewPair: %v", err)
	}
	return pair
}

func newTestScanner(t *testing.T, maxImpact string, providers ...*stubProvider) *Scanner {
	t.Helper()

	registry := venueApp.NewRegistry()
	for _, p := range providers {
		registry.RegisterProvider(p)
	}

	cfg := ScannerConfig{MaxPriceImpactPercent: decimal.RequireFromString(maxImpact)}
	s, err := NewScanner(registry, nil, cfg, logger.Nop())
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}
	return s
}

func scanOnce(t *testing.T, s *Scanner, minProfit string) []*domain.Opportunity {
	t.Helper()

	pair := testPair(t)
	amountIn := asset.NewAmountFromUint64(asset.WETH, 1_000_000_000_000_000_000) // 1 WETH
	opps, err := s.Scan(context.Background(), pair, amountIn, decimal.RequireFromString(minProfit))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return opps
}

func TestScan_ThreeVenues_RankedPairs(t *testing.T) {
	// Scenario: outputs {100, 105, 98}, threshold 3%. Both 98→105 (~7.14%)
	// and 100→105 (5%) qualify, 98→105 first.
	s := newTestScanner(t, "1.0",
		&stubProvider{id: "alpha", out: 100},
		&stubProvider{id: "beta", out: 105},
		&stubProvider{id: "gamma", out: 98},
	)

	opps := scanOnce(t, s, "3")

	if len(opps) != 2 {
		t.Fatalf("got %d opportunities, want 2", len(opps))
	}
	if opps[0].BuyVenue != "gamma" || opps[0].SellVenue != "beta" {
		t.Errorf("top opportunity = %s→%s, want gamma→beta", opps[0].BuyVenue, opps[0].SellVenue)
	}
	if opps[1].BuyVenue != "alpha" || opps[1].SellVenue != "beta" {
		t.Errorf("second opportunity = %s→%s, want alpha→beta", opps[1].BuyVenue, opps[1].SellVenue)
	}

	wantTop := decimal.RequireFromString("7.14")
	if opps[0].ProfitPercent.Sub(wantTop).Abs().GreaterThan(decimal.RequireFromString("0.01")) {
		t.Errorf("top profit = %s%%, want ~7.14%%", opps[0].ProfitPercent)
	}
}

func TestScan_ThresholdAbove5_ExcludesSmallerSpread(t *testing.T) {
	s := newTestScanner(t, "1.0",
		&stubProvider{id: "alpha", out: 100},
		&stubProvider{id: "beta", out: 105},
		&stubProvider{id: "gamma", out: 98},
	)

	opps := scanOnce(t, s, "5.5")

	if len(opps) != 1 {
		t.Fatalf("got %d opportunities, want 1", len(opps))
	}
	if opps[0].BuyVenue != "gamma" || opps[0].SellVenue != "beta" {
		t.Errorf("opportunity = %s→%s, want gamma→beta", opps[0].BuyVenue, opps[0].SellVenue)
	}
}

func TestScan_StrictThreshold_ExcludesBoundary(t *testing.T) {
	// 100 → 105 is exactly 5%; a 5% threshold must exclude it.
	s := newTestScanner(t, "1.0",
		&stubProvider{id: "alpha", out: 100},
		&stubProvider{id: "beta", out: 105},
	)

	opps := scanOnce(t, s, "5")

	if len(opps) != 0 {
		t.Fatalf("boundary profit must not qualify, got %d opportunities", len(opps))
	}
}

func TestScan_NeverPairsVenueWithItself(t *testing.T) {
	s := newTestScanner(t, "1.0",
		&stubProvider{id: "alpha", out: 90},
		&stubProvider{id: "beta", out: 100},
		&stubProvider{id: "gamma", out: 110},
	)

	opps := scanOnce(t, s, "0.1")

	for _, o := range opps {
		if o.BuyVenue == o.SellVenue {
			t.Errorf("self-pair emitted: %s", o.BuyVenue)
		}
	}
}

func TestScan_SingleUsableQuote_Empty(t *testing.T) {
	s := newTestScanner(t, "1.0",
		&stubProvider{id: "alpha", out: 100},
		&stubProvider{id: "beta", noPool: true},
		&stubProvider{id: "gamma", failErr: errors.New("rpc timeout")},
	)

	opps := scanOnce(t, s, "1")

	if len(opps) != 0 {
		t.Fatalf("got %d opportunities with one usable quote, want 0", len(opps))
	}
}

func TestScan_ZeroOutputQuote_NoPanic(t *testing.T) {
	s := newTestScanner(t, "1.0",
		&stubProvider{id: "alpha", out: 0},
		&stubProvider{id: "beta", out: 100},
	)

	opps := scanOnce(t, s, "1")

	// The zero-output venue cannot be a divisor; the only possible
	// qualifying pair would buy at zero, which is skipped.
	for _, o := range opps {
		if o.BuyVenue == "alpha" {
			t.Errorf("zero-output venue used as buy leg")
		}
	}
}

func TestScan_ImpactCapAppliesToBothLegs(t *testing.T) {
	tests := []struct {
		name       string
		buyImpact  string
		sellImpact string
		want       int
	}{
		{"both_below_cap", "0.5", "0.5", 1},
		{"buy_leg_at_cap", "1.0", "0.5", 0},
		{"sell_leg_above_cap", "0.5", "1.5", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScanner(t, "1.0",
				&stubProvider{id: "cheap", out: 95, impact: tt.buyImpact},
				&stubProvider{id: "rich", out: 105, impact: tt.sellImpact},
			)

			opps := scanOnce(t, s, "3")
			if len(opps) != tt.want {
				t.Errorf("got %d opportunities, want %d", len(opps), tt.want)
			}
		})
	}
}

func TestScan_SortedByAbsoluteProfit(t *testing.T) {
	s := newTestScanner(t, "1.0",
		&stubProvider{id: "a", out: 90},
		&stubProvider{id: "b", out: 100},
		&stubProvider{id: "c", out: 110},
	)

	opps := scanOnce(t, s, "0.1")

	for i := 1; i < len(opps); i++ {
		cmp, err := opps[i-1].EstimatedProfitAbsolute.Cmp(opps[i].EstimatedProfitAbsolute)
		if err != nil {
			t.Fatalf("Cmp: %v", err)
		}
		if cmp < 0 {
			t.Errorf("not sorted at index %d: %s < %s", i,
				opps[i-1].EstimatedProfitAbsolute, opps[i].EstimatedProfitAbsolute)
		}
	}
}

func TestScan_Deterministic(t *testing.T) {
	s := newTestScanner(t, "1.0",
		&stubProvider{id: "a", out: 98},
		&stubProvider{id: "b", out: 105},
		&stubProvider{id: "c", out: 100},
	)

	first := scanOnce(t, s, "1")
	second := scanOnce(t, s, "1")

	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].BuyVenue != second[i].BuyVenue || first[i].SellVenue != second[i].SellVenue {
			t.Errorf("order differs at %d: %s→%s vs %s→%s", i,
				first[i].BuyVenue, first[i].SellVenue,
				second[i].BuyVenue, second[i].SellVenue)
		}
	}
}

func TestScan_NoRegisteredVenues_Empty(t *testing.T) {
	s := newTestScanner(t, "1.0")

	opps := scanOnce(t, s, "1")
	if len(opps) != 0 {
		t.Fatalf("got %d opportunities with no venues, want 0", len(opps))
	}
}
