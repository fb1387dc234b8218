package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexarb/internal/asset"
)

// VenueQuote is one venue's answer to "what does this input buy right now".
// Produced fresh for every scan and never mutated. A failed or missing quote
// is the explicit unavailable variant, not a zero value: zero output is a
// legitimate degenerate quote.
type VenueQuote struct {
	Venue              VenueID
	AmountIn           asset.Amount
	AmountOut          asset.Amount
	PriceImpactPercent decimal.Decimal
	LiquidityEstimate  decimal.Decimal // in quote-token whole units, zero if unknown
	FeeTier            int             // v3 fee tier in hundredths of a bip, 0 otherwise
	GasEstimate        uint64
	Timestamp          time.Time

	unavailable bool
	reason      error
}

// NewQuote creates a usable quote.
func NewQuote(venue VenueID, amountIn, amountOut asset.Amount, impactPercent decimal.Decimal) VenueQuote {
	return VenueQuote{
		Venue:              venue,
		AmountIn:           amountIn,
		AmountOut:          amountOut,
		PriceImpactPercent: impactPercent,
		Timestamp:          time.Now(),
	}
}

// Unavailable creates the explicit unavailable variant for a venue that
// could not quote this cycle (no pool, RPC failure, timeout).
func Unavailable(venue VenueID, reason error) VenueQuote {
	return VenueQuote{
		Venue:       venue,
		Timestamp:   time.Now(),
		unavailable: true,
		reason:      reason,
	}
}

// IsUsable reports whether the quote can participate in spread computation.
func (q *VenueQuote) IsUsable() bool {
	return q != nil && !q.unavailable
}

// Reason returns why the quote is unavailable, nil for usable quotes.
func (q *VenueQuote) Reason() error {
	return q.reason
}

// Rate returns the output per one whole input unit (the venue's effective
// price of the input token in output-token terms). Zero for zero input.
func (q *VenueQuote) Rate() decimal.Decimal {
	in := q.AmountIn.ToDecimal()
	if in.IsZero() {
		return decimal.Zero
	}
	return q.AmountOut.ToDecimal().Div(in)
}

// Age returns how long ago the quote was produced.
func (q *VenueQuote) Age() time.Duration {
	return time.Since(q.Timestamp)
}

// Stale reports whether the quote is older than maxAge. A non-positive
// maxAge disables staleness checking.
func (q *VenueQuote) Stale(maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	return q.Age() > maxAge
}
