// Package domain contains the core domain types for the scanner context.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	venueDomain "github.com/fd1az/dexarb/business/venue/domain"
	"github.com/fd1az/dexarb/internal/asset"
)

// Opportunity is a detected two-venue arbitrage spread. Created by the
// scanner for each qualifying venue pair in a single scan pass and never
// mutated afterwards; consumed once by the executor or discarded at the
// end of the cycle.
//
// Invariants: BuyVenue != SellVenue, ProfitPercent > 0, and both quotes
// price the same nominal input with SellVenue the higher output.
type Opportunity struct {
	ID            string
	Pair          venueDomain.Pair
	BuyVenue      venueDomain.VenueID
	SellVenue     venueDomain.VenueID
	BuyQuote      *venueDomain.VenueQuote
	SellQuote     *venueDomain.VenueQuote
	ProfitPercent decimal.Decimal
	// EstimatedProfitAbsolute is sell output minus buy output in raw
	// quote-token units for the same nominal base input.
	EstimatedProfitAbsolute asset.Amount
	Route                   string
	BlockNumber             uint64
	Timestamp               time.Time
}

// Describe returns a one-line human-readable summary.
func (o *Opportunity) Describe() string {
	return fmt.Sprintf("%s: buy on %s, sell on %s (+%s%%)",
		o.Pair, o.BuyVenue, o.SellVenue, o.ProfitPercent.StringFixed(4))
}

// MaxQuoteAge returns the age of the older of the two quotes.
func (o *Opportunity) MaxQuoteAge() time.Duration {
	buyAge := o.BuyQuote.Age()
	sellAge := o.SellQuote.Age()
	if buyAge > sellAge {
		return buyAge
	}
	return sellAge
}
