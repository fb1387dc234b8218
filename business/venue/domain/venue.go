// Package domain contains the core domain types for the venue context.
package domain

import (
	"fmt"

	"github.com/fd1az/dexarb/internal/asset"
)

// VenueID uniquely identifies a configured DEX venue.
type VenueID string

func (id VenueID) String() string { return string(id) }

// Pair is the traded token pair. Base is the token being arbitraged,
// Quote is the funding token quotes are denominated in.
type Pair struct {
	Base  *asset.Token
	Quote *asset.Token
}

// NewPair creates a Pair, rejecting nil or identical tokens.
func NewPair(base, quote *asset.Token) (Pair, error) {
	if base == nil || quote == nil {
		return Pair{}, fmt.Errorf("pair: nil token")
	}
	if base.Equals(quote) {
		return Pair{}, fmt.Errorf("pair: base and quote are the same token (%s)", base.Symbol())
	}
	return Pair{Base: base, Quote: quote}, nil
}

// String returns e.g. "WETH/USDC".
func (p Pair) String() string {
	return fmt.Sprintf("%s/%s", p.Base.Symbol(), p.Quote.Symbol())
}
