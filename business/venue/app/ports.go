// Package app contains application services and port definitions for the venue context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/dexarb/business/venue/domain"
	"github.com/fd1az/dexarb/internal/asset"
)

// QuoteProvider is the read-only quoting capability of one venue.
type QuoteProvider interface {
	// ID returns the venue identifier this provider quotes for.
	ID() domain.VenueID

	// GetQuote returns a quote for swapping amountIn of tokenIn into tokenOut.
	// Ordinary no-liquidity conditions come back as the Unavailable quote
	// variant with a nil error; transport failures return an error, which
	// callers treat as unavailable for the cycle.
	GetQuote(ctx context.Context, tokenIn, tokenOut *asset.Token, amountIn asset.Amount) (*domain.VenueQuote, error)
}

// SwapExecutor submits one swap leg on a venue and waits for confirmation.
type SwapExecutor interface {
	// ID returns the venue identifier this executor trades on.
	ID() domain.VenueID

	// SubmitSwap submits the swap and blocks until it confirms, times out,
	// or is rejected. The returned receipt carries the realized output.
	SubmitSwap(ctx context.Context, req domain.SwapRequest) (*domain.SwapReceipt, error)
}

// TransactionSender is the wallet boundary: an opaque capability that signs
// and submits transactions and waits for them to mine. The core never
// touches private keys.
type TransactionSender interface {
	// Send signs and broadcasts a transaction calling `to` with calldata.
	Send(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (common.Hash, error)

	// WaitMined blocks until the transaction is mined and returns its receipt.
	WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error)

	// From returns the sending address.
	From() common.Address
}
