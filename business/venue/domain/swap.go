package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/dexarb/internal/asset"
)

// SwapRequest describes one swap leg to submit on a venue. MinAmountOut is
// the on-chain minimum-output bound, already floor-rounded to raw units.
type SwapRequest struct {
	Venue        VenueID
	TokenIn      *asset.Token
	TokenOut     *asset.Token
	AmountIn     asset.Amount
	MinAmountOut asset.Amount
	Recipient    common.Address
	Deadline     time.Time
}

// SwapReceipt is the confirmed result of a submitted swap. AmountOut is the
// realized output, which may differ from any quoted estimate.
type SwapReceipt struct {
	Venue       VenueID
	TxHash      common.Hash
	AmountIn    asset.Amount
	AmountOut   asset.Amount
	GasUsed     uint64
	BlockNumber uint64
	Timestamp   time.Time
	Simulated   bool
}
