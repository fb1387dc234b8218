// Package domain contains the core domain types for the execution context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	scannerDomain "github.com/fd1az/dexarb/business/scanner/domain"
	venueDomain "github.com/fd1az/dexarb/business/venue/domain"
	"github.com/fd1az/dexarb/internal/asset"
)

// Status tracks a trade attempt through its strictly linear lifecycle.
// Any failure at any stage transitions directly to StatusFailed; there is
// no per-attempt retry.
type Status string

const (
	StatusPending       Status = "pending"
	StatusBuySubmitted  Status = "buy_submitted"
	StatusBuyConfirmed  Status = "buy_confirmed"
	StatusSellSubmitted Status = "sell_submitted"
	StatusSellConfirmed Status = "sell_confirmed"
	StatusFailed        Status = "failed"
)

// TradeAttempt is the executor's working record for one two-leg trade.
// Ephemeral; it lives only for the duration of one Execute call.
type TradeAttempt struct {
	ID          string
	Opportunity *scannerDomain.Opportunity
	InputAmount asset.Amount // quote-token funding for the buy leg
	MinOutBuy   asset.Amount // base-token floor for the buy leg
	MinOutSell  asset.Amount // quote-token floor for the sell leg, set after buy confirms
	Status      Status
	StartedAt   time.Time
}

// TradeResult is the outcome of a completed (or failed) attempt.
type TradeResult struct {
	AttemptID    string
	Opportunity  *scannerDomain.Opportunity
	Status       Status
	BuyReceipt   *venueDomain.SwapReceipt
	SellReceipt  *venueDomain.SwapReceipt
	InputAmount  asset.Amount
	OutputAmount asset.Amount // realized quote-token output, zero unless fully confirmed
	// RealizedProfit is output minus input in raw quote units; negative on
	// a losing round trip. Only meaningful when Success is true.
	RealizedProfit decimal.Decimal
	Err            error
	FinishedAt     time.Time
}

// Success reports whether both legs confirmed.
func (r *TradeResult) Success() bool {
	return r.Status == StatusSellConfirmed && r.Err == nil
}
