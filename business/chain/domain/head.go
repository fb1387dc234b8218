package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ConnectionState describes the chain client connectivity.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
)

// Head is a lightweight marker for the latest observed block. It stamps
// scan cycles and profitable-cycle bookkeeping.
type Head struct {
	Number     uint64
	Hash       common.Hash
	ParentHash common.Hash
	Timestamp  time.Time
	BaseFeeWei string // empty pre-EIP-1559
}

// IsZero reports whether no head has been observed yet.
func (h Head) IsZero() bool {
	return h.Number == 0 && h.Hash == (common.Hash{})
}
