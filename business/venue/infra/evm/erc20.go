// Package evm holds EVM helpers shared by the venue adapters.
package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// TransferTopic is the topic0 of the ERC20 Transfer(address,address,uint256) event.
var TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// ReceiptOutput sums the token amounts transferred to recipient in a mined
// swap receipt. This is how the realized output of a swap is recovered:
// the router emits ERC20 Transfer events and the final hop pays the
// recipient directly.
func ReceiptOutput(receipt *types.Receipt, token, recipient common.Address) *big.Int {
	total := new(big.Int)

	for _, log := range receipt.Logs {
		if log.Address != token || len(log.Topics) != 3 {
			continue
		}
		if log.Topics[0] != TransferTopic {
			continue
		}
		to := common.BytesToAddress(log.Topics[2].Bytes())
		if to != recipient {
			continue
		}
		total.Add(total, new(big.Int).SetBytes(log.Data))
	}

	return total
}

// SortTokens orders two token addresses the way Uniswap pair contracts do:
// token0 is the numerically lower address.
func SortTokens(a, b common.Address) (common.Address, common.Address) {
	if a.Cmp(b) < 0 {
		return a, b
	}
	return b, a
}
