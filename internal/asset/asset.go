// Package asset provides a type-safe model for on-chain tokens and amounts.
// Amounts are held as big.Int raw units (the token's smallest indivisible
// unit); decimal.Decimal appears only at boundaries (parsing, display) and
// for ratio math.
package asset

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TokenID uniquely identifies a token by chain and contract address.
// For native coins (ETH, MATIC) the address is zero.
type TokenID struct {
	chainID uint64
	address common.Address
}

// NewNativeTokenID creates a TokenID for a chain's native coin.
func NewNativeTokenID(chainID uint64) TokenID {
	return TokenID{chainID: chainID}
}

// NewTokenID creates a TokenID for an ERC20 token.
func NewTokenID(chainID uint64, addr common.Address) TokenID {
	if addr == (common.Address{}) {
		panic("asset: token address cannot be zero, use NewNativeTokenID")
	}
	return TokenID{chainID: chainID, address: addr}
}

// ParseTokenID builds a TokenID from a hex address string.
// Address comparison is case-insensitive by construction: common.HexToAddress
// normalizes the checksum casing.
func ParseTokenID(chainID uint64, hexAddr string) TokenID {
	return TokenID{chainID: chainID, address: common.HexToAddress(hexAddr)}
}

// ChainID returns the chain ID.
func (id TokenID) ChainID() uint64 { return id.chainID }

// Address returns the contract address (zero for native coins).
func (id TokenID) Address() common.Address { return id.address }

// IsNative returns true for a chain's native coin.
func (id TokenID) IsNative() bool { return id.address == (common.Address{}) }

// Equals compares two TokenIDs.
func (id TokenID) Equals(other TokenID) bool {
	return id.chainID == other.chainID && id.address == other.address
}

// String returns a human-readable representation.
func (id TokenID) String() string {
	if id.IsNative() {
		return "native"
	}
	return strings.ToLower(id.address.Hex())
}

// Token holds the immutable metadata of an on-chain token. The symbol is
// display metadata, not identity: two Tokens are the same token iff their
// IDs (chain + address) match.
type Token struct {
	id       TokenID
	symbol   string
	name     string
	decimals uint8
}

// NewToken creates a Token with the given parameters.
func NewToken(id TokenID, symbol, name string, decimals uint8) *Token {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 30 {
		panic("asset: suspicious decimals (>30)")
	}
	return &Token{id: id, symbol: symbol, name: name, decimals: decimals}
}

// ParseToken builds a Token from configuration values, validating the
// address and metadata instead of panicking.
func ParseToken(chainID uint64, hexAddr, symbol, name string, decimals uint8) (*Token, error) {
	if !common.IsHexAddress(hexAddr) {
		return nil, fmt.Errorf("asset: invalid token address: %q", hexAddr)
	}
	if symbol == "" {
		return nil, fmt.Errorf("asset: empty symbol for token %s", hexAddr)
	}
	if decimals > 30 {
		return nil, fmt.Errorf("asset: suspicious decimals %d for token %s", decimals, symbol)
	}
	return &Token{id: ParseTokenID(chainID, hexAddr), symbol: symbol, name: name, decimals: decimals}, nil
}

// ID returns the unique identifier for this token.
func (t *Token) ID() TokenID { return t.id }

// Symbol returns the ticker symbol (e.g. "WETH", "USDC").
func (t *Token) Symbol() string { return t.symbol }

// Name returns the human-readable name, falling back to the symbol.
func (t *Token) Name() string {
	if t.name == "" {
		return t.symbol
	}
	return t.name
}

// Decimals returns the number of decimal places used for raw-unit scaling.
func (t *Token) Decimals() uint8 { return t.decimals }

// Address returns the contract address (zero for native coins).
func (t *Token) Address() common.Address { return t.id.Address() }

// ChainID returns the chain this token lives on.
func (t *Token) ChainID() uint64 { return t.id.ChainID() }

// IsNative returns true for the chain's native coin.
func (t *Token) IsNative() bool { return t.id.IsNative() }

// Equals compares two Tokens by ID.
func (t *Token) Equals(other *Token) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.id.Equals(other.id)
}

// String returns the symbol.
func (t *Token) String() string { return t.symbol }
