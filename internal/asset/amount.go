package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrNilToken        = errors.New("asset: nil token")
	ErrNilRaw          = errors.New("asset: nil raw value")
	ErrNegativeAmount  = errors.New("asset: negative amount")
	ErrTokenMismatch   = errors.New("asset: cannot operate on different tokens")
	ErrNegativeResult  = errors.New("asset: operation would result in negative amount")
	ErrTooManyDecimals = errors.New("asset: too many decimal places for token")
)

// Amount is an immutable value object representing a quantity of a token.
// The raw value is always in the token's smallest unit.
type Amount struct {
	raw   *big.Int
	token *Token
}

// NewAmount creates an Amount from a raw big.Int value.
func NewAmount(token *Token, raw *big.Int) Amount {
	if token == nil {
		panic(ErrNilToken)
	}
	if raw == nil {
		panic(ErrNilRaw)
	}
	if raw.Sign() < 0 {
		panic(ErrNegativeAmount)
	}

	return Amount{
		raw:   new(big.Int).Set(raw), // defensive copy
		token: token,
	}
}

// Zero creates a zero Amount for the given token.
func Zero(token *Token) Amount {
	return NewAmount(token, big.NewInt(0))
}

// NewAmountFromUint64 creates an Amount from a uint64 raw value.
func NewAmountFromUint64(token *Token, raw uint64) Amount {
	return NewAmount(token, new(big.Int).SetUint64(raw))
}

// Raw returns a copy of the raw big.Int value.
func (a Amount) Raw() *big.Int {
	if a.raw == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(a.raw)
}

// Token returns the token this amount is denominated in.
func (a Amount) Token() *Token {
	return a.token
}

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool {
	return a.raw == nil || a.raw.Sign() == 0
}

// IsPositive returns true if the amount is greater than zero.
func (a Amount) IsPositive() bool {
	return a.raw != nil && a.raw.Sign() > 0
}

// Add adds two amounts of the same token.
func (a Amount) Add(b Amount) (Amount, error) {
	if err := a.checkSameToken(b); err != nil {
		return Amount{}, err
	}
	return NewAmount(a.token, new(big.Int).Add(a.raw, b.raw)), nil
}

// Sub subtracts b from a (same token only). Fails on a negative result.
func (a Amount) Sub(b Amount) (Amount, error) {
	if err := a.checkSameToken(b); err != nil {
		return Amount{}, err
	}
	if a.raw.Cmp(b.raw) < 0 {
		return Amount{}, ErrNegativeResult
	}
	return NewAmount(a.token, new(big.Int).Sub(a.raw, b.raw)), nil
}

// SignedDiff returns a-b as a signed big.Int, tolerating a < b.
// Used for realized profit/loss reporting.
func (a Amount) SignedDiff(b Amount) (*big.Int, error) {
	if err := a.checkSameToken(b); err != nil {
		return nil, err
	}
	return new(big.Int).Sub(a.raw, b.raw), nil
}

// MulDecimalFloor multiplies the raw value by a non-negative decimal factor
// and floors the result to an integer raw unit. This is the only sanctioned
// path from ratio math (slippage, fees) back to on-chain integer amounts.
func (a Amount) MulDecimalFloor(factor decimal.Decimal) (Amount, error) {
	if factor.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}
	product := decimal.NewFromBigInt(a.Raw(), 0).Mul(factor)
	return NewAmount(a.token, product.Floor().BigInt()), nil
}

// Cmp compares two amounts of the same token.
// Returns -1 if a < b, 0 if a == b, 1 if a > b.
func (a Amount) Cmp(b Amount) (int, error) {
	if err := a.checkSameToken(b); err != nil {
		return 0, err
	}
	return a.raw.Cmp(b.raw), nil
}

// Equals returns true if both amounts have the same token and value.
func (a Amount) Equals(b Amount) bool {
	if a.token == nil || b.token == nil {
		return a.token == b.token && a.IsZero() && b.IsZero()
	}
	if !a.token.ID().Equals(b.token.ID()) {
		return false
	}
	return a.raw.Cmp(b.raw) == 0
}

// GreaterThanOrEqual returns true if a >= b.
func (a Amount) GreaterThanOrEqual(b Amount) (bool, error) {
	cmp, err := a.Cmp(b)
	if err != nil {
		return false, err
	}
	return cmp >= 0, nil
}

// LessThan returns true if a < b.
func (a Amount) LessThan(b Amount) (bool, error) {
	cmp, err := a.Cmp(b)
	if err != nil {
		return false, err
	}
	return cmp < 0, nil
}

// ToDecimal converts the amount to a decimal in whole-token units.
// Boundary function: display and ratio math only, never chain parameters.
func (a Amount) ToDecimal() decimal.Decimal {
	if a.raw == nil || a.token == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(a.raw, -int32(a.token.Decimals()))
}

// ParseDecimal creates an Amount from a whole-token decimal value.
func ParseDecimal(token *Token, d decimal.Decimal) (Amount, error) {
	if token == nil {
		return Amount{}, ErrNilToken
	}
	if d.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}

	scaled := d.Shift(int32(token.Decimals()))
	if !scaled.Equal(scaled.Truncate(0)) {
		return Amount{}, ErrTooManyDecimals
	}

	return NewAmount(token, scaled.BigInt()), nil
}

// FromDecimalFloor creates an Amount from a whole-token decimal value,
// flooring any sub-raw-unit fraction. Used where cross-token ratio math
// produces more precision than the token's decimals can carry.
func FromDecimalFloor(token *Token, d decimal.Decimal) (Amount, error) {
	if token == nil {
		return Amount{}, ErrNilToken
	}
	if d.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}

	scaled := d.Shift(int32(token.Decimals())).Floor()
	return NewAmount(token, scaled.BigInt()), nil
}

// ParseString creates an Amount from a string decimal value.
func ParseString(token *Token, s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("asset: invalid decimal string: %w", err)
	}
	return ParseDecimal(token, d)
}

// String returns a human-readable representation (e.g. "1.5 WETH").
func (a Amount) String() string {
	if a.token == nil {
		return "0 ???"
	}
	return fmt.Sprintf("%s %s", a.ToDecimal().String(), a.token.Symbol())
}

func (a Amount) checkSameToken(b Amount) error {
	if a.token == nil || b.token == nil {
		return ErrNilToken
	}
	if !a.token.ID().Equals(b.token.ID()) {
		return fmt.Errorf("%w: %s vs %s", ErrTokenMismatch, a.token.Symbol(), b.token.Symbol())
	}
	return nil
}
