// Package domain contains the core domain types for the chain context.
package domain

import (
	"math/big"
)

// GasPrice is a point-in-time gas price in wei.
type GasPrice struct {
	Wei *big.Int
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(wei *big.Int) *GasPrice {
	return &GasPrice{Wei: new(big.Int).Set(wei)}
}

// Gwei returns the price in gwei as a float for display and metrics.
func (g *GasPrice) Gwei() float64 {
	if g == nil || g.Wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(g.Wei),
		big.NewFloat(1e9),
	).Float64()
	return f
}

// GasEstimate couples a gas limit with the price used to cost it.
type GasEstimate struct {
	GasLimit uint64
	Price    *GasPrice
}

// NewGasEstimate creates a GasEstimate.
func NewGasEstimate(gasLimit uint64, price *GasPrice) *GasEstimate {
	return &GasEstimate{GasLimit: gasLimit, Price: price}
}

// TotalWei returns gasLimit * gasPrice in wei.
func (e *GasEstimate) TotalWei() *big.Int {
	if e == nil || e.Price == nil || e.Price.Wei == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(e.Price.Wei, new(big.Int).SetUint64(e.GasLimit))
}

// TotalGwei returns the total cost in gwei for display.
func (e *GasEstimate) TotalGwei() float64 {
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(e.TotalWei()),
		big.NewFloat(1e9),
	).Float64()
	return f
}
