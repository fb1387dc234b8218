// Package app contains the supervising loop and health state for the bot
// context.
package app

import (
	"sync"
	"time"
)

// HealthSnapshot is a point-in-time copy of the bot's health state.
type HealthSnapshot struct {
	Healthy             bool
	ConsecutiveFailures int
	LastProfitableBlock uint64
	LastProfitableAt    time.Time
}

// HealthState tracks consecutive execution failures and gates scanning.
// Mutated only by the loop and executor completion paths; safe for
// concurrent use.
type HealthState struct {
	mu                  sync.Mutex
	healthy             bool
	consecutiveFailures int
	threshold           int
	lastProfitableBlock uint64
	lastProfitableAt    time.Time
}

// NewHealthState creates a healthy state that trips after threshold
// cumulative failure weight.
func NewHealthState(threshold int) *HealthState {
	return &HealthState{
		healthy:   true,
		threshold: threshold,
	}
}

// RecordFailure adds weight to the failure counter and reports whether
// this call tripped the state unhealthy.
func (h *HealthState) RecordFailure(weight int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.consecutiveFailures += weight
	if h.healthy && h.consecutiveFailures >= h.threshold {
		h.healthy = false
		return true
	}
	return false
}

// RecordSuccess resets the failure counter and stamps the profitable cycle.
func (h *HealthState) RecordSuccess(block uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.consecutiveFailures = 0
	h.lastProfitableBlock = block
	h.lastProfitableAt = time.Now()
}

// Healthy reports whether scanning is enabled.
func (h *HealthState) Healthy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.healthy
}

// SetHealthy flips the gate. Re-enabling also clears the failure counter;
// the periodic health check is the only caller that re-enables.
func (h *HealthState) SetHealthy(healthy bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.healthy = healthy
	if healthy {
		h.consecutiveFailures = 0
	}
}

// Snapshot returns a copy of the current state.
func (h *HealthState) Snapshot() HealthSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	return HealthSnapshot{
		Healthy:             h.healthy,
		ConsecutiveFailures: h.consecutiveFailures,
		LastProfitableBlock: h.lastProfitableBlock,
		LastProfitableAt:    h.lastProfitableAt,
	}
}
