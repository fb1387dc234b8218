package app

import (
	"testing"
)

func TestHealthState_TripsAtThreshold(t *testing.T) {
	h := NewHealthState(3)

	if !h.Healthy() {
		t.Fatal("new state should start healthy")
	}
	if tripped := h.RecordFailure(1); tripped {
		t.Fatal("first failure should not trip")
	}
	if tripped := h.RecordFailure(1); tripped {
		t.Fatal("second failure should not trip")
	}
	if tripped := h.RecordFailure(1); !tripped {
		t.Fatal("third failure should trip the threshold")
	}
	if h.Healthy() {
		t.Fatal("state should be unhealthy after tripping")
	}

	// Further failures accumulate but never report a second trip.
	if tripped := h.RecordFailure(1); tripped {
		t.Fatal("already-unhealthy state must not trip again")
	}
}

func TestHealthState_WeightedFailure(t *testing.T) {
	h := NewHealthState(2)

	if tripped := h.RecordFailure(2); !tripped {
		t.Fatal("weight-2 failure should trip a threshold of 2 in one call")
	}
	if got := h.Snapshot().ConsecutiveFailures; got != 2 {
		t.Fatalf("ConsecutiveFailures = %d, want 2", got)
	}
}

func TestHealthState_SuccessResetsCounter(t *testing.T) {
	h := NewHealthState(3)

	h.RecordFailure(1)
	h.RecordFailure(1)
	h.RecordSuccess(1234)

	snap := h.Snapshot()
	if snap.ConsecutiveFailures != 0 {
		t.Fatalf("ConsecutiveFailures = %d, want 0 after success", snap.ConsecutiveFailures)
	}
	if snap.LastProfitableBlock != 1234 {
		t.Fatalf("LastProfitableBlock = %d, want 1234", snap.LastProfitableBlock)
	}
	if snap.LastProfitableAt.IsZero() {
		t.Fatal("LastProfitableAt should be stamped")
	}

	// The streak starts over after a success.
	h.RecordFailure(1)
	h.RecordFailure(1)
	if !h.Healthy() {
		t.Fatal("two failures after a reset should not reach a threshold of 3")
	}
}

func TestHealthState_ReenableClearsCounter(t *testing.T) {
	h := NewHealthState(2)

	h.RecordFailure(1)
	h.RecordFailure(1)
	if h.Healthy() {
		t.Fatal("state should be unhealthy")
	}

	h.SetHealthy(true)
	snap := h.Snapshot()
	if !snap.Healthy {
		t.Fatal("state should be healthy after re-enable")
	}
	if snap.ConsecutiveFailures != 0 {
		t.Fatalf("ConsecutiveFailures = %d, want 0 after re-enable", snap.ConsecutiveFailures)
	}
}

func TestHealthState_SetUnhealthyKeepsCounter(t *testing.T) {
	h := NewHealthState(5)

	h.RecordFailure(2)
	h.SetHealthy(false)

	if got := h.Snapshot().ConsecutiveFailures; got != 2 {
		t.Fatalf("ConsecutiveFailures = %d, want 2 after manual suspend", got)
	}
}
