package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	executionApp "github.com/fd1az/dexarb/business/execution/app"
	executionDomain "github.com/fd1az/dexarb/business/execution/domain"
	scannerDomain "github.com/fd1az/dexarb/business/scanner/domain"
	venueDomain "github.com/fd1az/dexarb/business/venue/domain"
	"github.com/fd1az/dexarb/internal/apperror"
	"github.com/fd1az/dexarb/internal/asset"
	"github.com/fd1az/dexarb/internal/logger"
)

var (
	loopBase = asset.MustNewToken(1,
		common.HexToAddress("0x3333333333333333333333333333333333333333"),
		"BASE", "Base Token", 18)
	loopQuote = asset.MustNewToken(1,
		common.HexToAddress("0x4444444444444444444444444444444444444444"),
		"QUOTE", "Quote Token", 6)
)

func loopPair(t *testing.T) venueDomain.Pair {
	t.Helper()
	pair, err := venueDomain.NewPair(loopBase, loopQuote)
	if err != nil {
		t.Fatalf("NewPair: %v", err)
	}
	return pair
}

func loopOpp(t *testing.T, id string) *scannerDomain.Opportunity {
	t.Helper()
	return &scannerDomain.Opportunity{
		ID:                      id,
		Pair:                    loopPair(t),
		BuyVenue:                "venue-a",
		SellVenue:               "venue-b",
		ProfitPercent:           decimal.NewFromFloat(1.5),
		EstimatedProfitAbsolute: asset.NewAmountFromUint64(loopQuote, 1_000_000),
		Route:                   "buy " + id + " on venue-a, sell on venue-b",
		BlockNumber:             100,
		Timestamp:               time.Now(),
	}
}

// stubScanner returns a canned opportunity list and counts invocations.
type stubScanner struct {
	opps  []*scannerDomain.Opportunity
	err   error
	calls atomic.Int32
}

func (s *stubScanner) Scan(context.Context, venueDomain.Pair, asset.Amount, decimal.Decimal) ([]*scannerDomain.Opportunity, error) {
	s.calls.Add(1)
	return s.opps, s.err
}

// funcExecutor delegates Execute to a test-supplied function and tracks the
// peak number of concurrent calls.
type funcExecutor struct {
	fn          func(ctx context.Context, opp *scannerDomain.Opportunity) (*executionDomain.TradeResult, error)
	calls       atomic.Int32
	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func (e *funcExecutor) Execute(ctx context.Context, opp *scannerDomain.Opportunity, _ asset.Amount) (*executionDomain.TradeResult, error) {
	e.calls.Add(1)
	cur := e.inflight.Add(1)
	for {
		max := e.maxInflight.Load()
		if cur <= max || e.maxInflight.CompareAndSwap(max, cur) {
			break
		}
	}
	defer e.inflight.Add(-1)
	return e.fn(ctx, opp)
}

// stubReadiness returns a scripted readiness verdict.
type stubReadiness struct {
	readiness executionApp.Readiness
	err       error
	calls     atomic.Int32
}

func (s *stubReadiness) CheckReadiness(context.Context, []executionApp.AllowanceRequirement) (executionApp.Readiness, error) {
	s.calls.Add(1)
	return s.readiness, s.err
}

// recordingSender captures every published event.
type recordingSender struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSender) Name() string { return "recording" }

func (r *recordingSender) Send(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSender) byType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newTestLoop(t *testing.T, scanner OpportunityScanner, executor TradeExecutor, readiness ReadinessChecker, threshold int, maxConcurrent int64) (*Loop, *recordingSender) {
	t.Helper()

	sink := &recordingSender{}
	loop, err := NewLoop(
		scanner,
		executor,
		readiness,
		NewHealthState(threshold),
		NewBroadcaster(logger.Nop(), sink),
		LoopConfig{
			Pair:                loopPair(t),
			ReferenceAmount:     asset.NewAmountFromUint64(loopBase, 1_000_000_000_000_000_000),
			FundingAmount:       asset.NewAmountFromUint64(loopQuote, 1_000_000_000),
			MinProfitPercent:    decimal.NewFromFloat(0.5),
			MaxConcurrentTrades: maxConcurrent,
			ScanInterval:        time.Hour,
			HealthCheckInterval: time.Hour,
		},
		logger.Nop(),
	)
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	return loop, sink
}

func readyChecker() *stubReadiness {
	return &stubReadiness{readiness: executionApp.Readiness{Ready: true}}
}

// waitIdle blocks until every execution slot is free again.
func waitIdle(t *testing.T, l *Loop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.slots.Acquire(ctx, l.config.MaxConcurrentTrades); err != nil {
		t.Fatalf("executions did not drain: %v", err)
	}
	l.slots.Release(l.config.MaxConcurrentTrades)
}

func okResult(opp *scannerDomain.Opportunity) *executionDomain.TradeResult {
	return &executionDomain.TradeResult{
		AttemptID:   "attempt-" + opp.ID,
		Opportunity: opp,
		Status:      executionDomain.StatusSellConfirmed,
		FinishedAt:  time.Now(),
	}
}

func TestCycle_ConcurrencyBoundedBySlots(t *testing.T) {
	opps := []*scannerDomain.Opportunity{
		loopOpp(t, "o1"), loopOpp(t, "o2"), loopOpp(t, "o3"), loopOpp(t, "o4"), loopOpp(t, "o5"),
	}

	started := make(chan struct{}, len(opps))
	release := make(chan struct{})
	executor := &funcExecutor{}
	executor.fn = func(ctx context.Context, opp *scannerDomain.Opportunity) (*executionDomain.TradeResult, error) {
		started <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return okResult(opp), nil
	}

	loop, _ := newTestLoop(t, &stubScanner{opps: opps}, executor, readyChecker(), 10, 2)

	loop.cycle(context.Background())

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(5 * time.Second):
			t.Fatal("execution did not start")
		}
	}

	// Both slots are held; another cycle must not start a third attempt.
	loop.cycle(context.Background())
	select {
	case <-started:
		t.Fatal("attempt started beyond the concurrency limit")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	waitIdle(t, loop)

	if got := executor.maxInflight.Load(); got > 2 {
		t.Fatalf("max concurrent executions = %d, want <= 2", got)
	}
	if got := executor.calls.Load(); got != 2 {
		t.Fatalf("executor calls = %d, want 2", got)
	}
}

func TestDispatch_ReleasesSlotOnPanic(t *testing.T) {
	executor := &funcExecutor{fn: func(context.Context, *scannerDomain.Opportunity) (*executionDomain.TradeResult, error) {
		panic("boom")
	}}

	loop, _ := newTestLoop(t, &stubScanner{opps: []*scannerDomain.Opportunity{loopOpp(t, "o1")}}, executor, readyChecker(), 10, 1)

	loop.cycle(context.Background())
	waitIdle(t, loop)

	snap := loop.Health().Snapshot()
	if snap.ConsecutiveFailures != 1 {
		t.Fatalf("ConsecutiveFailures = %d, want 1 after panic", snap.ConsecutiveFailures)
	}

	// The slot must be reusable for the next cycle.
	loop.cycle(context.Background())
	waitIdle(t, loop)
	if got := executor.calls.Load(); got != 2 {
		t.Fatalf("executor calls = %d, want 2", got)
	}
}

func TestAttempt_FailureThresholdSuspendsScanning(t *testing.T) {
	executor := &funcExecutor{fn: func(context.Context, *scannerDomain.Opportunity) (*executionDomain.TradeResult, error) {
		return nil, errors.New("revert")
	}}
	scanner := &stubScanner{opps: []*scannerDomain.Opportunity{loopOpp(t, "o1")}}

	loop, sink := newTestLoop(t, scanner, executor, readyChecker(), 3, 1)

	for i := 0; i < 3; i++ {
		loop.cycle(context.Background())
		waitIdle(t, loop)
	}

	if loop.Health().Healthy() {
		t.Fatal("loop should be suspended after three failures")
	}
	if got := sink.byType(EventHealthCheckFailed); len(got) != 1 {
		t.Fatalf("suspension events = %d, want 1", len(got))
	}

	// The health gate closes the cycle before scanning.
	before := scanner.calls.Load()
	loop.cycle(context.Background())
	if scanner.calls.Load() != before {
		t.Fatal("suspended loop must not scan")
	}
}

func TestAttempt_PartialFillCountsDouble(t *testing.T) {
	executor := &funcExecutor{fn: func(context.Context, *scannerDomain.Opportunity) (*executionDomain.TradeResult, error) {
		return nil, apperror.New(apperror.CodePartialFill)
	}}

	loop, _ := newTestLoop(t, &stubScanner{opps: []*scannerDomain.Opportunity{loopOpp(t, "o1")}}, executor, readyChecker(), 2, 1)

	loop.cycle(context.Background())
	waitIdle(t, loop)

	if loop.Health().Healthy() {
		t.Fatal("one partial fill should trip a threshold of 2")
	}
	if got := loop.Health().Snapshot().ConsecutiveFailures; got != 2 {
		t.Fatalf("ConsecutiveFailures = %d, want 2", got)
	}
}

func TestAttempt_StaleQuoteIsPreflightSkip(t *testing.T) {
	executor := &funcExecutor{fn: func(context.Context, *scannerDomain.Opportunity) (*executionDomain.TradeResult, error) {
		return nil, apperror.New(apperror.CodeStaleQuote)
	}}

	loop, sink := newTestLoop(t, &stubScanner{opps: []*scannerDomain.Opportunity{loopOpp(t, "o1")}}, executor, readyChecker(), 1, 1)

	loop.cycle(context.Background())
	waitIdle(t, loop)

	if !loop.Health().Healthy() {
		t.Fatal("stale quote must not count toward the failure threshold")
	}
	if got := loop.Health().Snapshot().ConsecutiveFailures; got != 0 {
		t.Fatalf("ConsecutiveFailures = %d, want 0", got)
	}
	if got := sink.byType(EventTradeFailed); len(got) != 0 {
		t.Fatalf("trade-failed events = %d, want 0 for a preflight skip", len(got))
	}
}

func TestAttempt_PreconditionNotReadySkipsExecution(t *testing.T) {
	executor := &funcExecutor{fn: func(context.Context, *scannerDomain.Opportunity) (*executionDomain.TradeResult, error) {
		return nil, fmt.Errorf("must not run")
	}}
	readiness := &stubReadiness{readiness: executionApp.Readiness{
		Ready:  false,
		Code:   apperror.CodeInsufficientBalance,
		Reason: "native balance below gas reserve floor",
	}}

	loop, sink := newTestLoop(t, &stubScanner{opps: []*scannerDomain.Opportunity{loopOpp(t, "o1")}}, executor, readiness, 1, 1)

	loop.cycle(context.Background())
	waitIdle(t, loop)

	if got := executor.calls.Load(); got != 0 {
		t.Fatalf("executor calls = %d, want 0 when preconditions fail", got)
	}
	if !loop.Health().Healthy() {
		t.Fatal("precondition skip must not count toward the failure threshold")
	}
	failed := sink.byType(EventTradeFailed)
	if len(failed) != 1 {
		t.Fatalf("trade-failed events = %d, want 1", len(failed))
	}
	if failed[0].Reason != "native balance below gas reserve floor" {
		t.Fatalf("event reason = %q", failed[0].Reason)
	}
}

func TestHealthCheck_IsTheOnlyReenablePath(t *testing.T) {
	scanner := &stubScanner{}
	readiness := readyChecker()
	executor := &funcExecutor{fn: func(_ context.Context, opp *scannerDomain.Opportunity) (*executionDomain.TradeResult, error) {
		return okResult(opp), nil
	}}

	loop, _ := newTestLoop(t, scanner, executor, readiness, 1, 1)
	loop.Health().SetHealthy(false)

	// Suspended: cycles are gated no matter how many run.
	for i := 0; i < 3; i++ {
		loop.cycle(context.Background())
	}
	if got := scanner.calls.Load(); got != 0 {
		t.Fatalf("scanner calls = %d, want 0 while suspended", got)
	}

	loop.healthCheck(context.Background())
	if !loop.Health().Healthy() {
		t.Fatal("passing health check should re-enable scanning")
	}
	if got := loop.Health().Snapshot().ConsecutiveFailures; got != 0 {
		t.Fatalf("ConsecutiveFailures = %d, want 0 after re-enable", got)
	}

	loop.cycle(context.Background())
	if got := scanner.calls.Load(); got != 1 {
		t.Fatalf("scanner calls = %d, want 1 after re-enable", got)
	}
}

func TestHealthCheck_FailureSuspendsActiveLoop(t *testing.T) {
	readiness := &stubReadiness{err: errors.New("rpc down")}
	executor := &funcExecutor{fn: func(_ context.Context, opp *scannerDomain.Opportunity) (*executionDomain.TradeResult, error) {
		return okResult(opp), nil
	}}

	loop, sink := newTestLoop(t, &stubScanner{}, executor, readiness, 5, 1)

	loop.healthCheck(context.Background())

	if loop.Health().Healthy() {
		t.Fatal("failing health check should suspend the loop")
	}
	if got := sink.byType(EventHealthCheckFailed); len(got) != 1 {
		t.Fatalf("health events = %d, want 1", len(got))
	}

	// A second failing check while already suspended stays quiet.
	loop.healthCheck(context.Background())
	if got := sink.byType(EventHealthCheckFailed); len(got) != 1 {
		t.Fatalf("health events = %d, want still 1", len(got))
	}
}

func TestCycle_PublishesBestOpportunity(t *testing.T) {
	best := loopOpp(t, "best")
	second := loopOpp(t, "second")
	executor := &funcExecutor{fn: func(_ context.Context, opp *scannerDomain.Opportunity) (*executionDomain.TradeResult, error) {
		return okResult(opp), nil
	}}

	loop, sink := newTestLoop(t, &stubScanner{opps: []*scannerDomain.Opportunity{best, second}}, executor, readyChecker(), 10, 2)

	loop.cycle(context.Background())
	waitIdle(t, loop)

	found := sink.byType(EventOpportunityFound)
	if len(found) != 1 {
		t.Fatalf("opportunity events = %d, want 1", len(found))
	}
	if found[0].Opportunity == nil || found[0].Opportunity.ID != "best" {
		t.Fatal("published opportunity should be the top-ranked one")
	}
	executed := sink.byType(EventTradeExecuted)
	if len(executed) != 2 {
		t.Fatalf("executed events = %d, want 2", len(executed))
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	executor := &funcExecutor{fn: func(_ context.Context, opp *scannerDomain.Opportunity) (*executionDomain.TradeResult, error) {
		return okResult(opp), nil
	}}
	loop, _ := newTestLoop(t, &stubScanner{}, executor, readyChecker(), 5, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
