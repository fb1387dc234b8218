package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	executionApp "github.com/fd1az/dexarb/business/execution/app"
	executionDomain "github.com/fd1az/dexarb/business/execution/domain"
	scannerDomain "github.com/fd1az/dexarb/business/scanner/domain"
	venueDomain "github.com/fd1az/dexarb/business/venue/domain"
	"github.com/fd1az/dexarb/internal/apperror"
	"github.com/fd1az/dexarb/internal/asset"
	"github.com/fd1az/dexarb/internal/logger"
)

const (
	tracerName = "github.com/fd1az/dexarb/business/bot/app"
	meterName  = "github.com/fd1az/dexarb/business/bot/app"
)

// partialFillWeight makes a held position count double toward the
// consecutive-failure threshold.
const partialFillWeight = 2

// OpportunityScanner is the detection surface the loop drives.
type OpportunityScanner interface {
	Scan(ctx context.Context, pair venueDomain.Pair, amountIn asset.Amount, minProfitPercent decimal.Decimal) ([]*scannerDomain.Opportunity, error)
}

// TradeExecutor runs one two-leg trade attempt.
type TradeExecutor interface {
	Execute(ctx context.Context, opp *scannerDomain.Opportunity, inputAmount asset.Amount) (*executionDomain.TradeResult, error)
}

// ReadinessChecker gates execution attempts on chain state.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context, required []executionApp.AllowanceRequirement) (executionApp.Readiness, error)
}

// LoopConfig holds the loop's scheduling and trade parameters.
type LoopConfig struct {
	Pair                venueDomain.Pair
	ReferenceAmount     asset.Amount // base-token scan size
	FundingAmount       asset.Amount // quote-token funding per attempt
	MinProfitPercent    decimal.Decimal
	MaxConcurrentTrades int64
	ScanInterval        time.Duration
	HealthCheckInterval time.Duration
	Allowances          []executionApp.AllowanceRequirement
}

// loopMetrics holds OTEL metric instruments.
type loopMetrics struct {
	cycles         metric.Int64Counter
	cyclesSkipped  metric.Int64Counter
	dispatched     metric.Int64Counter
	failuresGauge  metric.Int64Gauge
	preflightSkips metric.Int64Counter
}

// Loop is the supervising scheduler. A scan timer drives detection cycles
// and a separate health timer re-validates chain preconditions; the health
// timer is the only path that re-enables scanning after a suspension.
type Loop struct {
	scanner       OpportunityScanner
	executor      TradeExecutor
	preconditions ReadinessChecker
	health        *HealthState
	notifier      *Broadcaster
	config        LoopConfig
	logger        logger.LoggerInterface

	// slots bounds concurrent executions; scanning itself is never blocked
	// by an in-flight trade.
	slots *semaphore.Weighted

	tracer  trace.Tracer
	metrics *loopMetrics
}

// NewLoop creates the supervising loop.
func NewLoop(
	scanner OpportunityScanner,
	executor TradeExecutor,
	preconditions ReadinessChecker,
	health *HealthState,
	notifier *Broadcaster,
	cfg LoopConfig,
	log logger.LoggerInterface,
) (*Loop, error) {
	if cfg.MaxConcurrentTrades < 1 {
		cfg.MaxConcurrentTrades = 1
	}

	l := &Loop{
		scanner:       scanner,
		executor:      executor,
		preconditions: preconditions,
		health:        health,
		notifier:      notifier,
		config:        cfg,
		logger:        log,
		slots:         semaphore.NewWeighted(cfg.MaxConcurrentTrades),
		tracer:        otel.Tracer(tracerName),
	}

	if err := l.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return l, nil
}

func (l *Loop) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	l.metrics = &loopMetrics{}

	l.metrics.cycles, err = meter.Int64Counter(
		"bot_cycles_total",
		metric.WithDescription("Total scan cycles run"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return err
	}

	l.metrics.cyclesSkipped, err = meter.Int64Counter(
		"bot_cycles_skipped_total",
		metric.WithDescription("Scan cycles skipped while unhealthy"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return err
	}

	l.metrics.dispatched, err = meter.Int64Counter(
		"bot_executions_dispatched_total",
		metric.WithDescription("Opportunities dispatched to the executor"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return err
	}

	l.metrics.failuresGauge, err = meter.Int64Gauge(
		"bot_consecutive_failures",
		metric.WithDescription("Current consecutive failure weight"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return err
	}

	l.metrics.preflightSkips, err = meter.Int64Counter(
		"bot_preflight_skips_total",
		metric.WithDescription("Attempts skipped by precondition checks"),
		metric.WithUnit("{skip}"),
	)
	return err
}

// Run drives the loop until ctx ends. Blocking; callers run it on its own
// goroutine.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info(ctx, "bot loop starting",
		"pair", l.config.Pair.String(),
		"scan_interval", l.config.ScanInterval,
		"health_interval", l.config.HealthCheckInterval,
		"max_concurrent", l.config.MaxConcurrentTrades,
	)

	scanTicker := time.NewTicker(l.config.ScanInterval)
	defer scanTicker.Stop()
	healthTicker := time.NewTicker(l.config.HealthCheckInterval)
	defer healthTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info(ctx, "bot loop stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-scanTicker.C:
			l.cycle(ctx)
		case <-healthTicker.C:
			l.healthCheck(ctx)
		}
	}
}

// cycle runs one detection pass and dispatches up to the concurrency limit
// of ranked opportunities.
func (l *Loop) cycle(ctx context.Context) {
	ctx, span := l.tracer.Start(ctx, "bot.cycle")
	defer span.End()

	if !l.health.Healthy() {
		l.metrics.cyclesSkipped.Add(ctx, 1)
		span.AddEvent("skipped_unhealthy")
		l.logger.Debug(ctx, "cycle skipped, health gate closed")
		return
	}

	l.metrics.cycles.Add(ctx, 1)

	opportunities, err := l.scanner.Scan(ctx, l.config.Pair, l.config.ReferenceAmount, l.config.MinProfitPercent)
	if err != nil {
		span.RecordError(err)
		l.logger.Error(ctx, "scan failed", "error", err)
		return
	}
	if len(opportunities) == 0 {
		return
	}

	span.SetAttributes(attribute.Int("opportunities", len(opportunities)))

	top := opportunities
	if int64(len(top)) > l.config.MaxConcurrentTrades {
		top = top[:l.config.MaxConcurrentTrades]
	}

	best := top[0]
	_ = l.notifier.Publish(ctx, Event{
		Type:        EventOpportunityFound,
		Title:       "Opportunity found",
		Message:     best.Describe(),
		Opportunity: best,
	})

	for _, opp := range top {
		l.dispatch(ctx, opp)
	}
}

// dispatch claims an execution slot and runs the attempt asynchronously.
// The slot is released on every exit path, including a panicking executor.
func (l *Loop) dispatch(ctx context.Context, opp *scannerDomain.Opportunity) {
	if !l.slots.TryAcquire(1) {
		l.logger.Debug(ctx, "no execution slot free, skipping", "opportunity", opp.ID)
		return
	}

	l.metrics.dispatched.Add(ctx, 1)

	go func() {
		defer l.slots.Release(1)
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error(ctx, "executor panicked", "opportunity", opp.ID, "panic", r)
				l.recordFailure(ctx, opp, nil, fmt.Errorf("executor panic: %v", r), 1)
			}
		}()

		l.attempt(ctx, opp)
	}()
}

func (l *Loop) attempt(ctx context.Context, opp *scannerDomain.Opportunity) {
	ctx, span := l.tracer.Start(ctx, "bot.attempt",
		trace.WithAttributes(attribute.String("opportunity_id", opp.ID)),
	)
	defer span.End()

	readiness, err := l.preconditions.CheckReadiness(ctx, l.config.Allowances)
	if err != nil {
		// Chain read failure is a pre-flight skip, not an execution failure.
		l.metrics.preflightSkips.Add(ctx, 1)
		l.logger.Warn(ctx, "precondition check errored", "error", err)
		return
	}
	if !readiness.Ready {
		l.metrics.preflightSkips.Add(ctx, 1)
		span.AddEvent("precondition_failed",
			trace.WithAttributes(attribute.String("reason", readiness.Reason)))
		_ = l.notifier.Publish(ctx, Event{
			Type:        EventTradeFailed,
			Title:       "Execution skipped",
			Message:     fmt.Sprintf("preconditions not met: %s", readiness.Reason),
			Opportunity: opp,
			Reason:      readiness.Reason,
		})
		return
	}

	result, err := l.executor.Execute(ctx, opp, l.config.FundingAmount)
	if err != nil {
		if apperror.IsCode(err, apperror.CodeStaleQuote) {
			// The quotes aged out before the slot opened; nothing was
			// submitted, so this is a skip rather than a failure.
			l.metrics.preflightSkips.Add(ctx, 1)
			return
		}

		weight := 1
		if apperror.IsCode(err, apperror.CodePartialFill) {
			weight = partialFillWeight
		}
		l.recordFailure(ctx, opp, result, err, weight)
		return
	}

	l.health.RecordSuccess(opp.BlockNumber)
	l.metrics.failuresGauge.Record(ctx, 0)

	_ = l.notifier.Publish(ctx, Event{
		Type:        EventTradeExecuted,
		Title:       "Trade executed",
		Message: fmt.Sprintf("%s: realized %s raw %s",
			opp.Route, result.RealizedProfit.String(), opp.Pair.Quote.Symbol()),
		Opportunity: opp,
		Result:      result,
	})
}

func (l *Loop) recordFailure(ctx context.Context, opp *scannerDomain.Opportunity, result *executionDomain.TradeResult, cause error, weight int) {
	tripped := l.health.RecordFailure(weight)
	snapshot := l.health.Snapshot()
	l.metrics.failuresGauge.Record(ctx, int64(snapshot.ConsecutiveFailures))

	_ = l.notifier.Publish(ctx, Event{
		Type:        EventTradeFailed,
		Title:       "Trade failed",
		Message:     cause.Error(),
		Opportunity: opp,
		Result:      result,
		Reason:      cause.Error(),
	})

	if tripped {
		l.logger.Error(ctx, "failure threshold reached, suspending scans",
			"consecutive_failures", snapshot.ConsecutiveFailures)
		_ = l.notifier.Publish(ctx, Event{
			Type:    EventHealthCheckFailed,
			Title:   "Bot suspended",
			Message: fmt.Sprintf("%d consecutive failure points, scanning suspended until health check passes", snapshot.ConsecutiveFailures),
			Reason:  cause.Error(),
		})
	}
}

// healthCheck re-validates chain preconditions. Passing while suspended is
// the only path that re-enables scanning; failing while active suspends it.
func (l *Loop) healthCheck(ctx context.Context) {
	ctx, span := l.tracer.Start(ctx, "bot.health_check")
	defer span.End()

	readiness, err := l.preconditions.CheckReadiness(ctx, l.config.Allowances)
	passed := err == nil && readiness.Ready

	if passed {
		if !l.health.Healthy() {
			l.health.SetHealthy(true)
			l.metrics.failuresGauge.Record(ctx, 0)
			l.logger.Info(ctx, "health restored, scanning re-enabled")
		}
		return
	}

	reason := "precondition check errored"
	if err == nil {
		reason = readiness.Reason
	}
	span.AddEvent("health_check_failed", trace.WithAttributes(attribute.String("reason", reason)))

	if l.health.Healthy() {
		l.health.SetHealthy(false)
		l.logger.Error(ctx, "health check failed, suspending scans", "reason", reason)
		_ = l.notifier.Publish(ctx, Event{
			Type:    EventHealthCheckFailed,
			Title:   "Health check failed",
			Message: reason,
			Reason:  reason,
		})
	}
}

// Health exposes the loop's health state for external probes.
func (l *Loop) Health() *HealthState {
	return l.health
}
