package ethereum

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dexarb/business/chain/app"
	"github.com/fd1az/dexarb/business/chain/domain"
	"github.com/fd1az/dexarb/internal/circuitbreaker"
	"github.com/fd1az/dexarb/internal/logger"
)

// HeadTrackerConfig holds configuration for the head tracker.
type HeadTrackerConfig struct {
	WSURL          string        // WebSocket endpoint, empty disables the subscription path
	PollInterval   time.Duration // polling interval for the HTTP fallback
	ReconnectDelay time.Duration // delay before reattempting the WS subscription
}

// DefaultHeadTrackerConfig returns sensible defaults.
func DefaultHeadTrackerConfig(wsURL string) HeadTrackerConfig {
	return HeadTrackerConfig{
		WSURL:          wsURL,
		PollInterval:   12 * time.Second, // ~1 block time
		ReconnectDelay: 5 * time.Second,
	}
}

// headTrackerMetrics holds OTEL metric instruments.
type headTrackerMetrics struct {
	headsObserved   metric.Int64Counter
	subscribeErrors metric.Int64Counter
	connectionState metric.Int64Gauge
	headLatency     metric.Float64Histogram
	pollFallback    metric.Int64Counter
}

var _ app.HeadTracker = (*HeadTracker)(nil)

// HeadTracker follows the chain head, preferring a WebSocket new-heads
// subscription and falling back to HTTP polling on the shared client.
// The latest head is held in memory for cheap reads by scan cycles.
type HeadTracker struct {
	config     HeadTrackerConfig
	logger     logger.LoggerInterface
	httpClient *ethclient.Client

	wsClient *ethclient.Client
	clientMu sync.RWMutex

	state     domain.ConnectionState
	stateMu   sync.RWMutex
	latest    atomic.Pointer[domain.Head]
	usingPoll atomic.Bool

	started atomic.Bool

	httpCB *circuitbreaker.CircuitBreaker[*types.Header]

	tracer  trace.Tracer
	metrics *headTrackerMetrics
}

// NewHeadTracker creates a head tracker over an already-dialed HTTP client.
func NewHeadTracker(httpClient *ethclient.Client, cfg HeadTrackerConfig, log logger.LoggerInterface) (*HeadTracker, error) {
	t := &HeadTracker{
		config:     cfg,
		logger:     log,
		httpClient: httpClient,
		state:      domain.StateDisconnected,
		tracer:     otel.Tracer(tracerName),
	}

	if err := t.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("head-poll")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		t.logger.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	t.httpCB = circuitbreaker.New[*types.Header](cbCfg)

	return t, nil
}

func (t *HeadTracker) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	t.metrics = &headTrackerMetrics{}

	t.metrics.headsObserved, err = meter.Int64Counter(
		"chain_heads_observed_total",
		metric.WithDescription("Total chain heads observed"),
		metric.WithUnit("{head}"),
	)
	if err != nil {
		return err
	}

	t.metrics.subscribeErrors, err = meter.Int64Counter(
		"chain_head_subscribe_errors_total",
		metric.WithDescription("Total head subscription errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	t.metrics.connectionState, err = meter.Int64Gauge(
		"chain_connection_state",
		metric.WithDescription("Chain connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting)"),
		metric.WithUnit("{state}"),
	)
	if err != nil {
		return err
	}

	t.metrics.headLatency, err = meter.Float64Histogram(
		"chain_head_latency_ms",
		metric.WithDescription("Latency from block timestamp to observation"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	t.metrics.pollFallback, err = meter.Int64Counter(
		"chain_head_poll_fallback_total",
		metric.WithDescription("Times the HTTP polling fallback was engaged"),
		metric.WithUnit("{fallback}"),
	)
	return err
}

// Start begins tracking. Non-blocking; tracking stops when ctx ends.
func (t *HeadTracker) Start(ctx context.Context) error {
	if !t.started.CompareAndSwap(false, true) {
		return errors.New("head tracker already started")
	}

	ctx, span := t.tracer.Start(ctx, "head.start")
	defer span.End()

	t.setState(domain.StateConnecting)

	if t.config.WSURL != "" {
		if err := t.connectWS(ctx); err == nil {
			t.setState(domain.StateConnected)
			go t.runSubscription(ctx)
			span.SetStatus(codes.Ok, "subscribed")
			return nil
		}
		t.logger.Warn(ctx, "ws connection failed, falling back to polling")
		span.AddEvent("ws_failed_falling_back")
	}

	t.usingPoll.Store(true)
	t.metrics.pollFallback.Add(ctx, 1)
	t.setState(domain.StateConnected)
	go t.runPoller(ctx)

	span.SetStatus(codes.Ok, "polling")
	return nil
}

func (t *HeadTracker) connectWS(ctx context.Context) error {
	ctx, span := t.tracer.Start(ctx, "head.connect.ws",
		trace.WithAttributes(attribute.String("url", t.config.WSURL)),
	)
	defer span.End()

	client, err := ethclient.DialContext(ctx, t.config.WSURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return fmt.Errorf("dial ws: %w", err)
	}

	t.clientMu.Lock()
	t.wsClient = client
	t.clientMu.Unlock()

	span.SetStatus(codes.Ok, "connected")
	return nil
}

func (t *HeadTracker) runSubscription(ctx context.Context) {
	headers := make(chan *types.Header, 16)

	t.clientMu.RLock()
	client := t.wsClient
	t.clientMu.RUnlock()

	if client == nil {
		t.handleDisconnect(ctx)
		return
	}

	sub, err := client.SubscribeNewHead(ctx, headers)
	if err != nil {
		t.logger.Error(ctx, "subscribe new head failed", "error", err)
		t.metrics.subscribeErrors.Add(ctx, 1)
		t.handleDisconnect(ctx)
		return
	}
	defer sub.Unsubscribe()

	t.logger.Info(ctx, "subscribed to new heads via ws")

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			if err != nil {
				t.logger.Error(ctx, "head subscription error", "error", err)
				t.metrics.subscribeErrors.Add(ctx, 1)
			}
			t.handleDisconnect(ctx)
			return
		case header := <-headers:
			if header == nil {
				continue
			}
			t.observeHeader(ctx, header)
		}
	}
}

func (t *HeadTracker) handleDisconnect(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	t.setState(domain.StateReconnecting)

	select {
	case <-ctx.Done():
		return
	case <-time.After(t.config.ReconnectDelay):
	}

	if err := t.connectWS(ctx); err != nil {
		t.logger.Warn(ctx, "ws reconnect failed, switching to polling", "error", err)
		t.usingPoll.Store(true)
		t.metrics.pollFallback.Add(ctx, 1)
		t.setState(domain.StateConnected)
		go t.runPoller(ctx)
		return
	}

	t.usingPoll.Store(false)
	t.setState(domain.StateConnected)
	go t.runSubscription(ctx)
}

func (t *HeadTracker) runPoller(ctx context.Context) {
	ticker := time.NewTicker(t.config.PollInterval)
	defer ticker.Stop()

	t.logger.Info(ctx, "tracking heads via http polling", "interval", t.config.PollInterval)

	for {
		select {
		case <-ctx.Done():
			t.setState(domain.StateDisconnected)
			return
		case <-ticker.C:
			t.poll(ctx)
		}
	}
}

func (t *HeadTracker) poll(ctx context.Context) {
	ctx, span := t.tracer.Start(ctx, "head.poll")
	defer span.End()

	header, err := t.httpCB.Execute(func() (*types.Header, error) {
		return t.httpClient.HeaderByNumber(ctx, nil) // nil = latest
	})
	if err != nil {
		span.RecordError(err)
		t.logger.Error(ctx, "head poll failed", "error", err)
		t.metrics.subscribeErrors.Add(ctx, 1)
		return
	}

	if prev := t.latest.Load(); prev != nil && header.Number.Uint64() <= prev.Number {
		span.AddEvent("duplicate_head")
		return
	}

	t.observeHeader(ctx, header)
	span.SetStatus(codes.Ok, "polled")
}

func (t *HeadTracker) observeHeader(ctx context.Context, header *types.Header) {
	head := headerToHead(header)
	t.latest.Store(&head)

	latency := time.Since(head.Timestamp)
	t.metrics.headLatency.Record(ctx, float64(latency.Milliseconds()))
	t.metrics.headsObserved.Add(ctx, 1)

	t.logger.Debug(ctx, "head observed",
		"number", head.Number,
		"hash", head.Hash.Hex()[:10],
		"latency_ms", latency.Milliseconds())
}

func headerToHead(header *types.Header) domain.Head {
	h := domain.Head{
		Number:     header.Number.Uint64(),
		Hash:       header.Hash(),
		ParentHash: header.ParentHash,
		Timestamp:  time.Unix(int64(header.Time), 0),
	}
	if header.BaseFee != nil {
		h.BaseFeeWei = header.BaseFee.String()
	}
	return h
}

// Latest returns the most recently observed head, zero before the first
// observation.
func (t *HeadTracker) Latest() domain.Head {
	if head := t.latest.Load(); head != nil {
		return *head
	}
	return domain.Head{}
}

// State returns the tracker's connectivity state.
func (t *HeadTracker) State() domain.ConnectionState {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	return t.state
}

// Close releases the WS client if one was dialed. The shared HTTP client
// is owned by the caller.
func (t *HeadTracker) Close() error {
	t.clientMu.Lock()
	defer t.clientMu.Unlock()

	if t.wsClient != nil {
		t.wsClient.Close()
		t.wsClient = nil
	}

	t.setState(domain.StateDisconnected)
	return nil
}

func (t *HeadTracker) setState(state domain.ConnectionState) {
	t.stateMu.Lock()
	t.state = state
	t.stateMu.Unlock()

	stateValue := int64(0)
	switch state {
	case domain.StateDisconnected:
		stateValue = 0
	case domain.StateConnecting:
		stateValue = 1
	case domain.StateConnected:
		stateValue = 2
	case domain.StateReconnecting:
		stateValue = 3
	}

	t.metrics.connectionState.Record(context.Background(), stateValue)
}
