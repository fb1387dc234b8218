// Package app contains the opportunity scanner for the scanner context.
package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	chainDomain "github.com/fd1az/dexarb/business/chain/domain"
	"github.com/fd1az/dexarb/business/scanner/domain"
	venueApp "github.com/fd1az/dexarb/business/venue/app"
	venueDomain "github.com/fd1az/dexarb/business/venue/domain"
	"github.com/fd1az/dexarb/internal/asset"
	"github.com/fd1az/dexarb/internal/logger"
)

const (
	tracerName = "github.com/fd1az/dexarb/business/scanner/app"
	meterName  = "github.com/fd1az/dexarb/business/scanner/app"
)

var oneHundred = decimal.NewFromInt(100)

// HeadSource supplies the latest observed chain head for stamping scans.
type HeadSource interface {
	LatestHead() chainDomain.Head
}

// ScannerConfig holds the scanner's filtering thresholds.
type ScannerConfig struct {
	MaxPriceImpactPercent decimal.Decimal
}

// scannerMetrics holds OTEL metric instruments.
type scannerMetrics struct {
	scansTotal        metric.Int64Counter
	scanDuration      metric.Float64Histogram
	quotesUnavailable metric.Int64Counter
	opportunities     metric.Int64Counter
}

// Scanner fans quote requests out to every registered venue, joins the
// results and computes the ranked list of qualifying two-venue spreads.
type Scanner struct {
	registry *venueApp.Registry
	heads    HeadSource
	config   ScannerConfig
	logger   logger.LoggerInterface

	tracer  trace.Tracer
	metrics *scannerMetrics
}

// NewScanner creates a Scanner. heads may be nil; opportunities are then
// emitted without a block marker.
func NewScanner(registry *venueApp.Registry, heads HeadSource, cfg ScannerConfig, log logger.LoggerInterface) (*Scanner, error) {
	s := &Scanner{
		registry: registry,
		heads:    heads,
		config:   cfg,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return s, nil
}

func (s *Scanner) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &scannerMetrics{}

	s.metrics.scansTotal, err = meter.Int64Counter(
		"scans_total",
		metric.WithDescription("Total scan cycles"),
		metric.WithUnit("{scan}"),
	)
	if err != nil {
		return err
	}

	s.metrics.scanDuration, err = meter.Float64Histogram(
		"scan_duration_ms",
		metric.WithDescription("Scan cycle duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	s.metrics.quotesUnavailable, err = meter.Int64Counter(
		"scan_quotes_unavailable_total",
		metric.WithDescription("Quotes unavailable during scans"),
		metric.WithUnit("{quote}"),
	)
	if err != nil {
		return err
	}

	s.metrics.opportunities, err = meter.Int64Counter(
		"opportunities_found_total",
		metric.WithDescription("Qualifying opportunities emitted"),
		metric.WithUnit("{opportunity}"),
	)
	return err
}

// Scan quotes the pair's base→quote direction on every registered venue
// for the reference input and returns the ranked qualifying opportunities,
// best first. Fewer than two usable quotes yields an empty slice, never an
// error.
func (s *Scanner) Scan(ctx context.Context, pair venueDomain.Pair, amountIn asset.Amount, minProfitPercent decimal.Decimal) ([]*domain.Opportunity, error) {
	ctx, span := s.tracer.Start(ctx, "scanner.scan",
		trace.WithAttributes(
			attribute.String("pair", pair.String()),
			attribute.String("amount_in", amountIn.String()),
		),
	)
	defer span.End()

	start := time.Now()
	s.metrics.scansTotal.Add(ctx, 1)
	defer func() {
		s.metrics.scanDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	}()

	usable := s.fanOut(ctx, pair, amountIn)
	if len(usable) < 2 {
		span.AddEvent("insufficient_venues",
			trace.WithAttributes(attribute.Int("usable", len(usable))))
		s.logger.Debug(ctx, "insufficient usable quotes", "usable", len(usable))
		return nil, nil
	}

	opportunities := s.pair(ctx, pair, usable, minProfitPercent)
	rank(opportunities)

	s.metrics.opportunities.Add(ctx, int64(len(opportunities)))
	span.SetAttributes(attribute.Int("opportunities", len(opportunities)))
	span.SetStatus(codes.Ok, "scanned")

	return opportunities, nil
}

// fanOut issues one concurrent quote request per registered venue and
// joins at a barrier. Individual failures become unavailable quotes;
// the scan itself never fails on them.
func (s *Scanner) fanOut(ctx context.Context, pair venueDomain.Pair, amountIn asset.Amount) []*venueDomain.VenueQuote {
	providers := s.registry.Providers()
	quotes := make([]*venueDomain.VenueQuote, len(providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, provider := range providers {
		g.Go(func() error {
			quote, err := provider.GetQuote(gctx, pair.Base, pair.Quote, amountIn)
			if err != nil {
				// Transport failure counts as unavailable for this cycle.
				q := venueDomain.Unavailable(provider.ID(), err)
				quotes[i] = &q
				return nil
			}
			quotes[i] = quote
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	// Registration order is preserved so ranking ties stay deterministic.
	usable := make([]*venueDomain.VenueQuote, 0, len(quotes))
	for _, q := range quotes {
		if !q.IsUsable() {
			s.metrics.quotesUnavailable.Add(ctx, 1)
			s.logger.Debug(ctx, "quote unavailable",
				"venue", q.Venue, "reason", q.Reason())
			continue
		}
		usable = append(usable, q)
	}
	return usable
}

// pair computes the spread for every ordered pair of distinct venues and
// keeps the ones clearing the profit threshold and impact cap on both legs.
func (s *Scanner) pair(ctx context.Context, tradingPair venueDomain.Pair, quotes []*venueDomain.VenueQuote, minProfitPercent decimal.Decimal) []*domain.Opportunity {
	var blockNumber uint64
	if s.heads != nil {
		blockNumber = s.heads.LatestHead().Number
	}

	var out []*domain.Opportunity
	for i, buy := range quotes {
		for j, sell := range quotes {
			if i == j {
				continue
			}

			buyOut := decimal.NewFromBigInt(buy.AmountOut.Raw(), 0)
			if buyOut.IsZero() {
				// No divisor, no spread. Skip the pair rather than fail.
				continue
			}
			sellOut := decimal.NewFromBigInt(sell.AmountOut.Raw(), 0)

			profitPercent := sellOut.Sub(buyOut).Div(buyOut).Mul(oneHundred)
			if !profitPercent.IsPositive() || !profitPercent.GreaterThan(minProfitPercent) {
				continue
			}
			if buy.PriceImpactPercent.GreaterThanOrEqual(s.config.MaxPriceImpactPercent) ||
				sell.PriceImpactPercent.GreaterThanOrEqual(s.config.MaxPriceImpactPercent) {
				continue
			}

			profitAbs, err := sell.AmountOut.Sub(buy.AmountOut)
			if err != nil {
				continue
			}

			opp := &domain.Opportunity{
				ID:                      uuid.NewString(),
				Pair:                    tradingPair,
				BuyVenue:                buy.Venue,
				SellVenue:               sell.Venue,
				BuyQuote:                buy,
				SellQuote:               sell,
				ProfitPercent:           profitPercent,
				EstimatedProfitAbsolute: profitAbs,
				Route: fmt.Sprintf("buy %s on %s, sell on %s",
					tradingPair.Base.Symbol(), buy.Venue, sell.Venue),
				BlockNumber: blockNumber,
				Timestamp:   time.Now(),
			}
			out = append(out, opp)

			s.logger.Debug(ctx, "opportunity found",
				"buy_venue", buy.Venue,
				"sell_venue", sell.Venue,
				"profit_pct", profitPercent.StringFixed(4),
			)
		}
	}
	return out
}

// rank sorts descending by absolute profit, ties by profit percent, then
// the venue-pair insertion order via stable sort.
func rank(opportunities []*domain.Opportunity) {
	sort.SliceStable(opportunities, func(a, b int) bool {
		cmp, err := opportunities[a].EstimatedProfitAbsolute.Cmp(opportunities[b].EstimatedProfitAbsolute)
		if err == nil && cmp != 0 {
			return cmp > 0
		}
		return opportunities[a].ProfitPercent.GreaterThan(opportunities[b].ProfitPercent)
	})
}
