package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	executionDomain "github.com/fd1az/dexarb/business/execution/domain"
	scannerDomain "github.com/fd1az/dexarb/business/scanner/domain"
	"github.com/fd1az/dexarb/internal/logger"
)

// EventType classifies outbound notifications.
type EventType string

const (
	EventOpportunityFound  EventType = "opportunity_found"
	EventTradeExecuted     EventType = "trade_executed"
	EventTradeFailed       EventType = "trade_failed"
	EventHealthCheckFailed EventType = "health_check_failed"
)

// Event is a structured notification payload. Opportunity and Result are
// set when relevant to the event type.
type Event struct {
	Type        EventType
	Title       string
	Message     string
	Opportunity *scannerDomain.Opportunity
	Result      *executionDomain.TradeResult
	Reason      string
	Timestamp   time.Time
}

// Sender is one notification delivery channel.
type Sender interface {
	Send(ctx context.Context, event Event) error
	Name() string
}

// Broadcaster fans an event out to every registered sender. A failing
// sender is logged and skipped; it never blocks delivery to the rest.
type Broadcaster struct {
	senders []Sender
	logger  logger.LoggerInterface
}

// NewBroadcaster creates a Broadcaster over the given senders.
func NewBroadcaster(log logger.LoggerInterface, senders ...Sender) *Broadcaster {
	return &Broadcaster{senders: senders, logger: log}
}

// Publish delivers the event to all senders, collecting failures into one
// combined error.
func (b *Broadcaster) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	var failed []string
	for _, s := range b.senders {
		if err := s.Send(ctx, event); err != nil {
			b.logger.Warn(ctx, "notification sender failed",
				"sender", s.Name(), "event", event.Type, "error", err)
			failed = append(failed, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(failed), strings.Join(failed, "; "))
	}
	return nil
}
