package infra

import (
	"context"

	"github.com/fd1az/dexarb/business/bot/app"
	"github.com/fd1az/dexarb/internal/logger"
)

// LogSender writes every event to the structured application log. It is
// always registered so notifications survive even when no external sink
// is configured.
type LogSender struct {
	logger logger.LoggerInterface
}

// NewLogSender creates a LogSender over the given logger.
func NewLogSender(log logger.LoggerInterface) *LogSender {
	return &LogSender{logger: log.With("component", "notifier")}
}

func (s *LogSender) Name() string { return "log" }

// Send logs the event with its structured fields. Trade failures and
// health trips log at warn level, everything else at info.
func (s *LogSender) Send(ctx context.Context, event app.Event) error {
	fields := []any{"event", event.Type, "title", event.Title}
	if event.Message != "" {
		fields = append(fields, "message", event.Message)
	}
	if event.Reason != "" {
		fields = append(fields, "reason", event.Reason)
	}
	if opp := event.Opportunity; opp != nil {
		fields = append(fields,
			"pair", opp.Pair.String(),
			"route", opp.Route,
			"block", opp.BlockNumber,
			"profit_percent", opp.ProfitPercent.StringFixed(4))
	}
	if res := event.Result; res != nil {
		fields = append(fields, "attempt_id", res.AttemptID, "status", res.Status)
		if res.Err != nil {
			fields = append(fields, "error", res.Err)
		}
	}

	switch event.Type {
	case app.EventTradeFailed, app.EventHealthCheckFailed:
		s.logger.Warn(ctx, "notification", fields...)
	default:
		s.logger.Info(ctx, "notification", fields...)
	}
	return nil
}

var _ app.Sender = (*LogSender)(nil)
