package infra

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/fd1az/dexarb/business/bot/app"
	"github.com/fd1az/dexarb/internal/apperror"
	"github.com/fd1az/dexarb/internal/wsconn"
)

// wsEvent is the JSON wire shape pushed to subscribers.
type wsEvent struct {
	Type          string `json:"type"`
	Title         string `json:"title"`
	Message       string `json:"message,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Pair          string `json:"pair,omitempty"`
	Route         string `json:"route,omitempty"`
	BlockNumber   uint64 `json:"block_number,omitempty"`
	ProfitPercent string `json:"profit_percent,omitempty"`
	AttemptID     string `json:"attempt_id,omitempty"`
	TradeStatus   string `json:"trade_status,omitempty"`
	Timestamp     string `json:"timestamp"`
}

// WebSocketSender pushes events as JSON over an outbound WebSocket
// connection. The connection is dialed lazily on first send and reused
// afterwards.
type WebSocketSender struct {
	client *wsconn.Client
	mu     sync.Mutex
	dialed bool
}

// NewWebSocketSender creates a WebSocketSender for the given push URL.
func NewWebSocketSender(url string) *WebSocketSender {
	return &WebSocketSender{client: wsconn.New(wsconn.DefaultConfig(url))}
}

func (s *WebSocketSender) Name() string { return "websocket" }

// Send serializes the event and writes it to the push connection.
func (s *WebSocketSender) Send(ctx context.Context, event app.Event) error {
	if err := s.ensureConnected(ctx); err != nil {
		return apperror.New(apperror.CodeNotificationFailed,
			apperror.WithCause(err),
			apperror.WithContext("websocket push"))
	}

	payload, err := json.Marshal(toWire(event))
	if err != nil {
		return apperror.New(apperror.CodeNotificationFailed,
			apperror.WithCause(err),
			apperror.WithContext("websocket push"))
	}

	if err := s.client.Send(ctx, payload); err != nil {
		return apperror.New(apperror.CodeNotificationFailed,
			apperror.WithCause(err),
			apperror.WithContext("websocket push"))
	}
	return nil
}

// Close shuts down the push connection.
func (s *WebSocketSender) Close() error {
	return s.client.Close()
}

func (s *WebSocketSender) ensureConnected(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dialed && s.client.State() == wsconn.StateConnected {
		return nil
	}
	if err := s.client.Connect(ctx); err != nil {
		return err
	}
	s.dialed = true
	return nil
}

func toWire(event app.Event) wsEvent {
	w := wsEvent{
		Type:      string(event.Type),
		Title:     event.Title,
		Message:   event.Message,
		Reason:    event.Reason,
		Timestamp: event.Timestamp.Format(time.RFC3339),
	}
	if opp := event.Opportunity; opp != nil {
		w.Pair = opp.Pair.String()
		w.Route = opp.Route
		w.BlockNumber = opp.BlockNumber
		w.ProfitPercent = opp.ProfitPercent.StringFixed(4)
	}
	if res := event.Result; res != nil {
		w.AttemptID = res.AttemptID
		w.TradeStatus = string(res.Status)
	}
	return w
}

var _ app.Sender = (*WebSocketSender)(nil)
