package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fd1az/dexarb/business/bot/app"
	"github.com/fd1az/dexarb/internal/apperror"
)

// TelegramSender delivers events through the Telegram Bot API.
type TelegramSender struct {
	token  string
	chatID string
	client *http.Client
}

// NewTelegramSender creates a TelegramSender for the given bot token and
// chat ID. The HTTP client carries a 10-second timeout.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramSender) Name() string { return "telegram" }

// Send posts the event as a Markdown message via the sendMessage endpoint.
func (t *TelegramSender) Send(ctx context.Context, event app.Event) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)

	payload := map[string]string{
		"chat_id":    t.chatID,
		"text":       formatText(event),
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return apperror.New(apperror.CodeNotificationFailed,
			apperror.WithCause(err),
			apperror.WithContext("telegram sendMessage"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return apperror.New(apperror.CodeNotificationFailed,
			apperror.WithCause(err),
			apperror.WithContext("telegram sendMessage"))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return apperror.New(apperror.CodeNotificationFailed,
			apperror.WithCause(err),
			apperror.WithContext("telegram sendMessage"))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperror.New(apperror.CodeNotificationFailed,
			apperror.WithContext(fmt.Sprintf("telegram sendMessage: status %d: %s", resp.StatusCode, detail)))
	}
	return nil
}

func formatText(event app.Event) string {
	text := fmt.Sprintf("*%s*\n%s", event.Title, event.Message)
	if opp := event.Opportunity; opp != nil {
		text += fmt.Sprintf("\n%s\nblock #%d, profit %s%%",
			opp.Route, opp.BlockNumber, opp.ProfitPercent.StringFixed(4))
	}
	if res := event.Result; res != nil {
		text += fmt.Sprintf("\nstatus %s", res.Status)
		if res.Err != nil {
			text += fmt.Sprintf(": %v", res.Err)
		}
	}
	if event.Reason != "" {
		text += "\n" + event.Reason
	}
	return text
}

var _ app.Sender = (*TelegramSender)(nil)
