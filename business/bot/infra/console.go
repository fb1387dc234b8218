// Package infra contains notification delivery adapters for the bot context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/dexarb/business/bot/app"
)

var (
	consoleTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#7C3AED"))

	consoleProfitStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#10B981"))

	consoleFailStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#EF4444"))

	consoleWarnStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F59E0B"))

	consoleMutedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#6B7280"))

	consoleBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#374151")).
			Padding(0, 1)
)

// ConsoleSender renders events to a terminal writer with lipgloss styling.
type ConsoleSender struct {
	out io.Writer
}

// NewConsoleSender creates a ConsoleSender writing to stdout.
func NewConsoleSender() *ConsoleSender {
	return &ConsoleSender{out: os.Stdout}
}

// NewConsoleSenderTo creates a ConsoleSender writing to the given writer.
func NewConsoleSenderTo(out io.Writer) *ConsoleSender {
	return &ConsoleSender{out: out}
}

func (s *ConsoleSender) Name() string { return "console" }

// Send renders the event as a styled box. It never blocks on the terminal
// and always returns nil.
func (s *ConsoleSender) Send(_ context.Context, event app.Event) error {
	header := consoleTitleStyle.Render(event.Title)
	switch event.Type {
	case app.EventTradeFailed, app.EventHealthCheckFailed:
		header = consoleFailStyle.Render(event.Title)
	case app.EventTradeExecuted:
		header = consoleProfitStyle.Render(event.Title)
	}

	body := header + "\n"
	body += consoleMutedStyle.Render(event.Timestamp.Format(time.RFC3339)) + "\n"
	if event.Message != "" {
		body += event.Message + "\n"
	}

	if opp := event.Opportunity; opp != nil {
		body += fmt.Sprintf("Pair:    %s\n", opp.Pair.String())
		body += fmt.Sprintf("Route:   %s\n", opp.Route)
		body += fmt.Sprintf("Block:   #%d\n", opp.BlockNumber)
		body += "Profit:  " + consoleProfitStyle.Render(
			fmt.Sprintf("%s (%s%%)", opp.EstimatedProfitAbsolute.String(), opp.ProfitPercent.StringFixed(4)),
		) + "\n"
	}

	if res := event.Result; res != nil {
		body += fmt.Sprintf("Attempt: %s\n", res.AttemptID)
		body += fmt.Sprintf("Status:  %s\n", res.Status)
		if res.Success() {
			body += "Realized: " + consoleProfitStyle.Render(res.RealizedProfit.String()) + "\n"
		} else if res.Err != nil {
			body += "Error:   " + consoleWarnStyle.Render(res.Err.Error()) + "\n"
		}
	}

	if event.Reason != "" {
		body += "Reason:  " + consoleWarnStyle.Render(event.Reason) + "\n"
	}

	fmt.Fprintln(s.out, consoleBoxStyle.Render(body))
	return nil
}

var _ app.Sender = (*ConsoleSender)(nil)
