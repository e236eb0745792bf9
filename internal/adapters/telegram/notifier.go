// Package telegram implements ports.Notifier against the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"time"

	"rsiScalpBot/internal/domain"
	"rsiScalpBot/internal/ports"

	"github.com/go-resty/resty/v2"
)

const apiBase = "https://api.telegram.org"

// Notifier sends trade notifications to a Telegram chat.
type Notifier struct {
	client *resty.Client
	token  string
	chatID string
	logger ports.Logger
}

// Config holds the Telegram credentials.
type Config struct {
	Token  string
	ChatID string
	Logger ports.Logger
}

// New creates a Telegram notifier.
func New(cfg Config) (*Notifier, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Telegram notifier")
	}
	if cfg.Token == "" || cfg.ChatID == "" {
		return nil, fmt.Errorf("telegram token and chat id are required")
	}
	client := resty.New().
		SetBaseURL(apiBase).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &Notifier{client: client, token: cfg.Token, chatID: cfg.ChatID, logger: cfg.Logger}, nil
}

func (n *Notifier) send(ctx context.Context, text string) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id": n.chatID,
			"text":    text,
		}).
		Post(fmt.Sprintf("/bot%s/sendMessage", n.token))
	if err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram send failed: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// NotifyTradeOpened announces a new position.
func (n *Notifier) NotifyTradeOpened(ctx context.Context, trade *domain.Trade) error {
	text := fmt.Sprintf("📈 Opened %s\nEntry: %.8g\nQty: %.8g\nSL: %.8g  TP: %.8g\nRSI: %.1f (%s)",
		trade.Symbol, trade.EntryPrice, trade.Quantity, trade.StopLoss, trade.TakeProfit,
		trade.Signal.RSIValue, trade.Signal.Regime)
	return n.send(ctx, text)
}

// NotifyTradeClosed announces a realized close.
func (n *Notifier) NotifyTradeClosed(ctx context.Context, trade *domain.Trade) error {
	emoji := "✅"
	if trade.PnLAmount < 0 {
		emoji = "❌"
	}
	text := fmt.Sprintf("%s Closed %s (%s)\nExit: %.8g\nPnL: %+.2f (%.2f%%)\nHeld: %s",
		emoji, trade.Symbol, trade.ExitReason, trade.ExitPrice,
		trade.PnLAmount, trade.PnLPercent, trade.Duration.Round(time.Second))
	return n.send(ctx, text)
}

// NotifyPaused announces that the loss-streak circuit breaker tripped.
func (n *Notifier) NotifyPaused(ctx context.Context, reason string, untilUnix int64) error {
	text := fmt.Sprintf("⏸ Trading paused: %s\nResumes at %s",
		reason, time.Unix(untilUnix, 0).UTC().Format(time.RFC3339))
	return n.send(ctx, text)
}

// NotifyError reports an operational error.
func (n *Notifier) NotifyError(ctx context.Context, scope string, err error) error {
	return n.send(ctx, fmt.Sprintf("⚠️ %s: %v", scope, err))
}

// NotifyLifecycle announces bot start and stop events.
func (n *Notifier) NotifyLifecycle(ctx context.Context, msg string) error {
	return n.send(ctx, fmt.Sprintf("🤖 %s", msg))
}

// NoopNotifier satisfies ports.Notifier when Telegram is not configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifyTradeOpened(context.Context, *domain.Trade) error { return nil }
func (NoopNotifier) NotifyTradeClosed(context.Context, *domain.Trade) error { return nil }
func (NoopNotifier) NotifyPaused(context.Context, string, int64) error      { return nil }
func (NoopNotifier) NotifyError(context.Context, string, error) error       { return nil }
func (NoopNotifier) NotifyLifecycle(context.Context, string) error          { return nil }
