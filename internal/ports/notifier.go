package ports

import (
	"context"

	"rsiScalpBot/internal/domain"
)

// Notifier pushes human-facing notifications about terminal trade outcomes.
// Like the recorder it is fire-and-forget: failures are logged and swallowed.
type Notifier interface {
	NotifyTradeOpened(ctx context.Context, trade *domain.Trade) error
	NotifyTradeClosed(ctx context.Context, trade *domain.Trade) error
	// NotifyPaused signals that a loss streak tripped the circuit breaker.
	NotifyPaused(ctx context.Context, reason string, untilUnix int64) error
	NotifyError(ctx context.Context, scope string, err error) error
	// NotifyLifecycle announces start and stop of the bot itself.
	NotifyLifecycle(ctx context.Context, msg string) error
}
