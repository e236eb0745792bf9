package ports

import (
	"context"

	"rsiScalpBot/internal/domain"
)

// TradeRecorder persists the trade journal. All methods are fire-and-forget
// from the engine's point of view: a recording failure is logged by the
// caller and never aborts a trade operation.
type TradeRecorder interface {
	// LogTradeOpen records a freshly opened trade.
	LogTradeOpen(ctx context.Context, trade *domain.Trade) error
	// LogTradeClose records the final state of a closed trade.
	LogTradeClose(ctx context.Context, trade *domain.Trade) error
	// LogError records an operational error for later inspection.
	LogError(ctx context.Context, scope, message string) error
	// RecentTrades retrieves the most recent closed trades, up to a limit.
	RecentTrades(ctx context.Context, limit int) ([]*domain.Trade, error)
}
