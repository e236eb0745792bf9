package ports

import (
	"context"

	"rsiScalpBot/internal/domain"
)

// Signal is an entry candidate produced by a market scan.
type Signal struct {
	Symbol   string
	Price    float64
	Snapshot domain.SignalSnapshot
}

// SignalSource produces entry signals and answers momentum queries for
// open positions.
type SignalSource interface {
	// Scan evaluates the configured symbols and returns those whose entry
	// conditions currently hold.
	Scan(ctx context.Context) ([]Signal, error)

	// WeakMomentum reports whether the symbol's momentum has collapsed,
	// used by the monitor for early exits on losing positions.
	WeakMomentum(ctx context.Context, symbol string) (bool, error)
}
