// Package exitplan decides how an open position's quantity is split across
// protective and profit-taking exit orders, and places those orders with
// type fallbacks matched to what the instrument supports.
package exitplan

import (
	"context"

	"rsiScalpBot/internal/domain"
	"rsiScalpBot/internal/ports"
	"rsiScalpBot/internal/precision"
)

const (
	// Share of the quantity assigned to the protective leg per regime.
	// The remainder goes to the profit leg.
	protectiveShareOverbought = 0.3
	protectiveShareOversold   = 0.8
	protectiveShareNeutral    = 0.5

	// Safety margin applied on top of the exchange minimum notional when
	// computing the smallest viable protective quantity.
	minNotionalMargin = 1.1

	// A split is only attempted when the total quantity exceeds this
	// multiple of the minimum protective quantity. Below it both legs
	// would hover at the notional floor and partial fills could strand
	// dust, so the whole quantity goes to the profit leg instead.
	splitThreshold = 1.5

	// Used when the exchange publishes no MIN_NOTIONAL filter.
	fallbackMinNotional = 5.0
)

// Plan is the outcome of an allocation. A zero ProtectiveQty means the
// protective leg is not placed on the exchange and the monitor enforces
// the stop in software.
type Plan struct {
	TotalQty      float64
	ProtectiveQty float64
	ProfitQty     float64
	Split         bool
}

// Allocator computes exit quantity splits.
type Allocator struct {
	exchange  ports.ExchangeClient
	formatter *precision.Formatter
	logger    ports.Logger
}

func NewAllocator(exchange ports.ExchangeClient, formatter *precision.Formatter, logger ports.Logger) *Allocator {
	return &Allocator{exchange: exchange, formatter: formatter, logger: logger}
}

// ProtectiveShare returns the fraction of quantity assigned to the
// protective leg for the given regime.
func ProtectiveShare(regime domain.Regime) float64 {
	switch regime {
	case domain.RegimeOverbought:
		return protectiveShareOverbought
	case domain.RegimeOversold:
		return protectiveShareOversold
	default:
		return protectiveShareNeutral
	}
}

// Allocate splits totalQty between the protective and profit legs for the
// given regime. stopEstimate is the expected protective trigger price, used
// to translate the exchange's notional floor into a quantity floor.
//
// The protective quantity is floored to the step grid first and the profit
// leg takes the exact remainder, so the two legs always sum to the
// formatted total.
func (a *Allocator) Allocate(ctx context.Context, symbol string, totalQty, stopEstimate float64, regime domain.Regime) Plan {
	total := a.formatter.FormatQuantity(ctx, symbol, totalQty)
	if total <= 0 {
		return Plan{}
	}
	noSplit := Plan{TotalQty: total, ProfitQty: total}

	if stopEstimate <= 0 {
		return noSplit
	}
	minNotional := fallbackMinNotional
	if info, err := a.exchange.GetSymbolInfo(ctx, symbol); err == nil && info != nil && info.MinNotional > 0 {
		minNotional = info.MinNotional
	}
	minProtectiveQty := minNotional * minNotionalMargin / stopEstimate

	if total <= minProtectiveQty*splitThreshold {
		a.logger.Debug(ctx, "exit allocation: quantity too small to split, full profit leg",
			map[string]interface{}{"symbol": symbol, "total": total, "minProtective": minProtectiveQty})
		return noSplit
	}

	protective := total * ProtectiveShare(regime)
	if protective < minProtectiveQty {
		protective = minProtectiveQty
	}
	protective = a.formatter.FormatQuantity(ctx, symbol, protective)
	if protective <= 0 || protective >= total {
		return noSplit
	}
	// The formatted value is authoritative for the notional check.
	if protective*stopEstimate < minNotional {
		a.logger.Debug(ctx, "exit allocation: protective leg below notional floor after formatting",
			map[string]interface{}{"symbol": symbol, "protective": protective, "minNotional": minNotional})
		return noSplit
	}

	// The remainder is an exact step multiple; formatting only strips
	// float noise from the subtraction.
	profit := a.formatter.FormatQuantity(ctx, symbol, total-protective)
	if profit <= 0 {
		return noSplit
	}
	return Plan{
		TotalQty:      total,
		ProtectiveQty: protective,
		ProfitQty:     profit,
		Split:         true,
	}
}
