// Package precision reconciles order quantities and prices with the
// exchange's instrument grids before any order is sent.
package precision

import (
	"context"
	"math"

	"rsiScalpBot/internal/ports"
)

const (
	// Fallback decimal places used when the exchange metadata is unavailable.
	fallbackQtyDecimals   = 6
	fallbackPriceDecimals = 8
)

// Formatter snaps raw quantities and prices onto the instrument grids
// published by the exchange. Quantities are always floored so an order can
// never exceed the intended size; prices are rounded to the nearest tick.
type Formatter struct {
	exchange ports.ExchangeClient
	logger   ports.Logger
}

func NewFormatter(exchange ports.ExchangeClient, logger ports.Logger) *Formatter {
	return &Formatter{exchange: exchange, logger: logger}
}

// FormatQuantity floors qty to the symbol's step grid. When the symbol
// metadata cannot be fetched it falls back to truncating at a fixed number
// of decimals. It returns 0 when the step cannot be applied; callers must
// treat 0 as "abandon this order".
func (f *Formatter) FormatQuantity(ctx context.Context, symbol string, qty float64) float64 {
	if qty <= 0 {
		return 0
	}
	info, err := f.exchange.GetSymbolInfo(ctx, symbol)
	if err != nil || info == nil {
		f.logger.Warn(ctx, "formatQuantity: symbol info unavailable, using fallback precision",
			map[string]interface{}{"symbol": symbol, "decimals": fallbackQtyDecimals})
		return truncate(qty, fallbackQtyDecimals)
	}
	if info.StepSize <= 0 {
		f.logger.Warn(ctx, "formatQuantity: no step size for symbol",
			map[string]interface{}{"symbol": symbol})
		return 0
	}
	return FloorToStep(qty, info.StepSize)
}

// FormatPrice rounds price to the symbol's tick grid, falling back to a
// fixed number of decimals when metadata is unavailable.
func (f *Formatter) FormatPrice(ctx context.Context, symbol string, price float64) float64 {
	if price <= 0 {
		return 0
	}
	info, err := f.exchange.GetSymbolInfo(ctx, symbol)
	if err != nil || info == nil {
		f.logger.Warn(ctx, "formatPrice: symbol info unavailable, using fallback precision",
			map[string]interface{}{"symbol": symbol, "decimals": fallbackPriceDecimals})
		return roundTo(price, fallbackPriceDecimals)
	}
	if info.TickSize <= 0 {
		f.logger.Warn(ctx, "formatPrice: no tick size for symbol",
			map[string]interface{}{"symbol": symbol})
		return 0
	}
	return RoundToTick(price, info.TickSize)
}

// FloorToStep snaps qty down onto the step grid. The division is rounded to
// the grid's decimal resolution first so float noise just below a step
// boundary (e.g. 0.0034567/0.001 = 3.4566999...) cannot lose a whole step.
func FloorToStep(qty, step float64) float64 {
	if step <= 0 {
		return 0
	}
	steps := math.Floor(roundTo(qty/step, 9))
	return roundTo(steps*step, decimalsOf(step))
}

// RoundToTick snaps price onto the nearest tick.
func RoundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return 0
	}
	ticks := math.Round(price / tick)
	return roundTo(ticks*tick, decimalsOf(tick))
}

// decimalsOf returns the number of decimal places needed to represent the
// grid size exactly (0.001 -> 3). Grids coarser than 1 need none.
func decimalsOf(size float64) int {
	for d := 0; d <= 12; d++ {
		scaled := size * math.Pow(10, float64(d))
		if math.Abs(scaled-math.Round(scaled)) < 1e-9 {
			return d
		}
	}
	return 12
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func truncate(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Trunc(v*p) / p
}
