package exitplan

import (
	"context"

	"rsiScalpBot/internal/domain"
	"rsiScalpBot/internal/metrics"
	"rsiScalpBot/internal/ports"
)

// attempt is one rung of an order type fallback ladder.
type attempt struct {
	orderType domain.OrderType
	build     func(base ports.OrderRequest) ports.OrderRequest
}

// Cascade places exit orders, degrading through progressively simpler
// order types when the instrument rejects or does not support the richer
// ones. It never returns an error: total failure yields order id 0 and the
// position monitor enforces the exit in software.
type Cascade struct {
	exchange ports.ExchangeClient
	logger   ports.Logger
	metrics  *metrics.Metrics
}

func NewCascade(exchange ports.ExchangeClient, logger ports.Logger, m *metrics.Metrics) *Cascade {
	return &Cascade{exchange: exchange, logger: logger, metrics: m}
}

// PlaceProfitOrder places the take-profit leg of an exit. The ladder is
// TAKE_PROFIT_LIMIT, then TAKE_PROFIT, then a plain LIMIT sell at the
// target price. Returns the exchange order id, or 0 if every rung failed.
func (c *Cascade) PlaceProfitOrder(ctx context.Context, symbol string, qty, price float64) int64 {
	ladder := []attempt{
		{domain.OrderTypeTakeProfitLimit, func(base ports.OrderRequest) ports.OrderRequest {
			base.Price = price
			base.StopPrice = price
			base.TimeInForce = "GTC"
			return base
		}},
		{domain.OrderTypeTakeProfit, func(base ports.OrderRequest) ports.OrderRequest {
			base.StopPrice = price
			return base
		}},
		{domain.OrderTypeLimit, func(base ports.OrderRequest) ports.OrderRequest {
			base.Price = price
			base.TimeInForce = "GTC"
			return base
		}},
	}
	return c.place(ctx, "placeProfitOrder", symbol, qty, ladder)
}

// PlaceProtectiveOrder places the stop-loss leg. The ladder is
// STOP_LOSS_LIMIT then STOP_LOSS. When trailingBips is non-zero the stop
// trails the price by that many basis points instead of sitting at a fixed
// trigger. Returns the exchange order id, or 0 if every rung failed.
func (c *Cascade) PlaceProtectiveOrder(ctx context.Context, symbol string, qty, price float64, trailingBips int64) int64 {
	withTrigger := func(base ports.OrderRequest) ports.OrderRequest {
		if trailingBips > 0 {
			base.TrailingDeltaBips = trailingBips
		} else {
			base.StopPrice = price
		}
		return base
	}
	ladder := []attempt{
		{domain.OrderTypeStopLossLimit, func(base ports.OrderRequest) ports.OrderRequest {
			base = withTrigger(base)
			base.Price = price
			base.TimeInForce = "GTC"
			return base
		}},
		{domain.OrderTypeStopLoss, withTrigger},
	}
	return c.place(ctx, "placeProtectiveOrder", symbol, qty, ladder)
}

func (c *Cascade) place(ctx context.Context, op, symbol string, qty float64, ladder []attempt) int64 {
	if qty <= 0 {
		return 0
	}
	var info *ports.SymbolInfo
	if si, err := c.exchange.GetSymbolInfo(ctx, symbol); err == nil {
		info = si
	}
	for _, rung := range ladder {
		if info != nil && !info.SupportsOrderType(rung.orderType) {
			c.logger.Debug(ctx, op+": order type not supported, trying next",
				map[string]interface{}{"symbol": symbol, "type": string(rung.orderType)})
			continue
		}
		req := rung.build(ports.OrderRequest{
			Symbol:   symbol,
			Side:     domain.Sell,
			Type:     rung.orderType,
			Quantity: qty,
		})
		resp, err := c.exchange.PlaceOrder(ctx, req)
		if err != nil {
			c.metrics.OrderFallbacks.Inc()
			c.logger.Warn(ctx, op+": attempt failed, trying next order type",
				map[string]interface{}{"symbol": symbol, "type": string(rung.orderType), "error": err.Error()})
			continue
		}
		c.logger.Info(ctx, op+": order placed",
			map[string]interface{}{"symbol": symbol, "type": string(rung.orderType), "orderID": resp.OrderID, "quantity": qty})
		return resp.OrderID
	}
	c.logger.Error(ctx, ports.ErrOrderPlacementFailed, op+": all order types failed",
		map[string]interface{}{"symbol": symbol, "quantity": qty})
	return 0
}
