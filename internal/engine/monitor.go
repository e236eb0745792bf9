package engine

import (
	"context"
	"errors"
	"fmt"

	"rsiScalpBot/internal/domain"
	"rsiScalpBot/internal/ports"
)

// MonitorPositions evaluates every open trade against the exit conditions
// and closes those that hit one. A failure on one trade never prevents the
// others from being checked.
func (e *Engine) MonitorPositions(ctx context.Context) {
	op := "monitorPositions"
	e.mu.Lock()
	defer e.mu.Unlock()

	for symbol, trade := range e.open {
		price, err := e.exchange.GetTickerPrice(ctx, symbol)
		if err != nil {
			e.metrics.ErrorsTotal.Inc()
			e.logger.Error(ctx, err, op+": price fetch failed, skipping trade this cycle", map[string]interface{}{"symbol": symbol})
			continue
		}
		if reason, hit := e.exitCondition(ctx, trade, price); hit {
			e.logger.Info(ctx, op+": exit condition met", map[string]interface{}{
				"tradeID": trade.ID, "symbol": symbol, "price": price, "reason": string(reason),
			})
			e.closeTradeLocked(ctx, trade, price, reason)
		}
	}
}

// exitCondition checks the exit rules in priority order: profit target,
// protective stop, stagnation timeout, then weak momentum on a loser.
func (e *Engine) exitCondition(ctx context.Context, trade *domain.Trade, price float64) (domain.ExitReason, bool) {
	if price >= trade.TakeProfit {
		return domain.ExitReasonProfitTarget, true
	}
	if price <= trade.StopLoss {
		return domain.ExitReasonProtectiveStop, true
	}

	elapsed := e.now().Sub(trade.OpenTime)
	pnlPct := trade.UnrealizedPnLPercent(price)

	if elapsed >= e.cfg.TimeoutDuration && pnlPct >= e.cfg.TimeoutBandLow && pnlPct <= e.cfg.TimeoutBandHigh {
		return domain.ExitReasonTimeout, true
	}

	if elapsed >= e.cfg.EarlyExitAfter && pnlPct < 0 {
		weak, err := e.signals.WeakMomentum(ctx, trade.Symbol)
		if err != nil {
			e.logger.Warn(ctx, "momentum check failed", map[string]interface{}{
				"symbol": trade.Symbol, "error": err.Error(),
			})
			return "", false
		}
		if weak {
			return domain.ExitReasonMomentumWeak, true
		}
	}
	return "", false
}

// closeTradeLocked closes one trade at market. The caller must hold e.mu.
//
// The trade is removed from the open map before any exchange I/O so a
// second close attempt for the same trade becomes a no-op, whatever the
// outcome of this one.
func (e *Engine) closeTradeLocked(ctx context.Context, trade *domain.Trade, price float64, reason domain.ExitReason) {
	op := "closeTrade"
	if _, ok := e.open[trade.Symbol]; !ok {
		e.logger.Debug(ctx, op+": trade already being closed", map[string]interface{}{"tradeID": trade.ID})
		return
	}
	delete(e.open, trade.Symbol)
	e.metrics.ActivePositions.Set(float64(len(e.open)))

	if trade.StopOrderID != 0 {
		e.cancelOrderWarn(ctx, trade.Symbol, trade.StopOrderID, "protective")
	}
	if trade.ProfitOrderID != 0 {
		e.cancelOrderWarn(ctx, trade.Symbol, trade.ProfitOrderID, "profit")
	}

	resp, err := e.exchange.PlaceOrder(ctx, ports.OrderRequest{
		Symbol:   trade.Symbol,
		Side:     domain.Sell,
		Type:     domain.OrderTypeMarket,
		Quantity: trade.Quantity,
	})
	if err != nil {
		// The position is in an unknown state on the exchange; mark the
		// trade errored and surface it rather than retrying blindly.
		e.metrics.ErrorsTotal.Inc()
		e.logger.Error(ctx, err, op+": closing market order failed, manual intervention required", map[string]interface{}{
			"tradeID": trade.ID, "symbol": trade.Symbol,
		})
		trade.Status = domain.StatusError
		trade.ExitReason = domain.ExitReasonError
		e.history = append(e.history, trade)
		e.logError(ctx, op, fmt.Sprintf("close failed for %s: %v", trade.ID, err))
		if nerr := e.notifier.NotifyError(ctx, op, err); nerr != nil {
			e.logger.Warn(ctx, op+": failed to notify close error", map[string]interface{}{"error": nerr.Error()})
		}
		return
	}

	exitPrice := resp.AvgPrice
	if exitPrice == 0 {
		exitPrice = price
	}
	now := e.now()
	trade.Close(exitPrice, now, reason, e.cfg.FeeRate)

	streakHit := e.session.recordClose(trade.PnLAmount, e.cfg.LossStreakLimit)
	e.metrics.TradesClosed.WithLabelValues(string(reason)).Inc()
	e.metrics.DailyPnL.Set(e.session.dailyPnL)
	e.history = append(e.history, trade)

	e.logger.Info(ctx, op+": position closed", map[string]interface{}{
		"tradeID": trade.ID, "symbol": trade.Symbol, "exitPrice": exitPrice,
		"pnl": trade.PnLAmount, "pnlPercent": trade.PnLPercent,
		"reason": string(reason), "duration": trade.Duration.String(),
	})
	if err := e.recorder.LogTradeClose(ctx, trade); err != nil {
		e.logger.Warn(ctx, op+": failed to journal trade close", map[string]interface{}{"tradeID": trade.ID, "error": err.Error()})
	}
	if err := e.notifier.NotifyTradeClosed(ctx, trade); err != nil {
		e.logger.Warn(ctx, op+": failed to notify trade close", map[string]interface{}{"tradeID": trade.ID, "error": err.Error()})
	}

	if streakHit {
		e.session.pause(now, e.cfg.PauseDuration)
		until := e.session.pausedUntil
		e.logger.Warn(ctx, op+": loss streak limit hit, pausing entries", map[string]interface{}{
			"streak": e.cfg.LossStreakLimit, "until": until.String(),
		})
		if err := e.notifier.NotifyPaused(ctx, "consecutive loss limit reached", until.Unix()); err != nil {
			e.logger.Warn(ctx, op+": failed to notify pause", map[string]interface{}{"error": err.Error()})
		}
	}
}

// cancelOrderWarn attempts to cancel an order, tolerating orders that no
// longer exist because they already filled or were cancelled.
func (e *Engine) cancelOrderWarn(ctx context.Context, symbol string, orderID int64, leg string) {
	op := "cancelOrderWarn"
	_, err := e.exchange.CancelOrder(ctx, symbol, orderID)
	if err != nil {
		if errors.Is(err, ports.ErrOrderNotFound) {
			e.logger.Debug(ctx, op+": order not found, likely already filled or cancelled", map[string]interface{}{
				"orderID": orderID, "leg": leg,
			})
			return
		}
		e.logger.Warn(ctx, op+": failed to cancel order", map[string]interface{}{
			"symbol": symbol, "orderID": orderID, "leg": leg, "error": err.Error(),
		})
		return
	}
	e.logger.Debug(ctx, op+": order cancelled", map[string]interface{}{"orderID": orderID, "leg": leg})
}
