// Package engine owns the trade lifecycle: gating entries, sizing and
// placing positions, arranging exit orders, and monitoring open trades
// until they close. All state lives here; collaborators are ports.
package engine

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"rsiScalpBot/config"
	"rsiScalpBot/internal/domain"
	"rsiScalpBot/internal/exitplan"
	"rsiScalpBot/internal/metrics"
	"rsiScalpBot/internal/ports"
	"rsiScalpBot/internal/precision"
	"rsiScalpBot/internal/risk"
)

// Engine runs the trading loop and owns all open trades.
type Engine struct {
	cfg       *config.Config
	logger    ports.Logger
	exchange  ports.ExchangeClient
	recorder  ports.TradeRecorder
	notifier  ports.Notifier
	signals   ports.SignalSource
	gate      *risk.Gate
	formatter *precision.Formatter
	allocator *exitplan.Allocator
	cascade   *exitplan.Cascade
	metrics   *metrics.Metrics
	now       func() time.Time

	mu      sync.Mutex // protects open, history and session
	open    map[string]*domain.Trade
	history []*domain.Trade
	session session
}

// New creates the engine. All dependencies are required except the
// notifier, which may be a no-op implementation.
func New(
	cfg *config.Config,
	logger ports.Logger,
	exchange ports.ExchangeClient,
	recorder ports.TradeRecorder,
	notifier ports.Notifier,
	signals ports.SignalSource,
	m *metrics.Metrics,
) (*Engine, error) {
	if cfg == nil || logger == nil || exchange == nil || recorder == nil || notifier == nil || signals == nil || m == nil {
		return nil, fmt.Errorf("missing required dependencies for Engine")
	}
	formatter := precision.NewFormatter(exchange, logger)
	gate := risk.NewGate(
		risk.GateConfig{
			MaxOpenPositions:  cfg.MaxOpenPositions,
			MinBalanceToTrade: cfg.MinBalanceToTrade,
			MaxTradesPerHour:  cfg.MaxTradesPerHour,
			MaxTradesPerPair:  cfg.MaxTradesPerPair,
			MinSecondsBetween: cfg.MinSecondsBetween,
			MaxDailyTrades:    cfg.MaxDailyTrades,
			MaxDailyLoss:      cfg.MaxDailyLoss,
		},
		risk.SizingConfig{
			PositionSizePercent: cfg.PositionSizePercent,
			MinPositionSize:     cfg.MinPositionSize,
			MaxPositionSize:     cfg.MaxPositionSize,
			DynamicSizing:       cfg.DynamicSizing,
			ReductionFactor:     cfg.ReductionFactor,
		},
	)
	return &Engine{
		cfg:       cfg,
		logger:    logger,
		exchange:  exchange,
		recorder:  recorder,
		notifier:  notifier,
		signals:   signals,
		gate:      gate,
		formatter: formatter,
		allocator: exitplan.NewAllocator(exchange, formatter, logger),
		cascade:   exitplan.NewCascade(exchange, logger, m),
		metrics:   m,
		now:       time.Now,
		open:      make(map[string]*domain.Trade),
	}, nil
}

// Run starts the engine loop and blocks until the context is cancelled or
// a shutdown signal arrives. Open positions are force-closed on the way out.
func (e *Engine) Run(ctx context.Context) error {
	op := "run"
	e.logger.Info(ctx, op+": starting engine", map[string]interface{}{
		"symbols":      e.cfg.Symbols,
		"scanInterval": e.cfg.ScanInterval.String(),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			e.logger.Info(ctx, op+": received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := e.exchange.SetServerTime(ctx); err != nil {
		e.logger.Error(ctx, err, op+": failed to synchronize server time")
		return fmt.Errorf("failed to set server time: %w", err)
	}
	if err := e.exchange.Ping(ctx); err != nil {
		e.logger.Error(ctx, err, op+": exchange unreachable")
		return fmt.Errorf("exchange ping failed: %w", err)
	}

	ticker := time.NewTicker(e.cfg.ScanInterval)
	defer ticker.Stop()

	lastDay := e.now().UTC().YearDay()
	e.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info(ctx, op+": shutting down, closing open positions")
			// The run context is already cancelled; give the close calls
			// their own deadline.
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 30*time.Second)
			e.ForceCloseAll(closeCtx, "shutdown")
			closeCancel()
			e.logger.Info(ctx, op+": engine stopped")
			return nil
		case <-ticker.C:
			if day := e.now().UTC().YearDay(); day != lastDay {
				lastDay = day
				e.RolloverDay()
			}
			e.runCycle(ctx)
		}
	}
}

// runCycle executes one monitor-then-scan pass. A panic anywhere in the
// cycle is recovered so the next tick still runs.
func (e *Engine) runCycle(ctx context.Context) {
	started := e.now()
	defer func() {
		if r := recover(); r != nil {
			e.metrics.ErrorsTotal.Inc()
			e.logger.Error(ctx, fmt.Errorf("panic: %v", r), "cycle panicked")
		}
		e.metrics.ScanDuration.Observe(e.now().Sub(started).Seconds())
	}()

	e.MonitorPositions(ctx)

	signals, err := e.signals.Scan(ctx)
	if err != nil {
		e.metrics.ErrorsTotal.Inc()
		e.logger.Error(ctx, err, "market scan failed")
		return
	}
	for _, sig := range signals {
		if err := e.OpenTrade(ctx, sig); err != nil {
			e.logger.Error(ctx, err, "failed to open trade", map[string]interface{}{"symbol": sig.Symbol})
		}
	}
}

// OpenTrade attempts to turn an entry signal into an open position. A gate
// denial is not an error; exchange failures are.
func (e *Engine) OpenTrade(ctx context.Context, sig ports.Signal) error {
	op := "openTrade"
	e.mu.Lock()
	defer e.mu.Unlock()

	balance, err := e.exchange.GetAccountBalance(ctx, e.cfg.QuoteAsset)
	if err != nil {
		e.metrics.ErrorsTotal.Inc()
		return fmt.Errorf("%s: balance check failed: %w", op, err)
	}

	now := e.now()
	_, symbolOpen := e.open[sig.Symbol]
	snap := e.session.snapshot(now, sig.Symbol, len(e.open), symbolOpen, balance.Free)
	decision := e.gate.Evaluate(sig.Symbol, snap)
	if !decision.Allowed {
		e.metrics.GateDenials.WithLabelValues(decision.Check).Inc()
		e.logger.Info(ctx, op+": entry denied", map[string]interface{}{
			"symbol": sig.Symbol, "reason": decision.Reason,
		})
		return nil
	}

	capital := e.gate.PositionSize(balance.Free, snap.ConsecutiveLosses)
	price, err := e.exchange.GetTickerPrice(ctx, sig.Symbol)
	if err != nil {
		e.metrics.ErrorsTotal.Inc()
		return fmt.Errorf("%s: price fetch failed: %w", op, err)
	}
	if price <= 0 {
		return fmt.Errorf("%s: invalid ticker price %f for %s", op, price, sig.Symbol)
	}

	qty := e.formatter.FormatQuantity(ctx, sig.Symbol, capital/price)
	if qty <= 0 {
		e.logger.Warn(ctx, op+": quantity formatted to zero, abandoning entry", map[string]interface{}{
			"symbol": sig.Symbol, "capital": capital, "price": price,
		})
		return nil
	}

	e.logger.Info(ctx, op+": placing entry order", map[string]interface{}{
		"symbol": sig.Symbol, "quantity": qty, "price": price, "rsi": sig.Snapshot.RSIValue,
	})
	entry, err := e.exchange.PlaceOrder(ctx, ports.OrderRequest{
		Symbol:   sig.Symbol,
		Side:     domain.Buy,
		Type:     domain.OrderTypeMarket,
		Quantity: qty,
	})
	if err != nil {
		e.metrics.ErrorsTotal.Inc()
		e.logError(ctx, op, fmt.Sprintf("entry order failed for %s: %v", sig.Symbol, err))
		return fmt.Errorf("%s: entry market order failed: %w", op, err)
	}

	fillPrice := entry.AvgPrice
	if fillPrice == 0 {
		e.logger.Warn(ctx, op+": no average fill price, using ticker price", map[string]interface{}{
			"symbol": sig.Symbol, "orderID": entry.OrderID,
		})
		fillPrice = price
	}
	fillQty := entry.ExecutedQty
	if fillQty == 0 {
		fillQty = qty
	}

	stopPrice := e.formatter.FormatPrice(ctx, sig.Symbol, fillPrice*(1-e.cfg.StopLossPercent))
	targetPrice := e.formatter.FormatPrice(ctx, sig.Symbol, fillPrice*(1+e.cfg.TakeProfitPercent))

	trade := domain.NewTrade(sig.Symbol, fillPrice, fillQty, fillPrice*fillQty, stopPrice, targetPrice, now, sig.Snapshot)
	trade.EntryOrderID = entry.OrderID

	plan := e.allocator.Allocate(ctx, sig.Symbol, fillQty, stopPrice, sig.Snapshot.Regime)
	if targetPrice > 0 && plan.ProfitQty > 0 {
		trade.ProfitOrderID = e.cascade.PlaceProfitOrder(ctx, sig.Symbol, plan.ProfitQty, targetPrice)
		if trade.ProfitOrderID == 0 {
			e.metrics.OrdersAbandoned.Inc()
		}
	}
	if plan.Split && stopPrice > 0 {
		var trailing int64
		if e.cfg.TrailingStopEnabled {
			trailing = e.cfg.TrailingStopBips()
		}
		trade.StopOrderID = e.cascade.PlaceProtectiveOrder(ctx, sig.Symbol, plan.ProtectiveQty, stopPrice, trailing)
		if trade.StopOrderID == 0 {
			e.metrics.OrdersAbandoned.Inc()
		}
	} else {
		e.logger.Info(ctx, op+": protective leg enforced in software only", map[string]interface{}{
			"symbol": sig.Symbol, "stopLoss": stopPrice,
		})
	}

	trade.Status = domain.StatusOpen
	e.open[sig.Symbol] = trade
	e.session.recordEntry(now, sig.Symbol)
	e.metrics.TradesOpened.Inc()
	e.metrics.ActivePositions.Set(float64(len(e.open)))

	e.logger.Info(ctx, op+": position opened", map[string]interface{}{
		"tradeID": trade.ID, "symbol": trade.Symbol, "entryPrice": trade.EntryPrice,
		"quantity": trade.Quantity, "stopLoss": trade.StopLoss, "takeProfit": trade.TakeProfit,
		"stopOrderID": trade.StopOrderID, "profitOrderID": trade.ProfitOrderID,
	})
	if err := e.recorder.LogTradeOpen(ctx, trade); err != nil {
		e.logger.Warn(ctx, op+": failed to journal trade open", map[string]interface{}{"tradeID": trade.ID, "error": err.Error()})
	}
	if err := e.notifier.NotifyTradeOpened(ctx, trade); err != nil {
		e.logger.Warn(ctx, op+": failed to notify trade open", map[string]interface{}{"tradeID": trade.ID, "error": err.Error()})
	}
	return nil
}

// ForceCloseAll closes every open position at market. Used on shutdown and
// operator intervention.
func (e *Engine) ForceCloseAll(ctx context.Context, cause string) {
	op := "forceCloseAll"
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.open) == 0 {
		return
	}
	e.logger.Warn(ctx, op+": closing all open positions", map[string]interface{}{
		"count": len(e.open), "cause": cause,
	})
	for symbol, trade := range e.open {
		price, err := e.exchange.GetTickerPrice(ctx, symbol)
		if err != nil || price <= 0 {
			// Close at the entry price for bookkeeping; the market order
			// below still executes at whatever the market gives.
			price = trade.EntryPrice
		}
		e.closeTradeLocked(ctx, trade, price, domain.ExitReasonManual)
	}
}

// RolloverDay resets the daily counters at the UTC date change.
func (e *Engine) RolloverDay() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger.Info(context.Background(), "daily rollover", map[string]interface{}{
		"closedPnL": e.session.dailyPnL, "trades": e.session.dailyTrades,
	})
	e.session.rollover()
	e.metrics.DailyPnL.Set(0)
}

// OpenPositions returns a snapshot of the currently open trades.
func (e *Engine) OpenPositions() []*domain.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*domain.Trade, 0, len(e.open))
	for _, t := range e.open {
		out = append(out, t)
	}
	return out
}

// History returns the closed trades of this process lifetime.
func (e *Engine) History() []*domain.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*domain.Trade(nil), e.history...)
}

func (e *Engine) logError(ctx context.Context, scope, msg string) {
	if err := e.recorder.LogError(ctx, scope, msg); err != nil {
		e.logger.Warn(ctx, "failed to journal error", map[string]interface{}{"scope": scope, "error": err.Error()})
	}
}
