// Package risk gates trade entries and sizes positions. All decisions are
// pure functions over a session snapshot so they stay trivially testable.
package risk

import (
	"fmt"
	"math"
	"time"
)

// GateConfig holds the limits the gate enforces.
type GateConfig struct {
	MaxOpenPositions  int
	MinBalanceToTrade float64
	MaxTradesPerHour  int     // global, across all symbols
	MaxTradesPerPair  int     // per symbol, within the rolling hour
	MinSecondsBetween int     // minimum seconds since the last entry
	MaxDailyTrades    int
	MaxDailyLoss      float64 // positive quote amount
}

// SizingConfig holds the position sizing parameters.
type SizingConfig struct {
	PositionSizePercent float64 // fraction of free balance, e.g. 0.05
	MinPositionSize     float64 // quote currency floor
	MaxPositionSize     float64 // quote currency ceiling
	DynamicSizing       bool
	ReductionFactor     float64 // per consecutive loss, e.g. 0.8
}

// Snapshot is the session state the gate evaluates. The engine builds it
// under its own lock; the gate never mutates it.
type Snapshot struct {
	Now               time.Time
	PausedUntil       time.Time
	OpenPositions     int
	SymbolOpen        bool // an open trade already exists for the candidate symbol
	FreeBalance       float64
	TradesLastHour    int            // entries across all symbols in the rolling hour
	SymbolTradesHour  int            // entries for the candidate symbol in the rolling hour
	LastTradeTime     time.Time      // zero value if no trade yet
	DailyTrades       int
	DailyPnL          float64
	ConsecutiveLosses int
}

// Stable check names, used as metric labels for gate denials.
const (
	CheckPaused       = "paused"
	CheckMaxPositions = "max_positions"
	CheckSymbolOpen   = "symbol_open"
	CheckBalance      = "balance"
	CheckHourlyGlobal = "hourly_global"
	CheckHourlySymbol = "hourly_symbol"
	CheckMinInterval  = "min_interval"
	CheckDailyTrades  = "daily_trades"
	CheckDailyLoss    = "daily_loss"
)

// Decision is the outcome of a gate evaluation.
type Decision struct {
	Allowed bool
	Check   string // which check denied the entry; empty when allowed
	Reason  string // human-readable explanation
}

// Gate decides whether a new trade may be opened and how large it may be.
type Gate struct {
	cfg    GateConfig
	sizing SizingConfig
}

func NewGate(cfg GateConfig, sizing SizingConfig) *Gate {
	return &Gate{cfg: cfg, sizing: sizing}
}

// CanOpen runs the entry checks in order and short-circuits on the first
// failure, returning a human-readable reason for the denial.
func (g *Gate) CanOpen(symbol string, s Snapshot) (bool, string) {
	d := g.Evaluate(symbol, s)
	return d.Allowed, d.Reason
}

// Evaluate runs the entry checks in order and short-circuits on the first
// failure.
func (g *Gate) Evaluate(symbol string, s Snapshot) Decision {
	if s.Now.Before(s.PausedUntil) {
		return deny(CheckPaused, fmt.Sprintf("trading paused until %s after loss streak", s.PausedUntil.Format(time.RFC3339)))
	}
	if s.OpenPositions >= g.cfg.MaxOpenPositions {
		return deny(CheckMaxPositions, fmt.Sprintf("max open positions reached (%d/%d)", s.OpenPositions, g.cfg.MaxOpenPositions))
	}
	if s.SymbolOpen {
		return deny(CheckSymbolOpen, fmt.Sprintf("position already open for %s", symbol))
	}
	if s.FreeBalance < g.cfg.MinBalanceToTrade {
		return deny(CheckBalance, fmt.Sprintf("free balance %.2f below minimum %.2f", s.FreeBalance, g.cfg.MinBalanceToTrade))
	}
	if s.TradesLastHour >= g.cfg.MaxTradesPerHour {
		return deny(CheckHourlyGlobal, fmt.Sprintf("hourly trade limit reached (%d/%d)", s.TradesLastHour, g.cfg.MaxTradesPerHour))
	}
	if s.SymbolTradesHour >= g.cfg.MaxTradesPerPair {
		return deny(CheckHourlySymbol, fmt.Sprintf("hourly trade limit for %s reached (%d/%d)", symbol, s.SymbolTradesHour, g.cfg.MaxTradesPerPair))
	}
	if !s.LastTradeTime.IsZero() {
		elapsed := s.Now.Sub(s.LastTradeTime)
		if elapsed < time.Duration(g.cfg.MinSecondsBetween)*time.Second {
			return deny(CheckMinInterval, fmt.Sprintf("only %.0fs since last entry, minimum is %ds", elapsed.Seconds(), g.cfg.MinSecondsBetween))
		}
	}
	if s.DailyTrades >= g.cfg.MaxDailyTrades {
		return deny(CheckDailyTrades, fmt.Sprintf("daily trade limit reached (%d/%d)", s.DailyTrades, g.cfg.MaxDailyTrades))
	}
	if s.DailyPnL <= -g.cfg.MaxDailyLoss {
		return deny(CheckDailyLoss, fmt.Sprintf("daily loss limit reached (%.2f)", s.DailyPnL))
	}
	return Decision{Allowed: true, Reason: "OK"}
}

func deny(check, reason string) Decision {
	return Decision{Check: check, Reason: reason}
}

// PositionSize returns the quote capital to engage. With dynamic sizing on,
// each consecutive loss shrinks the base size geometrically before the
// result is clamped to the configured bounds.
func (g *Gate) PositionSize(freeBalance float64, consecutiveLosses int) float64 {
	size := freeBalance * g.sizing.PositionSizePercent
	if g.sizing.DynamicSizing && consecutiveLosses > 0 {
		size *= math.Pow(g.sizing.ReductionFactor, float64(consecutiveLosses))
	}
	if size < g.sizing.MinPositionSize {
		size = g.sizing.MinPositionSize
	}
	if size > g.sizing.MaxPositionSize {
		size = g.sizing.MaxPositionSize
	}
	return size
}
