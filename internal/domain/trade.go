package domain

import (
	"fmt"
	"time"
)

// SignalSnapshot captures the technical picture at the moment a trade was
// opened. It is immutable once the trade exists and travels with it into
// the journal.
type SignalSnapshot struct {
	RSIValue         float64  // RSI reading that triggered the entry
	Regime           Regime   // market regime derived from the RSI
	Conditions       []string // names of the entry conditions that held
	BreakoutDetected bool     // whether a breakout confirmation was present
}

// Trade represents a single spot position through its whole lifecycle,
// from the entry fill to the realized close.
type Trade struct {
	ID             string      // unique identifier (symbol + open unix time)
	Symbol         string      // trading symbol (e.g. "ETHUSDC")
	Side           OrderSide   // entry side, always BUY for this bot
	Status         TradeStatus // current lifecycle state
	EntryPrice     float64     // average fill price of the entry order
	Quantity       float64     // filled base quantity
	CapitalEngaged float64     // quote capital spent on the entry
	StopLoss       float64     // protective price level
	TakeProfit     float64     // profit target price level
	OpenTime       time.Time   // when the entry filled
	Signal         SignalSnapshot

	// Exchange order linkage. A zero id means no resting order exists for
	// that leg and the monitor enforces it in software.
	EntryOrderID  int64
	StopOrderID   int64
	ProfitOrderID int64

	// Populated on close; zero values while the trade is open.
	ExitPrice  float64
	ExitTime   time.Time
	ExitReason ExitReason
	PnLAmount  float64 // realized PnL in quote currency, net of fees
	PnLPercent float64 // realized PnL relative to capital engaged
	Fees       float64 // estimated round-trip fees in quote currency
	Duration   time.Duration
}

// NewTrade builds a PENDING trade from an entry fill. The engine promotes
// it to OPEN once the exit orders are arranged and the trade is registered.
func NewTrade(symbol string, entryPrice, quantity, capital, stopLoss, takeProfit float64, openTime time.Time, signal SignalSnapshot) *Trade {
	return &Trade{
		ID:             fmt.Sprintf("%s-%d", symbol, openTime.Unix()),
		Symbol:         symbol,
		Side:           Buy,
		Status:         StatusPending,
		EntryPrice:     entryPrice,
		Quantity:       quantity,
		CapitalEngaged: capital,
		StopLoss:       stopLoss,
		TakeProfit:     takeProfit,
		OpenTime:       openTime,
		Signal:         signal,
	}
}

// IsOpen reports whether the trade is still live.
func (t *Trade) IsOpen() bool {
	return t.Status == StatusOpen
}

// UnrealizedPnL returns the gross PnL at the given price, before fees.
func (t *Trade) UnrealizedPnL(price float64) float64 {
	return (price - t.EntryPrice) * t.Quantity
}

// UnrealizedPnLPercent returns the gross PnL at the given price as a
// percentage of the entry price.
func (t *Trade) UnrealizedPnLPercent(price float64) float64 {
	if t.EntryPrice == 0 {
		return 0
	}
	return (price - t.EntryPrice) / t.EntryPrice * 100
}

// Close finalizes the trade at the given exit. Fees are estimated as the
// taker fee applied to both legs of the round trip.
func (t *Trade) Close(exitPrice float64, exitTime time.Time, reason ExitReason, feeRate float64) {
	t.ExitPrice = exitPrice
	t.ExitTime = exitTime
	t.ExitReason = reason
	t.Duration = exitTime.Sub(t.OpenTime)
	t.Fees = t.CapitalEngaged * 2 * feeRate
	t.PnLAmount = (exitPrice-t.EntryPrice)*t.Quantity - t.Fees
	if t.CapitalEngaged > 0 {
		t.PnLPercent = t.PnLAmount / t.CapitalEngaged * 100
	}
	t.Status = StatusClosed
}
