package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// OrderType identifies the exchange order type used for a leg of a trade.
type OrderType string

const (
	OrderTypeMarket          OrderType = "MARKET"
	OrderTypeLimit           OrderType = "LIMIT"
	OrderTypeTakeProfit      OrderType = "TAKE_PROFIT"
	OrderTypeTakeProfitLimit OrderType = "TAKE_PROFIT_LIMIT"
	OrderTypeStopLoss        OrderType = "STOP_LOSS"
	OrderTypeStopLossLimit   OrderType = "STOP_LOSS_LIMIT"
)

// TradeStatus represents the lifecycle state of a trade.
type TradeStatus string

const (
	StatusPending   TradeStatus = "PENDING"
	StatusOpen      TradeStatus = "OPEN"
	StatusClosed    TradeStatus = "CLOSED"
	StatusCancelled TradeStatus = "CANCELLED"
	StatusError     TradeStatus = "ERROR"
)

// ExitReason indicates why a trade was closed.
type ExitReason string

const (
	ExitReasonProfitTarget   ExitReason = "PROFIT_TARGET"
	ExitReasonProtectiveStop ExitReason = "PROTECTIVE_STOP"
	ExitReasonTimeout        ExitReason = "TIMEOUT"
	ExitReasonMomentumWeak   ExitReason = "MOMENTUM_WEAK"
	ExitReasonManual         ExitReason = "MANUAL"
	ExitReasonError          ExitReason = "ERROR"
)

// Regime classifies the market state at entry from the RSI reading.
// It drives how exit quantity is split between the protective and
// profit-taking legs.
type Regime string

const (
	RegimeOverbought Regime = "OVERBOUGHT"
	RegimeOversold   Regime = "OVERSOLD"
	RegimeNeutral    Regime = "NEUTRAL"
)

// RegimeForRSI maps an RSI value onto a regime using the configured bounds.
func RegimeForRSI(rsi, oversoldBound, overboughtBound float64) Regime {
	switch {
	case rsi > overboughtBound:
		return RegimeOverbought
	case rsi < oversoldBound:
		return RegimeOversold
	default:
		return RegimeNeutral
	}
}
