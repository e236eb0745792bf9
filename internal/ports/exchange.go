package ports

import (
	"context"
	"time"

	"rsiScalpBot/internal/domain"
)

// SymbolInfo carries the exchange trading rules for one instrument.
// Values are parsed from the exchange filters; a zero StepSize or
// TickSize means the exchange did not publish that filter.
type SymbolInfo struct {
	Symbol      string
	StepSize    float64  // quantity grid (LOT_SIZE filter)
	TickSize    float64  // price grid (PRICE_FILTER)
	MinQty      float64  // minimum order quantity
	MinNotional float64  // minimum order value in quote currency
	OrderTypes  []string // order types the instrument accepts
}

// SupportsOrderType reports whether the instrument accepts the given
// order type. An empty OrderTypes list is treated as permissive.
func (s *SymbolInfo) SupportsOrderType(orderType domain.OrderType) bool {
	if len(s.OrderTypes) == 0 {
		return true
	}
	for _, t := range s.OrderTypes {
		if t == string(orderType) {
			return true
		}
	}
	return false
}

// OrderRequest describes a single order to place. Optional parameters are
// explicit fields; a zero value means the parameter is omitted from the
// exchange request.
type OrderRequest struct {
	Symbol   string
	Side     domain.OrderSide
	Type     domain.OrderType
	Quantity float64

	Price             float64 // limit price, required by *_LIMIT types
	StopPrice         float64 // trigger price for stop/take-profit types
	TimeInForce       string  // e.g. "GTC"; empty means exchange default
	TrailingDeltaBips int64   // trailing stop distance in basis points; 0 disables
}

// OrderResponse represents the essential details returned after placing an order.
type OrderResponse struct {
	OrderID       int64     // Exchange's order ID
	Symbol        string    // Symbol for the order
	ClientOrderID string    // User-defined order ID
	Price         float64   // Price of the order (might be 0 for market orders)
	AvgPrice      float64   // Average filled price, computed from fills
	OrigQuantity  float64   // Original quantity requested
	ExecutedQty   float64   // Quantity filled
	Status        string    // Order status (e.g., NEW, FILLED, CANCELED)
	Type          string    // Order type
	Side          string    // Order side (BUY, SELL)
	Timestamp     time.Time // Time the order response was generated
}

// Balance holds the free and locked amounts of one asset.
type Balance struct {
	Asset  string
	Free   float64
	Locked float64
}

// ExchangeClient defines the interface for interacting with a spot exchange.
// This abstraction decouples the engine from the concrete exchange SDK.
type ExchangeClient interface {
	// SetServerTime synchronizes the client's time with the server's time.
	SetServerTime(ctx context.Context) error

	// GetTickerPrice retrieves the last ticker price for a given symbol.
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)

	// GetAccountBalance retrieves the balance for a specific asset (e.g. "USDC").
	GetAccountBalance(ctx context.Context, asset string) (*Balance, error)

	// GetSymbolInfo retrieves the trading rules for a symbol. Implementations
	// should cache the exchange info response.
	GetSymbolInfo(ctx context.Context, symbol string) (*SymbolInfo, error)

	// PlaceOrder places an order described by the request.
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error)

	// CancelOrder cancels an existing open order by its ID.
	CancelOrder(ctx context.Context, symbol string, orderID int64) (*OrderResponse, error)

	// GetKlines retrieves historical klines/candlestick data for the given symbol.
	GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Kline, error)

	// Ping checks the connectivity to the exchange API.
	Ping(ctx context.Context) error

	// GetServerTime retrieves the current server time from the exchange.
	GetServerTime(ctx context.Context) (time.Time, error)
}
