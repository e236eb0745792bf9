package exitplan

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rsiScalpBot/internal/domain"
	"rsiScalpBot/internal/metrics"
	"rsiScalpBot/internal/ports"
)

func testMetrics() *metrics.Metrics {
	return metrics.NewWithRegistry(prometheus.NewRegistry())
}

func allSpotOrderTypes() []string {
	return []string{"MARKET", "LIMIT", "TAKE_PROFIT", "TAKE_PROFIT_LIMIT", "STOP_LOSS", "STOP_LOSS_LIMIT"}
}

func TestCascade_PlaceProfitOrder_FirstRungSucceeds(t *testing.T) {
	ex := &mockExchange{info: &ports.SymbolInfo{Symbol: "ETHUSDC", OrderTypes: allSpotOrderTypes()}}
	c := NewCascade(ex, mockLogger{}, testMetrics())

	id := c.PlaceProfitOrder(context.Background(), "ETHUSDC", 0.02, 2522.5)

	assert.NotZero(t, id)
	require.Len(t, ex.placed, 1)
	req := ex.placed[0]
	assert.Equal(t, domain.OrderTypeTakeProfitLimit, req.Type)
	assert.Equal(t, domain.Sell, req.Side)
	assert.InDelta(t, 2522.5, req.Price, 1e-9)
	assert.InDelta(t, 2522.5, req.StopPrice, 1e-9)
	assert.Equal(t, "GTC", req.TimeInForce)
}

func TestCascade_PlaceProfitOrder_FallsBackToLimit(t *testing.T) {
	ex := &mockExchange{
		info: &ports.SymbolInfo{Symbol: "ETHUSDC", OrderTypes: allSpotOrderTypes()},
		placeErrs: map[domain.OrderType]error{
			domain.OrderTypeTakeProfitLimit: ports.ErrOrderPlacementFailed,
			domain.OrderTypeTakeProfit:      ports.ErrOrderPlacementFailed,
		},
	}
	c := NewCascade(ex, mockLogger{}, testMetrics())

	id := c.PlaceProfitOrder(context.Background(), "ETHUSDC", 0.02, 2522.5)

	assert.NotZero(t, id)
	require.Len(t, ex.placed, 1)
	req := ex.placed[0]
	assert.Equal(t, domain.OrderTypeLimit, req.Type)
	assert.InDelta(t, 2522.5, req.Price, 1e-9)
	assert.Zero(t, req.StopPrice)
	assert.Equal(t, "GTC", req.TimeInForce)
}

func TestCascade_PlaceProfitOrder_UnsupportedTypesSkipped(t *testing.T) {
	ex := &mockExchange{info: &ports.SymbolInfo{Symbol: "ETHUSDC", OrderTypes: []string{"MARKET", "LIMIT"}}}
	c := NewCascade(ex, mockLogger{}, testMetrics())

	id := c.PlaceProfitOrder(context.Background(), "ETHUSDC", 0.02, 2522.5)

	assert.NotZero(t, id)
	require.Len(t, ex.placed, 1)
	assert.Equal(t, domain.OrderTypeLimit, ex.placed[0].Type)
}

func TestCascade_PlaceProfitOrder_TotalFailureYieldsZero(t *testing.T) {
	ex := &mockExchange{
		info: &ports.SymbolInfo{Symbol: "ETHUSDC", OrderTypes: allSpotOrderTypes()},
		placeErrs: map[domain.OrderType]error{
			domain.OrderTypeTakeProfitLimit: ports.ErrOrderPlacementFailed,
			domain.OrderTypeTakeProfit:      ports.ErrOrderPlacementFailed,
			domain.OrderTypeLimit:           ports.ErrOrderPlacementFailed,
		},
	}
	c := NewCascade(ex, mockLogger{}, testMetrics())

	id := c.PlaceProfitOrder(context.Background(), "ETHUSDC", 0.02, 2522.5)

	assert.Zero(t, id)
	assert.Empty(t, ex.placed)
}

func TestCascade_PlaceProtectiveOrder_FixedTrigger(t *testing.T) {
	ex := &mockExchange{info: &ports.SymbolInfo{Symbol: "ETHUSDC", OrderTypes: allSpotOrderTypes()}}
	c := NewCascade(ex, mockLogger{}, testMetrics())

	id := c.PlaceProtectiveOrder(context.Background(), "ETHUSDC", 0.02, 2490.0, 0)

	assert.NotZero(t, id)
	require.Len(t, ex.placed, 1)
	req := ex.placed[0]
	assert.Equal(t, domain.OrderTypeStopLossLimit, req.Type)
	assert.InDelta(t, 2490.0, req.StopPrice, 1e-9)
	assert.InDelta(t, 2490.0, req.Price, 1e-9)
	assert.Zero(t, req.TrailingDeltaBips)
}

func TestCascade_PlaceProtectiveOrder_TrailingReplacesTrigger(t *testing.T) {
	ex := &mockExchange{info: &ports.SymbolInfo{Symbol: "ETHUSDC", OrderTypes: allSpotOrderTypes()}}
	c := NewCascade(ex, mockLogger{}, testMetrics())

	id := c.PlaceProtectiveOrder(context.Background(), "ETHUSDC", 0.02, 2490.0, 30)

	assert.NotZero(t, id)
	require.Len(t, ex.placed, 1)
	req := ex.placed[0]
	assert.Equal(t, int64(30), req.TrailingDeltaBips)
	assert.Zero(t, req.StopPrice)
}

func TestCascade_PlaceProtectiveOrder_FallsBackToStopLoss(t *testing.T) {
	ex := &mockExchange{
		info: &ports.SymbolInfo{Symbol: "ETHUSDC", OrderTypes: allSpotOrderTypes()},
		placeErrs: map[domain.OrderType]error{
			domain.OrderTypeStopLossLimit: ports.ErrOrderPlacementFailed,
		},
	}
	c := NewCascade(ex, mockLogger{}, testMetrics())

	id := c.PlaceProtectiveOrder(context.Background(), "ETHUSDC", 0.02, 2490.0, 0)

	assert.NotZero(t, id)
	require.Len(t, ex.placed, 1)
	req := ex.placed[0]
	assert.Equal(t, domain.OrderTypeStopLoss, req.Type)
	assert.InDelta(t, 2490.0, req.StopPrice, 1e-9)
	assert.Zero(t, req.Price)
}

func TestCascade_ZeroQuantityPlacesNothing(t *testing.T) {
	ex := &mockExchange{info: &ports.SymbolInfo{Symbol: "ETHUSDC", OrderTypes: allSpotOrderTypes()}}
	c := NewCascade(ex, mockLogger{}, testMetrics())

	assert.Zero(t, c.PlaceProfitOrder(context.Background(), "ETHUSDC", 0, 2522.5))
	assert.Zero(t, c.PlaceProtectiveOrder(context.Background(), "ETHUSDC", 0, 2490.0, 0))
	assert.Empty(t, ex.placed)
}

func TestCascade_MissingSymbolInfoStillAttempts(t *testing.T) {
	ex := &mockExchange{infoErr: ports.ErrExchangeUnavailable}
	c := NewCascade(ex, mockLogger{}, testMetrics())

	id := c.PlaceProfitOrder(context.Background(), "ETHUSDC", 0.02, 2522.5)

	assert.NotZero(t, id)
	require.Len(t, ex.placed, 1)
	assert.Equal(t, domain.OrderTypeTakeProfitLimit, ex.placed[0].Type)
}
