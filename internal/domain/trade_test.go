package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTrade(t *testing.T) {
	openTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	signal := SignalSnapshot{RSIValue: 24.5, Regime: RegimeOversold, Conditions: []string{"rsi_below_28"}}

	trade := NewTrade("ETHUSDC", 2500.0, 0.02, 50.0, 2490.0, 2522.5, openTime, signal)

	assert.Equal(t, "ETHUSDC-1748779200", trade.ID)
	assert.Equal(t, Buy, trade.Side)
	assert.Equal(t, StatusPending, trade.Status)
	assert.False(t, trade.IsOpen())
	assert.Equal(t, signal, trade.Signal)
	assert.Zero(t, trade.EntryOrderID)
}

func TestTrade_UnrealizedPnL(t *testing.T) {
	trade := &Trade{EntryPrice: 100.0, Quantity: 2.0}

	assert.InDelta(t, 4.0, trade.UnrealizedPnL(102.0), 1e-9)
	assert.InDelta(t, -4.0, trade.UnrealizedPnL(98.0), 1e-9)
	assert.InDelta(t, 2.0, trade.UnrealizedPnLPercent(102.0), 1e-9)
	assert.InDelta(t, -2.0, trade.UnrealizedPnLPercent(98.0), 1e-9)
}

func TestTrade_UnrealizedPnLPercent_ZeroEntry(t *testing.T) {
	trade := &Trade{EntryPrice: 0, Quantity: 1}
	assert.Zero(t, trade.UnrealizedPnLPercent(100.0))
}

func TestTrade_Close(t *testing.T) {
	openTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	exitTime := openTime.Add(10 * time.Minute)
	trade := NewTrade("ETHUSDC", 100.0, 1.0, 100.0, 99.6, 100.9, openTime, SignalSnapshot{})
	trade.Status = StatusOpen

	trade.Close(100.9, exitTime, ExitReasonProfitTarget, 0.001)

	assert.Equal(t, StatusClosed, trade.Status)
	assert.Equal(t, ExitReasonProfitTarget, trade.ExitReason)
	assert.Equal(t, 10*time.Minute, trade.Duration)
	// Round trip fees: 100 * 2 * 0.001 = 0.2
	assert.InDelta(t, 0.2, trade.Fees, 1e-9)
	// Gross 0.9 minus 0.2 fees.
	assert.InDelta(t, 0.7, trade.PnLAmount, 1e-9)
	assert.InDelta(t, 0.7, trade.PnLPercent, 1e-9)
}

func TestTrade_Close_Loss(t *testing.T) {
	openTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	trade := NewTrade("ETHUSDC", 100.0, 1.0, 100.0, 99.6, 100.9, openTime, SignalSnapshot{})

	trade.Close(99.6, openTime.Add(time.Minute), ExitReasonProtectiveStop, 0.001)

	assert.InDelta(t, -0.6, trade.PnLAmount, 1e-9)
	assert.InDelta(t, -0.6, trade.PnLPercent, 1e-9)
}

func TestRegimeForRSI(t *testing.T) {
	tests := []struct {
		name string
		rsi  float64
		want Regime
	}{
		{"deeply oversold", 22.0, RegimeOversold},
		{"just below lower bound", 29.9, RegimeOversold},
		{"lower bound is neutral", 30.0, RegimeNeutral},
		{"mid range", 50.0, RegimeNeutral},
		{"upper bound is neutral", 70.0, RegimeNeutral},
		{"overbought", 70.1, RegimeOverbought},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RegimeForRSI(tt.rsi, 30.0, 70.0))
		})
	}
}
