package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testGate() *Gate {
	return NewGate(
		GateConfig{
			MaxOpenPositions:  2,
			MinBalanceToTrade: 100.0,
			MaxTradesPerHour:  2,
			MaxTradesPerPair:  2,
			MinSecondsBetween: 300,
			MaxDailyTrades:    20,
			MaxDailyLoss:      200.0,
		},
		SizingConfig{
			PositionSizePercent: 0.05,
			MinPositionSize:     50.0,
			MaxPositionSize:     500.0,
			DynamicSizing:       true,
			ReductionFactor:     0.8,
		},
	)
}

// healthySnapshot passes every check.
func healthySnapshot(now time.Time) Snapshot {
	return Snapshot{
		Now:         now,
		FreeBalance: 1000.0,
	}
}

func TestGate_Evaluate_Allowed(t *testing.T) {
	g := testGate()
	d := g.Evaluate("ETHUSDC", healthySnapshot(time.Now()))
	assert.True(t, d.Allowed)
	assert.Empty(t, d.Check)
	assert.Equal(t, "OK", d.Reason)
}

func TestGate_Evaluate_Denials(t *testing.T) {
	g := testGate()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		mutate    func(s *Snapshot)
		wantCheck string
	}{
		{
			name:      "paused after loss streak",
			mutate:    func(s *Snapshot) { s.PausedUntil = now.Add(30 * time.Minute) },
			wantCheck: CheckPaused,
		},
		{
			name:      "max open positions",
			mutate:    func(s *Snapshot) { s.OpenPositions = 2 },
			wantCheck: CheckMaxPositions,
		},
		{
			name:      "symbol already open",
			mutate:    func(s *Snapshot) { s.SymbolOpen = true },
			wantCheck: CheckSymbolOpen,
		},
		{
			name:      "balance below minimum",
			mutate:    func(s *Snapshot) { s.FreeBalance = 99.99 },
			wantCheck: CheckBalance,
		},
		{
			name:      "hourly global limit",
			mutate:    func(s *Snapshot) { s.TradesLastHour = 2 },
			wantCheck: CheckHourlyGlobal,
		},
		{
			name:      "hourly symbol limit",
			mutate:    func(s *Snapshot) { s.SymbolTradesHour = 2 },
			wantCheck: CheckHourlySymbol,
		},
		{
			name:      "too soon after last entry",
			mutate:    func(s *Snapshot) { s.LastTradeTime = now.Add(-299 * time.Second) },
			wantCheck: CheckMinInterval,
		},
		{
			name:      "daily trade limit",
			mutate:    func(s *Snapshot) { s.DailyTrades = 20 },
			wantCheck: CheckDailyTrades,
		},
		{
			name:      "daily loss limit",
			mutate:    func(s *Snapshot) { s.DailyPnL = -200.0 },
			wantCheck: CheckDailyLoss,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := healthySnapshot(now)
			tt.mutate(&s)
			d := g.Evaluate("ETHUSDC", s)
			assert.False(t, d.Allowed)
			assert.Equal(t, tt.wantCheck, d.Check)
			assert.NotEmpty(t, d.Reason)
		})
	}
}

// The paused check fires before anything else, so a snapshot failing
// several checks still reports the pause.
func TestGate_Evaluate_PausedWinsOverLaterChecks(t *testing.T) {
	g := testGate()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := healthySnapshot(now)
	s.PausedUntil = now.Add(time.Hour)
	s.OpenPositions = 2
	s.FreeBalance = 0

	d := g.Evaluate("ETHUSDC", s)
	assert.Equal(t, CheckPaused, d.Check)
}

func TestGate_Evaluate_ExactIntervalAllowed(t *testing.T) {
	g := testGate()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := healthySnapshot(now)
	s.LastTradeTime = now.Add(-300 * time.Second)

	d := g.Evaluate("ETHUSDC", s)
	assert.True(t, d.Allowed)
}

func TestGate_CanOpen(t *testing.T) {
	g := testGate()
	ok, reason := g.CanOpen("ETHUSDC", healthySnapshot(time.Now()))
	assert.True(t, ok)
	assert.Equal(t, "OK", reason)

	s := healthySnapshot(time.Now())
	s.SymbolOpen = true
	ok, reason = g.CanOpen("ETHUSDC", s)
	assert.False(t, ok)
	assert.Contains(t, reason, "ETHUSDC")
}

func TestGate_PositionSize(t *testing.T) {
	g := testGate()

	tests := []struct {
		name    string
		balance float64
		losses  int
		want    float64
	}{
		{"base size", 2000.0, 0, 100.0},
		{"one loss shrinks by factor", 2000.0, 1, 80.0},
		{"two losses shrink geometrically", 2000.0, 2, 64.0},
		{"shrunk size clamps to floor", 2000.0, 5, 50.0},
		{"small balance clamps to floor", 400.0, 0, 50.0},
		{"large balance clamps to ceiling", 20000.0, 0, 500.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, g.PositionSize(tt.balance, tt.losses), 1e-9)
		})
	}
}

func TestGate_PositionSize_StaticSizingIgnoresLosses(t *testing.T) {
	g := NewGate(GateConfig{}, SizingConfig{
		PositionSizePercent: 0.05,
		MinPositionSize:     50.0,
		MaxPositionSize:     500.0,
		DynamicSizing:       false,
		ReductionFactor:     0.8,
	})
	assert.InDelta(t, 100.0, g.PositionSize(2000.0, 4), 1e-9)
}
