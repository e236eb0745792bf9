package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_RecordCloseStreak(t *testing.T) {
	s := &session{}

	assert.False(t, s.recordClose(-1.0, 3))
	assert.False(t, s.recordClose(-1.0, 3))
	assert.Equal(t, 2, s.consecutiveLosses)

	// A win resets the streak.
	assert.False(t, s.recordClose(2.0, 3))
	assert.Zero(t, s.consecutiveLosses)

	assert.False(t, s.recordClose(-1.0, 3))
	assert.False(t, s.recordClose(-1.0, 3))
	assert.True(t, s.recordClose(-1.0, 3))
	assert.InDelta(t, -3.0, s.dailyPnL, 1e-9)
}

func TestSession_RecordCloseStreakDisabled(t *testing.T) {
	s := &session{}
	for i := 0; i < 10; i++ {
		assert.False(t, s.recordClose(-1.0, 0))
	}
}

func TestSession_Pause(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := &session{consecutiveLosses: 3}

	s.pause(now, time.Hour)

	assert.Equal(t, now.Add(time.Hour), s.pausedUntil)
	assert.Zero(t, s.consecutiveLosses)
}

func TestSession_Rollover(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := &session{}
	s.recordEntry(now, "ETHUSDC")
	s.recordClose(-5.0, 3)
	s.pause(now, time.Hour)

	s.rollover()

	assert.Zero(t, s.dailyPnL)
	assert.Zero(t, s.dailyTrades)
	assert.Empty(t, s.entries)
	// The circuit breaker is not released by the date change.
	assert.Equal(t, now.Add(time.Hour), s.pausedUntil)
}

func TestSession_PruneHourlyWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := &session{}
	s.recordEntry(now.Add(-90*time.Minute), "ETHUSDC")
	s.recordEntry(now.Add(-30*time.Minute), "ETHUSDC")
	s.recordEntry(now.Add(-10*time.Minute), "BTCUSDC")

	snap := s.snapshot(now, "ETHUSDC", 0, false, 1000.0)

	assert.Equal(t, 2, snap.TradesLastHour)
	assert.Equal(t, 1, snap.SymbolTradesHour)
	assert.Equal(t, 3, snap.DailyTrades)
}

func TestSession_Snapshot(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := &session{}
	s.recordEntry(now.Add(-5*time.Minute), "ETHUSDC")
	s.recordClose(-2.5, 3)

	snap := s.snapshot(now, "ETHUSDC", 1, true, 750.0)

	assert.Equal(t, now, snap.Now)
	assert.Equal(t, 1, snap.OpenPositions)
	assert.True(t, snap.SymbolOpen)
	assert.InDelta(t, 750.0, snap.FreeBalance, 1e-9)
	assert.Equal(t, now.Add(-5*time.Minute), snap.LastTradeTime)
	assert.InDelta(t, -2.5, snap.DailyPnL, 1e-9)
	assert.Equal(t, 1, snap.ConsecutiveLosses)
}
