package engine

import (
	"time"

	"rsiScalpBot/internal/risk"
)

// entryStamp records one trade entry for the rolling hourly window.
type entryStamp struct {
	at     time.Time
	symbol string
}

// session holds the mutable per-day trading state. It is owned by the
// engine and only touched under the engine's mutex.
type session struct {
	dailyPnL          float64
	dailyTrades       int
	consecutiveLosses int
	pausedUntil       time.Time
	lastTradeTime     time.Time
	entries           []entryStamp // entries within the trailing hour
}

// recordEntry notes a new trade entry in the daily and hourly counters.
func (s *session) recordEntry(now time.Time, symbol string) {
	s.dailyTrades++
	s.lastTradeTime = now
	s.entries = append(s.entries, entryStamp{at: now, symbol: symbol})
	s.prune(now)
}

// recordClose folds a realized PnL into the session. It returns true when
// the consecutive-loss streak reaches streakLimit; the caller is expected
// to pause trading.
func (s *session) recordClose(pnl float64, streakLimit int) bool {
	s.dailyPnL += pnl
	if pnl < 0 {
		s.consecutiveLosses++
		return streakLimit > 0 && s.consecutiveLosses >= streakLimit
	}
	s.consecutiveLosses = 0
	return false
}

// pause blocks new entries until now+d and resets the loss streak so the
// next pause requires a fresh run of losses.
func (s *session) pause(now time.Time, d time.Duration) {
	s.pausedUntil = now.Add(d)
	s.consecutiveLosses = 0
}

// rollover resets the daily counters. The loss streak and pause survive
// the date change; only calendar-day accumulators reset.
func (s *session) rollover() {
	s.dailyPnL = 0
	s.dailyTrades = 0
	s.entries = nil
}

// prune drops hourly-window entries older than one hour.
func (s *session) prune(now time.Time) {
	cutoff := now.Add(-time.Hour)
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.at.After(cutoff) {
			kept = append(kept, e)
		}
	}
	s.entries = kept
}

// snapshot builds the immutable view the risk gate evaluates.
func (s *session) snapshot(now time.Time, symbol string, openPositions int, symbolOpen bool, freeBalance float64) risk.Snapshot {
	s.prune(now)
	symbolCount := 0
	for _, e := range s.entries {
		if e.symbol == symbol {
			symbolCount++
		}
	}
	return risk.Snapshot{
		Now:               now,
		PausedUntil:       s.pausedUntil,
		OpenPositions:     openPositions,
		SymbolOpen:        symbolOpen,
		FreeBalance:       freeBalance,
		TradesLastHour:    len(s.entries),
		SymbolTradesHour:  symbolCount,
		LastTradeTime:     s.lastTradeTime,
		DailyTrades:       s.dailyTrades,
		DailyPnL:          s.dailyPnL,
		ConsecutiveLosses: s.consecutiveLosses,
	}
}
