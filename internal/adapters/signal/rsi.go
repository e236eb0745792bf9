// Package signal implements ports.SignalSource with an RSI scan over the
// configured symbol universe.
package signal

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"rsiScalpBot/config"
	"rsiScalpBot/internal/domain"
	"rsiScalpBot/internal/ports"
)

// Source scans the symbol universe for oversold entries and answers
// momentum queries for open positions.
type Source struct {
	cfg      *config.Config
	exchange ports.ExchangeClient
	logger   ports.Logger

	symbols []string // universe with the blacklist already applied
}

// New creates the RSI signal source. Blacklisted symbols are dropped from
// the universe at construction.
func New(cfg *config.Config, exchange ports.ExchangeClient, logger ports.Logger) (*Source, error) {
	if cfg == nil || exchange == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for signal source")
	}
	blocked := make(map[string]bool, len(cfg.BlacklistedSymbols))
	for _, s := range cfg.BlacklistedSymbols {
		blocked[s] = true
	}
	symbols := make([]string, 0, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		if blocked[s] {
			logger.Info(context.Background(), "symbol blacklisted, excluded from universe", map[string]interface{}{"symbol": s})
			continue
		}
		symbols = append(symbols, s)
	}
	return &Source{cfg: cfg, exchange: exchange, logger: logger, symbols: symbols}, nil
}

// Scan fetches klines for every symbol concurrently and returns the ones
// whose entry conditions hold, ordered by ascending RSI so the most
// oversold candidates come first.
func (s *Source) Scan(ctx context.Context) ([]ports.Signal, error) {
	type result struct {
		signal ports.Signal
		ok     bool
	}
	results := make([]result, len(s.symbols))

	var wg sync.WaitGroup
	for i, symbol := range s.symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			sig, ok, err := s.evaluate(ctx, symbol)
			if err != nil {
				s.logger.Warn(ctx, "symbol evaluation failed, skipping this cycle", map[string]interface{}{
					"symbol": symbol, "error": err.Error(),
				})
				return
			}
			results[i] = result{signal: sig, ok: ok}
		}(i, symbol)
	}
	wg.Wait()

	signals := make([]ports.Signal, 0)
	for _, r := range results {
		if r.ok {
			signals = append(signals, r.signal)
		}
	}
	sort.Slice(signals, func(i, j int) bool {
		return signals[i].Snapshot.RSIValue < signals[j].Snapshot.RSIValue
	})
	return signals, nil
}

// evaluate computes the RSI for one symbol and decides whether the entry
// conditions hold.
func (s *Source) evaluate(ctx context.Context, symbol string) (ports.Signal, bool, error) {
	klines, err := s.exchange.GetKlines(ctx, symbol, s.cfg.KlineInterval, s.requiredKlines())
	if err != nil {
		return ports.Signal{}, false, err
	}
	rsi, err := CalculateRSI(klines, s.cfg.RSIPeriod)
	if err != nil {
		return ports.Signal{}, false, err
	}
	price := klines[len(klines)-1].Close

	if rsi >= s.cfg.RSIEntry {
		return ports.Signal{}, false, nil
	}
	conditions := []string{fmt.Sprintf("rsi_below_%.0f", s.cfg.RSIEntry)}
	breakout := detectBreakout(klines)
	if breakout {
		conditions = append(conditions, "volume_breakout")
	}

	sig := ports.Signal{
		Symbol: symbol,
		Price:  price,
		Snapshot: domain.SignalSnapshot{
			RSIValue:         rsi,
			Regime:           domain.RegimeForRSI(rsi, s.cfg.RSIOversold, s.cfg.RSIOverbought),
			Conditions:       conditions,
			BreakoutDetected: breakout,
		},
	}
	s.logger.Debug(ctx, "entry signal", map[string]interface{}{
		"symbol": symbol, "rsi": rsi, "price": price, "conditions": conditions,
	})
	return sig, true, nil
}

// WeakMomentum reports whether the symbol's RSI has dropped below the
// weak-momentum threshold.
func (s *Source) WeakMomentum(ctx context.Context, symbol string) (bool, error) {
	klines, err := s.exchange.GetKlines(ctx, symbol, s.cfg.KlineInterval, s.requiredKlines())
	if err != nil {
		return false, err
	}
	rsi, err := CalculateRSI(klines, s.cfg.RSIPeriod)
	if err != nil {
		return false, err
	}
	return rsi < s.cfg.RSIWeakMomentum, nil
}

// requiredKlines returns enough history for a stable smoothed RSI.
func (s *Source) requiredKlines() int {
	return s.cfg.RSIPeriod*3 + 1
}

// detectBreakout flags a closing candle whose volume exceeds twice the
// average of the preceding twenty, a rough confirmation that the oversold
// reading comes with real participation.
func detectBreakout(klines []*domain.Kline) bool {
	const lookback = 20
	if len(klines) < lookback+1 {
		return false
	}
	recent := klines[len(klines)-1]
	var avgVolume float64
	for _, k := range klines[len(klines)-1-lookback : len(klines)-1] {
		avgVolume += k.Volume
	}
	avgVolume /= lookback
	return avgVolume > 0 && recent.Volume > avgVolume*2
}

// CalculateRSI computes the RSI over the closes using Wilder's smoothing.
func CalculateRSI(klines []*domain.Kline, period int) (float64, error) {
	if len(klines) <= period {
		return 0, fmt.Errorf("not enough data (%d) to calculate RSI for period %d", len(klines), period)
	}

	changes := make([]float64, 0, len(klines)-1)
	for i := 1; i < len(klines); i++ {
		changes = append(changes, klines[i].Close-klines[i-1].Close)
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		if changes[i] > 0 {
			avgGain += changes[i]
		} else {
			avgLoss -= changes[i]
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period; i < len(changes); i++ {
		if changes[i] > 0 {
			avgGain = (avgGain*float64(period-1) + changes[i]) / float64(period)
			avgLoss = (avgLoss * float64(period-1)) / float64(period)
		} else {
			avgGain = (avgGain * float64(period-1)) / float64(period)
			avgLoss = (avgLoss*float64(period-1) - changes[i]) / float64(period)
		}
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, nil
		}
		return 100, nil
	}

	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))
	if rsi > 100 {
		rsi = 100
	} else if rsi < 0 {
		rsi = 0
	}
	return rsi, nil
}
