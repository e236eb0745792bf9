package signal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rsiScalpBot/config"
	"rsiScalpBot/internal/domain"
	"rsiScalpBot/internal/ports"
)

type mockLogger struct{}

func (mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type mockExchange struct {
	klines    map[string][]*domain.Kline
	klinesErr error
}

func (m *mockExchange) SetServerTime(ctx context.Context) error { return nil }
func (m *mockExchange) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	return 0, nil
}
func (m *mockExchange) GetAccountBalance(ctx context.Context, asset string) (*ports.Balance, error) {
	return &ports.Balance{}, nil
}
func (m *mockExchange) GetSymbolInfo(ctx context.Context, symbol string) (*ports.SymbolInfo, error) {
	return nil, nil
}
func (m *mockExchange) PlaceOrder(ctx context.Context, req ports.OrderRequest) (*ports.OrderResponse, error) {
	return nil, nil
}
func (m *mockExchange) CancelOrder(ctx context.Context, symbol string, orderID int64) (*ports.OrderResponse, error) {
	return nil, nil
}
func (m *mockExchange) GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Kline, error) {
	if m.klinesErr != nil {
		return nil, m.klinesErr
	}
	return m.klines[symbol], nil
}
func (m *mockExchange) Ping(ctx context.Context) error { return nil }
func (m *mockExchange) GetServerTime(ctx context.Context) (time.Time, error) {
	return time.Time{}, nil
}

func testCfg() *config.Config {
	return &config.Config{
		Symbols:         []string{"ETHUSDC", "BTCUSDC"},
		RSIPeriod:       14,
		RSIEntry:        28.0,
		RSIOversold:     30.0,
		RSIOverbought:   70.0,
		RSIWeakMomentum: 25.0,
		KlineInterval:   "5m",
	}
}

// klinesFromCloses builds minimal candles from a close series.
func klinesFromCloses(symbol string, closes []float64) []*domain.Kline {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*domain.Kline, len(closes))
	for i, c := range closes {
		out[i] = &domain.Kline{
			OpenTime:  base.Add(time.Duration(i) * 5 * time.Minute),
			CloseTime: base.Add(time.Duration(i+1) * 5 * time.Minute),
			Symbol:    symbol,
			Interval:  "5m",
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    100.0,
		}
	}
	return out
}

// series of the given length drifting in one direction.
func driftingCloses(n int, start, step float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)*step
	}
	return closes
}

func TestNew_AppliesBlacklist(t *testing.T) {
	cfg := testCfg()
	cfg.BlacklistedSymbols = []string{"BTCUSDC"}

	src, err := New(cfg, &mockExchange{}, mockLogger{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ETHUSDC"}, src.symbols)
}

func TestNew_MissingDependencies(t *testing.T) {
	_, err := New(nil, &mockExchange{}, mockLogger{})
	assert.Error(t, err)
	_, err = New(testCfg(), nil, mockLogger{})
	assert.Error(t, err)
}

func TestCalculateRSI(t *testing.T) {
	t.Run("steady decline approaches zero", func(t *testing.T) {
		klines := klinesFromCloses("ETHUSDC", driftingCloses(43, 2600.0, -2.0))
		rsi, err := CalculateRSI(klines, 14)
		require.NoError(t, err)
		assert.Less(t, rsi, 1.0)
	})

	t.Run("steady climb saturates", func(t *testing.T) {
		klines := klinesFromCloses("ETHUSDC", driftingCloses(43, 2500.0, 2.0))
		rsi, err := CalculateRSI(klines, 14)
		require.NoError(t, err)
		assert.InDelta(t, 100.0, rsi, 1e-9)
	})

	t.Run("flat series is neutral", func(t *testing.T) {
		klines := klinesFromCloses("ETHUSDC", driftingCloses(43, 2500.0, 0))
		rsi, err := CalculateRSI(klines, 14)
		require.NoError(t, err)
		assert.InDelta(t, 50.0, rsi, 1e-9)
	})

	t.Run("not enough data", func(t *testing.T) {
		klines := klinesFromCloses("ETHUSDC", driftingCloses(14, 2500.0, 1.0))
		_, err := CalculateRSI(klines, 14)
		assert.Error(t, err)
	})
}

func TestScan_ReturnsOversoldSignals(t *testing.T) {
	cfg := testCfg()
	ex := &mockExchange{klines: map[string][]*domain.Kline{
		"ETHUSDC": klinesFromCloses("ETHUSDC", driftingCloses(43, 2600.0, -2.0)),
		"BTCUSDC": klinesFromCloses("BTCUSDC", driftingCloses(43, 42000.0, 5.0)),
	}}
	src, err := New(cfg, ex, mockLogger{})
	require.NoError(t, err)

	signals, err := src.Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, signals, 1)
	sig := signals[0]
	assert.Equal(t, "ETHUSDC", sig.Symbol)
	assert.Less(t, sig.Snapshot.RSIValue, cfg.RSIEntry)
	assert.Equal(t, domain.RegimeOversold, sig.Snapshot.Regime)
	assert.Contains(t, sig.Snapshot.Conditions, "rsi_below_28")
	// Last close of the declining series.
	assert.InDelta(t, 2600.0-42*2.0, sig.Price, 1e-9)
}

func TestScan_OrdersByAscendingRSI(t *testing.T) {
	cfg := testCfg()
	ex := &mockExchange{klines: map[string][]*domain.Kline{
		"ETHUSDC": klinesFromCloses("ETHUSDC", driftingCloses(43, 2600.0, -0.5)),
		"BTCUSDC": klinesFromCloses("BTCUSDC", driftingCloses(43, 42000.0, -50.0)),
	}}
	src, err := New(cfg, ex, mockLogger{})
	require.NoError(t, err)

	signals, err := src.Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, signals, 2)
	assert.LessOrEqual(t, signals[0].Snapshot.RSIValue, signals[1].Snapshot.RSIValue)
}

func TestScan_SymbolErrorSkipsSymbol(t *testing.T) {
	cfg := testCfg()
	ex := &mockExchange{klinesErr: ports.ErrExchangeUnavailable}
	src, err := New(cfg, ex, mockLogger{})
	require.NoError(t, err)

	signals, err := src.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestScan_DetectsVolumeBreakout(t *testing.T) {
	cfg := testCfg()
	klines := klinesFromCloses("ETHUSDC", driftingCloses(43, 2600.0, -2.0))
	klines[len(klines)-1].Volume = 300.0 // more than twice the 100.0 average

	ex := &mockExchange{klines: map[string][]*domain.Kline{"ETHUSDC": klines, "BTCUSDC": nil}}
	cfg.Symbols = []string{"ETHUSDC"}
	src, err := New(cfg, ex, mockLogger{})
	require.NoError(t, err)

	signals, err := src.Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, signals, 1)
	assert.True(t, signals[0].Snapshot.BreakoutDetected)
	assert.Contains(t, signals[0].Snapshot.Conditions, "volume_breakout")
}

func TestWeakMomentum(t *testing.T) {
	cfg := testCfg()
	ex := &mockExchange{klines: map[string][]*domain.Kline{
		"ETHUSDC": klinesFromCloses("ETHUSDC", driftingCloses(43, 2600.0, -2.0)),
	}}
	src, err := New(cfg, ex, mockLogger{})
	require.NoError(t, err)

	weak, err := src.WeakMomentum(context.Background(), "ETHUSDC")
	require.NoError(t, err)
	assert.True(t, weak)

	ex.klines["ETHUSDC"] = klinesFromCloses("ETHUSDC", driftingCloses(43, 2500.0, 2.0))
	weak, err = src.WeakMomentum(context.Background(), "ETHUSDC")
	require.NoError(t, err)
	assert.False(t, weak)
}
