package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "test-key")
	t.Setenv("BINANCE_API_SECRET", "test-secret")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsTestnet)
	assert.Equal(t, "USDC", cfg.QuoteAsset)
	assert.Equal(t, []string{"ETHUSDC", "BTCUSDC", "SOLUSDC"}, cfg.Symbols)
	assert.Equal(t, 40*time.Second, cfg.ScanInterval)
	assert.InDelta(t, 0.009, cfg.TakeProfitPercent, 1e-9)
	assert.InDelta(t, 0.004, cfg.StopLossPercent, 1e-9)
	assert.InDelta(t, 0.05, cfg.PositionSizePercent, 1e-9)
	assert.InDelta(t, 50.0, cfg.MinPositionSize, 1e-9)
	assert.InDelta(t, 500.0, cfg.MaxPositionSize, 1e-9)
	assert.Equal(t, 2, cfg.MaxOpenPositions)
	assert.Equal(t, 3, cfg.LossStreakLimit)
	assert.Equal(t, time.Hour, cfg.PauseDuration)
	assert.Equal(t, 45*time.Minute, cfg.TimeoutDuration)
	assert.Equal(t, 15*time.Minute, cfg.EarlyExitAfter)
	assert.Equal(t, 14, cfg.RSIPeriod)
	assert.InDelta(t, 28.0, cfg.RSIEntry, 1e-9)
	assert.True(t, cfg.TrailingStopEnabled)
}

func TestLoadConfig_MissingKeys(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "")
	t.Setenv("BINANCE_API_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BINANCE_API_KEY")
	assert.Contains(t, err.Error(), "BINANCE_API_SECRET")
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SYMBOLS", "ETHUSDC, SOLUSDC")
	t.Setenv("SCAN_INTERVAL_SECONDS", "60")
	t.Setenv("TAKE_PROFIT_PERCENT", "0.012")
	t.Setenv("DYNAMIC_SIZING", "false")
	t.Setenv("BLACKLISTED_SYMBOLS", "SOLUSDC")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"ETHUSDC", "SOLUSDC"}, cfg.Symbols)
	assert.Equal(t, []string{"SOLUSDC"}, cfg.BlacklistedSymbols)
	assert.Equal(t, time.Minute, cfg.ScanInterval)
	assert.InDelta(t, 0.012, cfg.TakeProfitPercent, 1e-9)
	assert.False(t, cfg.DynamicSizing)
}

func TestLoadConfig_InvalidValuesCollected(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TAKE_PROFIT_PERCENT", "1.5")
	t.Setenv("SCAN_INTERVAL_SECONDS", "-1")
	t.Setenv("TIMEOUT_BAND_LOW", "0.5")
	t.Setenv("TIMEOUT_BAND_HIGH", "0.1")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TAKE_PROFIT_PERCENT")
	assert.Contains(t, err.Error(), "SCAN_INTERVAL_SECONDS")
	assert.Contains(t, err.Error(), "TIMEOUT_BAND_LOW")
}

func TestTrailingStopBips(t *testing.T) {
	cfg := &Config{TrailingStopPercent: 0.003}
	assert.Equal(t, int64(30), cfg.TrailingStopBips())

	cfg.TrailingStopPercent = 0.01
	assert.Equal(t, int64(100), cfg.TrailingStopBips())
}
