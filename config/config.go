package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Universe
	QuoteAsset         string   // quote currency all pairs trade against (e.g. "USDC")
	Symbols            []string // candidate trading pairs
	BlacklistedSymbols []string // pairs never traded even if listed

	// Trading Parameters
	ScanInterval      time.Duration // one engine cycle (monitor + scan)
	TakeProfitPercent float64       // e.g. 0.009 for +0.9%
	StopLossPercent   float64       // e.g. 0.004 for -0.4%
	FeeRate           float64       // taker fee per fill, e.g. 0.001

	// Sizing
	PositionSizePercent float64 // fraction of free balance per trade
	MinPositionSize     float64 // quote currency floor
	MaxPositionSize     float64 // quote currency ceiling
	DynamicSizing       bool
	ReductionFactor     float64 // size multiplier per consecutive loss

	// Risk Gate
	MaxOpenPositions  int
	MinBalanceToTrade float64
	MaxDailyTrades    int
	MaxDailyLoss      float64
	MaxTradesPerHour  int
	MaxTradesPerPair  int
	MinSecondsBetween int
	LossStreakLimit   int           // consecutive losses before pausing
	PauseDuration     time.Duration // how long the circuit breaker holds

	// Exit Management
	TrailingStopEnabled bool
	TrailingStopPercent float64 // e.g. 0.003 for 0.3%, converted to bips for the exchange
	TimeoutDuration     time.Duration
	TimeoutBandLow      float64 // stagnant band lower bound in percent, e.g. -0.1
	TimeoutBandHigh     float64 // stagnant band upper bound in percent, e.g. 0.2
	EarlyExitAfter      time.Duration

	// Signal Parameters
	RSIPeriod        int
	RSIEntry         float64 // enter when RSI drops below this
	RSIOversold      float64 // regime lower bound
	RSIOverbought    float64 // regime upper bound
	RSIWeakMomentum  float64 // below this on a losing position triggers early exit
	KlineInterval    string

	// Database
	DBPath string

	// Telegram
	TelegramToken  string
	TelegramChatID string

	// Observability
	MetricsAddr string
	LogLevel    string
	LogJSON     bool
}

// TrailingStopBips converts the trailing stop percentage to basis points
// as the exchange expects (0.3% -> 30).
func (c *Config) TrailingStopBips() int64 {
	return int64(c.TrailingStopPercent * 10000)
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	if cfg.APIKey == "" {
		errs = append(errs, "BINANCE_API_KEY must be set")
	}
	if cfg.SecretKey == "" {
		errs = append(errs, "BINANCE_API_SECRET must be set")
	}

	// Universe
	cfg.QuoteAsset = getEnv("QUOTE_ASSET", "USDC")
	cfg.Symbols = getEnvAsList("SYMBOLS", []string{"ETHUSDC", "BTCUSDC", "SOLUSDC"})
	cfg.BlacklistedSymbols = getEnvAsList("BLACKLISTED_SYMBOLS", nil)
	if len(cfg.Symbols) == 0 {
		errs = append(errs, "SYMBOLS must list at least one trading pair")
	}

	// Trading Parameters
	scanSeconds := getEnvAsInt("SCAN_INTERVAL_SECONDS", 40)
	if scanSeconds <= 0 {
		errs = append(errs, "SCAN_INTERVAL_SECONDS must be positive")
	}
	cfg.ScanInterval = time.Duration(scanSeconds) * time.Second

	cfg.TakeProfitPercent, err = getEnvAsFloatRequired("TAKE_PROFIT_PERCENT", 0.009)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TAKE_PROFIT_PERCENT: %v", err))
	} else if cfg.TakeProfitPercent <= 0 || cfg.TakeProfitPercent >= 1.0 {
		errs = append(errs, "TAKE_PROFIT_PERCENT must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.StopLossPercent, err = getEnvAsFloatRequired("STOP_LOSS_PERCENT", 0.004)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STOP_LOSS_PERCENT: %v", err))
	} else if cfg.StopLossPercent <= 0 || cfg.StopLossPercent >= 1.0 {
		errs = append(errs, "STOP_LOSS_PERCENT must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.FeeRate = getEnvAsFloat("FEE_RATE", 0.001)
	if cfg.FeeRate < 0 || cfg.FeeRate >= 0.1 {
		errs = append(errs, "FEE_RATE must be in [0.0, 0.1)")
	}

	// Sizing
	cfg.PositionSizePercent, err = getEnvAsFloatRequired("POSITION_SIZE_PERCENT", 0.05)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid POSITION_SIZE_PERCENT: %v", err))
	} else if cfg.PositionSizePercent <= 0 || cfg.PositionSizePercent > 1.0 {
		errs = append(errs, "POSITION_SIZE_PERCENT must be in (0.0, 1.0]")
	}
	cfg.MinPositionSize = getEnvAsFloat("MIN_POSITION_SIZE", 50.0)
	cfg.MaxPositionSize = getEnvAsFloat("MAX_POSITION_SIZE", 500.0)
	if cfg.MinPositionSize <= 0 || cfg.MinPositionSize > cfg.MaxPositionSize {
		errs = append(errs, "MIN_POSITION_SIZE must be positive and not above MAX_POSITION_SIZE")
	}
	cfg.DynamicSizing = getEnvAsBool("DYNAMIC_SIZING", true)
	cfg.ReductionFactor = getEnvAsFloat("SIZE_REDUCTION_FACTOR", 0.8)
	if cfg.ReductionFactor <= 0 || cfg.ReductionFactor > 1.0 {
		errs = append(errs, "SIZE_REDUCTION_FACTOR must be in (0.0, 1.0]")
	}

	// Risk Gate
	cfg.MaxOpenPositions = getEnvAsInt("MAX_OPEN_POSITIONS", 2)
	if cfg.MaxOpenPositions <= 0 {
		errs = append(errs, "MAX_OPEN_POSITIONS must be positive")
	}
	cfg.MinBalanceToTrade = getEnvAsFloat("MIN_BALANCE_TO_TRADE", 100.0)
	cfg.MaxDailyTrades = getEnvAsInt("MAX_DAILY_TRADES", 20)
	cfg.MaxDailyLoss = getEnvAsFloat("MAX_DAILY_LOSS", 200.0)
	cfg.MaxTradesPerHour = getEnvAsInt("MAX_TRADES_PER_HOUR", 2)
	cfg.MaxTradesPerPair = getEnvAsInt("MAX_TRADES_PER_PAIR_HOUR", 2)
	cfg.MinSecondsBetween = getEnvAsInt("MIN_SECONDS_BETWEEN_TRADES", 300)
	cfg.LossStreakLimit = getEnvAsInt("LOSS_STREAK_LIMIT", 3)
	pauseMinutes := getEnvAsInt("PAUSE_MINUTES", 60)
	if pauseMinutes <= 0 {
		errs = append(errs, "PAUSE_MINUTES must be positive")
	}
	cfg.PauseDuration = time.Duration(pauseMinutes) * time.Minute

	// Exit Management
	cfg.TrailingStopEnabled = getEnvAsBool("TRAILING_STOP_ENABLED", true)
	cfg.TrailingStopPercent = getEnvAsFloat("TRAILING_STOP_PERCENT", 0.003)
	timeoutMinutes := getEnvAsInt("POSITION_TIMEOUT_MINUTES", 45)
	if timeoutMinutes <= 0 {
		errs = append(errs, "POSITION_TIMEOUT_MINUTES must be positive")
	}
	cfg.TimeoutDuration = time.Duration(timeoutMinutes) * time.Minute
	cfg.TimeoutBandLow = getEnvAsFloat("TIMEOUT_BAND_LOW", -0.1)
	cfg.TimeoutBandHigh = getEnvAsFloat("TIMEOUT_BAND_HIGH", 0.2)
	if cfg.TimeoutBandLow >= cfg.TimeoutBandHigh {
		errs = append(errs, "TIMEOUT_BAND_LOW must be less than TIMEOUT_BAND_HIGH")
	}
	earlyExitMinutes := getEnvAsInt("EARLY_EXIT_MINUTES", 15)
	cfg.EarlyExitAfter = time.Duration(earlyExitMinutes) * time.Minute

	// Signal Parameters
	cfg.RSIPeriod = getEnvAsInt("RSI_PERIOD", 14)
	cfg.RSIEntry = getEnvAsFloat("RSI_ENTRY", 28.0)
	cfg.RSIOversold = getEnvAsFloat("RSI_OVERSOLD", 30.0)
	cfg.RSIOverbought = getEnvAsFloat("RSI_OVERBOUGHT", 70.0)
	cfg.RSIWeakMomentum = getEnvAsFloat("RSI_WEAK_MOMENTUM", 25.0)
	cfg.KlineInterval = getEnv("KLINE_INTERVAL", "1m")
	if cfg.RSIPeriod <= 0 {
		errs = append(errs, "RSI_PERIOD must be positive")
	}
	if cfg.RSIOverbought <= cfg.RSIOversold || cfg.RSIOverbought > 100 || cfg.RSIOversold < 0 {
		errs = append(errs, "invalid RSI thresholds (Overbought must be > Oversold, between 0-100)")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/trading_bot.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Telegram (optional; notifications disabled when unset)
	cfg.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	cfg.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", "")

	// Observability
	cfg.MetricsAddr = getEnv("METRICS_ADDR", ":9090")
	cfg.LogLevel = getEnv("LOG_LEVEL", "INFO")
	cfg.LogJSON = getEnvAsBool("LOG_JSON", false)

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
