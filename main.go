package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rsiScalpBot/config"
	"rsiScalpBot/internal/adapters/binanceclient"
	"rsiScalpBot/internal/adapters/logger"
	"rsiScalpBot/internal/adapters/signal"
	"rsiScalpBot/internal/adapters/sqlite"
	"rsiScalpBot/internal/adapters/telegram"
	"rsiScalpBot/internal/engine"
	"rsiScalpBot/internal/metrics"
	"rsiScalpBot/internal/ports"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	level := logger.ParseLevel(cfg.LogLevel)
	appLogger := ports.Logger(logger.NewZeroLogger(level, cfg.LogJSON))
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel, "json": cfg.LogJSON})

	// 3. Initialize Trade Recorder (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize trade recorder")
		log.Fatalf("FATAL: Failed to initialize trade recorder: %v", err) // Also log to stderr
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing trade recorder")
		}
	}()
	appLogger.Info(context.Background(), "Trade recorder initialized", map[string]interface{}{"path": cfg.DBPath})

	// 4. Initialize Exchange Client (Binance Spot Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(context.Background(), "Binance client initialized", map[string]interface{}{"testnet": cfg.IsTestnet})

	// 5. Initialize Signal Source
	signals, err := signal.New(cfg, binanceClient, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize signal source")
		log.Fatalf("FATAL: Failed to initialize signal source: %v", err)
	}
	appLogger.Info(context.Background(), "Signal source initialized", map[string]interface{}{"symbols": cfg.Symbols})

	// 6. Initialize Notifier (no-op when Telegram is not configured)
	var notifier ports.Notifier = telegram.NoopNotifier{}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		tg, err := telegram.New(telegram.Config{
			Token:  cfg.TelegramToken,
			ChatID: cfg.TelegramChatID,
			Logger: appLogger,
		})
		if err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Telegram notifier")
			log.Fatalf("FATAL: Failed to initialize Telegram notifier: %v", err)
		}
		notifier = tg
		appLogger.Info(context.Background(), "Telegram notifier initialized")
	}

	// 7. Initialize Metrics and serve them
	m := metrics.New()
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				appLogger.Error(context.Background(), err, "Metrics server exited", map[string]interface{}{"addr": cfg.MetricsAddr})
			}
		}()
		appLogger.Info(context.Background(), "Metrics server started", map[string]interface{}{"addr": cfg.MetricsAddr})
	}

	// 8. Initialize and run the Engine
	eng, err := engine.New(cfg, appLogger, binanceClient, repo, notifier, signals, m)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize trading engine")
		log.Fatalf("FATAL: Failed to initialize trading engine: %v", err)
	}
	appLogger.Info(context.Background(), "Trading engine initialized")

	if err := notifier.NotifyLifecycle(context.Background(), "Bot started"); err != nil {
		appLogger.Warn(context.Background(), "Failed to send startup notification", map[string]interface{}{"error": err.Error()})
	}

	if err := eng.Run(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Trading engine exited with error")
		log.Fatalf("FATAL: Trading engine exited with error: %v", err)
	}

	if err := notifier.NotifyLifecycle(context.Background(), "Bot stopped"); err != nil {
		appLogger.Warn(context.Background(), "Failed to send shutdown notification", map[string]interface{}{"error": err.Error()})
	}
	appLogger.Info(context.Background(), "Application finished gracefully.")
}
