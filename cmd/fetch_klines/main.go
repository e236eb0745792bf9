package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"rsiScalpBot/config"
	"rsiScalpBot/internal/adapters/binanceclient"
	"rsiScalpBot/internal/adapters/logger"
	"rsiScalpBot/internal/utils"
)

// fetch_klines downloads recent candle history for a symbol and writes it
// to a CSV file, handy for tuning RSI parameters offline.
func main() {
	symbol := flag.String("symbol", "ETHUSDC", "trading symbol to fetch")
	interval := flag.String("interval", "5m", "kline interval")
	limit := flag.Int("limit", 500, "number of klines to fetch (max 1000)")
	outDir := flag.String("out", "data", "output directory for the CSV file")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.NewStdLogger(logger.ParseLevel(cfg.LogLevel))

	client, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	ctx := context.Background()
	klines, err := client.GetKlines(ctx, *symbol, *interval, *limit)
	if err != nil {
		log.Fatalf("Error fetching klines: %v", err)
	}
	appLogger.Info(ctx, "Fetched klines", map[string]interface{}{"symbol": *symbol, "interval": *interval, "count": len(klines)})

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Error creating output directory: %v", err)
	}
	filename := filepath.Join(*outDir, fmt.Sprintf("%s_%s_%s.csv", *symbol, *interval, time.Now().Format("20060102_150405")))
	if err := utils.WriteKlinesToCSV(klines, filename); err != nil {
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(ctx, "Saved klines", map[string]interface{}{"filename": filename})
}
