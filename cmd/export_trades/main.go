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
	"rsiScalpBot/internal/adapters/logger"
	"rsiScalpBot/internal/adapters/sqlite"
	"rsiScalpBot/internal/utils"
)

// export_trades dumps the most recent closed trades from the journal
// database to a CSV file for offline review.
func main() {
	limit := flag.Int("limit", 200, "maximum number of closed trades to export")
	outDir := flag.String("out", "data", "output directory for the CSV file")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.NewStdLogger(logger.ParseLevel(cfg.LogLevel))

	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to open trade journal: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	trades, err := repo.RecentTrades(ctx, *limit)
	if err != nil {
		log.Fatalf("Error reading trades: %v", err)
	}
	appLogger.Info(ctx, "Loaded closed trades", map[string]interface{}{"count": len(trades)})

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Error creating output directory: %v", err)
	}
	filename := filepath.Join(*outDir, fmt.Sprintf("trades_%s.csv", time.Now().Format("20060102_150405")))
	if err := utils.WriteTradesToCSV(trades, filename); err != nil {
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(ctx, "Saved trades", map[string]interface{}{"filename": filename})
}
