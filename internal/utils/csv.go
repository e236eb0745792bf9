package utils

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"
	"time"

	"rsiScalpBot/internal/domain"
)

// WriteKlinesToCSV dumps candle history to a CSV file, one row per kline.
func WriteKlinesToCSV(klines []*domain.Kline, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write([]string{"open_time", "close_time", "symbol", "interval", "open", "high", "low", "close", "volume"})

	for _, k := range klines {
		writer.Write([]string{
			k.OpenTime.Format(time.RFC3339),
			k.CloseTime.Format(time.RFC3339),
			k.Symbol,
			k.Interval,
			strconv.FormatFloat(k.Open, 'f', -1, 64),
			strconv.FormatFloat(k.High, 'f', -1, 64),
			strconv.FormatFloat(k.Low, 'f', -1, 64),
			strconv.FormatFloat(k.Close, 'f', -1, 64),
			strconv.FormatFloat(k.Volume, 'f', -1, 64),
		})
	}
	return writer.Error()
}

// WriteTradesToCSV dumps closed trade history to a CSV file, one row per trade.
func WriteTradesToCSV(trades []*domain.Trade, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write([]string{
		"id", "symbol", "status", "entry_price", "exit_price", "quantity",
		"capital_engaged", "stop_loss", "take_profit", "open_time", "exit_time",
		"exit_reason", "pnl_amount", "pnl_percent", "fees", "duration_seconds",
		"rsi_value", "regime", "conditions",
	})

	for _, t := range trades {
		exitTime := ""
		if !t.ExitTime.IsZero() {
			exitTime = t.ExitTime.Format(time.RFC3339)
		}
		writer.Write([]string{
			t.ID,
			t.Symbol,
			string(t.Status),
			strconv.FormatFloat(t.EntryPrice, 'f', -1, 64),
			strconv.FormatFloat(t.ExitPrice, 'f', -1, 64),
			strconv.FormatFloat(t.Quantity, 'f', -1, 64),
			strconv.FormatFloat(t.CapitalEngaged, 'f', -1, 64),
			strconv.FormatFloat(t.StopLoss, 'f', -1, 64),
			strconv.FormatFloat(t.TakeProfit, 'f', -1, 64),
			t.OpenTime.Format(time.RFC3339),
			exitTime,
			string(t.ExitReason),
			strconv.FormatFloat(t.PnLAmount, 'f', -1, 64),
			strconv.FormatFloat(t.PnLPercent, 'f', -1, 64),
			strconv.FormatFloat(t.Fees, 'f', -1, 64),
			strconv.FormatInt(int64(t.Duration/time.Second), 10),
			strconv.FormatFloat(t.Signal.RSIValue, 'f', 2, 64),
			string(t.Signal.Regime),
			strings.Join(t.Signal.Conditions, "|"),
		})
	}
	return writer.Error()
}
