// Package sqlite implements the trade journal (ports.TradeRecorder) on a
// local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rsiScalpBot/internal/domain"
	"rsiScalpBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.TradeRecorder interface using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/trading_bot.db"
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// WAL mode for better concurrency
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally, but the Go driver benefits
	// from limiting connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		status TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL DEFAULT NULL,
		quantity REAL NOT NULL,
		capital_engaged REAL NOT NULL,
		stop_loss REAL NOT NULL,
		take_profit REAL NOT NULL,
		open_time TIMESTAMP NOT NULL,
		exit_time TIMESTAMP DEFAULT NULL,
		exit_reason TEXT DEFAULT NULL,
		pnl_amount REAL DEFAULT NULL,
		pnl_percent REAL DEFAULT NULL,
		fees REAL DEFAULT NULL,
		duration_seconds INTEGER DEFAULT NULL,
		rsi_value REAL NOT NULL,
		regime TEXT NOT NULL,
		conditions TEXT DEFAULT NULL,
		breakout INTEGER NOT NULL DEFAULT 0,
		entry_order_id INTEGER NOT NULL DEFAULT 0,
		stop_order_id INTEGER NOT NULL DEFAULT 0,
		profit_order_id INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS error_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scope TEXT NOT NULL,
		message TEXT NOT NULL,
		logged_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_trades_symbol_status ON trades (symbol, status);
	CREATE INDEX IF NOT EXISTS idx_trades_exit_time ON trades (exit_time);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// LogTradeOpen records a freshly opened trade.
func (r *Repository) LogTradeOpen(ctx context.Context, trade *domain.Trade) error {
	const query = `
	INSERT INTO trades (id, symbol, status, entry_price, quantity, capital_engaged,
	                    stop_loss, take_profit, open_time, rsi_value, regime,
	                    conditions, breakout, entry_order_id, stop_order_id, profit_order_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		trade.ID, trade.Symbol, string(trade.Status), trade.EntryPrice, trade.Quantity, trade.CapitalEngaged,
		trade.StopLoss, trade.TakeProfit, trade.OpenTime, trade.Signal.RSIValue, string(trade.Signal.Regime),
		strings.Join(trade.Signal.Conditions, ","), boolToInt(trade.Signal.BreakoutDetected),
		trade.EntryOrderID, trade.StopOrderID, trade.ProfitOrderID)
	if err != nil {
		return fmt.Errorf("failed to insert trade %s: %w: %w", trade.ID, ports.ErrQueryFailed, err)
	}
	r.logger.Debug(ctx, "Trade open journaled", map[string]interface{}{"tradeID": trade.ID, "symbol": trade.Symbol})
	return nil
}

// LogTradeClose records the final state of a closed trade.
func (r *Repository) LogTradeClose(ctx context.Context, trade *domain.Trade) error {
	const query = `
	UPDATE trades
	SET status = ?, exit_price = ?, exit_time = ?, exit_reason = ?,
	    pnl_amount = ?, pnl_percent = ?, fees = ?, duration_seconds = ?
	WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(trade.Status), trade.ExitPrice, trade.ExitTime, string(trade.ExitReason),
		trade.PnLAmount, trade.PnLPercent, trade.Fees, int64(trade.Duration.Seconds()),
		trade.ID)
	if err != nil {
		return fmt.Errorf("failed to update trade %s: %w: %w", trade.ID, ports.ErrUpdateFailed, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for trade %s: %w", trade.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("trade %s not found for close update: %w", trade.ID, ports.ErrNotFound)
	}
	r.logger.Debug(ctx, "Trade close journaled", map[string]interface{}{
		"tradeID": trade.ID, "symbol": trade.Symbol, "pnl": trade.PnLAmount,
	})
	return nil
}

// LogError records an operational error for later inspection.
func (r *Repository) LogError(ctx context.Context, scope, message string) error {
	const query = `INSERT INTO error_log (scope, message) VALUES (?, ?)`
	if _, err := r.db.ExecContext(ctx, query, scope, message); err != nil {
		return fmt.Errorf("failed to insert error log: %w: %w", ports.ErrQueryFailed, err)
	}
	return nil
}

// RecentTrades retrieves the most recent closed trades, up to a limit.
func (r *Repository) RecentTrades(ctx context.Context, limit int) ([]*domain.Trade, error) {
	const query = `
	SELECT id, symbol, status, entry_price, COALESCE(exit_price, 0), quantity, capital_engaged,
	       stop_loss, take_profit, open_time, exit_time, COALESCE(exit_reason, ''),
	       COALESCE(pnl_amount, 0), COALESCE(pnl_percent, 0), COALESCE(fees, 0),
	       COALESCE(duration_seconds, 0), rsi_value, regime, COALESCE(conditions, ''), breakout,
	       entry_order_id, stop_order_id, profit_order_id
	FROM trades
	WHERE status = ?
	ORDER BY exit_time DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, string(domain.StatusClosed), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent trades: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade during RecentTrades: %w", err)
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(s scanner) (*domain.Trade, error) {
	t := &domain.Trade{}
	var status, exitReason, regime, conditions string
	var exitTime sql.NullTime
	var durationSeconds int64
	var breakout int
	err := s.Scan(
		&t.ID, &t.Symbol, &status, &t.EntryPrice, &t.ExitPrice, &t.Quantity, &t.CapitalEngaged,
		&t.StopLoss, &t.TakeProfit, &t.OpenTime, &exitTime, &exitReason,
		&t.PnLAmount, &t.PnLPercent, &t.Fees,
		&durationSeconds, &t.Signal.RSIValue, &regime, &conditions, &breakout,
		&t.EntryOrderID, &t.StopOrderID, &t.ProfitOrderID)
	if err != nil {
		return nil, err
	}
	t.Status = domain.TradeStatus(status)
	t.ExitReason = domain.ExitReason(exitReason)
	t.Signal.Regime = domain.Regime(regime)
	t.Signal.BreakoutDetected = breakout != 0
	if conditions != "" {
		t.Signal.Conditions = strings.Split(conditions, ",")
	}
	if exitTime.Valid {
		t.ExitTime = exitTime.Time
	}
	t.Duration = time.Duration(durationSeconds) * time.Second
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
