package trade

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/tradelog/internal/core"
	"go.uber.org/zap"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS trades (
	id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	instrument_type TEXT NOT NULL,
	side TEXT NOT NULL,
	entry TEXT NOT NULL,
	exit_price TEXT NULL,
	stop_loss TEXT NULL,
	lot TEXT NOT NULL DEFAULT '0',
	volume TEXT NOT NULL DEFAULT '0',
	pip_decimal TEXT NOT NULL DEFAULT '0',
	pip_value_per_lot TEXT NOT NULL DEFAULT '0',
	fees TEXT NOT NULL DEFAULT '0',
	entered_at INTEGER NOT NULL,
	exited_at INTEGER NULL,
	strategy TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_trades_symbol_entered_at ON trades (symbol, entered_at);
CREATE INDEX IF NOT EXISTS idx_trades_entered_at ON trades (entered_at);
`

const tradeColumns = `id, symbol, instrument_type, side, entry, exit_price, stop_loss,
	lot, volume, pip_decimal, pip_value_per_lot, fees, entered_at, exited_at, strategy, notes`

// strategyExpr maps blank strategies to the default label so filters match
// the label the analytics engine groups by.
const strategyExpr = `COALESCE(NULLIF(TRIM(strategy), ''), '` + core.DefaultStrategy + `')`

// SQLiteStore persists trades in a SQLite database. Decimals are stored as
// TEXT so no precision is lost; timestamps as unix nanoseconds.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = "./data/tradelog.db"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("creating data directory %s: %w", filepath.Dir(path), err))
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("opening database %s: %w", path, err))
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("pinging database %s: %w", path, err))
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("initializing schema: %w", err))
	}

	logger.Info("sqlite trade store ready", zap.String("path", path))
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Save inserts or replaces a trade.
func (s *SQLiteStore) Save(ctx context.Context, trade *core.Trade) error {
	if err := validateForSave(trade); err != nil {
		return err
	}
	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}

	const query = `INSERT OR REPLACE INTO trades (` + tradeColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var exitedAt sql.NullInt64
	if trade.ExitTimestamp != nil {
		exitedAt = sql.NullInt64{Int64: trade.ExitTimestamp.UnixNano(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		trade.ID, trade.Symbol, string(trade.InstrumentType), string(trade.Side),
		trade.Entry, trade.Exit, trade.StopLoss,
		trade.Lot, trade.Volume, trade.PipDecimal, trade.PipValuePerLot, trade.Fees,
		trade.Timestamp.UnixNano(), exitedAt, trade.Strategy, trade.Notes)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("saving trade %s: %w", trade.ID, err))
	}

	s.logger.Debug("trade saved", zap.String("id", trade.ID), zap.String("symbol", trade.Symbol))
	return nil
}

// Get retrieves a trade by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*core.Trade, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = ?`, id)
	t, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrTradeNotFound
	}
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("reading trade %s: %w", id, err))
	}
	return &t, nil
}

// List returns trades matching the filter.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]core.Trade, error) {
	where, args := sqlWhere(filter)
	query := `SELECT ` + tradeColumns + ` FROM trades` + where + ` ORDER BY entered_at ASC, rowid ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	} else if filter.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("listing trades: %w", err))
	}
	defer rows.Close()

	trades := make([]core.Trade, 0)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("scanning trade: %w", err))
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return trades, nil
}

// Count returns the count of matching trades.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := sqlWhere(filter)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades`+where, args...).Scan(&n); err != nil {
		return 0, core.WrapError(core.ErrStorageFailed, fmt.Errorf("counting trades: %w", err))
	}
	return n, nil
}

// Delete removes a trade by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, fmt.Errorf("deleting trade %s: %w", id, err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	if n == 0 {
		return core.ErrTradeNotFound
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	s.logger.Info("closing sqlite trade store")
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner) (core.Trade, error) {
	var (
		t          core.Trade
		instrument string
		side       string
		enteredAt  int64
		exitedAt   sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.Symbol, &instrument, &side,
		&t.Entry, &t.Exit, &t.StopLoss,
		&t.Lot, &t.Volume, &t.PipDecimal, &t.PipValuePerLot, &t.Fees,
		&enteredAt, &exitedAt, &t.Strategy, &t.Notes)
	if err != nil {
		return core.Trade{}, err
	}

	t.InstrumentType = core.InstrumentType(instrument)
	t.Side = core.Side(side)
	t.Timestamp = time.Unix(0, enteredAt).UTC()
	if exitedAt.Valid {
		ts := time.Unix(0, exitedAt.Int64).UTC()
		t.ExitTimestamp = &ts
	}
	return t, nil
}

func sqlWhere(filter ListFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.Symbol != "" {
		clauses = append(clauses, "symbol = ?")
		args = append(args, filter.Symbol)
	}
	if filter.Strategy != "" {
		clauses = append(clauses, strategyExpr+" = ?")
		args = append(args, filter.Strategy)
	}
	if filter.InstrumentType != "" {
		clauses = append(clauses, "instrument_type = ?")
		args = append(args, string(filter.InstrumentType))
	}
	if !filter.From.IsZero() {
		clauses = append(clauses, "entered_at >= ?")
		args = append(args, filter.From.UnixNano())
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, "entered_at <= ?")
		args = append(args, filter.To.UnixNano())
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
