package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteLedger appends rows to a local SQLite database
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLite opens path and creates the ledger table if absent.
func NewSQLite(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

func (l *SQLiteLedger) Append(ctx context.Context, e Entry) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO trade_ledger
		(ts, action, symbol, side, price, quantity, signal, pattern, result, position_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp.UTC(), string(e.Action), e.Symbol, e.Side, e.Price,
		e.Quantity.String(), e.Signal, e.Pattern, e.Result, e.PositionID,
	)
	if err != nil {
		return fmt.Errorf("insert ledger row: %w", err)
	}
	return nil
}

// Entries returns rows for a symbol in insertion order; an empty symbol returns all rows.
func (l *SQLiteLedger) Entries(ctx context.Context, symbol string) ([]Entry, error) {
	query := `SELECT ts, action, symbol, side, price, quantity, signal, pattern, result, position_id
		FROM trade_ledger`
	var args []any
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY id`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var action, qty string
		if err := rows.Scan(&e.Timestamp, &action, &e.Symbol, &e.Side, &e.Price, &qty,
			&e.Signal, &e.Pattern, &e.Result, &e.PositionID); err != nil {
			return nil, err
		}
		e.Action = Action(action)
		if e.Quantity, err = parseQuantity(qty); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
