// Package ledger records every entry and exit as an append-only trade log.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Action distinguishes entry and exit records
type Action string

const (
	ActionEntry Action = "ENTRY"
	ActionExit  Action = "EXIT"
)

// Entry is one immutable ledger record
type Entry struct {
	Timestamp  time.Time
	Action     Action
	Symbol     string
	Side       string
	Price      float64
	Quantity   decimal.Decimal
	Signal     string
	Pattern    string
	Result     string
	PositionID string
}

// Ledger appends records. Implementations create their backing store on first use.
type Ledger interface {
	Append(ctx context.Context, e Entry) error
	Close() error
}

// Config selects the ledger backends. Every non-empty target is written.
type Config struct {
	CSVPath     string `json:"csv_path" yaml:"csv_path"`
	SQLitePath  string `json:"sqlite_path" yaml:"sqlite_path"`
	PostgresDSN string `json:"postgres_dsn" yaml:"postgres_dsn"`
}

// Open builds the ledgers named in cfg, fanning out to all of them.
// With nothing configured it writes logs/trades.csv.
func Open(ctx context.Context, cfg Config) (Ledger, error) {
	if cfg.CSVPath == "" && cfg.SQLitePath == "" && cfg.PostgresDSN == "" {
		cfg.CSVPath = DefaultCSVPath
	}

	var ledgers []Ledger
	closeAll := func() {
		for _, l := range ledgers {
			_ = l.Close()
		}
	}

	if cfg.CSVPath != "" {
		ledgers = append(ledgers, NewCSV(cfg.CSVPath))
	}
	if cfg.SQLitePath != "" {
		l, err := NewSQLite(cfg.SQLitePath)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("open sqlite ledger: %w", err)
		}
		ledgers = append(ledgers, l)
	}
	if cfg.PostgresDSN != "" {
		l, err := NewPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("open postgres ledger: %w", err)
		}
		ledgers = append(ledgers, l)
	}

	if len(ledgers) == 1 {
		return ledgers[0], nil
	}
	return Multi(ledgers), nil
}

// Multi writes every entry to each ledger in order
type Multi []Ledger

// Append writes to all ledgers and joins their errors.
func (m Multi) Append(ctx context.Context, e Entry) error {
	var errs []error
	for _, l := range m {
		if err := l.Append(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, l := range m {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
