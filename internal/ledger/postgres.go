package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresLedger appends rows to PostgreSQL.
// The table is created on the first successful append.
type PostgresLedger struct {
	pool *pgxpool.Pool

	schemaMu    sync.Mutex
	schemaReady bool
}

// NewPostgres creates a pool for dsn. Connection happens lazily.
func NewPostgres(ctx context.Context, dsn string) (*PostgresLedger, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}
	poolConfig.MaxConns = 4
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return &PostgresLedger{pool: pool}, nil
}

func (l *PostgresLedger) ensureSchema(ctx context.Context) error {
	l.schemaMu.Lock()
	defer l.schemaMu.Unlock()
	if l.schemaReady {
		return nil
	}
	for _, stmt := range postgresSchema {
		if _, err := l.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create ledger schema: %w", err)
		}
	}
	l.schemaReady = true
	return nil
}

func (l *PostgresLedger) Append(ctx context.Context, e Entry) error {
	if err := l.ensureSchema(ctx); err != nil {
		return err
	}
	_, err := l.pool.Exec(ctx, `
		INSERT INTO trade_ledger
		(ts, action, symbol, side, price, quantity, signal, pattern, result, position_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.Timestamp.UTC(), string(e.Action), e.Symbol, e.Side, e.Price,
		e.Quantity.String(), e.Signal, e.Pattern, e.Result, e.PositionID,
	)
	if err != nil {
		return fmt.Errorf("insert ledger row: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Close() error {
	l.pool.Close()
	return nil
}

func parseQuantity(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	return d, nil
}
