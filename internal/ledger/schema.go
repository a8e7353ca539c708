package ledger

// Schema creates the trades table for SQL ledgers.
// It is valid for both SQLite and PostgreSQL.
const Schema = `
CREATE TABLE IF NOT EXISTS trade_ledger (
	id INTEGER PRIMARY KEY,
	ts TIMESTAMP NOT NULL,
	action TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	price DOUBLE PRECISION NOT NULL,
	quantity TEXT NOT NULL,
	signal TEXT NOT NULL,
	pattern TEXT NOT NULL,
	result TEXT NOT NULL,
	position_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trade_ledger_symbol ON trade_ledger(symbol);
`

// postgresSchema uses an identity column instead of SQLite's rowid alias.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS trade_ledger (
		id BIGSERIAL PRIMARY KEY,
		ts TIMESTAMPTZ NOT NULL,
		action VARCHAR(8) NOT NULL,
		symbol VARCHAR(20) NOT NULL,
		side VARCHAR(4) NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		quantity NUMERIC(30, 12) NOT NULL,
		signal VARCHAR(16) NOT NULL,
		pattern VARCHAR(32) NOT NULL,
		result VARCHAR(32) NOT NULL,
		position_id VARCHAR(32) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trade_ledger_symbol ON trade_ledger(symbol)`,
	`CREATE INDEX IF NOT EXISTS idx_trade_ledger_position ON trade_ledger(position_id)`,
}
