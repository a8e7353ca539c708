package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(action Action, price float64, result string) Entry {
	return Entry{
		Timestamp:  time.Date(2024, 3, 9, 10, 15, 0, 0, time.UTC),
		Action:     action,
		Symbol:     "DOGEUSDT",
		Side:       "BUY",
		Price:      price,
		Quantity:   decimal.RequireFromString("61.5"),
		Signal:     "BUY",
		Pattern:    "hammer",
		Result:     result,
		PositionID: "01HRS7Q3ZK0000000000000000",
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVLedgerWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "trades.csv")
	l := NewCSV(path)
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, entry(ActionEntry, 0.1626, "")))
	require.NoError(t, l.Append(ctx, entry(ActionExit, 0.16341, "CLOSED_TP")))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"2024-03-09T10:15:00Z", "ENTRY", "DOGEUSDT", "BUY", "0.1626", "61.5", "BUY", "hammer", "", "01HRS7Q3ZK0000000000000000"}, rows[1])
	assert.Equal(t, "EXIT", rows[2][1])
	assert.Equal(t, "CLOSED_TP", rows[2][8])
}

func TestCSVLedgerAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	ctx := context.Background()

	require.NoError(t, NewCSV(path).Append(ctx, entry(ActionEntry, 1, "")))
	require.NoError(t, NewCSV(path).Append(ctx, entry(ActionExit, 2, "CLOSED_SL")))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
}

func TestCSVLedgerHeaderForEmptyExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	require.NoError(t, NewCSV(path).Append(context.Background(), entry(ActionEntry, 1, "")))

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, Header, rows[0])
}

func TestSQLiteLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := NewSQLite(path)
	require.NoError(t, err)
	defer l.Close()
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, entry(ActionEntry, 0.1626, "")))
	require.NoError(t, l.Append(ctx, entry(ActionExit, 0.16341, "CLOSED_TP")))

	other := entry(ActionEntry, 2.1, "")
	other.Symbol = "XRPUSDT"
	require.NoError(t, l.Append(ctx, other))

	all, err := l.Entries(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	doge, err := l.Entries(ctx, "DOGEUSDT")
	require.NoError(t, err)
	require.Len(t, doge, 2)
	assert.Equal(t, ActionEntry, doge[0].Action)
	assert.Equal(t, ActionExit, doge[1].Action)
	assert.Equal(t, "CLOSED_TP", doge[1].Result)
	assert.True(t, doge[0].Quantity.Equal(decimal.RequireFromString("61.5")))
	assert.True(t, doge[0].Timestamp.Equal(time.Date(2024, 3, 9, 10, 15, 0, 0, time.UTC)))
}

func TestSQLiteLedgerReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	first, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, first.Append(ctx, entry(ActionEntry, 1, "")))
	require.NoError(t, first.Close())

	second, err := NewSQLite(path)
	require.NoError(t, err)
	defer second.Close()
	rows, err := second.Entries(ctx, "")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestOpenDefaultsToCSV(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	l, err := Open(context.Background(), Config{})
	require.NoError(t, err)
	require.IsType(t, &CSVLedger{}, l)

	require.NoError(t, l.Append(context.Background(), entry(ActionEntry, 1, "")))
	_, err = os.Stat(filepath.Join(dir, DefaultCSVPath))
	assert.NoError(t, err)
}

func TestOpenMultipleBackends(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(context.Background(), Config{
		CSVPath:    filepath.Join(dir, "trades.csv"),
		SQLitePath: filepath.Join(dir, "ledger.db"),
	})
	require.NoError(t, err)
	defer l.Close()

	multi, ok := l.(Multi)
	require.True(t, ok)
	assert.Len(t, multi, 2)
	require.NoError(t, l.Append(context.Background(), entry(ActionEntry, 1, "")))
	assert.Len(t, readCSV(t, filepath.Join(dir, "trades.csv")), 2)
}

func TestOpenRejectsBadPostgresDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{PostgresDSN: "postgres://localhost:notaport/db"})
	assert.Error(t, err)
}

type failingLedger struct{ err error }

func (f failingLedger) Append(context.Context, Entry) error { return f.err }
func (f failingLedger) Close() error { return nil }

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("disk full")
	path := filepath.Join(t.TempDir(), "trades.csv")
	m := Multi{failingLedger{err: boom}, NewCSV(path)}

	err := m.Append(context.Background(), entry(ActionEntry, 1, ""))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, readCSV(t, path), 2, "later ledgers still receive the entry")
}
