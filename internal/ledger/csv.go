package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// DefaultCSVPath is used when no ledger target is configured
const DefaultCSVPath = "logs/trades.csv"

// Header is the first row of every CSV ledger file
var Header = []string{"timestamp", "action", "symbol", "side", "price", "quantity", "signal", "pattern", "result", "position_id"}

// CSVLedger appends rows to a CSV file, writing the header when the file is new or empty
type CSVLedger struct {
	path string
	mu   sync.Mutex
}

func NewCSV(path string) *CSVLedger {
	return &CSVLedger{path: path}
}

func (l *CSVLedger) Append(ctx context.Context, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger dir: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat ledger: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("write ledger header: %w", err)
		}
	}
	if err := w.Write(row(e)); err != nil {
		return fmt.Errorf("write ledger row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush ledger: %w", err)
	}
	return nil
}

func (l *CSVLedger) Close() error {
	return nil
}

func row(e Entry) []string {
	return []string{
		e.Timestamp.UTC().Format(time.RFC3339),
		string(e.Action),
		e.Symbol,
		e.Side,
		strconv.FormatFloat(e.Price, 'f', -1, 64),
		e.Quantity.String(),
		e.Signal,
		e.Pattern,
		e.Result,
		e.PositionID,
	}
}
