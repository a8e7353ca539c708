package position

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// maxClosedHistory bounds the in-memory list of closed positions.
const maxClosedHistory = 200

// Store persists position records outside the process
type Store interface {
	SavePosition(ctx context.Context, p Position) error
	LoadOpenPositions(ctx context.Context) ([]Position, error)
}

// HistoryStore is a Store that also archives closed records, newest first.
type HistoryStore interface {
	Store
	RecentClosed(ctx context.Context, n int64) ([]Position, error)
}

// Book is the set of open position records, one per symbol,
// plus a bounded history of closed ones.
type Book struct {
	mu     sync.RWMutex
	open   map[string]Position
	closed []Position
	store  Store
	logger zerolog.Logger
}

// NewBook creates a book. store may be nil for memory-only operation.
func NewBook(store Store, logger zerolog.Logger) *Book {
	return &Book{
		open:   make(map[string]Position),
		store:  store,
		logger: logger.With().Str("component", "PositionBook").Logger(),
	}
}

// Open records a new open position.
// Store failures are logged and the record is kept in memory.
func (b *Book) Open(ctx context.Context, p Position) error {
	b.mu.Lock()
	if _, exists := b.open[p.Symbol]; exists {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPositionExists, p.Symbol)
	}
	p.Status = StatusOpen
	b.open[p.Symbol] = p
	b.mu.Unlock()

	b.persist(ctx, p)
	return nil
}

// Close moves the open record for p.Symbol into history with p's terminal state.
func (b *Book) Close(ctx context.Context, p Position) error {
	b.mu.Lock()
	if _, exists := b.open[p.Symbol]; !exists {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPositionNotFound, p.Symbol)
	}
	delete(b.open, p.Symbol)
	b.closed = append(b.closed, p)
	if len(b.closed) > maxClosedHistory {
		b.closed = b.closed[len(b.closed)-maxClosedHistory:]
	}
	b.mu.Unlock()

	b.persist(ctx, p)
	return nil
}

func (b *Book) persist(ctx context.Context, p Position) {
	if b.store == nil {
		return
	}
	if err := b.store.SavePosition(ctx, p); err != nil {
		b.logger.Warn().Err(err).
			Str("symbol", p.Symbol).
			Str("position_id", p.ID).
			Str("status", string(p.Status)).
			Msg("Failed to persist position, keeping in memory only")
	}
}

// Restore loads open records from the store into the book and returns them.
// A HistoryStore also seeds the closed history; failing that is only logged.
func (b *Book) Restore(ctx context.Context) ([]Position, error) {
	if b.store == nil {
		return nil, nil
	}
	positions, err := b.store.LoadOpenPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load open positions: %w", err)
	}
	b.restoreHistory(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	restored := make([]Position, 0, len(positions))
	for _, p := range positions {
		if _, exists := b.open[p.Symbol]; exists {
			continue
		}
		b.open[p.Symbol] = p
		restored = append(restored, p)
	}
	return restored, nil
}

func (b *Book) restoreHistory(ctx context.Context) {
	hs, ok := b.store.(HistoryStore)
	if !ok {
		return
	}
	recent, err := hs.RecentClosed(ctx, maxClosedHistory)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Failed to load closed positions")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.closed) > 0 {
		return
	}
	for i := len(recent) - 1; i >= 0; i-- {
		b.closed = append(b.closed, recent[i])
	}
}

// Get returns the open record for a symbol.
func (b *Book) Get(symbol string) (Position, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.open[symbol]
	return p, ok
}

func (b *Book) HasOpen(symbol string) bool {
	_, ok := b.Get(symbol)
	return ok
}

// OpenPositions returns open records sorted by symbol.
func (b *Book) OpenPositions() []Position {
	b.mu.RLock()
	out := make([]Position, 0, len(b.open))
	for _, p := range b.open {
		out = append(out, p)
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// ClosedPositions returns closed records, oldest first.
func (b *Book) ClosedPositions() []Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Position, len(b.closed))
	copy(out, b.closed)
	return out
}
