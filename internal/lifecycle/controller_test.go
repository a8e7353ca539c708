package lifecycle

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binance-pattern-trader/internal/ledger"
	"binance-pattern-trader/internal/monitor"
	"binance-pattern-trader/internal/notification"
	"binance-pattern-trader/internal/order"
	"binance-pattern-trader/internal/patterns"
	"binance-pattern-trader/internal/position"
	"binance-pattern-trader/internal/sizing"
)

var (
	bullishSeries = []patterns.Candle{
		{Open: 100, High: 102, Low: 98, Close: 99},
		{Open: 98, High: 105, Low: 97, Close: 104},
		{Open: 104, High: 104.5, Low: 103, Close: 104},
	}
	bearishSeries = []patterns.Candle{
		{Open: 99, High: 102, Low: 98, Close: 100},
		{Open: 101, High: 103, Low: 95, Close: 96},
		{Open: 96, High: 97, Low: 95, Close: 96.5},
	}
	dojiSeries = []patterns.Candle{
		{Open: 100, High: 100.3, Low: 99.9, Close: 100.2},
		{Open: 100, High: 100.5, Low: 99.5, Close: 100.0005},
		{Open: 100, High: 100.1, Low: 99.9, Close: 100},
	}
	quietSeries = []patterns.Candle{
		{Open: 100, High: 101.2, Low: 99.8, Close: 101},
		{Open: 101, High: 102.5, Low: 100.8, Close: 102},
		{Open: 102, High: 102.2, Low: 101.9, Close: 102.1},
	}
)

// priceFunc returns the quote for the n-th CurrentPrice call on a symbol, starting at 0.
type priceFunc func(n int) (float64, error)

func sequence(prices ...float64) priceFunc {
	return func(n int) (float64, error) {
		if n >= len(prices) {
			n = len(prices) - 1
		}
		return prices[n], nil
	}
}

// gated quotes 100 until open is set, then 101.
func gated(open *atomic.Bool) priceFunc {
	return func(n int) (float64, error) {
		if open.Load() {
			return 101, nil
		}
		return 100, nil
	}
}

type fakeMarket struct {
	mu      sync.Mutex
	candles map[string][]patterns.Candle
	prices  map[string]priceFunc
	calls   map[string]int
	lot     sizing.LotSize
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		candles: make(map[string][]patterns.Candle),
		prices:  make(map[string]priceFunc),
		calls:   make(map[string]int),
		lot:     sizing.LotSize{StepSize: 0.001, MinNotional: 5},
	}
}

func (m *fakeMarket) set(symbol string, candles []patterns.Candle, prices priceFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candles[symbol] = candles
	m.prices[symbol] = prices
	m.calls[symbol] = 0
}

func (m *fakeMarket) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]patterns.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.candles[symbol]
	if !ok {
		return nil, errors.New("unknown symbol")
	}
	return c, nil
}

func (m *fakeMarket) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	n := m.calls[symbol]
	m.calls[symbol]++
	fn := m.prices[symbol]
	m.mu.Unlock()
	return fn(n)
}

func (m *fakeMarket) LotSize(ctx context.Context, symbol string) (sizing.LotSize, error) {
	return m.lot, nil
}

type fakeGateway struct {
	mu        sync.Mutex
	requests  []order.Request
	failEntry bool
	failExit  bool
	entryFill float64
	exitFill  float64
}

func (g *fakeGateway) Mode() order.Mode { return order.ModeSpot }

func (g *fakeGateway) Place(ctx context.Context, req order.Request) (order.Fill, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)

	purpose, _ := order.PurposeOf(req.ClientOrderID)
	price := g.entryFill
	if purpose == order.PurposeExit {
		if g.failExit {
			return order.Fill{}, order.NewGatewayError(order.ModeSpot, req, errors.New("insufficient balance"))
		}
		price = g.exitFill
	} else if g.failEntry {
		return order.Fill{}, order.NewGatewayError(order.ModeSpot, req, errors.New("insufficient balance"))
	}
	return order.Fill{
		OrderID:       int64(len(g.requests)),
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Mode:          order.ModeSpot,
		Price:         price,
		Quantity:      req.Quantity,
	}, nil
}

func (g *fakeGateway) placed() []order.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]order.Request(nil), g.requests...)
}

func (g *fakeGateway) countPurpose(p order.Purpose) int {
	n := 0
	for _, r := range g.placed() {
		if got, _ := order.PurposeOf(r.ClientOrderID); got == p {
			n++
		}
	}
	return n
}

type memoryLedger struct {
	mu      sync.Mutex
	entries []ledger.Entry
}

func (l *memoryLedger) Append(ctx context.Context, e ledger.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

func (l *memoryLedger) Close() error { return nil }

func (l *memoryLedger) all() []ledger.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ledger.Entry(nil), l.entries...)
}

func (l *memoryLedger) forSymbol(symbol string) []ledger.Entry {
	var out []ledger.Entry
	for _, e := range l.all() {
		if e.Symbol == symbol {
			out = append(out, e)
		}
	}
	return out
}

type recordingNotifier struct {
	mu    sync.Mutex
	msgs  []string
	kinds map[string]notification.NotificationType
}

func (n *recordingNotifier) Notify(kind notification.NotificationType, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, text)
	if n.kinds == nil {
		n.kinds = make(map[string]notification.NotificationType)
	}
	n.kinds[text] = kind
}

// kindOf returns the type of the first message containing sub.
func (n *recordingNotifier) kindOf(sub string) notification.NotificationType {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, m := range n.msgs {
		if strings.Contains(m, sub) {
			return n.kinds[m]
		}
	}
	return ""
}

func (n *recordingNotifier) contains(sub string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, m := range n.msgs {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

type memoryStore struct {
	mu    sync.Mutex
	open  []position.Position
	saved []position.Position
}

func (s *memoryStore) SavePosition(ctx context.Context, p position.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, p)
	return nil
}

func (s *memoryStore) LoadOpenPositions(ctx context.Context) ([]position.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]position.Position(nil), s.open...), nil
}

type harness struct {
	ctrl     *Controller
	market   *fakeMarket
	gateway  *fakeGateway
	guard    *position.MemoryGuard
	book     *position.Book
	ledger   *memoryLedger
	notifier *recordingNotifier
}

func newHarness(t *testing.T, symbols []string, store position.Store) *harness {
	t.Helper()
	h := &harness{
		market:   newFakeMarket(),
		gateway:  &fakeGateway{entryFill: 100, exitFill: 100.6},
		guard:    position.NewMemoryGuard(),
		book:     position.NewBook(store, zerolog.Nop()),
		ledger:   &memoryLedger{},
		notifier: &recordingNotifier{},
	}
	mon := monitor.New(h.market, h.gateway, monitor.Config{
		PollInterval:    5 * time.Millisecond,
		CloseAttempts:   2,
		CloseRetryDelay: time.Millisecond,
	}, zerolog.Nop())

	h.ctrl = New(Config{
		Symbols:           symbols,
		Notional:          10,
		TakeProfitPct:     0.5,
		StopLossPct:       0.5,
		TickInterval:      20 * time.Millisecond,
		ReleaseRetryDelay: time.Millisecond,
	}, Dependencies{
		Market:   h.market,
		Gateway:  h.gateway,
		Guard:    h.guard,
		Book:     h.book,
		Monitor:  mon,
		Ledger:   h.ledger,
		Notifier: h.notifier,
	}, zerolog.Nop())
	return h
}

func (h *harness) locked(t *testing.T, symbol string) bool {
	t.Helper()
	locked, err := h.guard.IsLocked(context.Background(), symbol)
	require.NoError(t, err)
	return locked
}

func TestTakeProfitCycle(t *testing.T) {
	h := newHarness(t, []string{"DOGEUSDT"}, nil)
	h.market.set("DOGEUSDT", bullishSeries, sequence(100, 100.2, 100.6))

	h.ctrl.Tick(context.Background())
	h.ctrl.Wait()

	entries := h.ledger.all()
	require.Len(t, entries, 2)
	assert.Equal(t, ledger.ActionEntry, entries[0].Action)
	assert.Equal(t, "BUY", entries[0].Side)
	assert.Equal(t, "bullish_engulfing", entries[0].Pattern)
	assert.True(t, entries[0].Quantity.Equal(decimal.RequireFromString("0.1")))
	assert.Equal(t, ledger.ActionExit, entries[1].Action)
	assert.Equal(t, string(position.StatusClosedTP), entries[1].Result)
	assert.Equal(t, "SELL", entries[1].Side)
	assert.Equal(t, 100.6, entries[1].Price)
	assert.Equal(t, entries[0].PositionID, entries[1].PositionID)

	assert.False(t, h.locked(t, "DOGEUSDT"))
	assert.False(t, h.book.HasOpen("DOGEUSDT"))
	assert.Equal(t, 1, h.gateway.countPurpose(order.PurposeEntry))
	assert.Equal(t, 1, h.gateway.countPurpose(order.PurposeExit))
	assert.True(t, h.notifier.contains("ENTRY BUY"))
	assert.True(t, h.notifier.contains("TAKE PROFIT DOGEUSDT"))
	assert.Equal(t, notification.NotifyTradeOpen, h.notifier.kindOf("ENTRY BUY"))
	assert.Equal(t, notification.NotifyTradeClose, h.notifier.kindOf("TAKE PROFIT DOGEUSDT"))

	closed := h.book.ClosedPositions()
	require.Len(t, closed, 1)
	assert.Equal(t, 100.5, closed[0].TakeProfit)
	assert.Equal(t, 99.5, closed[0].StopLoss)
}

func TestStopLossCycle(t *testing.T) {
	h := newHarness(t, []string{"DOGEUSDT"}, nil)
	h.gateway.exitFill = 99.6
	h.market.set("DOGEUSDT", bullishSeries, sequence(100, 100.2, 99.4))

	h.ctrl.Tick(context.Background())
	h.ctrl.Wait()

	entries := h.ledger.all()
	require.Len(t, entries, 2)
	assert.Equal(t, string(position.StatusClosedSL), entries[1].Result)
	assert.False(t, h.locked(t, "DOGEUSDT"))
	assert.True(t, h.notifier.contains("STOP LOSS"))
}

func TestSellSignalOpensShort(t *testing.T) {
	h := newHarness(t, []string{"DOGEUSDT"}, nil)
	h.gateway.exitFill = 99.4
	h.market.set("DOGEUSDT", bearishSeries, sequence(100, 99.8, 99.4))

	h.ctrl.Tick(context.Background())
	h.ctrl.Wait()

	entries := h.ledger.all()
	require.Len(t, entries, 2)
	assert.Equal(t, "SELL", entries[0].Side)
	assert.Equal(t, "SELL", entries[0].Signal)
	assert.Equal(t, "BUY", entries[1].Side)
	assert.Equal(t, string(position.StatusClosedTP), entries[1].Result)
}

func TestCloseFailureSettlesAsError(t *testing.T) {
	h := newHarness(t, []string{"DOGEUSDT"}, nil)
	h.gateway.failExit = true
	h.market.set("DOGEUSDT", bullishSeries, sequence(100, 100.6))

	h.ctrl.Tick(context.Background())
	h.ctrl.Wait()

	entries := h.ledger.all()
	require.Len(t, entries, 2)
	assert.Equal(t, string(position.StatusClosedError), entries[1].Result)
	assert.Equal(t, 100.6, entries[1].Price)
	assert.False(t, h.locked(t, "DOGEUSDT"))
	assert.Equal(t, 2, h.gateway.countPurpose(order.PurposeExit))
	assert.True(t, h.notifier.contains("closed with error"))
	assert.Empty(t, h.ctrl.Status().Halted)
}

func TestPriceFailureSettlesAsError(t *testing.T) {
	h := newHarness(t, []string{"DOGEUSDT"}, nil)
	h.market.set("DOGEUSDT", bullishSeries, func(n int) (float64, error) {
		if n == 0 {
			return 100, nil
		}
		return 0, errors.New("connection reset")
	})

	h.ctrl.Tick(context.Background())
	h.ctrl.Wait()

	entries := h.ledger.all()
	require.Len(t, entries, 2)
	assert.Equal(t, string(position.StatusClosedError), entries[1].Result)
	assert.False(t, h.locked(t, "DOGEUSDT"))

	closed := h.book.ClosedPositions()
	require.Len(t, closed, 1)
	assert.Contains(t, closed[0].CloseError, "connection reset")
}

func TestEntryFailureReleasesLock(t *testing.T) {
	h := newHarness(t, []string{"DOGEUSDT"}, nil)
	h.gateway.failEntry = true
	h.market.set("DOGEUSDT", bullishSeries, sequence(100))

	h.ctrl.Tick(context.Background())
	h.ctrl.Wait()

	assert.Empty(t, h.ledger.all())
	assert.False(t, h.locked(t, "DOGEUSDT"))
	assert.False(t, h.book.HasOpen("DOGEUSDT"))
	assert.Empty(t, h.ctrl.Status().Pending)
	assert.True(t, h.notifier.contains("entry order failed"))

	// next tick tries again
	h.gateway.mu.Lock()
	h.gateway.failEntry = false
	h.gateway.mu.Unlock()
	h.market.set("DOGEUSDT", bullishSeries, sequence(100, 100.6))
	h.ctrl.Tick(context.Background())
	h.ctrl.Wait()
	assert.Len(t, h.ledger.all(), 2)
}

func TestBelowMinimumNotionalSkips(t *testing.T) {
	h := newHarness(t, []string{"DOGEUSDT"}, nil)
	h.market.lot = sizing.LotSize{StepSize: 1, MinNotional: 1}
	h.market.set("DOGEUSDT", bullishSeries, sequence(100))

	h.ctrl.Tick(context.Background())

	assert.Empty(t, h.gateway.placed())
	assert.Empty(t, h.ledger.all())
	assert.False(t, h.locked(t, "DOGEUSDT"))
	assert.True(t, h.notifier.contains("below exchange minimum"))
}

func TestNeutralAndNoneSignalsDoNotTrade(t *testing.T) {
	h := newHarness(t, []string{"DOGEUSDT", "XRPUSDT"}, nil)
	h.market.set("DOGEUSDT", dojiSeries, sequence(100))
	h.market.set("XRPUSDT", quietSeries, sequence(100))

	h.ctrl.Tick(context.Background())

	assert.Empty(t, h.gateway.placed())
	assert.True(t, h.notifier.contains("DOGEUSDT: doji, no trade"))
	assert.False(t, h.notifier.contains("XRPUSDT"))
}

func TestOpenPositionBlocksNewEntries(t *testing.T) {
	h := newHarness(t, []string{"DOGEUSDT"}, nil)
	var exit atomic.Bool
	h.market.set("DOGEUSDT", bullishSeries, gated(&exit))

	ctx := context.Background()
	h.ctrl.Tick(ctx)
	h.ctrl.Tick(ctx)
	h.ctrl.Tick(ctx)

	assert.Equal(t, 1, h.gateway.countPurpose(order.PurposeEntry))
	assert.True(t, h.locked(t, "DOGEUSDT"))
	assert.Len(t, h.ctrl.Status().OpenPositions, 1)

	exit.Store(true)
	h.ctrl.Wait()

	assert.Len(t, h.ledger.all(), 2)
	assert.False(t, h.locked(t, "DOGEUSDT"))
}

func TestConcurrentTicksPlaceOneEntry(t *testing.T) {
	h := newHarness(t, []string{"DOGEUSDT"}, nil)
	var exit atomic.Bool
	h.market.set("DOGEUSDT", bullishSeries, gated(&exit))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.ctrl.Tick(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, h.gateway.countPurpose(order.PurposeEntry))

	exit.Store(true)
	h.ctrl.Wait()
	assert.Len(t, h.ledger.all(), 2)
	assert.False(t, h.locked(t, "DOGEUSDT"))
}

func TestParallelTickAcrossSymbols(t *testing.T) {
	symbols := []string{"DOGEUSDT", "XRPUSDT", "ADAUSDT"}
	h := newHarness(t, symbols, nil)
	h.ctrl.cfg.Parallel = true
	for _, s := range symbols {
		h.market.set(s, bullishSeries, sequence(100, 100.6))
	}

	h.ctrl.Tick(context.Background())
	h.ctrl.Wait()

	require.Len(t, h.ledger.all(), 6)
	for _, s := range symbols {
		entries := h.ledger.forSymbol(s)
		require.Len(t, entries, 2, s)
		assert.Equal(t, ledger.ActionEntry, entries[0].Action)
		assert.Equal(t, ledger.ActionExit, entries[1].Action)
		assert.False(t, h.locked(t, s))
	}
}

func TestLockWithoutRecordHaltsSymbol(t *testing.T) {
	h := newHarness(t, []string{"DOGEUSDT"}, nil)
	h.market.set("DOGEUSDT", bullishSeries, sequence(100, 100.6))
	ctx := context.Background()

	ok, err := h.guard.TryAcquire(ctx, "DOGEUSDT")
	require.NoError(t, err)
	require.True(t, ok)

	h.ctrl.Tick(ctx)
	h.ctrl.Tick(ctx)

	assert.Empty(t, h.gateway.placed())
	assert.Contains(t, h.ctrl.Status().Halted, "DOGEUSDT")
	assert.True(t, h.notifier.contains("DOGEUSDT halted"))

	err = h.ctrl.Resume(ctx, "DOGEUSDT")
	assert.ErrorIs(t, err, position.ErrLockInconsistency)

	require.NoError(t, h.ctrl.ReleaseLock(ctx, "DOGEUSDT"))
	require.NoError(t, h.ctrl.Resume(ctx, "DOGEUSDT"))
	assert.Empty(t, h.ctrl.Status().Halted)

	h.ctrl.Tick(ctx)
	h.ctrl.Wait()
	assert.Len(t, h.ledger.all(), 2)
}

func TestResumeRequiresHalt(t *testing.T) {
	h := newHarness(t, []string{"DOGEUSDT"}, nil)
	err := h.ctrl.Resume(context.Background(), "DOGEUSDT")
	assert.ErrorIs(t, err, ErrNotHalted)
}

func TestReleaseLockRefusedWhileOpen(t *testing.T) {
	h := newHarness(t, []string{"DOGEUSDT"}, nil)
	var exit atomic.Bool
	h.market.set("DOGEUSDT", bullishSeries, gated(&exit))
	ctx := context.Background()

	h.ctrl.Tick(ctx)
	err := h.ctrl.ReleaseLock(ctx, "DOGEUSDT")
	assert.ErrorIs(t, err, ErrPositionOpen)
	assert.True(t, h.locked(t, "DOGEUSDT"))

	exit.Store(true)
	h.ctrl.Wait()
}

func TestRecoverResumesAndHalts(t *testing.T) {
	restored := position.Position{
		ID:         "01HZX0000000000000000000AB",
		Symbol:     "ETHUSDT",
		Side:       order.SideBuy,
		Mode:       order.ModeSpot,
		EntryPrice: 100,
		Quantity:   decimal.NewFromInt(1),
		TakeProfit: 100.5,
		StopLoss:   99.5,
		Signal:     patterns.SignalBuy,
		Pattern:    patterns.Hammer,
		Status:     position.StatusOpen,
		OpenedAt:   time.Now().Add(-time.Hour).UTC(),
	}
	orphan := restored
	orphan.ID = "01HZX0000000000000000000CD"
	orphan.Symbol = "BNBUSDT"

	store := &memoryStore{open: []position.Position{restored, orphan}}
	h := newHarness(t, []string{"ETHUSDT", "BNBUSDT", "XRPUSDT"}, store)
	h.market.set("ETHUSDT", bullishSeries, sequence(100.7))
	ctx := context.Background()

	for _, s := range []string{"ETHUSDT", "XRPUSDT"} {
		ok, err := h.guard.TryAcquire(ctx, s)
		require.NoError(t, err)
		require.True(t, ok)
	}

	h.ctrl.Recover(ctx)
	h.ctrl.Wait()

	entries := h.ledger.all()
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.ActionExit, entries[0].Action)
	assert.Equal(t, "ETHUSDT", entries[0].Symbol)
	assert.Equal(t, string(position.StatusClosedTP), entries[0].Result)
	assert.False(t, h.locked(t, "ETHUSDT"))

	halted := h.ctrl.Status().Halted
	assert.Contains(t, halted, "BNBUSDT")
	assert.Contains(t, halted, "XRPUSDT")
	assert.NotContains(t, halted, "ETHUSDT")
}

func TestShutdownWaitsForMonitors(t *testing.T) {
	h := newHarness(t, []string{"DOGEUSDT"}, nil)
	var exit atomic.Bool
	h.market.set("DOGEUSDT", bullishSeries, gated(&exit))

	h.ctrl.Tick(context.Background())

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := h.ctrl.Shutdown(short)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, h.notifier.contains("Shutting down with 1 open position"))

	exit.Store(true)
	require.NoError(t, h.ctrl.Shutdown(context.Background()))
	assert.Len(t, h.ledger.all(), 2)
}

func TestCancelledTickDoesNotStopMonitor(t *testing.T) {
	h := newHarness(t, []string{"DOGEUSDT"}, nil)
	var exit atomic.Bool
	h.market.set("DOGEUSDT", bullishSeries, gated(&exit))

	ctx, cancel := context.WithCancel(context.Background())
	h.ctrl.Tick(ctx)
	cancel()

	time.Sleep(20 * time.Millisecond)
	assert.True(t, h.book.HasOpen("DOGEUSDT"))

	exit.Store(true)
	h.ctrl.Wait()
	entries := h.ledger.all()
	require.Len(t, entries, 2)
	assert.Equal(t, string(position.StatusClosedTP), entries[1].Result)
}

func TestRunTicksUntilCancelled(t *testing.T) {
	h := newHarness(t, []string{"DOGEUSDT"}, nil)
	h.market.set("DOGEUSDT", quietSeries, sequence(100))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.ctrl.Run(ctx) }()

	require.Eventually(t, func() bool { return h.ctrl.Status().Ticks >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, h.notifier.contains("Bot started for [DOGEUSDT]"))
	assert.False(t, h.ctrl.Status().LastTick.IsZero())
}

func TestExitRecordPricing(t *testing.T) {
	trigger, fill := 101.0, 100.9
	closedAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	pos := position.Position{
		ID:        "p1",
		Symbol:    "DOGEUSDT",
		Side:      order.SideSell,
		Quantity:  decimal.NewFromInt(3),
		Status:    position.StatusClosedSL,
		ClosedAt:  &closedAt,
		ExitPrice: &trigger,
	}

	rec := exitRecord(pos)
	assert.Equal(t, 101.0, rec.Price)
	assert.Equal(t, "BUY", rec.Side)
	assert.Equal(t, closedAt, rec.Timestamp)

	pos.ExitFillPrice = &fill
	assert.Equal(t, 100.9, exitRecord(pos).Price)
}

// ctxLedger fails like the SQL ledgers do once ctx is done.
type ctxLedger struct {
	memoryLedger
}

func (l *ctxLedger) Append(ctx context.Context, e ledger.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.memoryLedger.Append(ctx, e)
}

// ctxGuard fails like the Redis guard does once ctx is done.
// When hold is set, Release blocks until it is closed.
type ctxGuard struct {
	*position.MemoryGuard
	hold chan struct{}
}

func (g *ctxGuard) TryAcquire(ctx context.Context, symbol string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return g.MemoryGuard.TryAcquire(ctx, symbol)
}

func (g *ctxGuard) Release(ctx context.Context, symbol string) error {
	if g.hold != nil {
		<-g.hold
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.MemoryGuard.Release(ctx, symbol)
}

// cancellingGateway cancels the tick's context while the entry order is in flight.
type cancellingGateway struct {
	*fakeGateway
	cancel context.CancelFunc
}

func (g *cancellingGateway) Place(ctx context.Context, req order.Request) (order.Fill, error) {
	if purpose, _ := order.PurposeOf(req.ClientOrderID); purpose == order.PurposeEntry {
		g.cancel()
	}
	return g.fakeGateway.Place(ctx, req)
}

func newStrictController(h *harness, guard position.Guard, led ledger.Ledger, gw order.Gateway) *Controller {
	mon := monitor.New(h.market, gw, monitor.Config{
		PollInterval:    5 * time.Millisecond,
		CloseAttempts:   2,
		CloseRetryDelay: time.Millisecond,
	}, zerolog.Nop())
	return New(Config{
		Symbols:           []string{"DOGEUSDT"},
		Notional:          10,
		TakeProfitPct:     0.5,
		StopLossPct:       0.5,
		ReleaseRetryDelay: time.Millisecond,
	}, Dependencies{
		Market:   h.market,
		Gateway:  gw,
		Guard:    guard,
		Book:     h.book,
		Monitor:  mon,
		Ledger:   led,
		Notifier: h.notifier,
	}, zerolog.Nop())
}

func TestShutdownDuringFilledEntryKeepsBothRecords(t *testing.T) {
	h := newHarness(t, []string{"DOGEUSDT"}, nil)
	h.market.set("DOGEUSDT", bullishSeries, sequence(100, 100.6))

	ctx, cancel := context.WithCancel(context.Background())
	guard := &ctxGuard{MemoryGuard: position.NewMemoryGuard()}
	led := &ctxLedger{}
	ctrl := newStrictController(h, guard, led, &cancellingGateway{fakeGateway: h.gateway, cancel: cancel})

	ctrl.Tick(ctx)
	ctrl.Wait()

	require.Error(t, ctx.Err())
	entries := led.all()
	require.Len(t, entries, 2)
	assert.Equal(t, ledger.ActionEntry, entries[0].Action)
	assert.Equal(t, ledger.ActionExit, entries[1].Action)

	locked, err := guard.IsLocked(context.Background(), "DOGEUSDT")
	require.NoError(t, err)
	assert.False(t, locked)
	assert.Empty(t, ctrl.Status().Halted)
}

func TestShutdownDuringFailedEntryReleasesLock(t *testing.T) {
	h := newHarness(t, []string{"DOGEUSDT"}, nil)
	h.gateway.failEntry = true
	h.market.set("DOGEUSDT", bullishSeries, sequence(100))

	ctx, cancel := context.WithCancel(context.Background())
	guard := &ctxGuard{MemoryGuard: position.NewMemoryGuard()}
	ctrl := newStrictController(h, guard, &ctxLedger{}, &cancellingGateway{fakeGateway: h.gateway, cancel: cancel})

	ctrl.Tick(ctx)

	locked, err := guard.IsLocked(context.Background(), "DOGEUSDT")
	require.NoError(t, err)
	assert.False(t, locked)
	assert.Empty(t, ctrl.Status().Halted)
	assert.Empty(t, ctrl.Status().Pending)
}

func TestCancelledTickTakesNoLock(t *testing.T) {
	h := newHarness(t, []string{"DOGEUSDT"}, nil)
	h.market.set("DOGEUSDT", bullishSeries, sequence(100))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.ctrl.evaluate(ctx, "DOGEUSDT")

	assert.Empty(t, h.gateway.placed())
	assert.False(t, h.locked(t, "DOGEUSDT"))
}

func TestSlowReleaseDoesNotBlockOtherSymbols(t *testing.T) {
	h := newHarness(t, []string{"DOGEUSDT"}, nil)
	h.market.set("DOGEUSDT", bullishSeries, sequence(100, 100.6))

	guard := &ctxGuard{MemoryGuard: position.NewMemoryGuard(), hold: make(chan struct{})}
	led := &ctxLedger{}
	ctrl := newStrictController(h, guard, led, h.gateway)

	ctrl.Tick(context.Background())

	// settle is now parked in Release; the controller must stay responsive
	require.Eventually(t, func() bool {
		done := make(chan Status, 1)
		go func() { done <- ctrl.Status() }()
		select {
		case st := <-done:
			return len(st.Pending) == 1 && len(led.all()) == 2
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, time.Second, 5*time.Millisecond)

	// a tick while the release is parked sees the symbol as busy, not inconsistent
	ctrl.Tick(context.Background())
	assert.Equal(t, 1, h.gateway.countPurpose(order.PurposeEntry))
	assert.ErrorIs(t, ctrl.ReleaseLock(context.Background(), "DOGEUSDT"), ErrEntryInFlight)

	close(guard.hold)
	ctrl.Wait()

	assert.Empty(t, ctrl.Status().Pending)
	assert.Empty(t, ctrl.Status().Halted)
	locked, err := guard.IsLocked(context.Background(), "DOGEUSDT")
	require.NoError(t, err)
	assert.False(t, locked)
}
