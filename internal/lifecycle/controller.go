// Package lifecycle runs the trading loop: detect a signal, size and place the
// entry, hold the symbol's lock while the exit monitor runs, then settle.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"binance-pattern-trader/internal/ledger"
	"binance-pattern-trader/internal/monitor"
	"binance-pattern-trader/internal/notification"
	"binance-pattern-trader/internal/order"
	"binance-pattern-trader/internal/patterns"
	"binance-pattern-trader/internal/position"
	"binance-pattern-trader/internal/sizing"
)

// Defaults applied by New when a Config field is zero
const (
	DefaultCandleInterval    = "5m"
	DefaultCandleLimit       = 10
	DefaultTickInterval      = 60 * time.Second
	DefaultReleaseAttempts   = 3
	DefaultReleaseRetryDelay = 500 * time.Millisecond
)

var (
	ErrNotHalted     = errors.New("symbol is not halted")
	ErrPositionOpen  = errors.New("symbol has an open position")
	ErrEntryInFlight = errors.New("entry order in flight")
	ErrUnknownSymbol = errors.New("symbol is not configured")
)

// MarketData supplies candles, prices and lot sizes
type MarketData interface {
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]patterns.Candle, error)
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
	LotSize(ctx context.Context, symbol string) (sizing.LotSize, error)
}

// Notifier sends operator messages without blocking
type Notifier interface {
	Notify(kind notification.NotificationType, text string)
}

// ExitMonitor drives one position to a terminal state
type ExitMonitor interface {
	Run(ctx context.Context, pos position.Position) monitor.Result
}

// Config controls the trading loop
type Config struct {
	Symbols        []string
	Notional       float64
	TakeProfitPct  float64
	StopLossPct    float64
	CandleInterval string
	CandleLimit    int
	TickInterval   time.Duration
	// Parallel evaluates symbols concurrently within a tick.
	Parallel          bool
	ReleaseAttempts   int
	ReleaseRetryDelay time.Duration
	// Label is shown in notifications, e.g. "testnet" or "production".
	Label string
}

// Dependencies are the collaborators a Controller drives
type Dependencies struct {
	Market   MarketData
	Detector *patterns.Detector
	Gateway  order.Gateway
	Guard    position.Guard
	Book     *position.Book
	Monitor  ExitMonitor
	Ledger   ledger.Ledger
	Notifier Notifier
	Hooks    Hooks
}

// Controller orchestrates entries, monitors and settlement.
// stateMu serialises compound guard and book transitions so a consistency
// check never observes a half-settled symbol.
type Controller struct {
	cfg      Config
	market   MarketData
	detector *patterns.Detector
	gateway  order.Gateway
	guard    position.Guard
	book     *position.Book
	monitor  ExitMonitor
	ledger   ledger.Ledger
	notifier Notifier
	hooks    Hooks
	logger   zerolog.Logger

	stateMu sync.Mutex
	pending map[string]bool
	halted  map[string]string

	statsMu  sync.RWMutex
	lastTick time.Time
	ticks    int64

	wg sync.WaitGroup
}

// New creates a controller. Zero Config fields take package defaults.
func New(cfg Config, deps Dependencies, logger zerolog.Logger) *Controller {
	if cfg.CandleInterval == "" {
		cfg.CandleInterval = DefaultCandleInterval
	}
	if cfg.CandleLimit < 3 {
		cfg.CandleLimit = DefaultCandleLimit
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.ReleaseAttempts <= 0 {
		cfg.ReleaseAttempts = DefaultReleaseAttempts
	}
	if cfg.ReleaseRetryDelay < 0 {
		cfg.ReleaseRetryDelay = 0
	}
	if deps.Detector == nil {
		deps.Detector = patterns.NewDetector(patterns.Config{})
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Hooks == nil {
		deps.Hooks = nopHooks{}
	}
	if deps.Book == nil {
		deps.Book = position.NewBook(nil, logger)
	}

	return &Controller{
		cfg:      cfg,
		market:   deps.Market,
		detector: deps.Detector,
		gateway:  deps.Gateway,
		guard:    deps.Guard,
		book:     deps.Book,
		monitor:  deps.Monitor,
		ledger:   deps.Ledger,
		notifier: deps.Notifier,
		hooks:    deps.Hooks,
		logger:   logger.With().Str("component", "Lifecycle").Logger(),
		pending:  make(map[string]bool),
		halted:   make(map[string]string),
	}
}

// Run recovers persisted positions, ticks immediately and then every TickInterval until ctx is done.
// Monitors keep running after Run returns; call Shutdown to wait for them.
func (c *Controller) Run(ctx context.Context) error {
	c.Recover(ctx)

	c.logger.Info().
		Strs("symbols", c.cfg.Symbols).
		Str("mode", string(c.gateway.Mode())).
		Dur("interval", c.cfg.TickInterval).
		Msg("Trading loop started")
	c.notifier.Notify(notification.NotifyInfo, fmt.Sprintf("✅ Bot started for %v | mode: %s %s", c.cfg.Symbols, c.gateway.Mode(), c.cfg.Label))

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	c.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Trading loop stopped")
			return nil
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Tick evaluates every configured symbol once. Per-symbol errors never abort the tick.
func (c *Controller) Tick(ctx context.Context) {
	start := time.Now()

	if c.cfg.Parallel {
		var wg sync.WaitGroup
		for _, symbol := range c.cfg.Symbols {
			wg.Add(1)
			go func(symbol string) {
				defer wg.Done()
				c.evaluate(ctx, symbol)
			}(symbol)
		}
		wg.Wait()
	} else {
		for _, symbol := range c.cfg.Symbols {
			if ctx.Err() != nil {
				break
			}
			c.evaluate(ctx, symbol)
		}
	}

	c.statsMu.Lock()
	c.lastTick = start
	c.ticks++
	c.statsMu.Unlock()
	c.hooks.TickDone(time.Since(start))
}

// Wait blocks until every running monitor has settled.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Shutdown waits for running monitors to settle until ctx expires.
// Monitors are not cancelled; positions still open at the deadline are reported.
func (c *Controller) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info().Msg("All monitors settled")
		return nil
	case <-ctx.Done():
		open := c.book.OpenPositions()
		symbols := make([]string, len(open))
		for i, p := range open {
			symbols[i] = p.Symbol
		}
		c.logger.Warn().Strs("symbols", symbols).Msg("Shutdown deadline reached with positions still monitored")
		c.notifier.Notify(notification.NotifyError, fmt.Sprintf("⚠️ Shutting down with %d open position(s): %v", len(open), symbols))
		return fmt.Errorf("shutdown: %d position(s) still open: %w", len(open), ctx.Err())
	}
}

// evaluate runs one symbol through detect, size, enter.
func (c *Controller) evaluate(ctx context.Context, symbol string) {
	log := c.logger.With().Str("symbol", symbol).Logger()

	if reason, halted := c.haltReason(symbol); halted {
		log.Debug().Str("reason", reason).Msg("Symbol halted, skipping")
		return
	}

	busy, err := c.checkState(ctx, symbol)
	if err != nil {
		var lockErr *position.LockInconsistencyError
		if errors.As(err, &lockErr) {
			c.halt(symbol, err)
			return
		}
		c.report(log, symbol, "lock check failed", err)
		return
	}
	if busy {
		log.Debug().Msg("Position open, skipping")
		return
	}

	candles, err := c.market.GetCandles(ctx, symbol, c.cfg.CandleInterval, c.cfg.CandleLimit)
	if err != nil {
		c.report(log, symbol, "fetching candles failed", err)
		return
	}
	detection, err := c.detector.DetectSeries(candles)
	if err != nil {
		c.report(log, symbol, "pattern detection failed", err)
		return
	}
	c.hooks.Signal(symbol, detection.Signal)

	if !detection.Signal.Actionable() {
		if detection.Signal == patterns.SignalNeutral {
			log.Info().Str("pattern", string(detection.Pattern)).Msg("Neutral pattern, no trade")
			c.notifier.Notify(notification.NotifySignal, fmt.Sprintf("⚪ %s: %s, no trade", symbol, detection.Pattern))
		} else {
			log.Debug().Msg("No pattern")
		}
		return
	}

	price, err := c.market.CurrentPrice(ctx, symbol)
	if err != nil {
		c.report(log, symbol, "price query failed", err)
		return
	}
	lot, err := c.market.LotSize(ctx, symbol)
	if err != nil {
		c.report(log, symbol, "lot size query failed", err)
		return
	}
	qty, err := sizing.Quantity(c.cfg.Notional, price, lot)
	if err != nil {
		if errors.Is(err, sizing.ErrBelowMinimumNotional) {
			log.Warn().Err(err).Float64("notional", c.cfg.Notional).Float64("price", price).Msg("Order below minimum notional, skipping")
			c.notifier.Notify(notification.NotifyInfo, fmt.Sprintf("⚠️ %s: order value below exchange minimum, skipped (%v)", symbol, err))
			return
		}
		c.report(log, symbol, "sizing failed", err)
		return
	}

	if !c.reserve(ctx, symbol, log) {
		return
	}
	// The lock is held from here on; shutdown must not strand it or drop the entry record.
	ctx = context.WithoutCancel(ctx)

	side := sideFor(detection.Signal)
	req := order.Request{
		Symbol:        symbol,
		Side:          side,
		Quantity:      qty,
		ClientOrderID: order.NewClientOrderID(order.PurposeEntry),
	}
	log.Info().
		Str("side", string(side)).
		Str("pattern", string(detection.Pattern)).
		Str("quantity", qty.String()).
		Float64("quote", price).
		Msg("Placing entry order")

	fill, err := c.gateway.Place(ctx, req)
	if err != nil {
		c.unreserve(ctx, symbol)
		c.hooks.OrderFailed(c.gateway.Mode(), order.PurposeEntry)
		c.report(log, symbol, "entry order failed", err)
		return
	}
	c.hooks.OrderFilled(fill, order.PurposeEntry)

	c.open(ctx, symbol, detection, fill, log)
}

// checkState reports whether symbol is busy, or a *position.LockInconsistencyError.
func (c *Controller) checkState(ctx context.Context, symbol string) (bool, error) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if c.pending[symbol] {
		return true, nil
	}
	return position.Verify(ctx, c.guard, c.book, symbol)
}

// reserve takes the symbol's lock ahead of the entry order.
func (c *Controller) reserve(ctx context.Context, symbol string, log zerolog.Logger) bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if c.pending[symbol] || ctx.Err() != nil {
		return false
	}
	ok, err := c.guard.TryAcquire(context.WithoutCancel(ctx), symbol)
	if err != nil {
		c.report(log, symbol, "lock acquire failed", err)
		return false
	}
	if !ok {
		log.Debug().Msg("Lock already held, skipping")
		return false
	}
	c.pending[symbol] = true
	return true
}

// unreserve drops a reservation whose entry order failed.
// The symbol stays pending until the release finishes.
func (c *Controller) unreserve(ctx context.Context, symbol string) {
	err := c.release(ctx, symbol)

	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	delete(c.pending, symbol)
	if err != nil {
		c.haltLocked(symbol, fmt.Errorf("lock stuck after failed entry: %w", err))
	}
}

func (c *Controller) open(ctx context.Context, symbol string, detection patterns.Detection, fill order.Fill, log zerolog.Logger) {
	tp, sl := position.Levels(fill.Side, fill.Price, c.cfg.TakeProfitPct, c.cfg.StopLossPct)
	pos := position.Position{
		ID:           newPositionID(),
		Symbol:       symbol,
		Side:         fill.Side,
		Mode:         fill.Mode,
		EntryPrice:   fill.Price,
		Quantity:     fill.Quantity,
		TakeProfit:   tp,
		StopLoss:     sl,
		Signal:       detection.Signal,
		Pattern:      detection.Pattern,
		Status:       position.StatusOpen,
		OpenedAt:     time.Now().UTC(),
		EntryOrderID: fill.OrderID,
	}

	c.stateMu.Lock()
	err := c.book.Open(ctx, pos)
	delete(c.pending, symbol)
	if err != nil {
		c.haltLocked(symbol, fmt.Errorf("filled entry %d could not be recorded: %w", fill.OrderID, err))
	}
	c.stateMu.Unlock()
	if err != nil {
		return
	}

	if err := c.ledger.Append(ctx, entryRecord(pos)); err != nil {
		c.report(log, symbol, "ledger entry write failed", err)
	}

	log.Info().
		Str("position_id", pos.ID).
		Str("side", string(pos.Side)).
		Float64("entry", pos.EntryPrice).
		Float64("take_profit", tp).
		Float64("stop_loss", sl).
		Msg("Position opened")
	c.notifier.Notify(notification.NotifyTradeOpen, fmt.Sprintf("📈 ENTRY %s %s %s @ %s | TP %s | SL %s | %s",
		pos.Side, pos.Quantity, symbol, fmtPrice(pos.EntryPrice), fmtPrice(tp), fmtPrice(sl), pos.Pattern))
	c.hooks.PositionOpened(pos)

	c.startMonitor(ctx, pos)
}

// startMonitor runs the exit monitor detached from ctx's cancellation.
func (c *Controller) startMonitor(ctx context.Context, pos position.Position) {
	monitorCtx := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res := c.monitor.Run(monitorCtx, pos)
		c.settle(monitorCtx, res)
	}()
}

// settle writes the exit record and releases the lock whatever the outcome.
func (c *Controller) settle(ctx context.Context, res monitor.Result) {
	pos := res.Position
	log := c.logger.With().Str("symbol", pos.Symbol).Str("position_id", pos.ID).Logger()

	if !pos.Status.Terminal() {
		log.Error().Str("status", string(pos.Status)).Msg("Monitor returned a non-terminal position, settling as error")
		pos.Status = position.StatusClosedError
	}

	if err := c.ledger.Append(ctx, exitRecord(pos)); err != nil {
		c.report(log, pos.Symbol, "ledger exit write failed", err)
	}

	// Pending covers the gap between closing the record and releasing the lock.
	c.stateMu.Lock()
	if err := c.book.Close(ctx, pos); err != nil {
		log.Error().Err(err).Msg("Closing position record failed")
	}
	c.pending[pos.Symbol] = true
	c.stateMu.Unlock()

	releaseErr := c.release(ctx, pos.Symbol)

	c.stateMu.Lock()
	delete(c.pending, pos.Symbol)
	if releaseErr != nil {
		c.haltLocked(pos.Symbol, fmt.Errorf("lock stuck after exit: %w", releaseErr))
	}
	c.stateMu.Unlock()

	c.hooks.PositionClosed(pos)
	if res.Exit != nil {
		c.hooks.OrderFilled(*res.Exit, order.PurposeExit)
	}

	event := log.Info()
	if res.Err != nil {
		event = log.Error().Err(res.Err)
	}
	event.Str("status", string(pos.Status)).Msg("Position settled")
	kind := notification.NotifyTradeClose
	if pos.Status == position.StatusClosedError {
		kind = notification.NotifyError
	}
	c.notifier.Notify(kind, exitMessage(pos, res.Err))
}

// release clears the lock, retrying transient guard failures.
// Callers mark the symbol pending and must not hold stateMu.
func (c *Controller) release(ctx context.Context, symbol string) error {
	var err error
	for attempt := 1; attempt <= c.cfg.ReleaseAttempts; attempt++ {
		if err = c.guard.Release(ctx, symbol); err == nil {
			return nil
		}
		c.logger.Warn().Err(err).Str("symbol", symbol).Int("attempt", attempt).Msg("Lock release failed")
		if attempt < c.cfg.ReleaseAttempts && !wait(ctx, c.cfg.ReleaseRetryDelay) {
			break
		}
	}
	return err
}

// wait sleeps d unless ctx ends first.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// report logs and notifies a per-symbol error.
func (c *Controller) report(log zerolog.Logger, symbol, what string, err error) {
	log.Error().Err(err).Msg(what)
	c.notifier.Notify(notification.NotifyError, fmt.Sprintf("❌ %s: %s: %v", symbol, what, err))
}

func (c *Controller) haltReason(symbol string) (string, bool) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	reason, ok := c.halted[symbol]
	return reason, ok
}

func (c *Controller) halt(symbol string, err error) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.haltLocked(symbol, err)
}

// haltLocked stops trading a symbol until an operator resumes it. Caller holds stateMu.
func (c *Controller) haltLocked(symbol string, err error) {
	if _, already := c.halted[symbol]; already {
		return
	}
	c.halted[symbol] = err.Error()
	c.hooks.Halted(len(c.halted))
	c.logger.Error().Err(err).Str("symbol", symbol).Msg("Trading halted, manual intervention required")
	c.notifier.Notify(notification.NotifyError, fmt.Sprintf("🛑 %s halted: %v. Manual intervention required.", symbol, err))
}

// Resume clears a halt once the lock and record agree again.
func (c *Controller) Resume(ctx context.Context, symbol string) error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if _, ok := c.halted[symbol]; !ok {
		return fmt.Errorf("%w: %s", ErrNotHalted, symbol)
	}
	if _, err := position.Verify(ctx, c.guard, c.book, symbol); err != nil {
		return err
	}
	delete(c.halted, symbol)
	c.hooks.Halted(len(c.halted))
	c.logger.Info().Str("symbol", symbol).Msg("Trading resumed")
	c.notifier.Notify(notification.NotifyInfo, fmt.Sprintf("▶️ %s resumed", symbol))
	return nil
}

// ReleaseLock force-clears a symbol's lock. It refuses while a position or entry is in flight.
func (c *Controller) ReleaseLock(ctx context.Context, symbol string) error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if c.pending[symbol] {
		return fmt.Errorf("%w: %s", ErrEntryInFlight, symbol)
	}
	if c.book.HasOpen(symbol) {
		return fmt.Errorf("%w: %s", ErrPositionOpen, symbol)
	}
	if err := c.guard.Release(ctx, symbol); err != nil {
		return err
	}
	c.logger.Warn().Str("symbol", symbol).Msg("Lock released by operator")
	return nil
}

// Recover re-arms monitors for persisted open positions whose lock is still held.
// Records without a lock, and locks without a record, halt their symbol.
func (c *Controller) Recover(ctx context.Context) {
	restored, err := c.book.Restore(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Restoring open positions failed")
		c.notifier.Notify(notification.NotifyError, fmt.Sprintf("❌ restoring open positions failed: %v", err))
	}

	seen := make(map[string]bool)
	for _, pos := range restored {
		seen[pos.Symbol] = true
		locked, err := c.guard.IsLocked(ctx, pos.Symbol)
		if err != nil {
			c.halt(pos.Symbol, fmt.Errorf("lock check for restored position failed: %w", err))
			continue
		}
		if !locked {
			c.halt(pos.Symbol, &position.LockInconsistencyError{Symbol: pos.Symbol, HasRecord: true})
			continue
		}
		c.logger.Info().Str("symbol", pos.Symbol).Str("position_id", pos.ID).Msg("Resuming monitor for restored position")
		c.notifier.Notify(notification.NotifyInfo, fmt.Sprintf("🔁 Resuming %s %s position opened at %s", pos.Side, pos.Symbol, fmtPrice(pos.EntryPrice)))
		c.hooks.PositionOpened(pos)
		c.startMonitor(ctx, pos)
	}

	for _, symbol := range c.cfg.Symbols {
		if seen[symbol] {
			continue
		}
		c.stateMu.Lock()
		_, err := position.Verify(ctx, c.guard, c.book, symbol)
		c.stateMu.Unlock()
		var lockErr *position.LockInconsistencyError
		if errors.As(err, &lockErr) {
			c.halt(symbol, err)
		}
	}
}

// Status is a point-in-time view of the controller
type Status struct {
	Mode          order.Mode          `json:"mode"`
	Symbols       []string            `json:"symbols"`
	OpenPositions []position.Position `json:"open_positions"`
	Halted        map[string]string   `json:"halted"`
	Pending       []string            `json:"pending"`
	LastTick      time.Time           `json:"last_tick"`
	Ticks         int64               `json:"ticks"`
}

func (c *Controller) Status() Status {
	c.stateMu.Lock()
	halted := make(map[string]string, len(c.halted))
	for k, v := range c.halted {
		halted[k] = v
	}
	pending := make([]string, 0, len(c.pending))
	for k := range c.pending {
		pending = append(pending, k)
	}
	c.stateMu.Unlock()
	sort.Strings(pending)

	c.statsMu.RLock()
	lastTick, ticks := c.lastTick, c.ticks
	c.statsMu.RUnlock()

	return Status{
		Mode:          c.gateway.Mode(),
		Symbols:       c.cfg.Symbols,
		OpenPositions: c.book.OpenPositions(),
		Halted:        halted,
		Pending:       pending,
		LastTick:      lastTick,
		Ticks:         ticks,
	}
}

// Positions returns open and recently closed positions.
func (c *Controller) Positions() (open, closed []position.Position) {
	return c.book.OpenPositions(), c.book.ClosedPositions()
}

// IsConfigured reports whether symbol is traded by this controller.
func (c *Controller) IsConfigured(symbol string) bool {
	for _, s := range c.cfg.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

type nopNotifier struct{}

func (nopNotifier) Notify(notification.NotificationType, string) {}
