package lifecycle

import (
	"fmt"
	"strconv"
	"time"

	"binance-pattern-trader/internal/id"
	"binance-pattern-trader/internal/ledger"
	"binance-pattern-trader/internal/order"
	"binance-pattern-trader/internal/patterns"
	"binance-pattern-trader/internal/position"
)

func newPositionID() string {
	return id.New()
}

func sideFor(signal patterns.Signal) order.Side {
	if signal == patterns.SignalSell {
		return order.SideSell
	}
	return order.SideBuy
}

func entryRecord(pos position.Position) ledger.Entry {
	return ledger.Entry{
		Timestamp:  pos.OpenedAt,
		Action:     ledger.ActionEntry,
		Symbol:     pos.Symbol,
		Side:       string(pos.Side),
		Price:      pos.EntryPrice,
		Quantity:   pos.Quantity,
		Signal:     string(pos.Signal),
		Pattern:    string(pos.Pattern),
		PositionID: pos.ID,
	}
}

// exitRecord prices the exit at the closing fill when one exists, else the trigger price.
func exitRecord(pos position.Position) ledger.Entry {
	ts := time.Now().UTC()
	if pos.ClosedAt != nil {
		ts = *pos.ClosedAt
	}
	var price float64
	switch {
	case pos.ExitFillPrice != nil:
		price = *pos.ExitFillPrice
	case pos.ExitPrice != nil:
		price = *pos.ExitPrice
	}
	return ledger.Entry{
		Timestamp:  ts,
		Action:     ledger.ActionExit,
		Symbol:     pos.Symbol,
		Side:       string(pos.Side.Opposite()),
		Price:      price,
		Quantity:   pos.Quantity,
		Signal:     string(pos.Signal),
		Pattern:    string(pos.Pattern),
		Result:     string(pos.Status),
		PositionID: pos.ID,
	}
}

func exitMessage(pos position.Position, err error) string {
	var exit string
	if e := exitRecord(pos).Price; e > 0 {
		exit = fmtPrice(e)
	} else {
		exit = "n/a"
	}

	switch pos.Status {
	case position.StatusClosedTP:
		return fmt.Sprintf("💰 TAKE PROFIT %s @ %s (entry %s)%s", pos.Symbol, exit, fmtPrice(pos.EntryPrice), pnlSuffix(pos))
	case position.StatusClosedSL:
		return fmt.Sprintf("🛑 STOP LOSS %s @ %s (entry %s)%s", pos.Symbol, exit, fmtPrice(pos.EntryPrice), pnlSuffix(pos))
	}
	return fmt.Sprintf("❌ %s closed with error @ %s: %v. Lock released, check the exchange position.", pos.Symbol, exit, err)
}

func pnlSuffix(pos position.Position) string {
	pnl, ok := pos.PnL()
	if !ok {
		return ""
	}
	return fmt.Sprintf(" | PnL %s", strconv.FormatFloat(pnl, 'f', 4, 64))
}

func fmtPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
