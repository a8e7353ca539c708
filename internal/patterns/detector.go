package patterns

import (
	"errors"
	"fmt"
)

// Signal is the trading direction derived from a candle pair
type Signal string

const (
	SignalNone    Signal = "NONE"
	SignalBuy     Signal = "BUY"
	SignalSell    Signal = "SELL"
	SignalNeutral Signal = "NEUTRAL"
)

// Actionable reports whether the signal should lead to an order.
func (s Signal) Actionable() bool {
	return s == SignalBuy || s == SignalSell
}

// PatternType names the rule that produced a signal
type PatternType string

const (
	PatternNone      PatternType = ""
	Hammer           PatternType = "hammer"
	BullishEngulfing PatternType = "bullish_engulfing"
	BearishEngulfing PatternType = "bearish_engulfing"
	Doji             PatternType = "doji"
)

// DefaultDojiThreshold is the absolute body size at or below which a candle is a doji.
const DefaultDojiThreshold = 0.001

// ErrNotEnoughCandles is returned when a series has no closed pair to evaluate.
var ErrNotEnoughCandles = errors.New("at least 3 candles are required")

// Detection is the outcome of evaluating one candle pair
type Detection struct {
	Signal  Signal
	Pattern PatternType
}

// Config controls doji classification.
// With Relative set, DojiThreshold is a fraction of the last candle's open price.
type Config struct {
	DojiThreshold float64
	Relative      bool
}

// Detector classifies the last two closed candles.
// It holds no state between calls.
type Detector struct {
	dojiThreshold float64
	relative      bool
}

// NewDetector creates a detector, falling back to DefaultDojiThreshold for non-positive thresholds.
func NewDetector(cfg Config) *Detector {
	threshold := cfg.DojiThreshold
	if threshold <= 0 {
		threshold = DefaultDojiThreshold
	}
	return &Detector{
		dojiThreshold: threshold,
		relative:      cfg.Relative,
	}
}

// Detect evaluates prev (candle N-1) and last (candle N).
// Rules are checked in order and the first match wins.
func (d *Detector) Detect(prev, last Candle) Detection {
	switch {
	case d.isHammer(last):
		return Detection{Signal: SignalBuy, Pattern: Hammer}
	case d.isBullishEngulfing(prev, last):
		return Detection{Signal: SignalBuy, Pattern: BullishEngulfing}
	case d.isBearishEngulfing(prev, last):
		return Detection{Signal: SignalSell, Pattern: BearishEngulfing}
	case d.isDoji(last):
		return Detection{Signal: SignalNeutral, Pattern: Doji}
	}
	return Detection{Signal: SignalNone, Pattern: PatternNone}
}

// DetectSeries picks the closed pair out of an oldest-first kline series.
// The newest element is the still-forming candle and is ignored.
func (d *Detector) DetectSeries(candles []Candle) (Detection, error) {
	n := len(candles)
	if n < 3 {
		return Detection{Signal: SignalNone}, fmt.Errorf("%w: got %d", ErrNotEnoughCandles, n)
	}
	return d.Detect(candles[n-3], candles[n-2]), nil
}

func (d *Detector) isHammer(c Candle) bool {
	body := c.Body()
	return c.LowerWick() > 2*body && c.UpperWick() < body
}

func (d *Detector) isBullishEngulfing(prev, c Candle) bool {
	return prev.IsBearish() &&
		c.IsBullish() &&
		c.Close > prev.Open &&
		c.Open < prev.Close
}

func (d *Detector) isBearishEngulfing(prev, c Candle) bool {
	return prev.IsBullish() &&
		c.IsBearish() &&
		c.Open > prev.Close &&
		c.Close < prev.Open
}

func (d *Detector) isDoji(c Candle) bool {
	threshold := d.dojiThreshold
	if d.relative {
		threshold = d.dojiThreshold * c.Open
	}
	return c.Body() <= threshold
}
