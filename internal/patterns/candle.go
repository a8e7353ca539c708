package patterns

// Candle is the OHLC summary of one closed kline interval.
type Candle struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Body returns the absolute distance between open and close.
func (c Candle) Body() float64 {
	return abs(c.Close - c.Open)
}

// IsBullish reports whether the candle closed above its open.
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports whether the candle closed below its open.
func (c Candle) IsBearish() bool {
	return c.Close < c.Open
}

// LowerWick is the distance from the lower end of the body to the low.
func (c Candle) LowerWick() float64 {
	if c.Open < c.Close {
		return c.Open - c.Low
	}
	return c.Close - c.Low
}

// UpperWick is the distance from the upper end of the body to the high.
func (c Candle) UpperWick() float64 {
	if c.Open < c.Close {
		return c.High - c.Close
	}
	return c.High - c.Open
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
