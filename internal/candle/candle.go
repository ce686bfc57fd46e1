// Package candle defines the immutable OHLCV record that flows from every
// adapter, through the data processor, into a feed's store.
package candle

import "fmt"

// Candle is a fixed-duration summary of price and volume for one interval.
// OpenTime is the UTC second the interval begins and is the sole identity
// of the record: two candles are equal iff their OpenTime values match.
type Candle struct {
	OpenTime      int64
	Open          float64
	High          float64
	Low           float64
	Close         float64
	Volume        float64
	QuoteVolume   float64
	NTrades       int64
	TakerBuyBase  float64
	TakerBuyQuote float64

	// HasQuoteVolume etc. distinguish "zero" from "not carried by the venue".
	HasQuoteVolume   bool
	HasNTrades       bool
	HasTakerBuyBase  bool
	HasTakerBuyQuote bool
}

// Equal reports whether two candles share the same identity (OpenTime).
func (c Candle) Equal(other Candle) bool {
	return c.OpenTime == other.OpenTime
}

// Validate checks the OHLCV invariants from the data model: low is the
// floor of every price in the candle, high is the ceiling, and volume is
// never negative.
func (c Candle) Validate() error {
	minOC := c.Open
	if c.Close < minOC {
		minOC = c.Close
	}
	maxOC := c.Open
	if c.Close > maxOC {
		maxOC = c.Close
	}
	if c.Low > minOC {
		return fmt.Errorf("candle %d: low %.8f exceeds min(open,close) %.8f", c.OpenTime, c.Low, minOC)
	}
	if c.Low > c.High {
		return fmt.Errorf("candle %d: low %.8f exceeds high %.8f", c.OpenTime, c.Low, c.High)
	}
	if c.High < maxOC {
		return fmt.Errorf("candle %d: high %.8f is below max(open,close) %.8f", c.OpenTime, c.High, maxOC)
	}
	if c.Volume < 0 {
		return fmt.Errorf("candle %d: volume %.8f is negative", c.OpenTime, c.Volume)
	}
	return nil
}
