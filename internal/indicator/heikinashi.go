package indicator

import "signal-engine/internal/candle"

// HeikinAshiLast recomputes the Heikin-Ashi series from the start of
// candles (ha_open is recursive on the prior ha candle, so it can't be
// derived from just the last raw candle) and returns the final smoothed
// open/close plus the bullish/bearish call.
func HeikinAshiLast(candles []candle.Candle) HeikinAshiResult {
	if len(candles) == 0 {
		return HeikinAshiResult{}
	}

	haOpen := (candles[0].Open + candles[0].Close) / 2
	haClose := (candles[0].Open + candles[0].High + candles[0].Low + candles[0].Close) / 4

	for i := 1; i < len(candles); i++ {
		c := candles[i]
		nextOpen := (haOpen + haClose) / 2
		nextClose := (c.Open + c.High + c.Low + c.Close) / 4
		haOpen, haClose = nextOpen, nextClose
	}

	bullish := -1
	if haClose > haOpen {
		bullish = 1
	}
	return HeikinAshiResult{Open: haOpen, Close: haClose, Bullish: bullish, Ok: true}
}
