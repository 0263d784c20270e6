package indicator

import "signal-engine/internal/candle"

// SuperTrend computes the trend-following overlay: a band built off ATR
// that locks in the direction of the move until price crosses it. The
// band can only be walked forward from the start of the series - it isn't
// expressible as a closed-form function of the last few candles.
func SuperTrend(candles []candle.Candle, period, multiplier float64) SuperTrendResult {
	p := int(period)
	if len(candles) < p+2 {
		return SuperTrendResult{}
	}

	atrSeries := make([]float64, len(candles))
	for i := range atrSeries {
		atrSeries[i] = ATR(candles[:i+1], p)
	}

	var finalUpper, finalLower float64
	direction := 1
	started := false

	for i := p; i < len(candles); i++ {
		if atrIsUndefined(atrSeries[i]) {
			continue
		}
		c := candles[i]
		mid := (c.High + c.Low) / 2
		basicUpper := mid + multiplier*atrSeries[i]
		basicLower := mid - multiplier*atrSeries[i]

		if !started {
			finalUpper, finalLower = basicUpper, basicLower
			if c.Close <= finalUpper {
				direction = -1
			} else {
				direction = 1
			}
			started = true
			continue
		}

		prevClose := candles[i-1].Close
		if prevClose <= finalUpper {
			finalUpper = min(basicUpper, finalUpper)
		} else {
			finalUpper = basicUpper
		}
		if prevClose >= finalLower {
			finalLower = max(basicLower, finalLower)
		} else {
			finalLower = basicLower
		}

		switch {
		case c.Close > finalUpper:
			direction = 1
		case c.Close < finalLower:
			direction = -1
		}
	}

	if !started {
		return SuperTrendResult{}
	}
	level := finalLower
	if direction == -1 {
		level = finalUpper
	}
	return SuperTrendResult{Direction: direction, Level: level, Ok: true}
}

func atrIsUndefined(v float64) bool { return Undefined(v) }
