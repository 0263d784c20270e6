package indicator

import (
	"math"

	"signal-engine/internal/candle"
)

// MFI computes the Money Flow Index: volume-weighted RSI over typical
// price. A window where typical price never moves has no positive or
// negative flow at all; that's treated as neutral (50) rather than a 0/0
// division.
func MFI(candles []candle.Candle, period int) float64 {
	if len(candles) < period+1 {
		return math.NaN()
	}

	typical := func(c candle.Candle) float64 { return (c.High + c.Low + c.Close) / 3 }

	start := len(candles) - period
	var posFlow, negFlow float64
	for i := start; i < len(candles); i++ {
		prevTP := typical(candles[i-1])
		curTP := typical(candles[i])
		flow := curTP * candles[i].Volume
		switch {
		case curTP > prevTP:
			posFlow += flow
		case curTP < prevTP:
			negFlow += flow
		}
	}

	if posFlow == 0 && negFlow == 0 {
		return 50
	}
	if negFlow == 0 {
		return 100
	}
	ratio := posFlow / negFlow
	return 100 - 100/(1+ratio)
}
