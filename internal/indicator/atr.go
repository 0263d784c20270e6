package indicator

import (
	"math"

	"signal-engine/internal/candle"
)

// trueRange is the classic max-of-three true range for candle i against
// the prior candle's close.
func trueRange(cur, prev candle.Candle) float64 {
	return math.Max(cur.High-cur.Low,
		math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
}

// trueRangeSeries returns true range values for candles[1:], aligned so
// trueRangeSeries(candles)[i] corresponds to candles[i+1].
func trueRangeSeries(candles []candle.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		out[i-1] = trueRange(candles[i], candles[i-1])
	}
	return out
}

// wilderSmooth seeds with a simple average of the first period values, then
// recursively smooths the rest with weight 1/period. Returns NaN if there
// aren't at least period values.
func wilderSmooth(values []float64, period int) float64 {
	if len(values) < period {
		return math.NaN()
	}
	var sum float64
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	avg := sum / float64(period)
	for i := period; i < len(values); i++ {
		avg = (avg*float64(period-1) + values[i]) / float64(period)
	}
	return avg
}

// ATR computes Average True Range with Wilder smoothing.
func ATR(candles []candle.Candle, period int) float64 {
	trs := trueRangeSeries(candles)
	return wilderSmooth(trs, period)
}
