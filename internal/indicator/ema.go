package indicator

import "math"

// EMA computes the exponential moving average with the standard smoothing
// factor 2/(period+1), seeded with a simple average of the first period
// closes.
func EMA(closes []float64, period int) float64 {
	series := emaSeries(closes, period)
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}

// emaSeries returns the full EMA series aligned to closes, with NaN for
// every index before the seed window fills. Needed by MACD, which requires
// the whole history of the fast/slow lines, not just their final values.
func emaSeries(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(closes) < period {
		return out
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += closes[i]
	}
	ema := sum / float64(period)
	out[period-1] = ema

	mult := 2.0 / (float64(period) + 1)
	for i := period; i < len(closes); i++ {
		ema = closes[i]*mult + ema*(1-mult)
		out[i] = ema
	}
	return out
}
