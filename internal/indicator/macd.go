package indicator

import "math"

// MACD computes the Moving Average Convergence/Divergence line, its signal
// line, and the current and previous histogram (signal - line difference),
// which the scoring engine needs to detect a zero-line crossover.
//
// The teacher's CalculateMACD approximates the signal line as
// macdLine*0.8, which drifts from a true EMA-of-MACD over any real price
// history. This computes the signal line properly: the EMA of the full
// MACD line series, not a single-point approximation.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	undefined := MACDResult{Line: math.NaN(), Signal: math.NaN(), Hist: math.NaN(), HistPrev: math.NaN()}
	if len(closes) < slow {
		return undefined
	}

	fastSeries := emaSeries(closes, fast)
	slowSeries := emaSeries(closes, slow)

	macdValues := make([]float64, 0, len(closes))
	for i := range closes {
		if math.IsNaN(fastSeries[i]) || math.IsNaN(slowSeries[i]) {
			continue
		}
		macdValues = append(macdValues, fastSeries[i]-slowSeries[i])
	}
	if len(macdValues) < signal+1 {
		return undefined
	}

	signalSeries := emaSeries(macdValues, signal)
	last := len(macdValues) - 1
	prev := last - 1
	if math.IsNaN(signalSeries[last]) || math.IsNaN(signalSeries[prev]) {
		return undefined
	}

	return MACDResult{
		Line:     macdValues[last],
		Signal:   signalSeries[last],
		Hist:     macdValues[last] - signalSeries[last],
		HistPrev: macdValues[prev] - signalSeries[prev],
	}
}
