package indicator

import "math"

// RSI computes the Relative Strength Index with Wilder's smoothing: the
// first average gain/loss is a simple average over period, then every
// later value is smoothed recursively with weight 1/period. A flat series
// (no gains, no losses) returns the neutral value 50 rather than dividing
// by zero.
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return math.NaN()
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			gainSum += diff
		} else {
			lossSum -= diff
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)

	for i := period + 1; i < len(closes); i++ {
		diff := closes[i] - closes[i-1]
		gain := math.Max(diff, 0)
		loss := math.Max(-diff, 0)
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
