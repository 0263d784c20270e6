package indicator

import "math"

// Bollinger computes the middle SMA and the upper/lower bands k standard
// deviations away, over the trailing period closes.
func Bollinger(closes []float64, period int, k float64) BollingerResult {
	if len(closes) < period {
		return BollingerResult{}
	}
	window := closes[len(closes)-period:]

	var sum float64
	for _, v := range window {
		sum += v
	}
	mid := sum / float64(period)

	var variance float64
	for _, v := range window {
		d := v - mid
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(period))

	return BollingerResult{
		Upper: mid + k*stddev,
		Mid:   mid,
		Lower: mid - k*stddev,
		Ok:    true,
	}
}
