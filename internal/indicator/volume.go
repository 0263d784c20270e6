package indicator

import "signal-engine/internal/candle"

// VolumeStatsOf compares the current candle's volume to its trailing
// average over period candles (the current candle included).
func VolumeStatsOf(candles []candle.Candle, period int) VolumeStats {
	if len(candles) < period {
		return VolumeStats{}
	}
	window := candles[len(candles)-period:]

	var sum float64
	for _, c := range window {
		sum += c.Volume
	}
	avg := sum / float64(period)
	current := candles[len(candles)-1].Volume

	ratio := 0.0
	if avg > 0 {
		ratio = current / avg
	}
	return VolumeStats{Avg: avg, Current: current, Ratio: ratio, Ok: true}
}
