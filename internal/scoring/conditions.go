package scoring

import (
	"fmt"

	"signal-engine/internal/candle"
	"signal-engine/internal/config"
	"signal-engine/internal/indicator"
)

// condition is one weighted rule from the LONG/SHORT condition tables.
type condition struct {
	name   string
	weight float64
	met    bool
}

// evaluate runs every LONG or SHORT condition and returns the total
// weighted score, a conditions_met map, and a human-readable reason list.
func evaluate(dir Direction, series candle.Series, snap indicator.Snapshot, cfg config.SignalConfig) (float64, map[string]bool, []string) {
	last, _ := series.Last()

	var conditions []condition
	if dir == Long {
		conditions = longConditions(series, last, snap, cfg)
	} else {
		conditions = shortConditions(series, last, snap, cfg)
	}

	score := 0.0
	met := make(map[string]bool, len(conditions))
	reasons := make([]string, 0, len(conditions))
	for _, c := range conditions {
		met[c.name] = c.met
		if c.met {
			score += c.weight
			reasons = append(reasons, fmt.Sprintf("%s (+%.1f)", c.name, c.weight))
		}
	}
	return score, met, reasons
}

func longConditions(series candle.Series, last candle.Candle, s indicator.Snapshot, cfg config.SignalConfig) []condition {
	w := cfg.Weights
	return []condition{
		{"macd_crossover_up", w.MACDCrossover, macdCrossedUp(s.MACD)},
		{"rsi_long_band", w.RSIBand, inRange(s.RSI, cfg.LongRSIMin, cfg.LongRSIMax) || rsiRising(series, 1)},
		{"close_gt_ema50", w.CloseVsEMA50, defined(s.EMA50) && last.Close > s.EMA50},
		{"adx_gt_min", w.ADXThreshold, s.ADX.Defined() && s.ADX.ADX > cfg.LongADXMin},
		{"heikin_ashi_bullish", w.HeikinAshi, s.HA.Ok && s.HA.Bullish == 1},
		{"volume_spike", w.VolumeSpike, s.Volume.Ok && s.Volume.Ratio >= cfg.LongVolumeMultiplier},
		{"ema_alignment_bullish", w.EMAAlignment, defined(s.EMA9) && defined(s.EMA21) && defined(s.EMA50) && s.EMA9 > s.EMA21 && s.EMA21 > s.EMA50},
		{"plus_di_gt_minus_di", w.DIDirection, s.ADX.Defined() && s.ADX.PlusDI > s.ADX.MinusDI},
		{"supertrend_up", w.SuperTrend, s.SuperTrend.Ok && s.SuperTrend.Direction == 1},
		{"mfi_long_band_rising", w.MFI, !indicator.Undefined(s.MFI) && s.MFI < 80 && mfiRising(series, 1)},
		{"psar_below_close", w.PSAR, s.PSAR.Ok && s.PSAR.Trend == 1},
	}
}

func shortConditions(series candle.Series, last candle.Candle, s indicator.Snapshot, cfg config.SignalConfig) []condition {
	w := cfg.Weights
	return []condition{
		{"macd_crossover_down", w.MACDCrossover, macdCrossedDown(s.MACD)},
		{"rsi_short_band", w.RSIBand, inRange(s.RSI, cfg.ShortRSIMin, cfg.ShortRSIMax) || rsiRising(series, -1)},
		{"close_lt_ema50", w.CloseVsEMA50, defined(s.EMA50) && last.Close < s.EMA50},
		{"adx_gt_min", w.ADXThreshold, s.ADX.Defined() && s.ADX.ADX > cfg.ShortADXMin},
		{"heikin_ashi_bearish", w.HeikinAshi, s.HA.Ok && s.HA.Bullish == -1},
		{"volume_spike", w.VolumeSpike, s.Volume.Ok && s.Volume.Ratio >= cfg.ShortVolumeMultiplier},
		{"ema_alignment_bearish", w.EMAAlignment, defined(s.EMA9) && defined(s.EMA21) && defined(s.EMA50) && s.EMA9 < s.EMA21 && s.EMA21 < s.EMA50},
		{"minus_di_gt_plus_di", w.DIDirection, s.ADX.Defined() && s.ADX.MinusDI > s.ADX.PlusDI},
		{"supertrend_down", w.SuperTrend, s.SuperTrend.Ok && s.SuperTrend.Direction == -1},
		{"mfi_short_band_falling", w.MFI, !indicator.Undefined(s.MFI) && s.MFI > 20 && mfiRising(series, -1)},
		{"psar_above_close", w.PSAR, s.PSAR.Ok && s.PSAR.Trend == -1},
	}
}

func defined(v float64) bool { return !indicator.Undefined(v) }

func inRange(v, min, max float64) bool {
	return defined(v) && v > min && v < max
}

func macdCrossedUp(m indicator.MACDResult) bool {
	return m.Defined() && m.HistPrev <= 0 && m.Hist > 0
}

func macdCrossedDown(m indicator.MACDResult) bool {
	return m.Defined() && m.HistPrev >= 0 && m.Hist < 0
}

// rsiRising/mfiRising recompute the indicator over progressively shorter
// prefixes of the series to read off its last three values, since the
// snapshot only carries the current one. sign=+1 checks a strictly rising
// run (LONG); sign=-1 checks a strictly falling run (SHORT).
func rsiRising(series candle.Series, sign int) bool {
	return trendOverLastThree(series, sign, func(closes []float64) float64 {
		return indicator.RSI(closes, 14)
	})
}

func mfiRising(series candle.Series, sign int) bool {
	candles := series.Candles
	n := len(candles)
	if n < 3 {
		return false
	}
	cur := indicator.MFI(candles, 14)
	prev1 := indicator.MFI(candles[:n-1], 14)
	prev2 := indicator.MFI(candles[:n-2], 14)
	if indicator.Undefined(cur) || indicator.Undefined(prev1) || indicator.Undefined(prev2) {
		return false
	}
	if sign > 0 {
		return cur > prev1 && prev1 > prev2
	}
	return cur < prev1 && prev1 < prev2
}

func trendOverLastThree(series candle.Series, sign int, calc func([]float64) float64) bool {
	closes := series.Closes()
	n := len(closes)
	if n < 3 {
		return false
	}
	cur := calc(closes)
	prev1 := calc(closes[:n-1])
	prev2 := calc(closes[:n-2])
	if indicator.Undefined(cur) || indicator.Undefined(prev1) || indicator.Undefined(prev2) {
		return false
	}
	if sign > 0 {
		return cur > prev1 && prev1 > prev2
	}
	return cur < prev1 && prev1 < prev2
}
