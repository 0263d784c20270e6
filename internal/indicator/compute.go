package indicator

import "signal-engine/internal/candle"

// Default periods used by each operation. ScoringEngine callers needing
// non-default periods call the individual functions directly instead of
// Compute.
const (
	rsiPeriod        = 14
	atrPeriod        = 14
	ema9Period       = 9
	ema21Period      = 21
	ema50Period      = 50
	macdFast         = 12
	macdSlow         = 26
	macdSignal       = 9
	adxPeriod        = 14
	superTrendPeriod = 10
	superTrendMult   = 3
	mfiPeriod        = 14
	psarStep         = 0.02
	psarMax          = 0.2
	bollingerPeriod  = 20
	bollingerK       = 2
	volumePeriod     = 20
)

// Compute runs every indicator over s.Candles with the default parameters
// and returns the combined Snapshot the scoring engine consumes.
func Compute(s candle.Series) Snapshot {
	closes := s.Closes()
	candles := s.Candles

	return Snapshot{
		RSI:        RSI(closes, rsiPeriod),
		ATR:        ATR(candles, atrPeriod),
		EMA9:       EMA(closes, ema9Period),
		EMA21:      EMA(closes, ema21Period),
		EMA50:      EMA(closes, ema50Period),
		MACD:       MACD(closes, macdFast, macdSlow, macdSignal),
		ADX:        ADXDI(candles, adxPeriod),
		HA:         HeikinAshiLast(candles),
		SuperTrend: SuperTrend(candles, superTrendPeriod, superTrendMult),
		MFI:        MFI(candles, mfiPeriod),
		PSAR:       ParabolicSAR(candles, psarStep, psarMax),
		Bollinger:  Bollinger(closes, bollingerPeriod, bollingerK),
		Volume:     VolumeStatsOf(candles, volumePeriod),
	}
}
