package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine/internal/candle"
)

func flatCandles(n int, price float64) []candle.Candle {
	out := make([]candle.Candle, n)
	for i := range out {
		out[i] = candle.Candle{
			OpenTimeMs: int64(i), Open: price, High: price, Low: price, Close: price, Volume: 10,
		}
	}
	return out
}

func risingCandles(n int, start, step float64) []candle.Candle {
	out := make([]candle.Candle, n)
	price := start
	for i := range out {
		out[i] = candle.Candle{
			OpenTimeMs: int64(i), Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 10 + float64(i),
		}
		price += step
	}
	return out
}

func TestRSI_InsufficientData(t *testing.T) {
	closes := []float64{1, 2, 3}
	assert.True(t, Undefined(RSI(closes, 14)))
}

func TestRSI_FlatMarketIsNeutral(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	assert.Equal(t, 50.0, RSI(closes, 14))
}

func TestRSI_AllGainsApproachesHundred(t *testing.T) {
	candles := risingCandles(30, 100, 1)
	closes := candle.Series{Candles: candles}.Closes()
	rsi := RSI(closes, 14)
	assert.Greater(t, rsi, 95.0)
}

func TestATR_InsufficientData(t *testing.T) {
	assert.True(t, Undefined(ATR(flatCandles(5, 100), 14)))
}

func TestATR_FlatMarketIsZero(t *testing.T) {
	atr := ATR(flatCandles(30, 100), 14)
	assert.Equal(t, 0.0, atr)
}

func TestEMA_SeedsWithSimpleAverage(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	ema := EMA(closes, 5)
	assert.Equal(t, 3.0, ema)
}

func TestEMA_InsufficientDataIsUndefined(t *testing.T) {
	assert.True(t, Undefined(EMA([]float64{1, 2}, 5)))
}

func TestMACD_InsufficientDataIsUndefined(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(i)
	}
	m := MACD(closes, 12, 26, 9)
	assert.False(t, m.Defined())
}

func TestMACD_DetectsCrossover(t *testing.T) {
	candles := risingCandles(60, 100, 0.5)
	closes := candle.Series{Candles: candles}.Closes()
	m := MACD(closes, 12, 26, 9)
	require.True(t, m.Defined())
	assert.Greater(t, m.Line, 0.0, "a sustained uptrend should carry a positive MACD line")
}

func TestADXDI_FlatMarketIsZero(t *testing.T) {
	r := ADXDI(flatCandles(40, 100), 14)
	require.True(t, r.Defined())
	assert.Equal(t, 0.0, r.ADX)
}

func TestADXDI_InsufficientDataUndefined(t *testing.T) {
	r := ADXDI(flatCandles(10, 100), 14)
	assert.False(t, r.Defined())
}

func TestHeikinAshiLast_BullishOnUptrend(t *testing.T) {
	r := HeikinAshiLast(risingCandles(20, 100, 1))
	require.True(t, r.Ok)
	assert.Equal(t, 1, r.Bullish)
	assert.Greater(t, r.Close, r.Open)
}

func TestSuperTrend_InsufficientDataUndefined(t *testing.T) {
	r := SuperTrend(flatCandles(5, 100), 10, 3)
	assert.False(t, r.Ok)
}

func TestSuperTrend_UptrendYieldsPositiveDirection(t *testing.T) {
	r := SuperTrend(risingCandles(60, 100, 2), 10, 3)
	require.True(t, r.Ok)
	assert.Equal(t, 1, r.Direction)
}

func TestMFI_FlatMarketIsNeutral(t *testing.T) {
	mfi := MFI(flatCandles(20, 100), 14)
	assert.Equal(t, 50.0, mfi)
}

func TestMFI_InsufficientDataUndefined(t *testing.T) {
	assert.True(t, Undefined(MFI(flatCandles(5, 100), 14)))
}

func TestParabolicSAR_TracksUptrend(t *testing.T) {
	r := ParabolicSAR(risingCandles(30, 100, 1), 0.02, 0.2)
	require.True(t, r.Ok)
	assert.Equal(t, 1, r.Trend)
	assert.Less(t, r.SAR, risingCandles(30, 100, 1)[29].Close)
}

func TestBollinger_FlatMarketHasZeroWidth(t *testing.T) {
	r := Bollinger(candle.Series{Candles: flatCandles(25, 100)}.Closes(), 20, 2)
	require.True(t, r.Ok)
	assert.Equal(t, r.Mid, r.Upper)
	assert.Equal(t, r.Mid, r.Lower)
}

func TestBollinger_InsufficientDataUndefined(t *testing.T) {
	r := Bollinger([]float64{1, 2, 3}, 20, 2)
	assert.False(t, r.Ok)
}

func TestVolumeStatsOf_RatioAboveOneOnSpike(t *testing.T) {
	candles := flatCandles(20, 100)
	candles[len(candles)-1].Volume = 1000
	r := VolumeStatsOf(candles, 20)
	require.True(t, r.Ok)
	assert.Greater(t, r.Ratio, 1.0)
}

func TestCompute_ProducesFullSnapshotForLongSeries(t *testing.T) {
	s := candle.Series{Symbol: "BTCUSDT", Timeframe: candle.TF1h, Candles: risingCandles(100, 100, 1)}
	snap := Compute(s)
	assert.False(t, math.IsNaN(snap.RSI))
	assert.False(t, math.IsNaN(snap.ATR))
	assert.True(t, snap.HA.Ok)
	assert.True(t, snap.Bollinger.Ok)
}
