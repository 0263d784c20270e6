// Package indicator computes technical indicators from a candle.Series.
// Every function here is pure and deterministic: no I/O, no shared state,
// no wall-clock reads. Moving averages, RSI and MACD use Wilder smoothing
// where precision demands it, alongside Heikin-Ashi, SuperTrend, MFI,
// Parabolic SAR and Bollinger Bands.
//
// Indicators that can't be computed from too few candles return math.NaN()
// (scalars) or a zero-value result with Ok=false (structs); callers must
// check before use - Compute never panics on short series.
package indicator

import "math"

// Undefined reports whether v is the "insufficient data" sentinel.
func Undefined(v float64) bool { return math.IsNaN(v) }

// MACDResult is the output of MACD: line, signal, histogram and the
// previous candle's histogram (needed by the scoring engine to detect a
// crossover).
type MACDResult struct {
	Line, Signal, Hist, HistPrev float64
}

func (m MACDResult) Defined() bool {
	return !math.IsNaN(m.Line) && !math.IsNaN(m.Signal) && !math.IsNaN(m.HistPrev)
}

// ADXResult is the output of adx_di: trend strength plus directional index.
type ADXResult struct {
	ADX, PlusDI, MinusDI float64
}

func (a ADXResult) Defined() bool { return !math.IsNaN(a.ADX) }

// HeikinAshiResult is the smoothed last candle.
type HeikinAshiResult struct {
	Open, Close float64
	Bullish     int // +1 or -1
	Ok          bool
}

// SuperTrendResult is the trend-following overlay's current state.
type SuperTrendResult struct {
	Direction int // +1 or -1
	Level     float64
	Ok        bool
}

// PSARResult is Parabolic SAR's current state.
type PSARResult struct {
	SAR   float64
	Trend int // +1 or -1
	Ok    bool
}

// BollingerResult is the three Bollinger Band lines.
type BollingerResult struct {
	Upper, Mid, Lower float64
	Ok                bool
}

// VolumeStats compares the latest candle's volume to its rolling average.
type VolumeStats struct {
	Avg, Current, Ratio float64
	Ok                   bool
}

// Snapshot is the full set of indicator values computed for one candle
// series, handed to the scoring engine as a single unit.
type Snapshot struct {
	RSI        float64
	ATR        float64
	EMA9       float64
	EMA21      float64
	EMA50      float64
	MACD       MACDResult
	ADX        ADXResult
	HA         HeikinAshiResult
	SuperTrend SuperTrendResult
	MFI        float64
	PSAR       PSARResult
	Bollinger  BollingerResult
	Volume     VolumeStats
}
