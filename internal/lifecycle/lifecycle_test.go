package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine/internal/candle"
	"signal-engine/internal/scoring"
)

func longDecision(confidence, entry float64) *scoring.Decision {
	return &scoring.Decision{
		Direction:  scoring.Long,
		Entry:      entry,
		SL:         entry - 10,
		TP:         entry + 20,
		Confidence: confidence,
	}
}

func TestReconcile_CreatesOnFirstSignal(t *testing.T) {
	m := New()
	now := time.Now()

	events := m.Reconcile(candle.MarketSpot, candle.TF1h, "BTCUSDT", longDecision(0.7, 100), 0, 0.5, time.Hour, now)
	require.Len(t, events, 1)
	assert.Equal(t, Created, events[0].Kind)
	assert.Len(t, m.Active(), 1)
}

func TestReconcile_NoOpWhenNoSignalAndNoneExisting(t *testing.T) {
	m := New()
	events := m.Reconcile(candle.MarketSpot, candle.TF1h, "BTCUSDT", nil, 0.9, 0.5, time.Hour, time.Now())
	assert.Nil(t, events)
}

func TestReconcile_InvalidatesWhenRescoredBelowFloor(t *testing.T) {
	m := New()
	now := time.Now()
	m.Reconcile(candle.MarketSpot, candle.TF1h, "BTCUSDT", longDecision(0.7, 100), 0, 0.5, time.Hour, now)

	events := m.Reconcile(candle.MarketSpot, candle.TF1h, "BTCUSDT", nil, 0.3, 0.5, time.Hour, now.Add(time.Minute))
	require.Len(t, events, 1)
	assert.Equal(t, Deleted, events[0].Kind)
	assert.Equal(t, "invalidated", events[0].Reason)
	assert.Empty(t, m.Active())
}

func TestReconcile_ExpiresAfterTTLWithoutUpdate(t *testing.T) {
	m := New()
	now := time.Now()
	m.Reconcile(candle.MarketSpot, candle.TF1h, "BTCUSDT", longDecision(0.7, 100), 0, 0.5, time.Hour, now)

	// Rescored confidence stays healthy (above the floor), so only the
	// expiry clock should trigger removal.
	events := m.Reconcile(candle.MarketSpot, candle.TF1h, "BTCUSDT", nil, 0.7, 0.5, time.Hour, now.Add(2*time.Hour))
	require.Len(t, events, 1)
	assert.Equal(t, "expired", events[0].Reason)
}

func TestReconcile_LowerTimeframeSkipsExistingHigherSignal(t *testing.T) {
	m := New()
	now := time.Now()
	m.Reconcile(candle.MarketSpot, candle.TF4h, "BTCUSDT", longDecision(0.7, 100), 0, 0.5, time.Hour, now)

	events := m.Reconcile(candle.MarketSpot, candle.TF15m, "BTCUSDT", longDecision(0.9, 105), 0, 0.5, time.Hour, now.Add(time.Minute))
	assert.Nil(t, events)

	active := m.Active()
	require.Len(t, active, 1)
	assert.Equal(t, candle.TF4h, active[0].Timeframe)
}

func TestReconcile_HigherTimeframeSupersedes(t *testing.T) {
	m := New()
	now := time.Now()
	m.Reconcile(candle.MarketSpot, candle.TF15m, "BTCUSDT", longDecision(0.7, 100), 0, 0.5, time.Hour, now)

	events := m.Reconcile(candle.MarketSpot, candle.TF1d, "BTCUSDT", longDecision(0.9, 110), 0, 0.5, time.Hour, now.Add(time.Minute))
	require.Len(t, events, 2)
	assert.Equal(t, Deleted, events[0].Kind)
	assert.Equal(t, "superseded", events[0].Reason)
	assert.Equal(t, Created, events[1].Kind)

	active := m.Active()
	require.Len(t, active, 1)
	assert.Equal(t, candle.TF1d, active[0].Timeframe)
}

func TestReconcile_OppositeDirectionReverses(t *testing.T) {
	m := New()
	now := time.Now()
	m.Reconcile(candle.MarketSpot, candle.TF1h, "BTCUSDT", longDecision(0.7, 100), 0, 0.5, time.Hour, now)

	short := &scoring.Decision{Direction: scoring.Short, Entry: 95, SL: 100, TP: 80, Confidence: 0.8}
	events := m.Reconcile(candle.MarketSpot, candle.TF1h, "BTCUSDT", short, 0, 0.5, time.Hour, now.Add(time.Minute))
	require.Len(t, events, 2)
	assert.Equal(t, "reversed", events[0].Reason)

	active := m.Active()
	require.Len(t, active, 1)
	assert.Equal(t, scoring.Short, active[0].Direction)
}

func TestReconcile_MaterialChangeEmitsUpdated(t *testing.T) {
	m := New()
	now := time.Now()
	m.Reconcile(candle.MarketSpot, candle.TF1h, "BTCUSDT", longDecision(0.6, 100), 0, 0.5, time.Hour, now)

	events := m.Reconcile(candle.MarketSpot, candle.TF1h, "BTCUSDT", longDecision(0.9, 100), 0, 0.5, time.Hour, now.Add(time.Minute))
	require.Len(t, events, 1)
	assert.Equal(t, Updated, events[0].Kind)
}

func TestReconcile_MinorChangeIsLivenessOnly(t *testing.T) {
	m := New()
	now := time.Now()
	m.Reconcile(candle.MarketSpot, candle.TF1h, "BTCUSDT", longDecision(0.60, 100), 0, 0.5, time.Hour, now)

	events := m.Reconcile(candle.MarketSpot, candle.TF1h, "BTCUSDT", longDecision(0.61, 100), 0, 0.5, time.Hour, now.Add(time.Minute))
	assert.Nil(t, events)

	active := m.Active()
	require.Len(t, active, 1)
	assert.True(t, active[0].LastUpdated.After(now))
}

func TestSweep_RemovesStaleSignalsOnly(t *testing.T) {
	m := New()
	now := time.Now()
	m.Reconcile(candle.MarketSpot, candle.TF1h, "OLD", longDecision(0.7, 100), 0, 0.5, time.Hour, now)
	m.Reconcile(candle.MarketSpot, candle.TF1h, "FRESH", longDecision(0.7, 100), 0, 0.5, time.Hour, now.Add(50*time.Minute))

	events := m.Sweep(now.Add(time.Hour+time.Minute), func(candle.Timeframe) time.Duration { return time.Hour })
	require.Len(t, events, 1)
	assert.Equal(t, "OLD", events[0].Signal.Symbol)

	active := m.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "FRESH", active[0].Symbol)
}
