package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine/internal/candle"
)

func TestNewRegistry_RejectsInvalidEntry(t *testing.T) {
	bad := Default()
	bad.MinConfidence = 0
	_, err := NewRegistry(map[Key]SignalConfig{
		{Market: candle.MarketSpot, Timeframe: candle.TF1h}: bad,
	})
	assert.Error(t, err)
}

func TestRegistry_GetFallsBackToDefault(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), r.Get(candle.MarketSpot, candle.TF1h))
}

func TestRegistry_GetReturnsOverride(t *testing.T) {
	override := Default()
	override.MinConfidence = 0.8
	r, err := NewRegistry(map[Key]SignalConfig{
		{Market: candle.MarketFutures, Timeframe: candle.TF4h}: override,
	})
	require.NoError(t, err)

	got := r.Get(candle.MarketFutures, candle.TF4h)
	assert.Equal(t, 0.8, got.MinConfidence)
}

func TestStore_ReloadSwapsAtomically(t *testing.T) {
	r1, err := NewRegistry(nil)
	require.NoError(t, err)
	store := NewStore(r1)
	assert.Same(t, r1, store.Load())

	r2, err := NewRegistry(nil)
	require.NoError(t, err)
	store.Reload(r2)
	assert.Same(t, r2, store.Load())
}
