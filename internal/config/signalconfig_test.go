package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate_RejectsInvertedRSIBand(t *testing.T) {
	c := Default()
	c.LongRSIMin = 70
	c.LongRSIMax = 40
	assert.Error(t, c.Validate())
}

func TestValidate_RejectsNonPositiveSLMultiplier(t *testing.T) {
	c := Default()
	c.SLATRMultiplier = 0
	assert.Error(t, c.Validate())
}

func TestValidate_RejectsTPNotGreaterThanSL(t *testing.T) {
	c := Default()
	c.SLATRMultiplier = 2
	c.TPATRMultiplier = 1.5
	assert.Error(t, c.Validate())
}

func TestValidate_RejectsMinConfidenceOutOfRange(t *testing.T) {
	c := Default()
	c.MinConfidence = 0
	assert.Error(t, c.Validate())

	c.MinConfidence = 1.5
	assert.Error(t, c.Validate())
}

func TestValidate_RejectsTooSmallCandleCache(t *testing.T) {
	c := Default()
	c.MaxCandlesCache = 10
	assert.Error(t, c.Validate())
}

func TestValidate_RejectsNegativeWeight(t *testing.T) {
	c := Default()
	c.Weights.MACDCrossover = -1
	assert.Error(t, c.Validate())
}

func TestClassifyVolatility_Buckets(t *testing.T) {
	assert.Equal(t, VolatilityLow, ClassifyVolatility(0.005))
	assert.Equal(t, VolatilityMedium, ClassifyVolatility(0.02))
	assert.Equal(t, VolatilityHigh, ClassifyVolatility(0.05))
}

func TestWithVolatilityOverlay_WidensOnHigh(t *testing.T) {
	c := Default()
	overlaid := c.WithVolatilityOverlay(VolatilityHigh)
	assert.Greater(t, overlaid.SLATRMultiplier, c.SLATRMultiplier)
}

func TestWithVolatilityOverlay_NoopWhenDisabled(t *testing.T) {
	c := Default()
	c.UseVolatilityAware = false
	overlaid := c.WithVolatilityOverlay(VolatilityHigh)
	assert.Equal(t, c.SLATRMultiplier, overlaid.SLATRMultiplier)
}
