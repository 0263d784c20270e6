package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine/internal/candle"
	"signal-engine/internal/candlecache"
	"signal-engine/internal/config"
	"signal-engine/internal/events"
	"signal-engine/internal/lifecycle"
	"signal-engine/internal/scan"
	"signal-engine/internal/scoring"
)

type fakeProvider struct {
	symbols []string
	series  map[string]candle.Series
	fail    map[string]error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) ListSymbols(ctx context.Context, market candle.Market) ([]string, error) {
	return f.symbols, nil
}

func (f *fakeProvider) FetchCandles(ctx context.Context, symbol string, tf candle.Timeframe, limit int) (candle.Series, error) {
	if err, ok := f.fail[symbol]; ok {
		return candle.Series{}, err
	}
	return f.series[symbol], nil
}

func (f *fakeProvider) BatchFetchCandles(ctx context.Context, symbols []string, tf candle.Timeframe, limit int) (map[string]candle.Series, map[string]error) {
	ok := make(map[string]candle.Series)
	failed := make(map[string]error)
	for _, s := range symbols {
		if err, bad := f.fail[s]; bad {
			failed[s] = err
			continue
		}
		ok[s] = f.series[s]
	}
	return ok, failed
}

func newScanJob(t *testing.T, fail bool) *ScanJob {
	t.Helper()
	p := &fakeProvider{symbols: []string{"BTCUSDT"}, series: map[string]candle.Series{}, fail: map[string]error{}}
	if fail {
		p.fail["BTCUSDT"] = errors.New("network down")
	} else {
		p.series["BTCUSDT"] = candle.Series{Symbol: "BTCUSDT", Timeframe: candle.TF1h}
	}

	cache := candlecache.New(200)
	mgr := lifecycle.New()
	sink := events.New(zerolog.Nop(), events.NewMemoryWriter(), 16)
	registry, err := config.NewRegistry(map[config.Key]config.SignalConfig{})
	require.NoError(t, err)
	store := config.NewStore(registry)

	task := scan.New(candle.MarketSpot, candle.TF1h, p, scan.StaticUniverse{List: p.symbols}, cache, scoring.New(), mgr, sink, store,
		func(candle.Timeframe) time.Duration { return time.Hour }, zerolog.Nop())
	return NewScanJob(task, candle.MarketSpot, candle.TF1h, nil, zerolog.Nop())
}

func TestScanJob_NameIncludesMarketAndTimeframe(t *testing.T) {
	job := newScanJob(t, false)
	assert.Equal(t, "scan:SPOT:1h", job.Name())
}

func TestScanJob_RunReturnsErrorOnProviderOutage(t *testing.T) {
	job := newScanJob(t, true)
	// taskRetryBaseDelay is 1s with 3 attempts; this exercises the
	// full retry loop before surfacing the outage.
	err := job.Run(context.Background())
	assert.Error(t, err)
}

func TestSweepJob_EmitsExpiredEventsThroughSink(t *testing.T) {
	mgr := lifecycle.New()
	writer := events.NewMemoryWriter()
	sink := events.New(zerolog.Nop(), writer, 16)

	job := &SweepJob{
		Lifecycle: mgr,
		Sink:      sink,
		ExpiryFor: func(candle.Timeframe) time.Duration { return time.Hour },
		Logger:    zerolog.Nop(),
	}
	assert.Equal(t, "sweep_expired_signals", job.Name())
	assert.NoError(t, job.Run(context.Background()))
}

type fakeChecker struct {
	name string
	err  error
}

func (c fakeChecker) Name() string { return c.name }
func (c fakeChecker) HealthCheck(ctx context.Context) error { return c.err }

func TestHealthCheckJob_ProbesEveryCheckerAndNeverFails(t *testing.T) {
	job := &HealthCheckJob{
		Checkers: []HealthChecker{
			fakeChecker{name: "db", err: nil},
			fakeChecker{name: "binance", err: errors.New("timeout")},
		},
		Logger: zerolog.Nop(),
	}
	assert.Equal(t, "health_check", job.Name())
	assert.NoError(t, job.Run(context.Background()))
}
