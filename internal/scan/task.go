// Package scan implements one ScanTask invocation: fetch candles for a
// (market, timeframe)'s symbol universe, update the cache, compute
// indicators, score, and reconcile signals. Symbols fan out across a
// worker pool (symbolChan/resultChan/sync.WaitGroup) through the
// fetch->cache->score->reconcile->emit pipeline.
package scan

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"signal-engine/internal/candle"
	"signal-engine/internal/candlecache"
	"signal-engine/internal/config"
	"signal-engine/internal/errs"
	"signal-engine/internal/events"
	"signal-engine/internal/indicator"
	"signal-engine/internal/lifecycle"
	"signal-engine/internal/provider"
	"signal-engine/internal/scoring"
)

// historyLimit is indicator_min_history (35, the longest lookback among
// the kernel's indicators) plus a margin.
const historyLimit = 200

// Metrics summarizes one cycle.
type Metrics struct {
	Market          candle.Market
	Timeframe       candle.Timeframe
	TotalSymbols    int
	Successes       int
	FailuresByKind  map[errs.Kind]int
	SignalsCreated  int
	SignalsUpdated  int
	SignalsDeleted  int
	Duration        time.Duration
	StartedAt       time.Time
	ProviderOutage  bool
}

// UniverseSource resolves the symbol universe for a market: top-N by
// rolling volume for crypto venues, a static curated list for vendor
// venues. Implementations live in universe.go.
type UniverseSource interface {
	Symbols(ctx context.Context, market candle.Market) ([]string, error)
}

// Task runs repeated scan cycles for one (market, timeframe) pair.
type Task struct {
	Market    candle.Market
	Timeframe candle.Timeframe

	Provider  provider.MarketDataProvider
	Universe  UniverseSource
	Cache     *candlecache.Cache
	Scorer    *scoring.Engine
	Lifecycle *lifecycle.Manager
	Sink      *events.Sink
	Configs   *config.Store
	Logger    zerolog.Logger

	expiryFor func(candle.Timeframe) time.Duration
}

// New builds a Task. expiryFor maps a timeframe to its signal expiry
// duration (from AppConfig's SIGNAL_EXPIRY_MINUTES_{tf} overrides).
func New(market candle.Market, tf candle.Timeframe, p provider.MarketDataProvider, universe UniverseSource, cache *candlecache.Cache, scorer *scoring.Engine, mgr *lifecycle.Manager, sink *events.Sink, configs *config.Store, expiryFor func(candle.Timeframe) time.Duration, logger zerolog.Logger) *Task {
	return &Task{
		Market: market, Timeframe: tf,
		Provider: p, Universe: universe, Cache: cache, Scorer: scorer,
		Lifecycle: mgr, Sink: sink, Configs: configs, expiryFor: expiryFor,
		Logger: logger,
	}
}

const (
	taskRetryAttempts  = 3
	taskRetryBaseDelay = time.Second
)

// Run executes the task once, retrying the whole cycle - only if every
// symbol fetch failed - up to taskRetryAttempts times with exponential
// backoff.
func (t *Task) Run(ctx context.Context) Metrics {
	delay := taskRetryBaseDelay
	var metrics Metrics
	for attempt := 1; attempt <= taskRetryAttempts; attempt++ {
		metrics = t.runOnce(ctx)
		if !metrics.ProviderOutage || attempt == taskRetryAttempts {
			return metrics
		}
		select {
		case <-ctx.Done():
			return metrics
		case <-time.After(delay):
		}
		delay *= 2
	}
	return metrics
}

func (t *Task) runOnce(ctx context.Context) Metrics {
	start := time.Now()
	m := Metrics{Market: t.Market, Timeframe: t.Timeframe, StartedAt: start, FailuresByKind: make(map[errs.Kind]int)}

	symbols, err := t.Universe.Symbols(ctx, t.Market)
	if err != nil {
		t.Logger.Error().Err(err).Str("market", string(t.Market)).Msg("universe resolution failed")
		m.ProviderOutage = true
		m.Duration = time.Since(start)
		return m
	}
	m.TotalSymbols = len(symbols)
	if len(symbols) == 0 {
		m.Duration = time.Since(start)
		return m
	}

	ok, failed := t.Provider.BatchFetchCandles(ctx, symbols, t.Timeframe, historyLimit)
	m.Successes = len(ok)
	for _, e := range failed {
		m.FailuresByKind[errs.KindOf(e)]++
	}
	if len(ok) == 0 {
		m.ProviderOutage = true
		m.Duration = time.Since(start)
		return m
	}

	cfg := t.Configs.Load().Get(t.Market, t.Timeframe)

	for symbol, series := range ok {
		t.Cache.Update(symbol, t.Timeframe, series.Candles)
		cached := t.Cache.Series(symbol, t.Timeframe)
		if cached.Len() < historyLimit/4 {
			continue
		}

		snap := indicator.Compute(cached)
		decision, err := t.Scorer.Score(cached, snap, cfg)
		if err != nil {
			m.FailuresByKind[errs.KindOf(err)]++
			decision = nil
		}

		rescored := 0.0
		if decision != nil {
			rescored = decision.Confidence
		} else if existing, ok := t.Lifecycle.ConfidenceFor(symbol, t.Market); ok {
			// No qualifying decision this cycle: fall back to the existing
			// signal's own stored confidence (Reconcile's documented
			// fallback), which disables early invalidation and leaves pure
			// expiry as the only way this signal goes away from here.
			rescored = existing
		}
		evs := t.Lifecycle.Reconcile(t.Market, t.Timeframe, symbol, decision, rescored, cfg.MinConfidence, t.expiryFor(t.Timeframe), time.Now())
		t.tally(ctx, &m, evs)
	}

	sweepEvents := t.Lifecycle.Sweep(time.Now(), t.expiryFor)
	t.tally(ctx, &m, sweepEvents)

	m.Duration = time.Since(start)
	if soft := 2 * scheduleIntervalFor(t.Timeframe); m.Duration > soft {
		t.Logger.Warn().Dur("duration", m.Duration).Str("market", string(t.Market)).Str("timeframe", string(t.Timeframe)).Msg("scan cycle exceeded soft deadline")
	}
	return m
}

func (t *Task) tally(ctx context.Context, m *Metrics, evs []lifecycle.Event) {
	for _, ev := range evs {
		switch ev.Kind {
		case lifecycle.Created:
			m.SignalsCreated++
		case lifecycle.Updated:
			m.SignalsUpdated++
		case lifecycle.Deleted:
			m.SignalsDeleted++
		}
		t.Sink.Emit(ctx, ev)
	}
}

func scheduleIntervalFor(tf candle.Timeframe) time.Duration {
	return tf.Duration()
}
