// Package provider implements the polymorphic OHLCV fetch surface:
// BinanceSpot, BinanceFutures, ForexVendor and CommodityVendor all satisfy
// the single MarketDataProvider interface, with vendor-specific
// normalization (weight accounting, interval aggregation) living inside
// each adapter rather than in the caller.
package provider

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"signal-engine/internal/candle"
)

// MarketDataProvider is the capability set every venue adapter implements.
type MarketDataProvider interface {
	// Name identifies the provider for logging and weight-budget lookups
	// (matches the PROVIDER_{name}_API_KEY / MAX_WEIGHT_PER_MINUTE_{name}
	// environment variable suffixes).
	Name() string

	// ListSymbols returns every symbol this provider scans for market.
	ListSymbols(ctx context.Context, market candle.Market) ([]string, error)

	// FetchCandles returns the most recent limit closed candles for symbol
	// at timeframe, oldest first, with no partial trailing candle.
	FetchCandles(ctx context.Context, symbol string, tf candle.Timeframe, limit int) (candle.Series, error)

	// BatchFetchCandles fetches symbols concurrently (bounded by the
	// adapter's configured batch size), deduplicating identical in-flight
	// requests and respecting the provider's RateLimiter. Symbols that
	// fail are reported in the parallel failures map rather than aborting
	// the whole batch.
	BatchFetchCandles(ctx context.Context, symbols []string, tf candle.Timeframe, limit int) (map[string]candle.Series, map[string]error)
}

// dedup collapses identical concurrent fetches (same symbol, timeframe and
// limit) into a single upstream call.
type dedup struct {
	group singleflight.Group
}

func (d *dedup) fetch(symbol string, tf candle.Timeframe, limit int, do func() (candle.Series, error)) (candle.Series, error) {
	key := fmt.Sprintf("%s|%s|%d", symbol, tf, limit)
	v, err, _ := d.group.Do(key, func() (interface{}, error) {
		return do()
	})
	if err != nil {
		return candle.Series{}, err
	}
	return v.(candle.Series), nil
}

// batchFetch is the shared fan-out every adapter's BatchFetchCandles
// delegates to: at most batchSize concurrent calls to fetchOne, collected
// into parallel success/failure maps.
func batchFetch(ctx context.Context, symbols []string, batchSize int, fetchOne func(context.Context, string) (candle.Series, error)) (map[string]candle.Series, map[string]error) {
	if batchSize <= 0 {
		batchSize = 1
	}

	type result struct {
		symbol string
		series candle.Series
		err    error
	}

	sem := make(chan struct{}, batchSize)
	results := make(chan result, len(symbols))

	for _, symbol := range symbols {
		sem <- struct{}{}
		go func(sym string) {
			defer func() { <-sem }()
			series, err := fetchOne(ctx, sym)
			results <- result{symbol: sym, series: series, err: err}
		}(symbol)
	}

	ok := make(map[string]candle.Series, len(symbols))
	failed := make(map[string]error)
	for range symbols {
		r := <-results
		if r.err != nil {
			failed[r.symbol] = r.err
			continue
		}
		ok[r.symbol] = r.series
	}
	return ok, failed
}
