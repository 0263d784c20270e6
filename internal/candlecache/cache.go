// Package candlecache implements the per-(symbol, timeframe) ring buffer of
// recently closed candles. Each key owns its own mutex so concurrent
// scans of unrelated (symbol, timeframe) pairs never contend: shared,
// per-key lock striping, with cache entries independent of one another.
package candlecache

import (
	"fmt"
	"sync"

	"signal-engine/internal/candle"
)

// Key identifies one ring buffer.
type Key struct {
	Symbol    string
	Timeframe candle.Timeframe
}

func (k Key) String() string { return fmt.Sprintf("%s:%s", k.Symbol, k.Timeframe) }

type entry struct {
	mu      sync.RWMutex
	candles []candle.Candle // time-ascending, capped, no duplicate OpenTimeMs
}

// Cache is the per-symbol, per-timeframe ring buffer of recent candles.
// The zero value is not usable; use New.
type Cache struct {
	maxCandles int

	mu      sync.RWMutex // guards the entries map only, not entry contents
	entries map[Key]*entry
}

// New creates a Cache capped at maxCandles candles per key.
func New(maxCandles int) *Cache {
	if maxCandles <= 0 {
		maxCandles = 200
	}
	return &Cache{
		maxCandles: maxCandles,
		entries:    make(map[Key]*entry),
	}
}

func (c *Cache) entryFor(key Key) *entry {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok = c.entries[key]; ok {
		return e
	}
	e = &entry{}
	c.entries[key] = e
	return e
}

// Update merges newCandles into the series for (symbol, timeframe): it
// discards candles whose OpenTimeMs already exists, appends the rest in
// time order, and trims the oldest entries to stay within maxCandles. It
// returns whether the most recent candle in the series changed (either a
// brand-new latest candle, or the existing latest candle's values changed -
// e.g. the exchange corrected a still-forming bar after it closed).
func (c *Cache) Update(symbol string, tf candle.Timeframe, newCandles []candle.Candle) bool {
	key := Key{Symbol: symbol, Timeframe: tf}
	e := c.entryFor(key)

	e.mu.Lock()
	defer e.mu.Unlock()

	prevLast := candle.Candle{}
	hadPrev := len(e.candles) > 0
	if hadPrev {
		prevLast = e.candles[len(e.candles)-1]
	}

	seen := make(map[int64]int, len(e.candles))
	for i, ec := range e.candles {
		seen[ec.OpenTimeMs] = i
	}

	changed := false
	for _, nc := range newCandles {
		if idx, ok := seen[nc.OpenTimeMs]; ok {
			if e.candles[idx] != nc {
				e.candles[idx] = nc
				changed = true
			}
			continue
		}
		e.candles = append(e.candles, nc)
		seen[nc.OpenTimeMs] = len(e.candles) - 1
		changed = true
	}

	sortByOpenTime(e.candles)

	if len(e.candles) > c.maxCandles {
		drop := len(e.candles) - c.maxCandles
		e.candles = append([]candle.Candle(nil), e.candles[drop:]...)
	}

	if len(e.candles) == 0 {
		return changed
	}
	newLast := e.candles[len(e.candles)-1]
	if !hadPrev {
		return changed
	}
	return newLast != prevLast
}

// Latest returns the most recent candle for (symbol, timeframe), or false
// if the series is empty.
func (c *Cache) Latest(symbol string, tf candle.Timeframe) (candle.Candle, bool) {
	key := Key{Symbol: symbol, Timeframe: tf}
	e := c.entryFor(key)
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.candles) == 0 {
		return candle.Candle{}, false
	}
	return e.candles[len(e.candles)-1], true
}

// Series returns a read-only, defensively-copied snapshot of the cached
// candles for (symbol, timeframe).
func (c *Cache) Series(symbol string, tf candle.Timeframe) candle.Series {
	key := Key{Symbol: symbol, Timeframe: tf}
	e := c.entryFor(key)
	e.mu.RLock()
	defer e.mu.RUnlock()

	cp := make([]candle.Candle, len(e.candles))
	copy(cp, e.candles)
	return candle.Series{Symbol: symbol, Timeframe: tf, Candles: cp}
}

// sortByOpenTime performs an insertion sort - cache updates only ever
// append a handful of out-of-order candles at a time, so this is cheaper
// and simpler than pulling in sort.Slice for what's effectively always a
// nearly-sorted slice.
func sortByOpenTime(cs []candle.Candle) {
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && cs[j-1].OpenTimeMs > cs[j].OpenTimeMs; j-- {
			cs[j-1], cs[j] = cs[j], cs[j-1]
		}
	}
}
