package scan

import (
	"context"
	"sort"

	"signal-engine/internal/candle"
	"signal-engine/internal/provider"
)

// VolumeUniverse selects the top N symbols by 24h quote volume for a
// crypto venue, filtering an exchange-info-derived symbol list down from
// "every TRADING USDT pair" to a configurable top-N.
type VolumeUniverse struct {
	Provider  provider.MarketDataProvider
	TopN      int
	VolumeFor func(ctx context.Context, symbol string) (float64, error)
}

// Symbols returns up to TopN tradeable symbols for market, ranked by
// VolumeFor when it's set; with no ranking function it returns the
// provider's full symbol list truncated to TopN.
func (u VolumeUniverse) Symbols(ctx context.Context, market candle.Market) ([]string, error) {
	all, err := u.Provider.ListSymbols(ctx, market)
	if err != nil {
		return nil, err
	}
	if u.VolumeFor == nil {
		return truncate(all, u.TopN), nil
	}

	type ranked struct {
		symbol string
		volume float64
	}
	rankedSymbols := make([]ranked, 0, len(all))
	for _, s := range all {
		vol, err := u.VolumeFor(ctx, s)
		if err != nil {
			continue
		}
		rankedSymbols = append(rankedSymbols, ranked{symbol: s, volume: vol})
	}
	sort.Slice(rankedSymbols, func(i, j int) bool { return rankedSymbols[i].volume > rankedSymbols[j].volume })

	out := make([]string, 0, u.TopN)
	for i := 0; i < len(rankedSymbols) && i < u.TopN; i++ {
		out = append(out, rankedSymbols[i].symbol)
	}
	return out, nil
}

func truncate(symbols []string, n int) []string {
	if n <= 0 || n >= len(symbols) {
		return symbols
	}
	return symbols[:n]
}

// StaticUniverse is the curated symbol list for vendor-based markets
// (forex, commodities) that don't expose a discoverable, rankable symbol
// set.
type StaticUniverse struct {
	List []string
}

func (u StaticUniverse) Symbols(ctx context.Context, market candle.Market) ([]string, error) {
	out := make([]string, len(u.List))
	copy(out, u.List)
	return out, nil
}
