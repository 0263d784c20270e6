package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"signal-engine/internal/candle"
	"signal-engine/internal/errs"
	"signal-engine/internal/ratelimit"
)

// binanceVariant distinguishes the two Binance adapters, which differ only
// in base URL, REST path prefix and market tag.
type binanceVariant struct {
	name      string
	baseURL   string
	klinePath string
	infoPath  string
	market    candle.Market
}

var binanceSpotVariant = binanceVariant{
	name:      "binance_spot",
	baseURL:   "https://api.binance.com",
	klinePath: "/api/v3/klines",
	infoPath:  "/api/v3/exchangeInfo",
	market:    candle.MarketSpot,
}

var binanceFuturesVariant = binanceVariant{
	name:      "binance_futures",
	baseURL:   "https://fapi.binance.com",
	klinePath: "/fapi/v1/klines",
	infoPath:  "/fapi/v1/exchangeInfo",
	market:    candle.MarketFutures,
}

// BinanceAdapter implements MarketDataProvider against Binance's spot or
// USD-M futures REST API: raw-array kline parsing over the public,
// HMAC-free market data endpoints, with per-endpoint weight accounting
// against a shared ratelimit.Limiter.
type BinanceAdapter struct {
	variant    binanceVariant
	httpClient *http.Client
	limiter    ratelimit.WindowLimiter
	batchSize  int
	dedup      dedup
}

// NewBinanceSpot builds the spot-market adapter.
func NewBinanceSpot(limiter ratelimit.WindowLimiter, batchSize int) *BinanceAdapter {
	return newBinanceAdapter(binanceSpotVariant, limiter, batchSize)
}

// NewBinanceFutures builds the USD-M futures adapter.
func NewBinanceFutures(limiter ratelimit.WindowLimiter, batchSize int) *BinanceAdapter {
	return newBinanceAdapter(binanceFuturesVariant, limiter, batchSize)
}

func newBinanceAdapter(v binanceVariant, limiter ratelimit.WindowLimiter, batchSize int) *BinanceAdapter {
	return &BinanceAdapter{
		variant:    v,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    limiter,
		batchSize:  batchSize,
	}
}

func (b *BinanceAdapter) Name() string { return b.variant.name }

// klineWeight mirrors Binance's published weight schedule for the klines
// endpoint: the request cost scales with how many candles are requested.
func klineWeight(limit int) int {
	switch {
	case limit <= 100:
		return 1
	case limit <= 500:
		return 2
	default:
		return 5
	}
}

func (b *BinanceAdapter) ListSymbols(ctx context.Context, market candle.Market) ([]string, error) {
	if market != b.variant.market {
		return nil, errs.New(errs.ConfigInvalid, fmt.Sprintf("%s does not serve market %s", b.variant.name, market))
	}
	if err := b.limiter.AcquireContext(ctx, 10); err != nil {
		return nil, errs.Wrap(errs.TransientNetwork, "", err)
	}

	endpoint := b.variant.baseURL + b.variant.infoPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.TransientNetwork, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.TransientNetwork, "", err)
	}
	if err := classifyStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	var info struct {
		Symbols []struct {
			Symbol string `json:"symbol"`
			Status string `json:"status"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, errs.Wrap(errs.Provider, "", err)
	}

	symbols := make([]string, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status == "TRADING" {
			symbols = append(symbols, s.Symbol)
		}
	}
	return symbols, nil
}

func (b *BinanceAdapter) FetchCandles(ctx context.Context, symbol string, tf candle.Timeframe, limit int) (candle.Series, error) {
	return b.dedup.fetch(symbol, tf, limit, func() (candle.Series, error) {
		return withRetry(ctx, func() (candle.Series, error) {
			return b.fetchOnce(ctx, symbol, tf, limit)
		})
	})
}

func (b *BinanceAdapter) fetchOnce(ctx context.Context, symbol string, tf candle.Timeframe, limit int) (candle.Series, error) {
	if !tf.Valid() {
		return candle.Series{}, errs.New(errs.ConfigInvalid, "unsupported timeframe "+string(tf))
	}
	if err := b.limiter.AcquireContext(ctx, klineWeight(limit)); err != nil {
		return candle.Series{}, errs.Wrap(errs.TransientNetwork, symbol, err)
	}

	endpoint := fmt.Sprintf("%s%s?symbol=%s&interval=%s&limit=%d",
		b.variant.baseURL, b.variant.klinePath, symbol, string(tf), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return candle.Series{}, errs.Wrap(errs.Internal, symbol, err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return candle.Series{}, errs.Wrap(errs.TransientNetwork, symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return candle.Series{}, errs.Wrap(errs.TransientNetwork, symbol, err)
	}
	if err := classifyStatusForSymbol(symbol, resp.StatusCode, body); err != nil {
		return candle.Series{}, err
	}

	var raw [][]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return candle.Series{}, errs.Wrap(errs.Provider, symbol, err)
	}

	candles := make([]candle.Candle, 0, len(raw))
	now := time.Now().UnixMilli()
	for _, k := range raw {
		if len(k) < 7 {
			continue
		}
		closeTime := int64(k[6].(float64))
		if closeTime > now {
			// Binance's last entry can be the still-forming candle; the
			// spec forbids returning a partial last candle.
			continue
		}
		candles = append(candles, candle.Candle{
			OpenTimeMs:  int64(k[0].(float64)),
			Open:        parseBinanceFloat(k[1]),
			High:        parseBinanceFloat(k[2]),
			Low:         parseBinanceFloat(k[3]),
			Close:       parseBinanceFloat(k[4]),
			Volume:      parseBinanceFloat(k[5]),
			CloseTimeMs: closeTime,
		})
	}

	return candle.Series{Symbol: symbol, Timeframe: tf, Candles: candles}, nil
}

func (b *BinanceAdapter) BatchFetchCandles(ctx context.Context, symbols []string, tf candle.Timeframe, limit int) (map[string]candle.Series, map[string]error) {
	return batchFetch(ctx, symbols, b.batchSize, func(ctx context.Context, symbol string) (candle.Series, error) {
		return b.FetchCandles(ctx, symbol, tf, limit)
	})
}

func classifyStatus(status int, body []byte) error {
	return classifyStatusForSymbol("", status, body)
}

func classifyStatusForSymbol(symbol string, status int, body []byte) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests || status == 418:
		return errs.Wrap(errs.RateLimited, symbol, fmt.Errorf("binance returned %d: %s", status, body))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errs.Wrap(errs.Auth, symbol, fmt.Errorf("binance returned %d: %s", status, body))
	case status == http.StatusBadRequest:
		return errs.Wrap(errs.SymbolUnknown, symbol, fmt.Errorf("binance returned %d: %s", status, body))
	case status >= 500:
		return errs.Wrap(errs.Provider, symbol, fmt.Errorf("binance returned %d: %s", status, body))
	default:
		return errs.Wrap(errs.Provider, symbol, fmt.Errorf("binance returned %d: %s", status, body))
	}
}

func parseBinanceFloat(v interface{}) float64 {
	switch t := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	case float64:
		return t
	default:
		return 0
	}
}
