package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/hashicorp/vault/api"
	"github.com/joho/godotenv"

	"signal-engine/internal/candle"
	"signal-engine/internal/errs"
)

// AppConfig is the process-level configuration read once at startup:
// universe sizing, provider credentials, and rate-limiter budgets. Per
// (market, timeframe) scoring overrides live in the Registry built from
// the same environment (see BuildRegistry).
type AppConfig struct {
	ScanTopN           map[candle.Market]int
	BatchSize          int
	MaxWeightPerMinute map[string]int // keyed by provider name
	ProviderAPIKeys    map[string]string
}

var allMarkets = []candle.Market{candle.MarketSpot, candle.MarketFutures, candle.MarketForex, candle.MarketCommodity}
var allTimeframes = []candle.Timeframe{candle.TF15m, candle.TF1h, candle.TF4h, candle.TF1d}
var allProviders = []string{"binance_spot", "binance_futures", "forex_vendor", "commodity_vendor"}

// defaultScanTopN is the default scan universe size: up to 800 for spot
// and futures, 14 for forex/commodities.
func defaultScanTopN(m candle.Market) int {
	switch m {
	case candle.MarketSpot, candle.MarketFutures:
		return 800
	default:
		return 14
	}
}

// LoadAppConfig loads .env (if present, via godotenv - a missing file is
// not an error) then reads environment variables, resolving provider API
// keys from Vault when VAULT_ADDR is set.
func LoadAppConfig() (*AppConfig, error) {
	_ = godotenv.Load() // optional; real deployments inject env directly

	cfg := &AppConfig{
		ScanTopN:           map[candle.Market]int{},
		MaxWeightPerMinute: map[string]int{},
		ProviderAPIKeys:    map[string]string{},
	}

	for _, m := range allMarkets {
		cfg.ScanTopN[m] = getEnvIntOrDefault(fmt.Sprintf("SCAN_TOP_N_%s", m), defaultScanTopN(m))
	}
	cfg.BatchSize = getEnvIntOrDefault("BATCH_SIZE", 20)

	for _, p := range allProviders {
		cfg.MaxWeightPerMinute[p] = getEnvIntOrDefault(fmt.Sprintf("MAX_WEIGHT_PER_MINUTE_%s", p), 1200)
	}

	vault, err := vaultClient()
	if err != nil {
		return nil, errs.Wrap(errs.ConfigInvalid, "", err)
	}
	for _, p := range allProviders {
		key, err := resolveProviderKey(vault, p)
		if err != nil {
			return nil, err
		}
		cfg.ProviderAPIKeys[p] = key
	}

	return cfg, nil
}

// vaultClient returns a Vault API client when VAULT_ADDR is set, nil
// otherwise - provider credentials then come straight from the
// PROVIDER_{name}_API_KEY environment variables.
func vaultClient() (*api.Client, error) {
	addr := os.Getenv("VAULT_ADDR")
	if addr == "" {
		return nil, nil
	}
	cfg := api.DefaultConfig()
	cfg.Address = addr
	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}
	if token := os.Getenv("VAULT_TOKEN"); token != "" {
		client.SetToken(token)
	}
	return client, nil
}

// resolveProviderKey prefers Vault (path secret/data/signal-engine/providers/{name},
// field api_key) when a client is configured, falling back to the
// PROVIDER_{name}_API_KEY environment variable.
func resolveProviderKey(vault *api.Client, provider string) (string, error) {
	envVar := fmt.Sprintf("PROVIDER_%s_API_KEY", provider)
	if vault == nil {
		return os.Getenv(envVar), nil
	}

	secretPath := fmt.Sprintf("secret/data/signal-engine/providers/%s", provider)
	secret, err := vault.Logical().Read(secretPath)
	if err != nil {
		return "", errs.Wrap(errs.ConfigInvalid, provider, err)
	}
	if secret == nil || secret.Data == nil {
		return os.Getenv(envVar), nil
	}
	data, _ := secret.Data["data"].(map[string]interface{})
	if apiKey, ok := data["api_key"].(string); ok {
		return apiKey, nil
	}
	return os.Getenv(envVar), nil
}

// BuildRegistry constructs a Registry from the default SignalConfig
// overridden per (market, timeframe) by MIN_CONFIDENCE_{market}_{tf},
// SL_ATR_MULT_{market}_{tf}, TP_ATR_MULT_{market}_{tf}, and
// SIGNAL_EXPIRY_MINUTES_{tf}.
func BuildRegistry() (*Registry, error) {
	configs := make(map[Key]SignalConfig)
	for _, m := range allMarkets {
		for _, tf := range allTimeframes {
			c := Default()
			suffix := fmt.Sprintf("%s_%s", m, tf)
			c.MinConfidence = getEnvFloatOrDefault("MIN_CONFIDENCE_"+suffix, c.MinConfidence)
			c.SLATRMultiplier = getEnvFloatOrDefault("SL_ATR_MULT_"+suffix, c.SLATRMultiplier)
			c.TPATRMultiplier = getEnvFloatOrDefault("TP_ATR_MULT_"+suffix, c.TPATRMultiplier)
			c.SignalExpiryMinutes = getEnvIntOrDefault(fmt.Sprintf("SIGNAL_EXPIRY_MINUTES_%s", tf), c.SignalExpiryMinutes)
			configs[Key{Market: m, Timeframe: tf}] = c
		}
	}
	return NewRegistry(configs)
}

// getEnvIntOrDefault and getEnvFloatOrDefault parse-or-fallback: a
// malformed value is never an error, it's logged and ignored at the call
// site instead.
func getEnvIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloatOrDefault(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
