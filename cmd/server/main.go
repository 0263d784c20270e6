// Command server wires every component into one running signal engine:
// config, providers, rate limiters, the shared candle cache, the scan
// tasks, the scheduler, the admin server, and graceful shutdown. Wiring
// order is: load config, construct dependencies bottom-up, start
// background workers, block on an OS signal, shut down with a bounded
// deadline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"signal-engine/internal/candle"
	"signal-engine/internal/candlecache"
	"signal-engine/internal/config"
	"signal-engine/internal/events"
	"signal-engine/internal/lifecycle"
	"signal-engine/internal/logger"
	"signal-engine/internal/provider"
	"signal-engine/internal/ratelimit"
	"signal-engine/internal/scan"
	"signal-engine/internal/scheduler"
	"signal-engine/internal/scoring"
	"signal-engine/internal/server"
)

// forexUniverse and commodityUniverse are the curated symbol lists the
// vendor adapters serve, since Alpha-Vantage-style vendors don't expose a
// "list all tradeable symbols" endpoint the way an exchange does.
var (
	forexUniverse     = []string{"EURUSD", "GBPUSD", "USDJPY", "AUDUSD", "USDCAD", "USDCHF", "NZDUSD"}
	commodityUniverse = []string{"WTI", "BRENT", "NATURAL_GAS", "COPPER", "ALUMINUM"}
)

func main() {
	log := logger.New(logger.Config{Level: getenv("LOG_LEVEL", "info"), Pretty: os.Getenv("LOG_PRETTY") == "true"})

	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("signal engine exited with error")
	}
}

func run(log zerolog.Logger) error {
	appCfg, err := config.LoadAppConfig()
	if err != nil {
		return fmt.Errorf("load app config: %w", err)
	}

	registry, err := config.BuildRegistry()
	if err != nil {
		return fmt.Errorf("build signal config registry: %w", err)
	}
	store := config.NewStore(registry)

	cache := candlecache.New(getenvIntOr("MAX_CANDLES_CACHED", 200))
	mgr := lifecycle.New()
	scorer := scoring.New()

	writer, closeWriter, err := buildDurableWriter(log)
	if err != nil {
		return fmt.Errorf("build durable writer: %w", err)
	}
	defer closeWriter()
	sink := events.New(logger.Component(log, "events"), writer, getenvIntOr("BROADCAST_CAPACITY", events.DefaultBroadcastCapacity))

	providers := buildProviders(appCfg, log)

	metricsRegistry := scan.NewMetricsRegistry()
	sched := scheduler.New(logger.Component(log, "scheduler"))

	expiryFor := func(tf candle.Timeframe) time.Duration {
		cfg := store.Load().Get(candle.MarketSpot, tf) // SignalExpiryMinutes is keyed by timeframe only, per BuildRegistry
		return time.Duration(cfg.SignalExpiryMinutes) * time.Minute
	}

	for market, p := range providers {
		universe := universeFor(market, p, appCfg)
		for _, tf := range []candle.Timeframe{candle.TF15m, candle.TF1h, candle.TF4h, candle.TF1d} {
			task := scan.New(market, tf, p, universe, cache, scorer, mgr, sink, store, expiryFor, logger.Component(log, fmt.Sprintf("scan_%s_%s", market, tf)))
			job := scheduler.NewScanJob(task, market, tf, metricsRegistry, logger.Component(log, fmt.Sprintf("scan_job_%s_%s", market, tf)))
			if err := sched.RegisterScan(job, market, tf); err != nil {
				return fmt.Errorf("register scan job %s/%s: %w", market, tf, err)
			}
		}
	}

	sweepJob := &scheduler.SweepJob{Lifecycle: mgr, Sink: sink, ExpiryFor: expiryFor, Logger: logger.Component(log, "sweep")}
	if err := sched.RegisterSweep(sweepJob); err != nil {
		return fmt.Errorf("register sweep job: %w", err)
	}

	healthJob := &scheduler.HealthCheckJob{Checkers: healthCheckers(providers, writer), Logger: logger.Component(log, "health_check")}
	if err := sched.RegisterHealthCheck(healthJob); err != nil {
		return fmt.Errorf("register health_check job: %w", err)
	}

	admin := server.New(
		server.Config{
			Host:           getenv("ADMIN_HOST", "0.0.0.0"),
			Port:           getenvIntOr("ADMIN_PORT", 8080),
			ProductionMode: os.Getenv("ENV") == "production",
		},
		metricsRegistry,
		store,
		func() (*config.Registry, error) { return config.BuildRegistry() },
		sink,
		logger.Component(log, "admin_server"),
	)

	sched.Start()
	go func() {
		if err := admin.Start(); err != nil {
			log.Error().Err(err).Msg("admin server stopped")
		}
	}()

	waitForShutdown(log)

	sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := admin.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("admin server shutdown error")
	}
	return nil
}

func waitForShutdown(log zerolog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
}

// buildDurableWriter returns a PostgresWriter when DATABASE_URL-equivalent
// env vars are set, falling back to the in-process MemoryWriter otherwise.
// The durable store is pluggable: either satisfies events.DurableWriter.
func buildDurableWriter(log zerolog.Logger) (events.DurableWriter, func(), error) {
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		log.Warn().Msg("POSTGRES_HOST unset, using in-memory event store (not durable across restarts)")
		return events.NewMemoryWriter(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	w, err := events.NewPostgresWriter(ctx, events.PostgresConfig{
		Host:     host,
		Port:     getenvIntOr("POSTGRES_PORT", 5432),
		User:     getenv("POSTGRES_USER", "signal_engine"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Database: getenv("POSTGRES_DATABASE", "signal_engine"),
		SSLMode:  getenv("POSTGRES_SSLMODE", "disable"),
	})
	if err != nil {
		return nil, func() {}, err
	}
	return w, w.Close, nil
}

// buildProviders constructs one MarketDataProvider per market, each with
// its own rate limiter sized from MaxWeightPerMinute. REDIS_ADDR opts a
// deployment into ratelimit.RedisLimiter, sharing one Redis-backed budget
// per provider name across every process pointed at the same instance;
// unset, each provider gets its own in-process ratelimit.Limiter.
func buildProviders(appCfg *config.AppConfig, log zerolog.Logger) map[candle.Market]provider.MarketDataProvider {
	var redisClient *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD")})
		log.Info().Str("addr", addr).Msg("rate limiting via shared redis budget")
	}

	limiterFor := func(name string) ratelimit.WindowLimiter {
		if redisClient != nil {
			return ratelimit.NewRedisLimiter(redisClient, "ratelimit:"+name, appCfg.MaxWeightPerMinute[name])
		}
		return ratelimit.New(appCfg.MaxWeightPerMinute[name])
	}

	return map[candle.Market]provider.MarketDataProvider{
		candle.MarketSpot:      provider.NewBinanceSpot(limiterFor("binance_spot"), appCfg.BatchSize),
		candle.MarketFutures:   provider.NewBinanceFutures(limiterFor("binance_futures"), appCfg.BatchSize),
		candle.MarketForex:     provider.NewForexVendor(appCfg.ProviderAPIKeys["forex_vendor"], limiterFor("forex_vendor"), appCfg.BatchSize, forexUniverse),
		candle.MarketCommodity: provider.NewCommodityVendor(appCfg.ProviderAPIKeys["commodity_vendor"], limiterFor("commodity_vendor"), appCfg.BatchSize, commodityUniverse),
	}
}

func universeFor(market candle.Market, p provider.MarketDataProvider, appCfg *config.AppConfig) scan.UniverseSource {
	switch market {
	case candle.MarketSpot, candle.MarketFutures:
		return scan.VolumeUniverse{Provider: p, TopN: appCfg.ScanTopN[market]}
	case candle.MarketForex:
		return scan.StaticUniverse{List: forexUniverse}
	default:
		return scan.StaticUniverse{List: commodityUniverse}
	}
}

// providerHealthChecker adapts a MarketDataProvider into a
// scheduler.HealthChecker by confirming its symbol list still resolves.
type providerHealthChecker struct {
	name   string
	market candle.Market
	p      provider.MarketDataProvider
}

func (c providerHealthChecker) Name() string { return c.name }

func (c providerHealthChecker) HealthCheck(ctx context.Context) error {
	_, err := c.p.ListSymbols(ctx, c.market)
	return err
}

func healthCheckers(providers map[candle.Market]provider.MarketDataProvider, writer events.DurableWriter) []scheduler.HealthChecker {
	checkers := make([]scheduler.HealthChecker, 0, len(providers)+1)
	for market, p := range providers {
		checkers = append(checkers, providerHealthChecker{name: p.Name() + ":" + string(market), market: market, p: p})
	}
	if hc, ok := writer.(interface {
		Name() string
		HealthCheck(ctx context.Context) error
	}); ok {
		checkers = append(checkers, hc)
	}
	return checkers
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return def
	}
	return n
}
