package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"signal-engine/internal/candle"
	"signal-engine/internal/events"
	"signal-engine/internal/lifecycle"
	"signal-engine/internal/scan"
)

// ScanJob adapts one scan.Task into a schedulable Job.
type ScanJob struct {
	task     *scan.Task
	name     string
	log      zerolog.Logger
	registry *scan.MetricsRegistry
}

// NewScanJob names the job "scan:<market>:<timeframe>" so logs and missed
// counters are easy to correlate per (market, timeframe). registry may be
// nil, in which case Metrics from this job never surface on the admin
// status endpoint.
func NewScanJob(task *scan.Task, market candle.Market, tf candle.Timeframe, registry *scan.MetricsRegistry, log zerolog.Logger) *ScanJob {
	return &ScanJob{task: task, name: fmt.Sprintf("scan:%s:%s", market, tf), log: log, registry: registry}
}

func (j *ScanJob) Name() string { return j.name }

func (j *ScanJob) Run(ctx context.Context) error {
	m := j.task.Run(ctx)
	if j.registry != nil {
		j.registry.Record(j.name, m)
	}
	j.log.Info().
		Str("market", string(m.Market)).Str("timeframe", string(m.Timeframe)).
		Int("total", m.TotalSymbols).Int("ok", m.Successes).
		Int("created", m.SignalsCreated).Int("updated", m.SignalsUpdated).Int("deleted", m.SignalsDeleted).
		Dur("duration", m.Duration).
		Msg("scan cycle complete")
	if m.ProviderOutage {
		return fmt.Errorf("scan %s/%s: provider outage, all symbol fetches failed", m.Market, m.Timeframe)
	}
	return nil
}

// SweepJob runs the expired-signal sweep on its own schedule, independently
// of any single ScanTask's own end-of-cycle sweep, so signals held by
// infrequently-scanned timeframes (1d) still expire on time.
type SweepJob struct {
	Lifecycle *lifecycle.Manager
	Sink      *events.Sink
	ExpiryFor func(candle.Timeframe) time.Duration
	Logger    zerolog.Logger
}

func (j *SweepJob) Name() string { return "sweep_expired_signals" }

func (j *SweepJob) Run(ctx context.Context) error {
	evs := j.Lifecycle.Sweep(time.Now(), j.ExpiryFor)
	for _, ev := range evs {
		j.Sink.Emit(ctx, ev)
	}
	if len(evs) > 0 {
		j.Logger.Info().Int("expired", len(evs)).Msg("sweep expired signals")
	}
	return nil
}

// HealthChecker is a dependency the health_check job probes: providers,
// the durable event writer, the distributed rate limiter's Redis client.
type HealthChecker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

// HealthCheckJob probes every registered HealthChecker and logs the
// result; it never fails the job itself (a down dependency is reported,
// not treated as a scheduler-level error) so one flaky checker doesn't
// spam error-level logs every 10 minutes.
type HealthCheckJob struct {
	Checkers []HealthChecker
	Logger   zerolog.Logger
}

func (j *HealthCheckJob) Name() string { return "health_check" }

func (j *HealthCheckJob) Run(ctx context.Context) error {
	for _, c := range j.Checkers {
		if err := c.HealthCheck(ctx); err != nil {
			j.Logger.Warn().Err(err).Str("dependency", c.Name()).Msg("health check failed")
			continue
		}
		j.Logger.Debug().Str("dependency", c.Name()).Msg("health check ok")
	}
	return nil
}
