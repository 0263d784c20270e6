package scheduler

import (
	"fmt"
	"time"

	"signal-engine/internal/candle"
)

// cronFor returns the six-field (seconds-first) cron expression for the
// default schedule. Crypto venues tick on the timeframe boundary; vendor
// venues (forex, commodities) tick 10 minutes past it, since upstream
// vendor bars for a boundary aren't reliably final until then.
func cronFor(market candle.Market, tf candle.Timeframe) (string, error) {
	vendor := market == candle.MarketForex || market == candle.MarketCommodity
	switch tf {
	case candle.TF15m:
		if vendor {
			return "0 10,25,40,55 * * * *", nil
		}
		return "0 */15 * * * *", nil
	case candle.TF1h:
		if vendor {
			return "0 10 * * * *", nil
		}
		return "0 0 * * * *", nil
	case candle.TF4h:
		if vendor {
			return "0 10 */4 * * *", nil
		}
		return "0 0 */4 * * *", nil
	case candle.TF1d:
		if vendor {
			return "0 10 0 * * *", nil
		}
		return "0 0 0 * * *", nil
	default:
		return "", fmt.Errorf("scheduler: no default cadence for timeframe %q", tf)
	}
}

// hardDeadlineFor is 5x the schedule interval: past this, a scan task is
// aborted and its partial results are discarded except for metrics.
func hardDeadlineFor(tf candle.Timeframe) time.Duration {
	return 5 * tf.Duration()
}

// RegisterScan wires one ScanJob into s under the default cadence for its
// (market, timeframe).
func (s *Scheduler) RegisterScan(job *ScanJob, market candle.Market, tf candle.Timeframe) error {
	schedule, err := cronFor(market, tf)
	if err != nil {
		return err
	}
	return s.AddJob(schedule, job, hardDeadlineFor(tf))
}

// RegisterSweep wires the standalone expired-signal sweep at its fixed
// 5-minute cadence.
func (s *Scheduler) RegisterSweep(job *SweepJob) error {
	return s.AddJob("0 */5 * * * *", job, time.Minute)
}

// RegisterHealthCheck wires the dependency health probe at its fixed
// 10-minute cadence.
func (s *Scheduler) RegisterHealthCheck(job *HealthCheckJob) error {
	return s.AddJob("0 */10 * * * *", job, time.Minute)
}
