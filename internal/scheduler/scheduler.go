// Package scheduler drives ScanTasks and housekeeping jobs off a
// declarative cron table: a robfig/cron/v3 wrapper where AddJob registers
// a Name()/Run() job against a cron expression, with an added
// at-most-one-overlap guard and a hard-deadline abort per job.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one schedulable unit of work: a ScanTask cycle, the expired-signal
// sweep, or the health check.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type jobState struct {
	running atomic.Bool
	missed  atomic.Int64
}

// Scheduler owns a pool of cron-driven execution slots, one per registered
// job, enforcing at-most-one-overlap and a hard deadline per tick.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu     sync.Mutex
	states map[string]*jobState
}

// New creates a Scheduler. Cron expressions passed to AddJob include a
// leading seconds field (cron.WithSeconds()).
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		log:    log.With().Str("component", "scheduler").Logger(),
		states: make(map[string]*jobState),
	}
}

// Start begins dispatching ticks.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop cancels the cron dispatcher and waits for its internal run loop to
// drain, then gives running jobs up to 30s to finish cooperatively before
// returning.
func (s *Scheduler) Stop() {
	stopped := s.cron.Stop()
	<-stopped.Done()

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		if !s.anyRunning() {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) anyRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.states {
		if st.running.Load() {
			return true
		}
	}
	return false
}

// AddJob registers job against a cron schedule. If a tick fires while the
// previous invocation of the same job is still running, the new tick is
// skipped and counted as a miss.
// hardDeadline, if positive, bounds how long one invocation may run before
// its context is cancelled; zero means no deadline (used for health_check,
// which is already bounded by its own per-check timeouts).
func (s *Scheduler) AddJob(schedule string, job Job, hardDeadline time.Duration) error {
	st := &jobState{}
	s.mu.Lock()
	s.states[job.Name()] = st
	s.mu.Unlock()

	_, err := s.cron.AddFunc(schedule, func() {
		if !st.running.CompareAndSwap(false, true) {
			n := st.missed.Add(1)
			s.log.Warn().Str("job", job.Name()).Int64("total_missed", n).Msg("tick skipped, previous instance still running")
			return
		}
		defer st.running.Store(false)

		ctx := context.Background()
		if hardDeadline > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, hardDeadline)
			defer cancel()
		}

		start := time.Now()
		if err := job.Run(ctx); err != nil {
			s.log.Error().Err(err).Str("job", job.Name()).Dur("took", time.Since(start)).Msg("job failed")
			return
		}
		s.log.Debug().Str("job", job.Name()).Dur("took", time.Since(start)).Msg("job completed")
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("schedule", schedule).Str("job", job.Name()).Msg("job registered")
	return nil
}

// Missed returns how many ticks were skipped for job because the previous
// invocation hadn't finished, for health_check/metrics reporting.
func (s *Scheduler) Missed(jobName string) int64 {
	s.mu.Lock()
	st := s.states[jobName]
	s.mu.Unlock()
	if st == nil {
		return 0
	}
	return st.missed.Load()
}
