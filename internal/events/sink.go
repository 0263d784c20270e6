// Package events implements the durable publication point for
// lifecycle.Events: a non-blocking, bounded, drop-oldest broadcast channel
// for WebSocket fan-out, plus a blocking, retried, idempotent durable
// writer.
package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"signal-engine/internal/lifecycle"
)

// DefaultBroadcastCapacity bounds the broadcast channel; once full, the
// oldest buffered event is dropped to make room and a counter is
// incremented.
const DefaultBroadcastCapacity = 256

// DurableWriter persists SignalEvents at least once. Implementations must
// be idempotent on (Kind, identity, Ts) since Sink retries on failure.
type DurableWriter interface {
	Write(ctx context.Context, ev lifecycle.Event) error
}

// Sink is the single point every component emits lifecycle.Events through.
type Sink struct {
	logger zerolog.Logger
	writer DurableWriter

	mu        sync.Mutex
	broadcast chan lifecycle.Event
	capacity  int
	dropped   atomic.Uint64
}

// New creates a Sink broadcasting on a channel of the given capacity
// (DefaultBroadcastCapacity if cap<=0) and durably persisting through
// writer.
func New(logger zerolog.Logger, writer DurableWriter, capacity int) *Sink {
	if capacity <= 0 {
		capacity = DefaultBroadcastCapacity
	}
	return &Sink{
		logger:    logger,
		writer:    writer,
		broadcast: make(chan lifecycle.Event, capacity),
		capacity:  capacity,
	}
}

// Broadcast returns the read side of the fan-out channel for WebSocket
// subscribers to range over.
func (s *Sink) Broadcast() <-chan lifecycle.Event { return s.broadcast }

// Dropped returns the number of broadcast events dropped so far because
// the channel was full.
func (s *Sink) Dropped() uint64 { return s.dropped.Load() }

// Emit publishes ev to both consumers: non-blocking on the broadcast side,
// blocking-with-retry on the durable side. Within a single identity key,
// callers must invoke Emit in causal order - Sink does not reorder.
func (s *Sink) Emit(ctx context.Context, ev lifecycle.Event) {
	s.emitBroadcast(ev)
	s.emitDurable(ctx, ev)
}

// emitBroadcast never blocks: on a full channel it drops the oldest
// buffered event to make room, under a mutex so concurrent emitters don't
// race on the drain-then-send pair.
func (s *Sink) emitBroadcast(ev lifecycle.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case s.broadcast <- ev:
		return
	default:
	}

	select {
	case <-s.broadcast:
		s.dropped.Add(1)
	default:
	}
	select {
	case s.broadcast <- ev:
	default:
		// Another full channel despite the drain: extremely unlikely with
		// a single mutex serializing producers, but never block a caller.
		s.dropped.Add(1)
	}
}

const (
	durableMaxAttempts = 5
	durableBaseDelay   = 200 * time.Millisecond
)

// emitDurable retries with exponential backoff; the writer is expected to
// be idempotent so replays on failure never double-record an event. After
// exhausting attempts the failure is logged and the event is dropped from
// durable storage (it is still visible on the broadcast side).
func (s *Sink) emitDurable(ctx context.Context, ev lifecycle.Event) {
	if s.writer == nil {
		return
	}
	delay := durableBaseDelay
	for attempt := 1; attempt <= durableMaxAttempts; attempt++ {
		if err := s.writer.Write(ctx, ev); err == nil {
			return
		} else if attempt == durableMaxAttempts {
			s.logger.Error().Err(err).
				Str("symbol", ev.Signal.Symbol).
				Str("kind", string(ev.Kind)).
				Msg("durable event write exhausted retries")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
	}
}
