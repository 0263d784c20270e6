package events

import (
	"context"
	"fmt"
	"sync"

	"signal-engine/internal/lifecycle"
)

// idempotencyKey is (kind, signal.identity, ts), unique per emitted event.
func idempotencyKey(ev lifecycle.Event) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d",
		ev.Kind, ev.Signal.Symbol, ev.Signal.Direction, ev.Signal.Market, ev.Ts.UnixNano())
}

// MemoryWriter is the default DurableWriter: an in-process, idempotent
// append log. It satisfies the contract for tests and single-process
// deployments; PostgresWriter is the reference implementation for a real
// persistent store.
type MemoryWriter struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	records []lifecycle.Event
}

// NewMemoryWriter creates an empty MemoryWriter.
func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{seen: make(map[string]struct{})}
}

// Write records ev, silently no-op'ing if this exact (kind, identity, ts)
// was already recorded.
func (w *MemoryWriter) Write(_ context.Context, ev lifecycle.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := idempotencyKey(ev)
	if _, dup := w.seen[key]; dup {
		return nil
	}
	w.seen[key] = struct{}{}
	w.records = append(w.records, ev)
	return nil
}

// Records returns a snapshot of every event recorded so far, for tests.
func (w *MemoryWriter) Records() []lifecycle.Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]lifecycle.Event, len(w.records))
	copy(out, w.records)
	return out
}
