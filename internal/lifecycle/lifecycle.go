// Package lifecycle maintains the authoritative table of ActiveSignals and
// emits SignalEvents as they're created, updated, superseded, reversed,
// invalidated or expired: a per-position mutex guards an in-memory table
// keyed off a signal identity the caller reconciles against on every
// tick, honoring timeframe-priority rules between competing signals.
package lifecycle

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"signal-engine/internal/candle"
	"signal-engine/internal/scoring"
)

// IdentityKey is the deduplication key for an ActiveSignal:
// (symbol, direction, market).
type IdentityKey struct {
	Symbol    string
	Direction scoring.Direction
	Market    candle.Market
}

// symbolKey identifies "the" slot a symbol occupies within one market,
// independent of direction - reconcile always compares against whatever
// single signal currently occupies this slot (an opposing-direction
// decision replaces it, it never coexists alongside it).
type symbolKey struct {
	Symbol string
	Market candle.Market
}

// ActiveSignal is the authoritative record of one live signal.
type ActiveSignal struct {
	Symbol        string
	Direction     scoring.Direction
	Market        candle.Market
	Timeframe     candle.Timeframe
	Entry         float64
	SL            float64
	TP            float64
	Confidence    float64
	ConditionsMet map[string]bool
	CreatedAt     time.Time
	LastUpdated   time.Time
	Description   string
}

func (s ActiveSignal) identity() IdentityKey {
	return IdentityKey{Symbol: s.Symbol, Direction: s.Direction, Market: s.Market}
}

// EventKind is one of the lifecycle transitions a signal can undergo.
type EventKind string

const (
	Created EventKind = "created"
	Updated EventKind = "updated"
	Deleted EventKind = "deleted"
)

// Event is one SignalEvent, handed to the EventSink by the caller. ID is a
// fresh identifier per event (not per signal) so a durable store can key
// storage-layer deduplication on it in addition to the sink's own
// (kind, identity, ts) idempotency key.
type Event struct {
	ID     uuid.UUID
	Kind   EventKind
	Signal ActiveSignal
	Reason string
	Ts     time.Time
}

func newEvent(kind EventKind, sig ActiveSignal, reason string, ts time.Time) Event {
	return Event{ID: uuid.New(), Kind: kind, Signal: sig, Reason: reason, Ts: ts}
}

// Manager is the single coordinator for ActiveSignal mutation. The zero
// value is not usable; use New.
type Manager struct {
	mu      sync.RWMutex
	slots   map[symbolKey]IdentityKey
	signals map[IdentityKey]*ActiveSignal

	stripeMu sync.Mutex
	stripes  map[symbolKey]*sync.Mutex
}

// New creates an empty Manager.
func New() *Manager {
	return &Manager{
		slots:   make(map[symbolKey]IdentityKey),
		signals: make(map[IdentityKey]*ActiveSignal),
		stripes: make(map[symbolKey]*sync.Mutex),
	}
}

// stripeFor returns the per-(symbol, market) mutex that serializes
// reconcile/sweep for that slot, creating it on first use. Different
// slots' stripes are independent: a reconcile on key K is serialized with
// any other reconcile/sweep on the same K, while unrelated keys proceed
// concurrently.
func (m *Manager) stripeFor(sk symbolKey) *sync.Mutex {
	m.stripeMu.Lock()
	defer m.stripeMu.Unlock()
	mu, ok := m.stripes[sk]
	if !ok {
		mu = &sync.Mutex{}
		m.stripes[sk] = mu
	}
	return mu
}

// Active returns a snapshot copy of every currently active signal, for
// status reporting.
func (m *Manager) Active() []ActiveSignal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ActiveSignal, 0, len(m.signals))
	for _, s := range m.signals {
		out = append(out, *s)
	}
	return out
}

// ConfidenceFor returns the stored confidence of the active signal
// currently occupying (symbol, market)'s slot, if any. Callers that could
// not rescore a symbol against fresh candles use this as Reconcile's
// documented fallback: passing the signal's own stored confidence back in
// leaves it at or above the value that created it, which disables early
// invalidation and falls back to pure expiry.
func (m *Manager) ConfidenceFor(symbol string, market candle.Market) (float64, bool) {
	sig, ok := m.lookup(symbolKey{Symbol: symbol, Market: market})
	if !ok {
		return 0, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sig.Confidence, true
}

func (m *Manager) lookup(sk symbolKey) (*ActiveSignal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key, ok := m.slots[sk]
	if !ok {
		return nil, false
	}
	sig, ok := m.signals[key]
	return sig, ok
}

func (m *Manager) insert(sig ActiveSignal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sig.identity()
	m.signals[key] = &sig
	m.slots[symbolKey{Symbol: sig.Symbol, Market: sig.Market}] = key
}

func (m *Manager) remove(sig *ActiveSignal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sig.identity()
	delete(m.signals, key)
	if cur, ok := m.slots[symbolKey{Symbol: sig.Symbol, Market: sig.Market}]; ok && cur == key {
		delete(m.slots, symbolKey{Symbol: sig.Symbol, Market: sig.Market})
	}
}

// invalidationFloor is the fraction of min_confidence below which an
// existing signal is dropped once a fresh scan no longer supports it.
const invalidationFloor = 0.7

// materialChangeThreshold is the confidence delta required before an
// in-place update is treated as a real change rather than a
// liveness-only refresh.
const materialChangeThreshold = 0.05
