package lifecycle

import (
	"time"

	"signal-engine/internal/candle"
	"signal-engine/internal/scoring"
)

// Reconcile applies one ScanTask's decision for (symbol, market, timeframe)
// against the current table and returns the SignalEvents produced (zero,
// one, or two - a supersede/reverse both deletes the old signal and
// creates the new one). decision is nil when the scan produced no signal
// for this symbol. rescoredConfidence is the confidence the existing
// signal would get if rescored against the fresh candles used for this
// decision (used only when decision is nil, to evaluate the invalidation
// floor); callers that did not rescore may pass the existing signal's
// stored confidence unchanged, which disables early invalidation and
// falls back to pure expiry.
func (m *Manager) Reconcile(market candle.Market, timeframe candle.Timeframe, symbol string, decision *scoring.Decision, rescoredConfidence float64, minConfidence float64, expiry time.Duration, now time.Time) []Event {
	sk := symbolKey{Symbol: symbol, Market: market}
	stripe := m.stripeFor(sk)
	stripe.Lock()
	defer stripe.Unlock()

	old, hasOld := m.lookup(sk)
	if !hasOld {
		if decision == nil {
			return nil
		}
		sig := newSignal(symbol, market, timeframe, decision, now)
		m.insert(sig)
		return []Event{newEvent(Created, sig, "", now)}
	}

	// Snapshot under the map lock: every read below operates on this copy,
	// not on the shared *ActiveSignal, so concurrent Active() callers never
	// observe a torn struct.
	m.mu.RLock()
	oldVal := *old
	m.mu.RUnlock()

	if decision == nil {
		if rescoredConfidence < invalidationFloor*minConfidence {
			m.remove(old)
			return []Event{newEvent(Deleted, oldVal, "invalidated", now)}
		}
		if now.Sub(oldVal.LastUpdated) >= expiry {
			m.remove(old)
			return []Event{newEvent(Deleted, oldVal, "expired", now)}
		}
		return nil
	}

	newPriority := timeframe.Priority()
	oldPriority := oldVal.Timeframe.Priority()

	switch {
	case newPriority < oldPriority:
		return nil

	case newPriority > oldPriority:
		m.remove(old)
		created := newSignal(symbol, market, timeframe, decision, now)
		m.insert(created)
		return []Event{
			{Kind: Deleted, Signal: oldVal, Reason: "superseded", Ts: now},
			{Kind: Created, Signal: created, Ts: now},
		}

	default: // same timeframe priority
		if decision.Direction != oldVal.Direction {
			m.remove(old)
			created := newSignal(symbol, market, timeframe, decision, now)
			m.insert(created)
			return []Event{
				{Kind: Deleted, Signal: oldVal, Reason: "reversed", Ts: now},
				{Kind: Created, Signal: created, Ts: now},
			}
		}

		if materialChange(&oldVal, decision) {
			m.mu.Lock()
			old.Entry, old.SL, old.TP = decision.Entry, decision.SL, decision.TP
			old.Confidence = decision.Confidence
			old.ConditionsMet = decision.ConditionsMet
			old.LastUpdated = now
			updated := *old
			m.mu.Unlock()
			return []Event{newEvent(Updated, updated, "", now)}
		}

		// Liveness-only refresh: bump last_updated, emit nothing.
		m.mu.Lock()
		old.LastUpdated = now
		m.mu.Unlock()
		return nil
	}
}

// Sweep invalidates every active signal past its expiry with no recent
// update, returning the resulting deletion events.
func (m *Manager) Sweep(now time.Time, expiryFor func(candle.Timeframe) time.Duration) []Event {
	m.mu.RLock()
	keys := make([]symbolKey, 0, len(m.slots))
	for sk := range m.slots {
		keys = append(keys, sk)
	}
	m.mu.RUnlock()

	var events []Event
	for _, sk := range keys {
		stripe := m.stripeFor(sk)
		stripe.Lock()
		sig, ok := m.lookup(sk)
		if ok {
			m.mu.RLock()
			sigVal := *sig
			m.mu.RUnlock()
			if now.Sub(sigVal.LastUpdated) >= expiryFor(sigVal.Timeframe) {
				m.remove(sig)
				events = append(events, newEvent(Deleted, sigVal, "expired", now))
			}
		}
		stripe.Unlock()
	}
	return events
}

func newSignal(symbol string, market candle.Market, tf candle.Timeframe, d *scoring.Decision, now time.Time) ActiveSignal {
	return ActiveSignal{
		Symbol:        symbol,
		Direction:     d.Direction,
		Market:        market,
		Timeframe:     tf,
		Entry:         d.Entry,
		SL:            d.SL,
		TP:            d.TP,
		Confidence:    d.Confidence,
		ConditionsMet: d.ConditionsMet,
		CreatedAt:     now,
		LastUpdated:   now,
	}
}

func materialChange(old *ActiveSignal, d *scoring.Decision) bool {
	if absFloat(d.Confidence-old.Confidence) >= materialChangeThreshold {
		return true
	}
	return d.Entry != old.Entry || d.SL != old.SL || d.TP != old.TP
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
