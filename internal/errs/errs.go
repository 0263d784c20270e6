// Package errs implements the error-kind taxonomy the signal engine's
// components classify failures into. Callers branch on Kind, never on
// string-matching an error message.
package errs

import (
	"errors"
	"fmt"
)

// Kind is one of the classified failure categories the core distinguishes.
type Kind string

const (
	// TransientNetwork covers connection resets, timeouts, DNS failures -
	// retried with exponential backoff.
	TransientNetwork Kind = "TRANSIENT_NETWORK"
	// RateLimited means the provider itself rejected the request for
	// exceeding its budget; honor Retry-After when present.
	RateLimited Kind = "RATE_LIMITED"
	// Auth is fatal for the affected provider until an operator rotates
	// credentials.
	Auth Kind = "AUTH"
	// SymbolUnknown means the provider doesn't recognize the symbol for
	// this cycle; it is dropped from the universe for the cycle.
	SymbolUnknown Kind = "SYMBOL_UNKNOWN"
	// Provider is an unclassified 5xx; retried once then treated as
	// TransientNetwork.
	Provider Kind = "PROVIDER"
	// ConfigInvalid is fatal at startup.
	ConfigInvalid Kind = "CONFIG_INVALID"
	// SignalUnpriceable means the computed SL/TP would be non-positive;
	// the decision is dropped.
	SignalUnpriceable Kind = "SIGNAL_UNPRICEABLE"
	// Internal is an unexpected error caught at a task boundary.
	Internal Kind = "INTERNAL"
)

// Classified wraps an underlying error with a Kind so callers can recover
// it with errors.As without parsing messages.
type Classified struct {
	Kind    Kind
	Symbol  string // optional, set when the failure is symbol-scoped
	Cause   error
	Message string
}

func (e *Classified) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Symbol, e.message())
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.message())
}

func (e *Classified) message() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "unspecified"
}

func (e *Classified) Unwrap() error { return e.Cause }

// New builds a Classified error of the given kind.
func New(kind Kind, msg string) *Classified {
	return &Classified{Kind: kind, Message: msg}
}

// Wrap classifies an existing error under kind.
func Wrap(kind Kind, symbol string, cause error) *Classified {
	return &Classified{Kind: kind, Symbol: symbol, Cause: cause}
}

// KindOf extracts the Kind from err, defaulting to Internal when err isn't
// a *Classified.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var c *Classified
	if errors.As(err, &c) {
		return c.Kind
	}
	return Internal
}

// Retryable reports whether an error kind should be retried with backoff.
func Retryable(k Kind) bool {
	switch k {
	case TransientNetwork, RateLimited, Provider:
		return true
	default:
		return false
	}
}
