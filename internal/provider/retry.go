package provider

import (
	"context"
	"math/rand"
	"time"

	"signal-engine/internal/candle"
	"signal-engine/internal/errs"
)

const (
	retryAttempts  = 3
	retryBaseDelay = time.Second
	retryFactor    = 2
	retryJitterPct = 0.20
)

// withRetry runs do up to retryAttempts times, retrying only when the
// returned error classifies (via errs.Retryable) as TRANSIENT_NETWORK,
// RATE_LIMITED or PROVIDER, with exponential backoff and +/-20% jitter.
// Any other error kind surfaces on the first attempt.
func withRetry(ctx context.Context, do func() (candle.Series, error)) (candle.Series, error) {
	var lastErr error
	delay := retryBaseDelay

	for attempt := 1; attempt <= retryAttempts; attempt++ {
		series, err := do()
		if err == nil {
			return series, nil
		}
		lastErr = err
		if !errs.Retryable(errs.KindOf(err)) || attempt == retryAttempts {
			return candle.Series{}, err
		}

		jitter := 1 + (rand.Float64()*2-1)*retryJitterPct
		wait := time.Duration(float64(delay) * jitter)
		select {
		case <-ctx.Done():
			return candle.Series{}, ctx.Err()
		case <-time.After(wait):
		}
		delay *= retryFactor
	}
	return candle.Series{}, lastErr
}
