package fetch

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// TileFetcher is the single-attempt primitive wrapped by Retryer.
type TileFetcher interface {
	FetchTile(ctx context.Context, tileURL string) ([]byte, error)
}

// Retryer re-invokes a TileFetcher on retryable failures with capped
// exponential backoff. Permanent errors return immediately: retrying a tile
// the server says does not exist only burns the retry budget.
type Retryer struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int

	// BaseDelay is the backoff before the first retry. Default: 500ms.
	BaseDelay time.Duration

	// MaxDelay caps the backoff growth. Default: 15s.
	MaxDelay time.Duration
}

// Fetch attempts the download up to 1+MaxRetries times. It returns the tile
// bytes, the number of attempts actually made, and the last error.
func (r Retryer) Fetch(ctx context.Context, f TileFetcher, tileURL string) ([]byte, int, error) {
	baseDelay := r.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	maxDelay := r.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 15 * time.Second
	}

	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay << uint(attempt-1)
			if delay > maxDelay {
				delay = maxDelay
			}
			// Jitter in [0.5, 1.5) of the delay keeps workers from
			// hammering the server in lockstep.
			jittered := time.Duration(float64(delay) * (0.5 + rand.Float64()))

			select {
			case <-ctx.Done():
				return nil, attempts, ctx.Err()
			case <-time.After(jittered):
			}
		}

		data, err := f.FetchTile(ctx, tileURL)
		attempts++
		if err == nil {
			return data, attempts, nil
		}
		lastErr = err

		var fe *Error
		if errors.As(err, &fe) && fe.Kind == KindPermanent {
			return nil, attempts, err
		}
		if ctx.Err() != nil {
			return nil, attempts, lastErr
		}
	}

	return nil, attempts, lastErr
}
