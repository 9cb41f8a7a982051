package nanobanana

import (
	"context"
	"time"
)

// Backoff decides how long to wait before the given poll attempt. The fixed
// policy is the only one in use; the interface exists so tests and future
// callers can substitute cancellation-aware or exponential waits.
type Backoff interface {
	Wait(ctx context.Context, attempt int) error
}

// FixedBackoff waits the same interval between every attempt.
type FixedBackoff struct {
	Interval time.Duration
}

func (b FixedBackoff) Wait(ctx context.Context, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(b.Interval):
		return nil
	}
}
