package gateway

import (
	"context"
	"time"
)

// RateLimiter reports whether a call may proceed now, and otherwise how long until the
// next slot opens.
type RateLimiter interface {
	Try() (ok bool, remaining time.Duration)
}

// WaitFor blocks until the limiter grants a slot or the context is done.
func WaitFor(ctx context.Context, limiter RateLimiter) error {
	for {
		ok, remaining := limiter.Try()
		if ok {
			return nil
		}

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
