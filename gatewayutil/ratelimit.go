package gatewayutil

import (
	"time"

	"github.com/beefsack/go-rate"

	"github.com/khlpkg/gateway"
)

// NewRequestRateLimiter limits calls against the http api.
func NewRequestRateLimiter() gateway.RateLimiter {
	burstSize, duration := 120, 60*time.Second
	burstSize -= 2 // reserve calls for reconnect lookups

	return rate.New(burstSize, duration)
}

// NewLocalDialRateLimiter allows one gateway dial per interval.
func NewLocalDialRateLimiter(interval time.Duration) *LocalDialRateLimiter {
	return &LocalDialRateLimiter{
		limiter: rate.New(1, interval),
	}
}

type LocalDialRateLimiter struct {
	limiter *rate.RateLimiter
}

var _ gateway.RateLimiter = &LocalDialRateLimiter{}

func (rl *LocalDialRateLimiter) Try() (bool, time.Duration) {
	return rl.limiter.Try()
}
