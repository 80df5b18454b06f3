package http

import "golang.org/x/time/rate"

// newRateLimiter returns a token bucket for one connection's commands, or
// nil when limiting is disabled.
func newRateLimiter(perSec float64, burst int) *rate.Limiter {
	if perSec <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = int(perSec)
		if burst < 1 {
			burst = 1
		}
	}
	return rate.NewLimiter(rate.Limit(perSec), burst)
}

func allow(l *rate.Limiter) bool {
	return l == nil || l.Allow()
}
