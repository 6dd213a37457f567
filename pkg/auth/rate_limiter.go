package auth

import (
	"sync"
	"time"
)

/*
RateLimiter is a token bucket.  The bucket starts full, refills continuously
at rate/interval and never holds more than its capacity, so a quiet period
buys at most one burst of capacity calls.
*/
type RateLimiter struct {
	mu       sync.Mutex
	rate     float64 // tokens per second
	capacity float64
	tokens   float64
	last     time.Time
}

func NewRateLimiter(rate int64, interval time.Duration) *RateLimiter {
	if rate <= 0 || interval <= 0 {
		panic("rate and interval must be positive")
	}

	return &RateLimiter{
		rate:     float64(rate) / interval.Seconds(),
		capacity: float64(rate),
		tokens:   float64(rate),
		last:     time.Now(),
	}
}

// Allow consumes one token when available and reports whether the call is
// within the limit.
func (limiter *RateLimiter) Allow() bool {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	limiter.refill()

	if limiter.tokens < 1.0 {
		return false
	}

	limiter.tokens--

	return true
}

// WaitTime returns how long until the next token becomes available.
func (limiter *RateLimiter) WaitTime() time.Duration {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	limiter.refill()

	if limiter.tokens >= 1.0 {
		return 0
	}

	return time.Duration((1.0 - limiter.tokens) / limiter.rate * float64(time.Second))
}

// Reset refills the bucket to capacity.
func (limiter *RateLimiter) Reset() {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	limiter.tokens = limiter.capacity
	limiter.last = time.Now()
}

// refill credits tokens for the time elapsed since the last call.  Callers
// hold the mutex.
func (limiter *RateLimiter) refill() {
	now := time.Now()
	limiter.tokens += now.Sub(limiter.last).Seconds() * limiter.rate
	limiter.last = now

	if limiter.tokens > limiter.capacity {
		limiter.tokens = limiter.capacity
	}
}
