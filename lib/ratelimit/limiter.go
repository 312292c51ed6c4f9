// Package ratelimit provides a simple token bucket rate limiter.
// The load generator uses it to pace how often simulated callers hit a pool.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket rate limiter.
// A nil *Limiter allows everything.
type Limiter struct {
	mu       sync.Mutex
	rate     float64   // tokens per second
	capacity float64   // max tokens
	tokens   float64   // current tokens
	lastTime time.Time // last refill time
}

// New creates a new rate limiter.
// rate is tokens per second, capacity is the maximum burst size.
// A capacity below 1 is raised to 1.
func New(rate float64, capacity int) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	return &Limiter{
		rate:     rate,
		capacity: float64(capacity),
		tokens:   float64(capacity),
		lastTime: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	for {
		delay, ok := l.reserve()
		if ok {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve takes a token if one is available, otherwise reports how long
// until the next token.
func (l *Limiter) reserve() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()

	if l.tokens >= 1 {
		l.tokens--
		return 0, true
	}
	if l.rate <= 0 {
		// Never refills; poll rather than block forever so ctx can end it.
		return 10 * time.Millisecond, false
	}
	missing := 1 - l.tokens
	return time.Duration(missing / l.rate * float64(time.Second)), false
}

// refill adds tokens based on elapsed time. Must be called with lock held.
func (l *Limiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.lastTime).Seconds()
	l.tokens += elapsed * l.rate
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}
	l.lastTime = now
}
