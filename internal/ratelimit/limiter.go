// Package ratelimit implements per-key token-bucket limits for write
// requests, keyed by the signer address (or client IP before a signer is
// known).
//
// Free wrong guesses are unlimited at the ledger level; this is the only
// brake on guess spam, so every write route passes through it.
package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a key has exhausted its budget.
var ErrRateLimited = errors.New("ratelimit: too many requests")

type entry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Limiter hands out one token bucket per key.
type Limiter struct {
	rps   rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*entry
}

// New returns a limiter allowing rps sustained requests per key with the
// given burst. Non-positive values fall back to 1.
func New(rps float64, burst int) *Limiter {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*entry),
	}
}

// Allow consumes one token for key, returning ErrRateLimited when none is
// left.
func (l *Limiter) Allow(key string) error {
	if !l.get(key).AllowN(l.now(), 1) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.buckets[key]; ok {
		e.lastAccess = now
		return e.limiter
	}
	e := &entry{limiter: rate.NewLimiter(l.rps, l.burst), lastAccess: now}
	l.buckets[key] = e
	return e.limiter
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Sweep drops buckets idle for longer than ttl and returns how many it
// removed.
func (l *Limiter) Sweep(ttl time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-ttl)
	removed := 0
	for key, e := range l.buckets {
		if e.lastAccess.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Run sweeps idle buckets every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Sweep(ttl); n > 0 {
				slog.Info("rate limiters swept", "removed", n, "remaining", l.Len())
			}
		}
	}
}
