// Package ratelimit provides per-client token buckets on top of
// golang.org/x/time/rate.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTTL is how long an idle client's bucket is retained.
const DefaultTTL = 10 * time.Minute

// PerKey keeps one token bucket per key, usually a client IP. Buckets idle
// for longer than the TTL are dropped on the next sweep.
type PerKey struct {
	mu       sync.Mutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	lastGC   time.Time
	now      func() time.Time
}

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// New creates a limiter allowing perSecond events per key with an equal burst.
func New(perSecond int, ttl time.Duration) *PerKey {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PerKey{
		limiters: make(map[string]*entry),
		limit:    rate.Limit(perSecond),
		burst:    perSecond,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Allow reports whether one event for key may happen now.
func (l *PerKey) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastGC) > l.ttl {
		for k, e := range l.limiters {
			if now.Sub(e.lastSeen) > l.ttl {
				delete(l.limiters, k)
			}
		}
		l.lastGC = now
	}
	e, ok := l.limiters[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	return e.lim.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (l *PerKey) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
