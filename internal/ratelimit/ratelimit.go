// Package ratelimit enforces a per-source-IP connection rate on the TCP
// subscription front-end: one token bucket per remote address.
package ratelimit

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// cleanupInterval is how long an IP's bucket may sit idle before a sweep
// reclaims it.
const cleanupInterval = 60 * time.Second

// PerIPLimiter tracks an independent token bucket per source IP address.
// Idle entries are reclaimed lazily on Allow: no background goroutine,
// just a check against the last sweep time on the access path.
type PerIPLimiter struct {
	rps   rate.Limit
	burst int

	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	lastSeen    map[string]time.Time
	lastCleanup time.Time
}

// NewPerIPLimiter creates a limiter allowing rps connection attempts per
// second per source IP, with the given burst allowance.
func NewPerIPLimiter(rps float64, burst int) *PerIPLimiter {
	return &PerIPLimiter{
		rps:         rate.Limit(rps),
		burst:       burst,
		limiters:    make(map[string]*rate.Limiter),
		lastSeen:    make(map[string]time.Time),
		lastCleanup: time.Now(),
	}
}

// Allow reports whether a new connection from addr should be accepted.
// addr is typically the result of (net.Conn).RemoteAddr().
func (l *PerIPLimiter) Allow(addr net.Addr) bool {
	host := hostOf(addr)
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastCleanup) > cleanupInterval {
		l.sweepLocked(now)
	}

	lim, ok := l.limiters[host]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[host] = lim
	}
	l.lastSeen[host] = now

	return lim.Allow()
}

// sweepLocked drops any IP that hasn't connected in over cleanupInterval.
// Must be called with l.mu held.
func (l *PerIPLimiter) sweepLocked(now time.Time) {
	staleBefore := now.Add(-cleanupInterval)
	for host, seen := range l.lastSeen {
		if seen.Before(staleBefore) {
			delete(l.lastSeen, host)
			delete(l.limiters, host)
		}
	}
	l.lastCleanup = now
}

func hostOf(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
