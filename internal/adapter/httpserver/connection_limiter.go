package httpserver

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterIdleTimeout     = 10 * time.Minute
)

// rejectReason labels why a websocket upgrade was refused.
type rejectReason string

const (
	rejectPerIP rejectReason = "per_ip_limit"
	rejectRate  rejectReason = "connect_rate"
)

// ipConnectionLimiter caps concurrent subscribers per client IP. The global
// cap lives in the hub.
type ipConnectionLimiter struct {
	mu     sync.Mutex
	ips    map[string]int
	maxPer int
}

func newIPConnectionLimiter(maxPer int) *ipConnectionLimiter {
	return &ipConnectionLimiter{ips: make(map[string]int), maxPer: maxPer}
}

func (l *ipConnectionLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ips[ip] >= l.maxPer {
		return false
	}
	l.ips[ip]++
	return true
}

func (l *ipConnectionLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch count := l.ips[ip]; {
	case count > 1:
		l.ips[ip] = count - 1
	case count == 1:
		delete(l.ips, ip)
	}
}

// connectRateLimiter is a token bucket per client IP for new connections,
// so a reconnect loop in one overlay cannot churn the hub.
type connectRateLimiter struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	limiters  map[string]*rateEntry
	rate      rate.Limit
	burst     int
	cleanupAt time.Time
}

type rateEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newConnectRateLimiter(clock clockwork.Clock, perSecond float64, burst int) *connectRateLimiter {
	return &connectRateLimiter{
		clock:     clock,
		limiters:  make(map[string]*rateEntry),
		rate:      rate.Limit(perSecond),
		burst:     burst,
		cleanupAt: clock.Now().Add(limiterCleanupInterval),
	}
}

func (l *connectRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if now.After(l.cleanupAt) {
		l.evictIdle(now)
		l.cleanupAt = now.Add(limiterCleanupInterval)
	}

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &rateEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// evictIdle must be called with mu held.
func (l *connectRateLimiter) evictIdle(now time.Time) {
	cutoff := now.Add(-limiterIdleTimeout)
	for ip, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, ip)
		}
	}
}

// connectionLimits is the admission check run before a websocket upgrade.
type connectionLimits struct {
	perIP *ipConnectionLimiter
	rate  *connectRateLimiter
}

func newConnectionLimits(clock clockwork.Clock, perIPMax int, connectsPerSecond float64, burst int) *connectionLimits {
	return &connectionLimits{
		perIP: newIPConnectionLimiter(perIPMax),
		rate:  newConnectRateLimiter(clock, connectsPerSecond, burst),
	}
}

// acquire reserves a slot for ip. On success the caller must release it.
func (l *connectionLimits) acquire(ip string) (bool, rejectReason) {
	if !l.rate.allow(ip) {
		return false, rejectRate
	}
	if !l.perIP.acquire(ip) {
		return false, rejectPerIP
	}
	return true, ""
}

func (l *connectionLimits) release(ip string) {
	l.perIP.release(ip)
}
