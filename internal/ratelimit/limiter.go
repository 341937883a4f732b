package ratelimit

import (
	"sync"
	"time"
)

// Clock supplies the current time so tests can run without wall-clock sleeps.
type Clock func() time.Time

// Limiter enforces a minimum interval between accepted queries per session.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
	now      Clock
}

func New(interval time.Duration) *Limiter {
	return NewWithClock(interval, time.Now)
}

func NewWithClock(interval time.Duration, now Clock) *Limiter {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		interval: interval,
		last:     make(map[string]time.Time),
		now:      now,
	}
}

// Allow reports whether a query for sessionID is accepted right now. Only an
// accepted query updates the session's last-accepted timestamp; a rejected
// attempt leaves state untouched and returns how long the caller should wait.
func (l *Limiter) Allow(sessionID string) (bool, time.Duration) {
	now := l.now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()

	last, seen := l.last[sessionID]
	if !allowed(last, now, l.interval, seen) {
		return false, l.interval - now.Sub(last)
	}
	l.last[sessionID] = now
	return true, 0
}

// Forget clears rate state for a session, e.g. after a conversation reset.
func (l *Limiter) Forget(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.last, sessionID)
}

// Prune drops entries whose last accepted query is older than ttl and returns
// how many were removed.
func (l *Limiter) Prune(ttl time.Duration) int {
	now := l.now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, last := range l.last {
		if now.Sub(last) >= ttl {
			delete(l.last, id)
			removed++
		}
	}
	return removed
}

// allowed is the pure rate decision: a never-seen session is always accepted,
// otherwise the full interval must have elapsed since the last accepted query.
func allowed(last, now time.Time, interval time.Duration, seen bool) bool {
	if !seen {
		return true
	}
	return now.Sub(last) >= interval
}
