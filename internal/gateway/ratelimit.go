package gateway

import (
	"sync"
	"time"
)

// Clock abstracts time.Now so window rollover is testable.
type Clock func() time.Time

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type windowEntry struct {
	windowStart time.Time
	count       int
}

// FixedWindowLimiter admits requests per identity with a fixed window
// counter. The counter resets when the window rolls over; rejected
// requests never reach the upstream.
type FixedWindowLimiter struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	now     Clock
}

func NewFixedWindowLimiter(clock Clock) *FixedWindowLimiter {
	if clock == nil {
		clock = time.Now
	}
	return &FixedWindowLimiter{
		entries: make(map[string]*windowEntry),
		now:     clock,
	}
}

// Admit checks one request against the identity's current window. Limit
// and window size are passed per call so settings changes apply without
// restarting the limiter.
func (l *FixedWindowLimiter) Admit(identity string, limit int, window time.Duration) Decision {
	if limit <= 0 || window <= 0 {
		return Decision{Allowed: true}
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identity]
	if !ok || now.Sub(e.windowStart) >= window {
		l.entries[identity] = &windowEntry{windowStart: now, count: 1}
		l.maybePruneLocked(now, window)
		return Decision{Allowed: true}
	}

	if e.count >= limit {
		retry := e.windowStart.Add(window).Sub(now)
		if retry < time.Second {
			retry = time.Second
		}
		return Decision{Allowed: false, RetryAfter: retry}
	}

	e.count++
	return Decision{Allowed: true}
}

// maybePruneLocked drops expired windows once the table grows large.
func (l *FixedWindowLimiter) maybePruneLocked(now time.Time, window time.Duration) {
	if len(l.entries) < 10000 {
		return
	}
	for id, e := range l.entries {
		if now.Sub(e.windowStart) >= window {
			delete(l.entries, id)
		}
	}
}
