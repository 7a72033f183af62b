package auth

import (
	"sync"
	"time"
)

type attemptWindow struct {
	attempts int
	start    time.Time
}

// RateLimiter is a fixed-window limiter keyed by an arbitrary string (client
// IP for logins). Each instance owns its state; create one per guarded
// endpoint and pass it where it is needed.
type RateLimiter struct {
	mu          sync.Mutex
	windows     map[string]*attemptWindow
	maxAttempts int
	window      time.Duration
	staleAfter  time.Duration
	now         func() time.Time
}

// NewRateLimiter allows maxAttempts calls per key within window. Entries
// idle for five windows are dropped on the next Allow.
func NewRateLimiter(maxAttempts int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		windows:     make(map[string]*attemptWindow),
		maxAttempts: maxAttempts,
		window:      window,
		staleAfter:  5 * window,
		now:         time.Now,
	}
}

// Allow records an attempt for key. When the limit is exhausted it returns
// false and how long until the window resets.
func (rl *RateLimiter) Allow(key string) (allowed bool, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.cleanup(now)

	w, ok := rl.windows[key]
	if !ok {
		rl.windows[key] = &attemptWindow{attempts: 1, start: now}
		return true, 0
	}

	elapsed := now.Sub(w.start)
	if elapsed >= rl.window {
		w.attempts = 1
		w.start = now
		return true, 0
	}

	if w.attempts < rl.maxAttempts {
		w.attempts++
		return true, 0
	}

	return false, rl.window - elapsed
}

// Reset forgets key, e.g. after a successful login.
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.windows, key)
}

// Len reports how many keys are tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// caller holds rl.mu
func (rl *RateLimiter) cleanup(now time.Time) {
	for key, w := range rl.windows {
		if now.Sub(w.start) > rl.staleAfter {
			delete(rl.windows, key)
		}
	}
}
