// Package ratelimit bounds repeated attempts per client identity with a
// fixed-window counter. State is in-memory and per-process: a restart
// resets all counters, which is acceptable for abuse mitigation.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Result reports the outcome of a single Check call.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter is a concurrency-safe keyed counter. A window is created on
// the first attempt for a key and expires at resetAt; attempts past the
// limit are rejected until the window elapses. Bursts at window
// boundaries are an accepted approximation of a true sliding log.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func New() *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Check records one attempt for (action, clientID) against the given
// limit and window duration. Increments on the same key are atomic with
// respect to each other.
func (l *Limiter) Check(action, clientID string, limit int, windowDur time.Duration) Result {
	key := fmt.Sprintf("%s:%s", action, clientID)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(windowDur)}
		l.windows[key] = w
		return Result{Allowed: true, Remaining: limit - 1, ResetAt: w.resetAt}
	}

	if w.count >= limit {
		return Result{Allowed: false, Remaining: 0, ResetAt: w.resetAt}
	}

	w.count++
	return Result{Allowed: true, Remaining: limit - w.count, ResetAt: w.resetAt}
}

// Run purges expired windows at the given interval until ctx is done,
// so the key map does not grow without bound.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.purgeExpired()
		case <-ctx.Done():
			return
		}
	}
}

func (l *Limiter) purgeExpired() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
		}
	}
}
