// Package export renders view-models for download and rate-limits how often that happens.
package export

import (
	"fmt"
	"sync"
	"time"
)

// Result is the outcome of a rate limit check. Callers must check Allowed
// before running the export.
type Result struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
	Remaining int    `json:"remaining"`
	// RetryAfter is set when the request was refused.
	RetryAfter time.Duration `json:"retryAfter,omitempty"`
}

// Limiter allows at most limit exports per key in each fixed window.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	windows   map[string]*bucket
	nextSweep time.Time
}

type bucket struct {
	start time.Time
	used  int
}

// NewLimiter creates a Limiter. now may be nil to use the wall clock.
func NewLimiter(limit int, window time.Duration, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		limit:   limit,
		window:  window,
		now:     now,
		windows: make(map[string]*bucket),
	}
}

// Check consumes one export from key's budget if any is left.
func (l *Limiter) Check(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)
	b, ok := l.windows[key]
	if !ok || now.Sub(b.start) >= l.window {
		b = &bucket{start: now}
		l.windows[key] = b
	}
	if b.used >= l.limit {
		retry := b.start.Add(l.window).Sub(now)
		return Result{
			Allowed:    false,
			Reason:     fmt.Sprintf("export limit of %d per %s reached", l.limit, l.window),
			Remaining:  0,
			RetryAfter: retry,
		}
	}
	b.used++
	return Result{Allowed: true, Remaining: l.limit - b.used}
}

// sweep drops the buckets whose window has ended, at most once per window.
func (l *Limiter) sweep(now time.Time) {
	if now.Before(l.nextSweep) {
		return
	}
	for key, b := range l.windows {
		if now.Sub(b.start) >= l.window {
			delete(l.windows, key)
		}
	}
	l.nextSweep = now.Add(l.window)
}

// Len reports how many keys are tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
