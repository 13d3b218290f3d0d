package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// LocalLimiter is the in-process equivalent of Limiter. Windows are fixed
// and start at the first event for a key.
type LocalLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewLocalLimiter creates an empty LocalLimiter.
func NewLocalLimiter() *LocalLimiter {
	return &LocalLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow never returns an error; the signature matches Limiter.
func (l *LocalLimiter) Allow(_ context.Context, identifier string, rule Rule) (bool, error) {
	key := rule.Key + identifier
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= rule.Window {
		l.windows[key] = &window{start: now, count: 1}
		l.sweep(now, rule.Window)
		return 1 <= rule.Limit, nil
	}
	w.count++
	return w.count <= rule.Limit, nil
}

// sweep drops windows that expired, bounding memory to active keys. Callers
// hold the lock.
func (l *LocalLimiter) sweep(now time.Time, ttl time.Duration) {
	if len(l.windows) < 1024 {
		return
	}
	for k, w := range l.windows {
		if now.Sub(w.start) >= ttl {
			delete(l.windows, k)
		}
	}
}
