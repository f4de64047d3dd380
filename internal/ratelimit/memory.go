package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is a process-local fixed-window limiter, used in tests
// and when no Redis address is configured.
type MemoryLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	counts map[string]*windowCount
}

type windowCount struct {
	count   int
	resetAt time.Time
}

// NewMemoryLimiter creates an in-memory fixed-window limiter
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:  limit,
		window: window,
		counts: make(map[string]*windowCount),
	}
}

// Allow counts one attempt against the key's window
func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	wc := l.counts[key]
	if wc == nil || now.After(wc.resetAt) {
		wc = &windowCount{resetAt: now.Add(l.window)}
		l.counts[key] = wc
	}

	wc.count++
	if wc.count > l.limit {
		return false, time.Until(wc.resetAt), nil
	}
	return true, 0, nil
}

// MemoryGuard is a process-local in-flight guard
type MemoryGuard struct {
	mu       sync.Mutex
	inflight map[string]bool
}

// NewMemoryGuard creates an in-memory in-flight guard
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{inflight: make(map[string]bool)}
}

// Acquire takes the key's mutation slot if free
func (g *MemoryGuard) Acquire(ctx context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inflight[key] {
		return false, nil
	}
	g.inflight[key] = true
	return true, nil
}

// Release frees the key's mutation slot
func (g *MemoryGuard) Release(ctx context.Context, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, key)
}
