package ratelimit

import (
	"sync"
	"time"
)

// bucket implements a token bucket rate limiter.
type bucket struct {
	capacity   int           // maximum tokens
	available  int           // current tokens
	window     time.Duration // refill window
	lastRefill time.Time     // time the last whole token was credited
}

// interval is the time it takes to earn one token.
func (b *bucket) interval() time.Duration {
	return b.window / time.Duration(b.capacity)
}

// refill credits whole tokens earned since lastRefill. Partial progress
// toward the next token is kept.
func (b *bucket) refill(now time.Time) {
	if b.available >= b.capacity {
		b.lastRefill = now
		return
	}

	step := b.interval()
	if step <= 0 {
		b.available = b.capacity
		b.lastRefill = now
		return
	}

	earned := int(now.Sub(b.lastRefill) / step)
	if earned <= 0 {
		return
	}
	b.available += earned
	if b.available >= b.capacity {
		b.available = b.capacity
		b.lastRefill = now
		return
	}
	b.lastRefill = b.lastRefill.Add(time.Duration(earned) * step)
}

// retryAfter is the wait until the next token, zero when one is available.
func (b *bucket) retryAfter(now time.Time) time.Duration {
	if b.available > 0 {
		return 0
	}
	wait := b.lastRefill.Add(b.interval()).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// MemoryLimiter provides local rate limiting using token buckets.
// It is safe for concurrent use.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	closed  bool
	nowFunc func() time.Time // for testing
}

// NewMemoryLimiter creates a new in-memory rate limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		nowFunc: time.Now,
	}
}

// SetCapacity configures the rate limit for a resource.
func (m *MemoryLimiter) SetCapacity(resource string, capacity int, window time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	if capacity <= 0 || window <= 0 {
		delete(m.buckets, resource)
		return
	}

	now := m.nowFunc()
	if b, exists := m.buckets[resource]; exists {
		b.refill(now)
		b.capacity = capacity
		b.window = window
		if b.available > capacity {
			b.available = capacity
		}
		return
	}

	m.buckets[resource] = &bucket{
		capacity:   capacity,
		available:  capacity, // start full
		window:     window,
		lastRefill: now,
	}
}

// GetCapacity returns the current capacity info for a resource.
func (m *MemoryLimiter) GetCapacity(resource string) *Capacity {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, exists := m.buckets[resource]
	if !exists {
		return nil
	}

	now := m.nowFunc()
	b.refill(now)

	return &Capacity{
		Resource:   resource,
		Available:  b.available,
		Total:      b.capacity,
		Window:     b.window,
		RetryAfter: b.retryAfter(now),
	}
}

// TryAcquire attempts to acquire a token without blocking.
func (m *MemoryLimiter) TryAcquire(resource string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}

	b, exists := m.buckets[resource]
	if !exists {
		return true
	}

	b.refill(m.nowFunc())
	if b.available > 0 {
		b.available--
		return true
	}
	return false
}

// Close shuts down the limiter.
func (m *MemoryLimiter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.closed = true
	return nil
}

// Ensure MemoryLimiter implements RateLimiter.
var _ RateLimiter = (*MemoryLimiter)(nil)
