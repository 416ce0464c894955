package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter() (*MemoryLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := NewMemoryLimiter()
	limiter.nowFunc = clock.Now
	return limiter, clock
}

func TestMemoryLimiter_SetCapacity(t *testing.T) {
	limiter := NewMemoryLimiter()
	defer limiter.Close()

	limiter.SetCapacity("writes", 10, time.Minute)

	cap := limiter.GetCapacity("writes")
	if cap == nil {
		t.Fatal("expected capacity, got nil")
	}
	if cap.Total != 10 {
		t.Errorf("expected capacity 10, got %d", cap.Total)
	}
	if cap.Available != 10 {
		t.Errorf("expected available 10, got %d", cap.Available)
	}
	if cap.Window != time.Minute {
		t.Errorf("expected window 1m, got %v", cap.Window)
	}
}

func TestMemoryLimiter_TryAcquire(t *testing.T) {
	limiter, _ := newTestLimiter()
	defer limiter.Close()

	limiter.SetCapacity("writes", 3, time.Minute)

	for i := 0; i < 3; i++ {
		if !limiter.TryAcquire("writes") {
			t.Errorf("expected TryAcquire to succeed on attempt %d", i+1)
		}
	}

	if limiter.TryAcquire("writes") {
		t.Error("expected TryAcquire to fail after exhausting capacity")
	}

	cap := limiter.GetCapacity("writes")
	if cap.Available != 0 {
		t.Errorf("expected available 0, got %d", cap.Available)
	}
	if cap.RetryAfter != 20*time.Second {
		t.Errorf("expected RetryAfter 20s, got %v", cap.RetryAfter)
	}
}

func TestMemoryLimiter_Refill(t *testing.T) {
	limiter, clock := newTestLimiter()
	defer limiter.Close()

	limiter.SetCapacity("writes", 4, time.Minute) // one token per 15s
	for i := 0; i < 4; i++ {
		limiter.TryAcquire("writes")
	}

	clock.Advance(10 * time.Second)
	if limiter.TryAcquire("writes") {
		t.Error("no token should be earned after 10s")
	}

	// Partial progress is kept: 10s + 5s earns a token.
	clock.Advance(5 * time.Second)
	if !limiter.TryAcquire("writes") {
		t.Error("expected a token after 15s")
	}
	if limiter.TryAcquire("writes") {
		t.Error("only one token should have been earned")
	}

	// A long idle period refills to capacity and no further.
	clock.Advance(time.Hour)
	if got := limiter.GetCapacity("writes").Available; got != 4 {
		t.Errorf("expected full bucket, got %d", got)
	}
}

func TestMemoryLimiter_UnknownResourceUnlimited(t *testing.T) {
	limiter := NewMemoryLimiter()
	defer limiter.Close()

	for i := 0; i < 100; i++ {
		if !limiter.TryAcquire("anything") {
			t.Fatal("unconfigured resources should be unlimited")
		}
	}
	if limiter.GetCapacity("anything") != nil {
		t.Error("expected nil capacity for unconfigured resource")
	}
}

func TestMemoryLimiter_DisableWithZeroCapacity(t *testing.T) {
	limiter := NewMemoryLimiter()
	defer limiter.Close()

	limiter.SetCapacity("writes", 1, time.Minute)
	limiter.TryAcquire("writes")
	if limiter.TryAcquire("writes") {
		t.Fatal("expected limit to apply")
	}

	limiter.SetCapacity("writes", 0, time.Minute)
	if !limiter.TryAcquire("writes") {
		t.Error("capacity 0 should remove the limit")
	}
}

func TestMemoryLimiter_ShrinkCapacity(t *testing.T) {
	limiter := NewMemoryLimiter()
	defer limiter.Close()

	limiter.SetCapacity("writes", 10, time.Minute)
	limiter.SetCapacity("writes", 2, time.Minute)

	cap := limiter.GetCapacity("writes")
	if cap.Total != 2 || cap.Available != 2 {
		t.Errorf("expected 2/2, got %d/%d", cap.Available, cap.Total)
	}
}

func TestMemoryLimiter_Close(t *testing.T) {
	limiter := NewMemoryLimiter()
	limiter.SetCapacity("writes", 10, time.Minute)

	if err := limiter.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if limiter.TryAcquire("writes") {
		t.Error("TryAcquire should fail after Close")
	}
	if err := limiter.Close(); err != ErrClosed {
		t.Errorf("second Close = %v, want ErrClosed", err)
	}
}

func TestMemoryLimiter_Concurrent(t *testing.T) {
	limiter, _ := newTestLimiter()
	defer limiter.Close()

	limiter.SetCapacity("writes", 50, time.Minute)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acquired int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.TryAcquire("writes") {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if acquired != 50 {
		t.Errorf("expected exactly 50 acquisitions, got %d", acquired)
	}
}
