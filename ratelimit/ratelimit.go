package ratelimit

import (
	"errors"
	"net/http"
	"strconv"
	"time"
)

// ErrClosed is returned when closing a limiter twice.
var ErrClosed = errors.New("limiter closed")

// RateLimiter hands out tokens for named resources.
type RateLimiter interface {
	// TryAcquire attempts to take a token without blocking.
	// Unknown resources are unlimited and always succeed.
	TryAcquire(resource string) bool

	// SetCapacity configures the rate limit for a resource.
	// capacity is the number of tokens per window.
	SetCapacity(resource string, capacity int, window time.Duration)

	// GetCapacity returns the current capacity info for a resource.
	// Returns nil if the resource is unlimited.
	GetCapacity(resource string) *Capacity

	// Close shuts down the limiter. Later acquisitions fail.
	Close() error
}

// Capacity describes the rate limit state for a resource.
type Capacity struct {
	// Resource is the unique identifier for the rate-limited resource.
	Resource string

	// Available is the current number of available tokens.
	Available int

	// Total is the maximum capacity (tokens per window).
	Total int

	// Window is the refill period.
	Window time.Duration

	// RetryAfter is the wait until the next token when none are available.
	RetryAfter time.Duration
}

// Middleware rejects requests once resource runs out of tokens.
// onReject writes the rejection; nil sends a bare 429.
func Middleware(limiter RateLimiter, resource string, onReject http.HandlerFunc) func(http.Handler) http.Handler {
	if onReject == nil {
		onReject = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter.TryAcquire(resource) {
				next.ServeHTTP(w, r)
				return
			}
			if c := limiter.GetCapacity(resource); c != nil && c.RetryAfter > 0 {
				secs := int((c.RetryAfter + time.Second - 1) / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(secs))
			}
			onReject(w, r)
		})
	}
}
