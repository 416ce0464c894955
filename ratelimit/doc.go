// Package ratelimit throttles writes with per-resource token buckets.
//
// # Usage
//
//	limiter := ratelimit.NewMemoryLimiter()
//	limiter.SetCapacity("writes", 60, time.Minute) // 60 saves per minute
//
//	mux.Handle("POST /action",
//	    ratelimit.Middleware(limiter, "writes", reject)(saveHandler))
//
// A resource with no configured capacity is unlimited. Setting a capacity
// or window <= 0 removes the limit.
//
// # Algorithm
//
// Each bucket starts full and refills continuously at capacity/window.
// TryAcquire takes one token or fails immediately; nothing blocks.
package ratelimit
