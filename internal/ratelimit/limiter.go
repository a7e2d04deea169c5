package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultCapacity is the fetch budget per window
	DefaultCapacity = 400
	// DefaultWindow is the fixed window length
	DefaultWindow = 5 * time.Minute
)

// Clock returns the current time
type Clock func() time.Time

// Limiter is a fixed-window counter shared by every outbound fetch. The
// window starts with the first request and is reset lazily on the first
// request after it elapses.
type Limiter struct {
	capacity    int
	window      time.Duration
	now         Clock
	mu          sync.Mutex
	count       int
	windowStart time.Time
}

// New creates a limiter. Non-positive values fall back to the defaults; a nil
// clock uses time.Now.
func New(capacity int, window time.Duration, clock Clock) *Limiter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if clock == nil {
		clock = time.Now
	}
	return &Limiter{
		capacity: capacity,
		window:   window,
		now:      clock,
	}
}

// Allow counts one request. When the window is exhausted it returns false
// and the time left until the window resets.
func (l *Limiter) Allow() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.window {
		l.windowStart = now
		l.count = 0
	}

	if l.count >= l.capacity {
		retryAfter := l.window - now.Sub(l.windowStart)
		if retryAfter <= 0 {
			retryAfter = time.Nanosecond
		}
		return false, retryAfter
	}

	l.count++
	return true, 0
}

// Stats returns the current count and capacity
func (l *Limiter) Stats() (count, capacity int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count, l.capacity
}

// Window returns the window length
func (l *Limiter) Window() time.Duration {
	return l.window
}
