package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
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

func TestLimiter_RejectsOverCapacity(t *testing.T) {
	clock := newFakeClock()
	window := 5 * time.Minute
	l := New(3, window, clock.Now)

	for i := 0; i < 3; i++ {
		ok, retry := l.Allow()
		require.True(t, ok, "request %d should pass", i+1)
		assert.Zero(t, retry)
		clock.Advance(10 * time.Second)
	}

	ok, retry := l.Allow()
	assert.False(t, ok)
	assert.Equal(t, window-30*time.Second, retry)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, window)
}

func TestLimiter_ResetsAfterWindow(t *testing.T) {
	clock := newFakeClock()
	window := time.Minute
	l := New(2, window, clock.Now)

	l.Allow()
	l.Allow()
	ok, _ := l.Allow()
	require.False(t, ok)

	clock.Advance(window)

	ok, retry := l.Allow()
	assert.True(t, ok)
	assert.Zero(t, retry)

	count, capacity := l.Stats()
	assert.Equal(t, 1, count, "counter resets with the new window")
	assert.Equal(t, 2, capacity)
}

func TestLimiter_WindowStartsAtFirstRequest(t *testing.T) {
	clock := newFakeClock()
	l := New(1, time.Minute, clock.Now)

	// idle time before the first request does not count against the window
	clock.Advance(59 * time.Second)
	ok, _ := l.Allow()
	require.True(t, ok)

	clock.Advance(30 * time.Second)
	ok, retry := l.Allow()
	assert.False(t, ok)
	assert.Equal(t, 30*time.Second, retry)
}

func TestLimiter_Defaults(t *testing.T) {
	l := New(0, 0, nil)
	_, capacity := l.Stats()
	assert.Equal(t, DefaultCapacity, capacity)
	assert.Equal(t, DefaultWindow, l.Window())
}

func TestLimiter_Concurrent(t *testing.T) {
	clock := newFakeClock()
	l := New(50, time.Minute, clock.Now)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow(); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}
