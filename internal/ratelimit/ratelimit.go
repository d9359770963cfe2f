// Package ratelimit limits how many messages a single chat may send per window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether key may send another message.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// entry tracks the token-bucket state for a single key.
type entry struct {
	tokens    float64
	lastCheck time.Time
}

// Memory implements an in-memory token-bucket rate limiter.
// Tokens refill at a rate of (limit / window) per second.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   int
	window  time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

// NewMemory creates a limiter granting limit messages per window to each key.
// Call Close to stop the background cleanup.
func NewMemory(limit int, window time.Duration) *Memory {
	l := &Memory{
		entries: make(map[string]*entry),
		limit:   limit,
		window:  window,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go l.cleanup(5 * time.Minute)
	return l
}

// Allow consumes one token for key and reports whether one was available.
func (l *Memory) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, exists := l.entries[key]
	if !exists {
		l.entries[key] = &entry{
			tokens:    float64(l.limit - 1),
			lastCheck: now,
		}
		return l.limit > 0, nil
	}

	elapsed := now.Sub(e.lastCheck)
	e.lastCheck = now

	rate := float64(l.limit) / l.window.Seconds()
	e.tokens += elapsed.Seconds() * rate
	if e.tokens > float64(l.limit) {
		e.tokens = float64(l.limit)
	}

	if e.tokens < 1 {
		return false, nil
	}
	e.tokens--
	return true, nil
}

// Reset clears the rate-limit state for a specific key.
func (l *Memory) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

func (l *Memory) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}

// cleanup periodically removes stale entries.
func (l *Memory) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.evict()
		}
	}
}

func (l *Memory) evict() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-2 * l.window)
	for key, e := range l.entries {
		if e.lastCheck.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}
