package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counter is the per-key state tracked by a Store.
type Counter struct {
	// Count is the number of messages accepted in the current window.
	Count int
	// LastMessageAt is the time of the most recent accepted message.
	LastMessageAt time.Time
}

// Elapsed reports whether more than window has passed since the last accepted message.
func (c Counter) Elapsed(now time.Time, window time.Duration) bool {
	return now.Sub(c.LastMessageAt) > window
}

// Effective returns the count that applies to a decision taken at now.
// A counter whose window has elapsed counts as zero.
func (c Counter) Effective(now time.Time, window time.Duration) int {
	if c.Elapsed(now, window) {
		return 0
	}

	return c.Count
}

// Entry is a handle to a single counter owned by a Store.
// The counter is only reachable through WithLock.
type Entry struct {
	mu        sync.Mutex
	counter   Counter
	expiresAt time.Time
	evicted   atomic.Bool
}

// NewEntry creates a zeroed entry that expires at expiresAt.
func NewEntry(expiresAt time.Time) *Entry {
	return &Entry{expiresAt: expiresAt}
}

// ExpiresAt returns the absolute expiry fixed when the entry was created.
func (e *Entry) ExpiresAt() time.Time {
	return e.expiresAt
}

// Expired reports whether the entry's time-to-live has run out at now.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// Evict marks the entry as removed from its store.
// It never blocks, so stores may call it while holding their own locks.
func (e *Entry) Evict() {
	e.evicted.Store(true)
}

// WithLock runs fn with exclusive access to the counter.
// It returns false without calling fn when the entry has been evicted;
// the caller should fetch a fresh entry from the store and try again.
func (e *Entry) WithLock(fn func(c *Counter)) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.evicted.Load() {
		return false
	}

	fn(&e.counter)

	return true
}

// Snapshot returns a copy of the counter, or false if the entry has been evicted.
func (e *Entry) Snapshot() (Counter, bool) {
	var snapshot Counter

	ok := e.WithLock(func(c *Counter) {
		snapshot = *c
	})

	return snapshot, ok
}

// Store defines the interface for windowed counter storage.
type Store interface {
	// GetOrCreate returns the live entry for key, installing a zeroed one
	// when the key is absent or its entry has expired. Concurrent callers
	// for the same key observe the same entry.
	GetOrCreate(key string) *Entry
}

// withCounter runs fn against the live counter for key, retrying when the
// entry is evicted between lookup and lock.
func withCounter(store Store, key string, fn func(c *Counter)) {
	for {
		if store.GetOrCreate(key).WithLock(fn) {
			return
		}
	}
}
