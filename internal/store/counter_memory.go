package store

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/serroba/message-ratelimiter/internal/ratelimit"
)

const (
	// DefaultCounterTTL is how long a counter lives after it is created.
	DefaultCounterTTL = 2 * time.Minute
	// DefaultSweepInterval is how often expired counters are reclaimed.
	DefaultSweepInterval = 30 * time.Second
	// DefaultShards is the default number of independently locked shards.
	DefaultShards = 32
)

// CounterStoreOption configures a CounterMemoryStore.
type CounterStoreOption func(*CounterMemoryStore)

// WithCounterTTL sets the lifetime of a counter, measured from its creation.
func WithCounterTTL(ttl time.Duration) CounterStoreOption {
	return func(s *CounterMemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSweepInterval sets how often the background sweeper runs.
// A non-positive interval disables the sweeper; expiry is then only lazy.
func WithSweepInterval(interval time.Duration) CounterStoreOption {
	return func(s *CounterMemoryStore) {
		s.sweepInterval = interval
	}
}

// WithShards sets the shard count, rounded up to a power of two.
func WithShards(n int) CounterStoreOption {
	return func(s *CounterMemoryStore) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithCounterClock replaces the time source used for expiry.
func WithCounterClock(now func() time.Time) CounterStoreOption {
	return func(s *CounterMemoryStore) {
		s.now = now
	}
}

type counterShard struct {
	mu      sync.Mutex
	entries map[string]*ratelimit.Entry
}

// CounterMemoryStore is a sharded in-memory implementation of ratelimit.Store.
//
// Shard locks are never held while waiting on an entry lock, so callers may
// look up further keys while holding an entry.
type CounterMemoryStore struct {
	shards        []*counterShard
	mask          uint64
	shardCount    int
	ttl           time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewCounterMemoryStore creates a new in-memory counter store.
func NewCounterMemoryStore(opts ...CounterStoreOption) *CounterMemoryStore {
	s := &CounterMemoryStore{
		shardCount:    DefaultShards,
		ttl:           DefaultCounterTTL,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	n := 1
	for n < s.shardCount {
		n <<= 1
	}

	s.shards = make([]*counterShard, n)
	for i := range s.shards {
		s.shards[i] = &counterShard{entries: make(map[string]*ratelimit.Entry)}
	}

	s.mask = uint64(n - 1)

	return s
}

func (s *CounterMemoryStore) shard(key string) *counterShard {
	return s.shards[xxhash.Sum64String(key)&s.mask]
}

// GetOrCreate returns the live entry for key, replacing it with a zeroed
// entry when it is missing or expired.
func (s *CounterMemoryStore) GetOrCreate(key string) *ratelimit.Entry {
	sh := s.shard(key)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if entry, ok := sh.entries[key]; ok {
		if !entry.Expired(now) {
			return entry
		}

		entry.Evict()
	}

	entry := ratelimit.NewEntry(now.Add(s.ttl))
	sh.entries[key] = entry

	return entry
}

// Peek returns the counter for key without creating it.
func (s *CounterMemoryStore) Peek(key string) (ratelimit.Counter, bool) {
	sh := s.shard(key)

	sh.mu.Lock()
	entry, ok := sh.entries[key]
	sh.mu.Unlock()

	if !ok || entry.Expired(s.now()) {
		return ratelimit.Counter{}, false
	}

	return entry.Snapshot()
}

// Len returns the number of tracked keys, including expired ones not yet swept.
func (s *CounterMemoryStore) Len() int {
	total := 0

	for _, sh := range s.shards {
		sh.mu.Lock()
		total += len(sh.entries)
		sh.mu.Unlock()
	}

	return total
}

// Sweep removes every expired entry and returns how many were removed.
func (s *CounterMemoryStore) Sweep() int {
	now := s.now()
	removed := 0

	for _, sh := range s.shards {
		sh.mu.Lock()

		for key, entry := range sh.entries {
			if entry.Expired(now) {
				entry.Evict()
				delete(sh.entries, key)

				removed++
			}
		}

		sh.mu.Unlock()
	}

	return removed
}

// Start launches the background sweeper.
func (s *CounterMemoryStore) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	go s.sweepLoop(ctx)

	return nil
}

func (s *CounterMemoryStore) sweepLoop(ctx context.Context) {
	defer close(s.done)

	if s.sweepInterval <= 0 {
		<-ctx.Done()

		return
	}

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Shutdown stops the sweeper and waits for it to exit.
func (s *CounterMemoryStore) Shutdown() error {
	if s.cancel == nil {
		return nil
	}

	s.cancel()
	<-s.done

	return nil
}

// Compile-time check.
var _ ratelimit.Store = (*CounterMemoryStore)(nil)
