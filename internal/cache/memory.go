package cache

import (
	"context"
	"sync"
	"time"

	"chronolookup-api/internal/metrics"

	"github.com/rs/zerolog"
)

// DefaultExpiry is the validity window applied uniformly to every namespace.
const DefaultExpiry = 24 * time.Hour

// cacheEntry represents a cached value and the time it was written.
type cacheEntry struct {
	data      []byte
	timestamp time.Time
}

// MemoryCache is the in-memory implementation of Cache. Each instance holds
// all namespaces for one entity kind.
type MemoryCache struct {
	mu     sync.Mutex
	spaces map[Namespace]map[string]*cacheEntry

	name   string
	expiry time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

// Option configures a MemoryCache.
type Option func(*MemoryCache)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *MemoryCache) { c.now = now }
}

// WithLogger attaches a logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *MemoryCache) { c.log = l.With().Str("component", "MemoryCache").Str("cache", c.name).Logger() }
}

// NewMemoryCache creates an empty cache. A non-positive expiry selects DefaultExpiry.
func NewMemoryCache(name string, expiry time.Duration, opts ...Option) *MemoryCache {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	c := &MemoryCache{
		spaces: newSpaces(),
		name:   name,
		expiry: expiry,
		now:    time.Now,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newSpaces() map[Namespace]map[string]*cacheEntry {
	spaces := make(map[Namespace]map[string]*cacheEntry, len(Namespaces))
	for _, ns := range Namespaces {
		spaces[ns] = make(map[string]*cacheEntry)
	}
	return spaces
}

// Name returns the cache name.
func (c *MemoryCache) Name() string { return c.name }

// Expiry returns the validity window.
func (c *MemoryCache) Expiry() time.Duration { return c.expiry }

// Now returns the cache clock's current time.
func (c *MemoryCache) Now() time.Time { return c.now() }

func (c *MemoryCache) expired(e *cacheEntry, now time.Time) bool {
	return now.Sub(e.timestamp) > c.expiry
}

func (c *MemoryCache) space(ns Namespace) map[string]*cacheEntry {
	s, ok := c.spaces[ns]
	if !ok {
		s = make(map[string]*cacheEntry)
		c.spaces[ns] = s
	}
	return s
}

// Get retrieves a value by key.
func (c *MemoryCache) Get(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	space := c.space(ns)
	entry, exists := space[key]
	if !exists {
		metrics.CacheLookups.WithLabelValues(c.name, string(ns), "miss").Inc()
		return nil, ErrCacheMiss
	}
	if c.expired(entry, c.now()) {
		delete(space, key)
		metrics.CacheLookups.WithLabelValues(c.name, string(ns), "expired").Inc()
		metrics.CacheEvictions.WithLabelValues(c.name).Inc()
		c.log.Debug().Str("namespace", string(ns)).Str("key", key).Msg("expired entry removed")
		return nil, ErrCacheMiss
	}

	metrics.CacheLookups.WithLabelValues(c.name, string(ns), "hit").Inc()
	result := make([]byte, len(entry.data))
	copy(result, entry.data)
	return result, nil
}

// Set stores a value stamped with the current time.
func (c *MemoryCache) Set(ctx context.Context, ns Namespace, key string, value []byte) error {
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.space(ns)[key] = &cacheEntry{
		data:      valueCopy,
		timestamp: c.now(),
	}
	return nil
}

// Delete removes a value by key.
func (c *MemoryCache) Delete(ctx context.Context, ns Namespace, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.space(ns), key)
	return nil
}

// Sweep removes all expired entries.
func (c *MemoryCache) Sweep(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, space := range c.spaces {
		for key, entry := range space {
			if c.expired(entry, now) {
				delete(space, key)
				removed++
			}
		}
	}

	if removed > 0 {
		metrics.CacheEvictions.WithLabelValues(c.name).Add(float64(removed))
		c.log.Info().Int("removed", removed).Msg("swept expired entries")
	}
	return removed
}

// Clear removes all entries from the cache.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.spaces = newSpaces()
	return nil
}

// Stats reports entry counts per namespace.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Stats{Namespaces: make(map[Namespace]int, len(c.spaces))}
	for ns, space := range c.spaces {
		st.Namespaces[ns] = len(space)
		st.Total += len(space)
	}
	return st
}

// Snapshot copies every entry, expired or not, into a serializable form.
// The snapshot timestamp is left for the caller to stamp.
func (c *MemoryCache) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := &Snapshot{Namespaces: make(map[Namespace]map[string]SnapshotEntry, len(c.spaces))}
	for ns, space := range c.spaces {
		out := make(map[string]SnapshotEntry, len(space))
		for key, entry := range space {
			data := make([]byte, len(entry.data))
			copy(data, entry.data)
			out[key] = SnapshotEntry{Data: data, Timestamp: entry.timestamp.UnixMilli()}
		}
		snap.Namespaces[ns] = out
	}
	return snap
}

// Load merges snapshot entries into the cache, keeping each entry's original
// timestamp. Entries already present under the same key are replaced.
func (c *MemoryCache) Load(snap *Snapshot) int {
	if snap == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	loaded := 0
	for ns, entries := range snap.Namespaces {
		space := c.space(ns)
		for key, e := range entries {
			data := make([]byte, len(e.Data))
			copy(data, e.Data)
			space[key] = &cacheEntry{data: data, timestamp: time.UnixMilli(e.Timestamp)}
			loaded++
		}
	}
	return loaded
}

// Ensure MemoryCache implements Cache
var _ Cache = (*MemoryCache)(nil)
