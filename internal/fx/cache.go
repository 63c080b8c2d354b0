package fx

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mmynk/brokewise/internal/currency"
)

// DefaultCacheTTL matches how often the upstream publishes new rates.
const DefaultCacheTTL = time.Hour

// SnapshotCache stores snapshots by base currency.
type SnapshotCache interface {
	// Get returns the cached snapshot, or ok=false on a miss or expiry.
	Get(ctx context.Context, base currency.Code) (snap *Snapshot, ok bool, err error)
	Set(ctx context.Context, snap *Snapshot, ttl time.Duration) error
}

// MemoryCache is an in-process SnapshotCache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[currency.Code]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	snap    *Snapshot
	expires time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[currency.Code]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, base currency.Code) (*Snapshot, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[base]
	if !ok || !c.now().Before(e.expires) {
		return nil, false, nil
	}
	return e.snap, true, nil
}

func (c *MemoryCache) Set(_ context.Context, snap *Snapshot, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[snap.Base] = memoryEntry{snap: snap, expires: c.now().Add(ttl)}
	return nil
}

// CachedProvider caches another Provider's snapshots for a TTL.
// When the upstream fails it serves the last snapshot it saw for that base,
// however old, before giving up.
type CachedProvider struct {
	next  Provider
	cache SnapshotCache
	ttl   time.Duration
	group singleflight.Group

	mu        sync.RWMutex
	lastKnown map[currency.Code]*Snapshot
}

// NewCachedProvider wraps next. A nil cache means an in-memory one.
func NewCachedProvider(next Provider, cache SnapshotCache, ttl time.Duration) *CachedProvider {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedProvider{
		next:      next,
		cache:     cache,
		ttl:       ttl,
		lastKnown: make(map[currency.Code]*Snapshot),
	}
}

// Latest returns a cached snapshot when fresh, otherwise fetches one.
// Concurrent misses for the same base share one upstream request.
func (p *CachedProvider) Latest(ctx context.Context, base currency.Code) (*Snapshot, error) {
	snap, ok, err := p.cache.Get(ctx, base)
	if err != nil {
		slog.Warn("Rate cache read failed", "base", base, "error", err)
	} else if ok {
		return snap, nil
	}

	v, err, _ := p.group.Do(string(base), func() (interface{}, error) {
		return p.refresh(ctx, base)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (p *CachedProvider) refresh(ctx context.Context, base currency.Code) (*Snapshot, error) {
	snap, err := p.next.Latest(ctx, base)
	if err != nil {
		if stale := p.stale(base); stale != nil {
			slog.Warn("Using cached exchange rates due to provider error",
				"base", base,
				"rates_timestamp", stale.Timestamp,
				"error", err,
			)
			return stale, nil
		}
		return nil, err
	}

	if err := p.cache.Set(ctx, snap, p.ttl); err != nil {
		slog.Warn("Rate cache write failed", "base", base, "error", err)
	}
	p.mu.Lock()
	p.lastKnown[base] = snap
	p.mu.Unlock()
	return snap, nil
}

func (p *CachedProvider) stale(base currency.Code) *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastKnown[base]
}
