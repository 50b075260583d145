package keyring

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL bounds how long key material may be served without a fresh
// read from the secret store.
const DefaultCacheTTL = 5 * time.Minute

// fetchTimeout bounds one upstream fetch once it is detached from the
// triggering caller's context.
const fetchTimeout = 15 * time.Second

// Cached decorates a Provider with a process-wide TTL cache. Concurrent
// misses collapse into a single upstream fetch via singleflight so a cold
// cache under load produces one secret-store read, not a stampede.
type Cached struct {
	inner   Provider
	ttl     time.Duration
	metrics *Metrics
	clock   func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	material  Material
	fetchedAt time.Time
	valid     bool
}

// CachedOption configures a Cached provider.
type CachedOption func(*Cached)

// WithTTL overrides the default cache TTL.
func WithTTL(ttl time.Duration) CachedOption {
	return func(c *Cached) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMetrics attaches cache metrics.
func WithMetrics(m *Metrics) CachedOption {
	return func(c *Cached) { c.metrics = m }
}

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) CachedOption {
	return func(c *Cached) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewCached wraps inner with a TTL cache.
func NewCached(inner Provider, opts ...CachedOption) *Cached {
	c := &Cached{
		inner: inner,
		ttl:   DefaultCacheTTL,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Material returns cached key material, fetching on expiry. A fetch failure
// surfaces ErrSecretUnavailable (via the inner provider's error chain) rather
// than serving stale material past its TTL.
func (c *Cached) Material(ctx context.Context) (Material, error) {
	c.mu.RLock()
	if c.valid && c.clock().Sub(c.fetchedAt) < c.ttl {
		m := c.material
		c.mu.RUnlock()
		c.hit()
		return m, nil
	}
	c.mu.RUnlock()

	c.miss()
	v, err, _ := c.group.Do("material", func() (any, error) {
		// Re-check under the flight: another caller may have refreshed.
		c.mu.RLock()
		if c.valid && c.clock().Sub(c.fetchedAt) < c.ttl {
			m := c.material
			c.mu.RUnlock()
			return m, nil
		}
		c.mu.RUnlock()

		// The flight serves every collapsed waiter, so it must not die with
		// whichever caller happened to trigger it. Detach from that caller's
		// cancellation and bound the fetch on its own.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		m, err := c.inner.Material(fetchCtx)
		if err != nil {
			if c.metrics != nil {
				c.metrics.FetchFailures.Inc()
			}
			return Material{}, err
		}

		c.mu.Lock()
		c.material = m
		c.fetchedAt = c.clock()
		c.valid = true
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return Material{}, err
	}
	return v.(Material), nil
}

// Invalidate drops the cached snapshot. The next Material call fetches fresh.
// Called from the rotation signal watcher.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.Invalidations.Inc()
	}
}

func (c *Cached) hit() {
	if c.metrics != nil {
		c.metrics.CacheHits.Inc()
	}
}

func (c *Cached) miss() {
	if c.metrics != nil {
		c.metrics.CacheMisses.Inc()
	}
}
