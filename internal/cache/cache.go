// Package cache memoizes pipeline responses by normalized query key and
// coalesces concurrent runs for the same key.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"RiskScanner/internal/domain"
	"RiskScanner/internal/logging"
	"RiskScanner/internal/ports"
)

// DefaultTTL applies when none is configured.
const DefaultTTL = 30 * time.Minute

// Executor computes a fresh response for a resolved query.
type Executor func(ctx context.Context, q domain.ResolvedQuery) (domain.Response, error)

// Cache fronts a store with single-flight execution.
type Cache struct {
	store  ports.CacheStore
	ttl    time.Duration
	group  singleflight.Group
	now    func() time.Time
	logger *slog.Logger
}

// Options configures a Cache.
type Options struct {
	TTL    time.Duration
	Now    func() time.Time
	Logger *slog.Logger
}

func New(store ports.CacheStore, opts Options) *Cache {
	if store == nil {
		store = NewMemoryStore()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		store:  store,
		ttl:    opts.TTL,
		now:    opts.Now,
		logger: logging.OrDiscard(opts.Logger),
	}
}

// Lookup returns the live entry for q, or runs exec once per key no matter
// how many callers ask concurrently. force skips the read but still stores
// the fresh result. The second return value reports a cache hit.
//
// exec runs on a context detached from the first caller's cancellation.
func (c *Cache) Lookup(ctx context.Context, q domain.ResolvedQuery, force bool, exec Executor) (domain.Response, bool, error) {
	key := q.CacheKey()

	if !force {
		if resp, ok := c.get(ctx, key); ok {
			return resp, true, nil
		}
	}

	// Forced runs coalesce only with each other, never with a normal flight
	// that may answer from the store.
	flight := key
	if force {
		flight = "force\x00" + key
	}
	v, err, shared := c.group.Do(flight, func() (any, error) {
		if !force {
			if resp, ok := c.get(ctx, key); ok {
				return resp, nil
			}
		}
		runCtx := context.WithoutCancel(ctx)
		resp, err := exec(runCtx, q)
		if err != nil {
			return domain.Response{}, err
		}
		if err := c.store.Put(runCtx, key, resp, c.now(), c.ttl); err != nil {
			c.logger.Warn("cache store failed", "key", key, "error", err)
		}
		return resp, nil
	})
	if err != nil {
		return domain.Response{}, false, err
	}
	resp, ok := v.(domain.Response)
	if !ok {
		return domain.Response{}, false, fmt.Errorf("cache: unexpected flight value %T", v)
	}
	if shared {
		c.logger.Debug("joined in-flight run", "key", key)
	}
	return resp, false, nil
}

// Forget drops any in-flight bookkeeping for q so the next call starts anew.
func (c *Cache) Forget(q domain.ResolvedQuery) {
	key := q.CacheKey()
	c.group.Forget(key)
	c.group.Forget("force\x00" + key)
}

func (c *Cache) get(ctx context.Context, key string) (domain.Response, bool) {
	resp, ok, err := c.store.Get(ctx, key, c.now())
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
		return domain.Response{}, false
	}
	return resp, ok
}
