// Package cache provides a TTL cache whose misses are computed at most once
// per key at a time. Concurrent callers for the same key share the single
// in-flight computation and all receive its outcome.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/melon-chart-api/internal/clock"
	"github.com/JakeFAU/melon-chart-api/internal/metrics"
)

// DefaultTTL applies when neither the call nor the Config sets one.
const DefaultTTL = time.Minute

// ErrClosed is returned by GetOrCompute after Close.
var ErrClosed = errors.New("cache closed")

// Clock supplies the time used for storedAt and freshness checks.
type Clock interface {
	Now() time.Time
}

// Config tunes a Cache.
type Config struct {
	DefaultTTL time.Duration
}

// ComputeFunc produces the value for a missing or expired key.
type ComputeFunc[V any] func(ctx context.Context) (V, error)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// flight tracks one running computation. A stale flight still answers its
// waiters but its result is not stored.
type flight struct {
	stale bool
}

// Cache maps string keys to values of type V.
type Cache[V any] struct {
	name   string
	ttl    time.Duration
	clock  Clock
	logger *zap.Logger
	group  singleflight.Group

	mu       sync.Mutex
	entries  map[string]entry[V]
	inflight map[string]*flight
	closed   bool
}

// New builds a Cache. name labels logs and metrics.
func New[V any](name string, cfg Config, clk Clock, logger *zap.Logger) *Cache[V] {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Cache[V]{
		name:     name,
		ttl:      cfg.DefaultTTL,
		clock:    clk,
		logger:   logger.Named("cache").With(zap.String("cache", name)),
		entries:  make(map[string]entry[V]),
		inflight: make(map[string]*flight),
	}
}

// GetOrCompute returns the value for key when it was stored less than ttl ago,
// otherwise it runs fn, stores a successful result and returns it. A ttl of
// zero selects the configured default.
//
// fn runs on a context that keeps ctx's values but not its cancellation, so
// one caller giving up does not fail the others. Errors from fn are returned
// unchanged and never evict an existing entry.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn ComputeFunc[V]) (V, error) {
	var zero V
	if ttl <= 0 {
		ttl = c.ttl
	}

	value, ok, err := c.lookup(key, ttl)
	if err != nil {
		return zero, err
	}
	if ok {
		metrics.ObserveCacheRequest(c.name, "hit")
		c.logger.Debug("cache hit", zap.String("key", key))
		return value, nil
	}

	c.logger.Debug("cache miss", zap.String("key", key))
	ch := c.group.DoChan(key, func() (any, error) {
		return c.compute(ctx, key, ttl, fn)
	})

	select {
	case res := <-ch:
		if res.Shared {
			metrics.ObserveCacheRequest(c.name, "shared")
		} else {
			metrics.ObserveCacheRequest(c.name, "miss")
		}
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (c *Cache[V]) lookup(key string, ttl time.Duration) (V, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	if c.closed {
		return zero, false, ErrClosed
	}
	e, ok := c.entries[key]
	if !ok || !c.fresh(e, ttl) {
		return zero, false, nil
	}
	return e.value, true, nil
}

func (c *Cache[V]) fresh(e entry[V], ttl time.Duration) bool {
	return c.clock.Now().Sub(e.storedAt) < ttl
}

func (c *Cache[V]) compute(ctx context.Context, key string, ttl time.Duration, fn ComputeFunc[V]) (any, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	// A flight that finished just before this one started may have filled it.
	if e, ok := c.entries[key]; ok && c.fresh(e, ttl) {
		c.mu.Unlock()
		return e.value, nil
	}
	f := &flight{}
	c.inflight[key] = f
	c.mu.Unlock()

	value, err := c.run(ctx, fn)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[key] == f {
		delete(c.inflight, key)
	}
	if err != nil {
		metrics.ObserveCacheComputation(c.name, "error")
		c.logger.Debug("compute failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	if f.stale || c.closed {
		metrics.ObserveCacheComputation(c.name, "discarded")
		return value, nil
	}
	c.entries[key] = entry[V]{value: value, storedAt: c.clock.Now()}
	metrics.ObserveCacheComputation(c.name, "stored")
	metrics.SetCacheEntries(c.name, len(c.entries))
	return value, nil
}

// run shields the singleflight group from panics in fn.
func (c *Cache[V]) run(ctx context.Context, fn ComputeFunc[V]) (value V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cache %s: compute panicked: %v", c.name, r)
		}
	}()
	return fn(context.WithoutCancel(ctx))
}

// Peek returns the stored value for key and when it was stored, regardless of
// freshness.
func (c *Cache[V]) Peek(key string) (V, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e.value, e.storedAt, ok
}

// Invalidate drops key and reports whether an entry was stored. A computation
// for key that is running now still answers its callers but will not be
// stored.
func (c *Cache[V]) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, existed := c.entries[key]
	delete(c.entries, key)
	if f, ok := c.inflight[key]; ok {
		f.stale = true
	}
	metrics.SetCacheEntries(c.name, len(c.entries))
	return existed
}

// Clear drops every entry and marks running computations stale.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

// Close clears the cache and rejects later lookups with ErrClosed.
func (c *Cache[V]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.clearLocked()
}

func (c *Cache[V]) clearLocked() {
	clear(c.entries)
	for _, f := range c.inflight {
		f.stale = true
	}
	metrics.SetCacheEntries(c.name, 0)
}

// Len reports the number of stored entries, fresh or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
