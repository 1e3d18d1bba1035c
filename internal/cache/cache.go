// Package cache provides an explicit get-or-compute cache with an optional
// durable backing store.
package cache

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Backing is a durable second tier behind the in-memory map.
type Backing[V any] interface {
	// Load returns the stored value and whether it was present.
	Load(ctx context.Context, key string) (V, bool, error)
	Store(ctx context.Context, key string, v V) error
}

// Cache memoizes values per key. Concurrent misses for the same key run
// compute once. Errors are returned to every waiter and never cached.
type Cache[V any] struct {
	mu      sync.RWMutex
	mem     map[string]V
	backing Backing[V]
	group   singleflight.Group
}

// New creates a Cache. backing may be nil for a memory-only cache.
func New[V any](backing Backing[V]) *Cache[V] {
	return &Cache[V]{mem: make(map[string]V), backing: backing}
}

// Get returns the in-memory value for key, if any.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.mem[key]
	return v, ok
}

// Len returns the number of in-memory entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.mem)
}

// Invalidate drops key from memory. The backing store is left untouched.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.mem, key)
}

// GetOrCompute returns the value for key, checking memory, then the
// backing store, then calling compute. A computed value is written to both
// tiers; a failed backing write is returned alongside the value.
//
// The shared load and compute run under the first caller's context values
// but not its cancellation. A caller whose ctx ends stops waiting with
// ctx.Err(); the other waiters still get the result.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		ctx := shared
		if v, ok := c.Get(key); ok {
			return v, nil
		}

		if c.backing != nil {
			v, ok, err := c.backing.Load(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("load %q: %w", key, err)
			}
			if ok {
				c.put(key, v)
				return v, nil
			}
		}

		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.put(key, v)
		if c.backing != nil {
			if err := c.backing.Store(ctx, key, v); err != nil {
				return v, fmt.Errorf("store %q: %w", key, err)
			}
		}
		return v, nil
	})

	select {
	case res := <-ch:
		v, _ := res.Val.(V)
		return v, res.Err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

func (c *Cache[V]) put(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mem[key] = v
}
