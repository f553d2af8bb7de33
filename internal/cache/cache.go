package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Policy addresses one cached computation.
type Policy struct {
	Key  string
	Tags []string
	TTL  time.Duration
}

// Cache coalesces concurrent loads of the same key and stores results as
// JSON in the underlying Store.
type Cache struct {
	store  Store
	group  singleflight.Group
	logger *zap.Logger
}

func New(store Store, logger *zap.Logger) *Cache {
	if store == nil {
		store = NoopStore{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: store, logger: logger}
}

// Invalidate drops every entry carrying any of tags.
func (c *Cache) Invalidate(tags ...string) int {
	n := 0
	for _, tag := range tags {
		removed := c.store.Invalidate(tag)
		c.logger.Info("cache invalidated", zap.String("tag", tag), zap.Int("removed", removed))
		n += removed
	}
	return n
}

func (c *Cache) Close() error {
	return c.store.Close()
}

// Load returns the cached value for p.Key or computes it with fn. Errors are
// returned to every waiting caller and never stored. The returned value may
// be shared between concurrent callers and must be treated as read-only.
//
// fn runs detached from the caller's cancellation. A caller whose ctx ends
// returns ctx.Err() while the load completes for the others.
func Load[T any](ctx context.Context, c *Cache, p Policy, fn func(context.Context) (T, error)) (T, error) {
	return LoadTTL(ctx, c, p, func(ctx context.Context) (T, time.Duration, error) {
		v, err := fn(ctx)
		return v, p.TTL, err
	})
}

// LoadTTL is Load for values whose lifetime is only known once computed. The
// duration fn returns replaces p.TTL.
func LoadTTL[T any](ctx context.Context, c *Cache, p Policy, fn func(context.Context) (T, time.Duration, error)) (T, error) {
	var zero T
	if c == nil {
		v, _, err := fn(ctx)
		return v, err
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	if raw, ok := c.store.Get(p.Key); ok {
		var v T
		err := json.Unmarshal(raw, &v)
		if err == nil {
			c.logger.Debug("cache hit", zap.String("key", p.Key))
			return v, nil
		}
		c.logger.Warn("cache: discarding undecodable entry", zap.String("key", p.Key), zap.Error(err))
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(p.Key, func() (any, error) {
		v, ttl, err := fn(detached)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			c.logger.Warn("cache: encode value", zap.String("key", p.Key), zap.Error(err))
			return v, nil
		}
		c.store.Set(p.Key, raw, ttl, p.Tags...)
		return v, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return zero, res.Err
	}
	v, ok := res.Val.(T)
	if !ok {
		return zero, fmt.Errorf("cache: key %q holds %T", p.Key, res.Val)
	}
	c.logger.Debug("cache miss", zap.String("key", p.Key), zap.Bool("shared", res.Shared))
	return v, nil
}
