package cache

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is used for wrapped operations that don't set their own expiration
const DefaultTTL = time.Hour

// Func is an operation whose result can be cached. It receives all arguments of the call, including UpdateCacheArg.
type Func[T any] func(ctx context.Context, args Args) (T, error)

// Cached wraps an operation with a read-through cache. Cache failures are logged and never change the result of a
// call, they only make it slower.
type Cached[T any] struct {
	l     log.Logger
	r     Repository
	codec Codec
	name  string
	ttl   time.Duration
	fn    Func[T]
	group *singleflight.Group
}

// Option configures a Cached operation
type Option func(*options)

type options struct {
	codec        Codec
	singleFlight bool
}

// WithCodec replaces the JSON codec
func WithCodec(c Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithSingleFlight makes concurrent cache misses for the same key within this process share a single call of the
// wrapped operation. Without it every concurrent miss calls the operation and the last write wins.
func WithSingleFlight() Option {
	return func(o *options) {
		o.singleFlight = true
	}
}

// Wrap returns fn wrapped with a cache stored in r. The name has to be stable and unique per operation as it's the
// first part of every key.
func Wrap[T any](l log.Logger, r Repository, name string, ttl time.Duration, fn Func[T], opts ...Option) *Cached[T] {
	o := options{codec: JSONCodec{}}
	for _, opt := range opts {
		opt(&o)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cached[T]{
		l:     log.With(l, "cached", name),
		r:     r,
		codec: o.codec,
		name:  name,
		ttl:   ttl,
		fn:    fn,
	}
	if o.singleFlight {
		c.group = &singleflight.Group{}
	}
	return c
}

// Name returns the stable name of the operation
func (c *Cached[T]) Name() string {
	return c.name
}

// Call returns the cached result for args or computes and stores it. Errors are only returned from the wrapped
// operation itself, errors returned by it are never cached.
func (c *Cached[T]) Call(ctx context.Context, args Args) (T, error) {
	key := Key(c.name, args)
	if args.ForceRefresh() {
		level.Info(c.l).Log("msg", "force cache update", "key", key)
		return c.compute(ctx, key, args)
	}

	if v, ok := c.lookup(ctx, key); ok {
		return v, nil
	}

	if c.group == nil {
		return c.compute(ctx, key, args)
	}
	// The shared call serves every waiting caller, so it must not end when the first one gives up.
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.compute(shared, key, args)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	t, _ := v.(T)
	return t, nil
}

// Invalidate removes the cached result for args
func (c *Cached[T]) Invalidate(ctx context.Context, args Args) error {
	return c.r.Delete(ctx, Key(c.name, args))
}

// lookup returns the decoded cache entry for key. Corrupt entries are removed.
func (c *Cached[T]) lookup(ctx context.Context, key string) (T, bool) {
	var v T
	b, ok, err := c.r.Get(ctx, key)
	if err != nil {
		level.Error(c.l).Log("msg", "cache lookup failed, treating as miss", "key", key, "err", err)
		return v, false
	}
	if !ok {
		level.Debug(c.l).Log("msg", "cache miss", "key", key)
		return v, false
	}
	if err := c.codec.Decode(b, &v); err != nil {
		level.Info(c.l).Log("msg", "failed to load cached result", "key", key, "err", err)
		if err := c.r.Delete(ctx, key); err != nil {
			level.Error(c.l).Log("msg", "failed to delete corrupt cache entry", "key", key, "err", err)
		}
		var zero T
		return zero, false
	}
	return v, true
}

// compute calls the wrapped operation and stores its result under key
func (c *Cached[T]) compute(ctx context.Context, key string, args Args) (T, error) {
	v, err := c.fn(ctx, args)
	if err != nil {
		return v, err
	}
	b, err := c.codec.Encode(v)
	if err != nil {
		level.Info(c.l).Log("msg", "failed to serialize result, skipping cache", "key", key, "err", err)
		return v, nil
	}
	if err := c.r.Set(ctx, key, b, c.ttl); err != nil {
		level.Error(c.l).Log("msg", "cache write failed", "key", key, "err", err)
	}
	return v, nil
}
