package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loader fronts a Cache so that concurrent misses for the same key share
// one call to the underlying source.
type Loader[T any] struct {
	cache Cache[T]
	group singleflight.Group

	mu  sync.Mutex // orders Set against Invalidate
	gen uint64
}

func NewLoader[T any](c Cache[T]) *Loader[T] {
	return &Loader[T]{cache: c}
}

// Get returns the cached value for key or calls load to fill it. Errors
// are returned to every waiter and never cached. The shared load runs
// detached from any one caller's cancellation; a caller whose ctx ends
// stops waiting without failing the others.
func (l *Loader[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}

	ch := l.group.DoChan(key, func() (any, error) {
		if v, ok := l.cache.Get(key); ok {
			return v, nil
		}
		gen := l.generation()
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		// A load that raced with Invalidate may be stale; serve it but
		// do not keep it.
		l.mu.Lock()
		if l.gen == gen {
			l.cache.Set(key, v)
		}
		l.mu.Unlock()
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (l *Loader[T]) generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

// Invalidate forgets every cached value.
func (l *Loader[T]) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.cache.Purge()
}
