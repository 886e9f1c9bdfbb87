package sync

import (
	"context"
	"sync"
)

// OnceErr is a wrapper around [sync.Once] that runs f only once and caches
// both its value (of type T) and its error. Used for shutdown paths that must
// release an OS resource exactly once regardless of how often they are called.
type OnceErr[T any] struct {
	once sync.Once
	v    T
	err  error
}

func (o *OnceErr[T]) Do(f func() (T, error)) (T, error) {
	o.once.Do(func() {
		o.v, o.err = f()
	})
	return o.v, o.err
}

func (o *OnceErr[T]) DoCtx(ctx context.Context, f func(context.Context) (T, error)) (T, error) {
	o.once.Do(func() {
		o.v, o.err = f(ctx)
	})
	return o.v, o.err
}
