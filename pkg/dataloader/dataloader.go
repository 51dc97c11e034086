package dataloader

import (
	"context"
	"sync"
)

// BatchFunc resolves a set of deduplicated keys in one backing-store access.
// It returns a mapping from key to value; keys absent from the map resolve
// to the zero value of V.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// Thunk blocks until the value for a previously requested key is available.
type Thunk[V any] func() (V, error)

// Loader coalesces individual Load calls into batched BatchFunc calls and
// caches every resolved key for its own lifetime. A Loader is scoped to a
// single execution context and must never be shared across requests; that
// scoping is what keeps the cache from leaking data between principals.
//
// Keys accumulate in a pending queue (first-seen order, deduplicated) until
// the first thunk is invoked, which flushes the whole queue as exactly one
// BatchFunc call. Later loads for already-resolved keys are served from the
// cache without re-entering a batch.
type Loader[K comparable, V any] struct {
	batch BatchFunc[K, V]

	mu      sync.Mutex
	pending []K
	results map[K]*result[V]
}

type result[V any] struct {
	done  chan struct{}
	value V
	err   error
}

// New creates a Loader around the given batch function.
func New[K comparable, V any](batch BatchFunc[K, V]) *Loader[K, V] {
	return &Loader[K, V]{
		batch:   batch,
		results: make(map[K]*result[V]),
	}
}

// Load requests the value for key and returns a thunk that yields it.
// Enqueuing is cheap and never touches the store; the store is hit when a
// thunk is invoked and the pending queue gets flushed.
func (l *Loader[K, V]) Load(ctx context.Context, key K) Thunk[V] {
	l.mu.Lock()
	r, ok := l.results[key]
	if !ok {
		r = &result[V]{done: make(chan struct{})}
		l.results[key] = r
		l.pending = append(l.pending, key)
	}
	l.mu.Unlock()

	return func() (V, error) {
		select {
		case <-r.done:
		default:
			l.dispatch(ctx)
		}

		select {
		case <-r.done:
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
		return r.value, r.err
	}
}

// Preload enqueues keys without handing back thunks, so that a later Load
// for any of them joins the same batch. List resolvers use this to announce
// every sibling key up front.
func (l *Loader[K, V]) Preload(keys ...K) {
	l.mu.Lock()
	for _, key := range keys {
		if _, ok := l.results[key]; ok {
			continue
		}
		l.results[key] = &result[V]{done: make(chan struct{})}
		l.pending = append(l.pending, key)
	}
	l.mu.Unlock()
}

// dispatch flushes the current pending queue as one batch call. A batch
// failure rejects every waiting thunk with the identical error; the loader
// never retries.
func (l *Loader[K, V]) dispatch(ctx context.Context) {
	l.mu.Lock()
	keys := l.pending
	l.pending = nil
	l.mu.Unlock()

	if len(keys) == 0 {
		return
	}

	values, err := l.batch(ctx, keys)

	l.mu.Lock()
	for _, key := range keys {
		r := l.results[key]
		if err != nil {
			r.err = err
		} else {
			r.value = values[key]
		}
		close(r.done)
	}
	l.mu.Unlock()
}
