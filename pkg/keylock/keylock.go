// Package keylock provides a process-wide registry of mutual-exclusion locks keyed by value.
package keylock

import (
	"context"
	"sync"
)

// Registry hands out one lock per key. Locks are created on first use and kept
// for the life of the process.
type Registry[K comparable] struct {
	mu    sync.Mutex
	locks map[K]chan struct{}
}

// New creates an empty Registry.
func New[K comparable]() *Registry[K] {
	return &Registry[K]{
		locks: make(map[K]chan struct{}),
	}
}

// Lock blocks until the lock for key is held or ctx is done.
// The returned function releases the lock and must be called exactly once.
func (r *Registry[K]) Lock(ctx context.Context, key K) (func(), error) {
	ch := r.slot(key)

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Registry[K]) slot(key K) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		r.locks[key] = ch
	}
	return ch
}
