// Package notify carries "collection changed" signals between document store
// instances, in-process or across processes.
package notify

import (
	"context"
	"sync"
)

// Change says that one collection of one user's partition was written.
type Change struct {
	UserID string `json:"userId"`
	Kind   string `json:"kind"`
}

// Handler receives changes. It must not block for long.
type Handler func(Change)

// Notifier publishes changes to every registered handler.
type Notifier interface {
	Publish(ctx context.Context, c Change) error
	// Subscribe registers h and returns a function that removes it.
	Subscribe(h Handler) (cancel func())
	Close() error
}

// handlers is the registry shared by the implementations.
type handlers struct {
	mu   sync.RWMutex
	next int
	m    map[int]Handler
}

func (r *handlers) add(h Handler) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.m == nil {
		r.m = make(map[int]Handler)
	}
	id := r.next
	r.next++
	r.m[id] = h
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.m, id)
	}
}

func (r *handlers) dispatch(c Change) {
	r.mu.RLock()
	hs := make([]Handler, 0, len(r.m))
	for _, h := range r.m {
		hs = append(hs, h)
	}
	r.mu.RUnlock()

	for _, h := range hs {
		h(c)
	}
}

var _ Notifier = (*Local)(nil)

// Local delivers changes synchronously to handlers in the same process.
type Local struct {
	handlers handlers
}

// NewLocal creates an in-process Notifier.
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Publish(_ context.Context, c Change) error {
	l.handlers.dispatch(c)
	return nil
}

func (l *Local) Subscribe(h Handler) func() {
	return l.handlers.add(h)
}

func (l *Local) Close() error {
	return nil
}
