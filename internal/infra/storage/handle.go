package storage

import (
	"context"
	"sync"
)

// Opener connects to a backend and brings its schema up to date.
type Opener func(ctx context.Context) (Store, error)

// Handle owns a single Store for the lifetime of the process. Concurrent
// callers of Open share one connection and the opener runs at most once
// per successful open.
type Handle struct {
	open Opener

	mu     sync.Mutex
	store  Store
	closed bool
}

// NewHandle creates a handle around an opener. Nothing is opened yet.
func NewHandle(open Opener) *Handle {
	return &Handle{open: open}
}

// Open returns the shared store, opening it on first use. A failed open is
// not memoized so the next caller can retry.
func (h *Handle) Open(ctx context.Context) (Store, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}
	if h.store != nil {
		return h.store, nil
	}
	store, err := h.open(ctx)
	if err != nil {
		return nil, err
	}
	h.store = store
	return store, nil
}

// Close tears down the store if it was opened.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	if h.store == nil {
		return nil
	}
	err := h.store.Close()
	h.store = nil
	return err
}
