package workspace

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rafaeljc/heimdall-sdk/internal/observability"
)

// ErrNotReady is reported by the readiness check before the first snapshot arrives.
var ErrNotReady = errors.New("workspace not loaded yet")

// Holder publishes the current snapshot to concurrent readers.
// Writers swap a complete snapshot in; readers never take a lock.
type Holder struct {
	current   atomic.Pointer[Workspace]
	ready     chan struct{}
	readyOnce sync.Once
}

// NewHolder returns an empty holder. Fetch returns nil until the first Store.
func NewHolder() *Holder {
	return &Holder{ready: make(chan struct{})}
}

// Fetch returns the current snapshot, or nil before the first successful load.
func (h *Holder) Fetch() *Workspace {
	return h.current.Load()
}

// Store atomically replaces the snapshot.
func (h *Holder) Store(w *Workspace) {
	if w == nil {
		return
	}
	h.current.Store(w)
	observability.WorkspaceLastUpdated.Set(float64(time.Now().Unix()))
	h.readyOnce.Do(func() { close(h.ready) })
}

// Ready is closed once the first snapshot has been stored.
func (h *Holder) Ready() <-chan struct{} {
	return h.ready
}

// WaitReady blocks until a snapshot is available or ctx is done.
func (h *Holder) WaitReady(ctx context.Context) error {
	select {
	case <-h.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Name implements observability.Checker.
func (h *Holder) Name() string {
	return "workspace"
}

// Check implements observability.Checker.
func (h *Holder) Check(_ context.Context) error {
	if h.Fetch() == nil {
		return ErrNotReady
	}
	return nil
}
