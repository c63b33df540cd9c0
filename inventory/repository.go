/*
repository.go - Cached snapshot reads over the external store

PURPOSE:
  The legacy system kept a lazily-refreshed process-wide cache of the
  whole dataset, invalidated after every write. Here that cache is an
  explicit, injectable dependency with a spelled-out Refresh/Invalidate
  contract instead of a module-level singleton.

CONSISTENCY MODEL:
  - Snapshot() serves the cached copy, loading lazily on first use.
    Planning reads this and may therefore be stale.
  - Refresh() forces a reload; the movement recorder and reversal
    processor call it at the start of every mutation so commit-time
    validation always sees fresh balances.
  - Invalidate() drops the cache after a successful write.

Reads hand out the shared snapshot; callers must not mutate it. Mutating
paths work on fresh copies loaded inside the write path.
*/
package inventory

import (
	"context"
	"sync"
)

// Repository caches the store's snapshot between writes.
type Repository struct {
	store Store

	mu   sync.RWMutex
	snap *Snapshot
}

func NewRepository(store Store) *Repository {
	return &Repository{store: store}
}

// Snapshot returns the cached snapshot, loading it from the store on first
// use. The result is shared; treat it as read-only.
func (r *Repository) Snapshot(ctx context.Context) (*Snapshot, error) {
	r.mu.RLock()
	snap := r.snap
	r.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	return r.Refresh(ctx)
}

// Refresh reloads the snapshot from the store and replaces the cache.
func (r *Repository) Refresh(ctx context.Context) (*Snapshot, error) {
	snap, err := r.store.LoadAll(ctx)
	if err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}

	r.mu.Lock()
	r.snap = snap
	r.mu.Unlock()
	return snap, nil
}

// Invalidate drops the cached snapshot. The next read reloads.
func (r *Repository) Invalidate() {
	r.mu.Lock()
	r.snap = nil
	r.mu.Unlock()
}
