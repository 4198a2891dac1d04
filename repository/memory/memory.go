// Package memory is an in-process authenticator repository for tests and
// single instance deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"warden/authn"
	"warden/repository"
)

type entry[A authn.StorableAuthenticator] struct {
	authenticator A
	expiresAt     time.Time // zero means never
}

// Repository keeps authenticators in a map. Expirable authenticators are
// dropped once their TTL has elapsed.
type Repository[A authn.StorableAuthenticator] struct {
	mu      sync.RWMutex
	entries map[string]entry[A]
	now     func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

var _ repository.Repository[authn.StorableAuthenticator] = (*Repository[authn.StorableAuthenticator])(nil)

// New creates an empty repository
func New[A authn.StorableAuthenticator]() *Repository[A] {
	return &Repository[A]{
		entries: make(map[string]entry[A]),
		now:     time.Now,
	}
}

// Find implements repository.Repository
func (r *Repository[A]) Find(_ context.Context, id string) (A, bool, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()

	var zero A
	if !ok {
		return zero, false, nil
	}
	if e.expiredAt(r.now()) {
		r.mu.Lock()
		// the entry may have been replaced since the read lock was released
		if current, ok := r.entries[id]; ok && current.expiredAt(r.now()) {
			delete(r.entries, id)
		}
		r.mu.Unlock()
		return zero, false, nil
	}
	return e.authenticator, true, nil
}

// Add implements repository.Repository
func (r *Repository[A]) Add(_ context.Context, a A) (A, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[a.ID()] = r.entry(a)
	return a, nil
}

// Update implements repository.Repository
func (r *Repository[A]) Update(_ context.Context, a A) (A, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[a.ID()]; !ok {
		return a, repository.ErrNotFound
	}
	r.entries[a.ID()] = r.entry(a)
	return a, nil
}

// Remove implements repository.Repository
func (r *Repository[A]) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
	return nil
}

// Len returns the number of stored authenticators, expired ones included
func (r *Repository[A]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Sweep drops every expired authenticator and returns how many were removed
func (r *Repository[A]) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, e := range r.entries {
		if e.expiredAt(now) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

// StartCleanup sweeps the repository every interval until Close is called.
// It must be called at most once.
func (r *Repository[A]) StartCleanup(interval time.Duration) {
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.Sweep()
			case <-r.stop:
				return
			}
		}
	}()
}

// Close stops the cleanup loop started by StartCleanup and waits for it
func (r *Repository[A]) Close() error {
	if r.stop == nil {
		return nil
	}
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
	return nil
}

func (e entry[A]) expiredAt(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

func (r *Repository[A]) entry(a A) entry[A] {
	now := r.now()
	e := entry[A]{authenticator: a}
	if ttl, ok := repository.TTL(a, now); ok {
		e.expiresAt = now.Add(ttl)
	}
	return e
}
