// Package repository defines storage for storable authenticators, such as
// server side sessions.
package repository

import (
	"context"
	"errors"
	"time"

	"warden/authn"
)

// ErrNotFound is returned by Update for an unknown authenticator
var ErrNotFound = errors.New("authenticator not found")

// Repository stores authenticators by ID
type Repository[A authn.StorableAuthenticator] interface {
	// Find returns the authenticator with the given ID
	Find(ctx context.Context, id string) (A, bool, error)

	// Add stores a new authenticator
	Add(ctx context.Context, a A) (A, error)

	// Update replaces an existing authenticator
	Update(ctx context.Context, a A) (A, error)

	// Remove deletes the authenticator; removing an unknown ID is not an error
	Remove(ctx context.Context, id string) error
}

// TTL returns how long a should be kept at now. The boolean is false for
// authenticators without expiry, which are kept until removed.
func TTL(a authn.Authenticator, now time.Time) (time.Duration, bool) {
	expirable, ok := a.(authn.ExpirableAuthenticator)
	if !ok {
		return 0, false
	}
	return expirable.Expiry().TTL(now), true
}
