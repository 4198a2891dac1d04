package authn

import "time"

// Authenticator represents one authenticated session or token.
type Authenticator interface {
	// LoginInfo returns the login info of the identity this authenticator belongs to
	LoginInfo() LoginInfo

	// IsValid reports whether the authenticator may still authenticate requests
	IsValid() bool
}

// StorableAuthenticator is an authenticator referenced by a backing store.
type StorableAuthenticator interface {
	Authenticator

	// ID returns the stable key used in the backing store
	ID() string
}

// ExpirableAuthenticator is an authenticator bounded by an absolute expiry
// and an optional idle timeout.
type ExpirableAuthenticator interface {
	Authenticator

	// Expiry returns the time bookkeeping of the authenticator
	Expiry() Expiration
}

// Expiration is the time bookkeeping of an expirable authenticator. It is
// meant to be embedded into concrete authenticator types.
type Expiration struct {
	// LastUsed is the last time the authenticator was used
	LastUsed time.Time `json:"lastUsed"`

	// ExpiresAt is the absolute expiry
	ExpiresAt time.Time `json:"expiresAt"`

	// IdleTimeout is the sliding window since LastUsed. Zero disables it.
	IdleTimeout time.Duration `json:"idleTimeout,omitempty"`
}

// Expiry returns the expiration itself, so embedding types satisfy
// ExpirableAuthenticator without extra code.
func (e Expiration) Expiry() Expiration {
	return e
}

// IsExpired reports whether now is at or after the absolute expiry
func (e Expiration) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// IsTimedOut reports whether the idle window has elapsed since the last use
func (e Expiration) IsTimedOut(now time.Time) bool {
	return e.IdleTimeout > 0 && !now.Before(e.LastUsed.Add(e.IdleTimeout))
}

// ValidAt reports whether the authenticator is neither expired nor timed out at now
func (e Expiration) ValidAt(now time.Time) bool {
	return !e.IsExpired(now) && !e.IsTimedOut(now)
}

// Touched returns a copy with LastUsed moved to now
func (e Expiration) Touched(now time.Time) Expiration {
	e.LastUsed = now
	return e
}

// TTL returns the remaining lifetime at now; it never returns a negative duration
func (e Expiration) TTL(now time.Time) time.Duration {
	ttl := e.ExpiresAt.Sub(now)
	if e.IdleTimeout > 0 {
		if idle := e.LastUsed.Add(e.IdleTimeout).Sub(now); idle < ttl {
			ttl = idle
		}
	}
	if ttl < 0 {
		return 0
	}
	return ttl
}
