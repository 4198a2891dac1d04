package authn

import (
	"context"
	"net/http"
)

// IdentityService looks identities up by login info.
type IdentityService[I Identity] interface {
	// Retrieve returns the identity for the login info. The boolean is false
	// when no identity exists; an error means the lookup itself failed.
	Retrieve(ctx context.Context, info LoginInfo) (I, bool, error)
}

// RequestProvider extracts stateless credentials (e.g. Basic Auth) from a
// request and resolves them to a login info. Providers must not depend on
// the order they are tried in.
type RequestProvider interface {
	// ID returns the provider ID used in produced login infos
	ID() string

	// Authenticate returns the login info for the request's credentials. The
	// boolean is false when the request carries no credentials this provider
	// understands.
	Authenticate(ctx context.Context, r *http.Request) (LoginInfo, bool, error)
}

// AuthenticatorService owns the lifecycle of authenticators of type A. All
// operations may perform store or network I/O; failures must be reported as
// *AuthenticatorError.
type AuthenticatorService[A Authenticator] interface {
	// ID names the service in errors and logs
	ID() string

	// Create mints a new authenticator for the login info. It is neither
	// persisted nor embedded yet.
	Create(ctx context.Context, info LoginInfo, r *http.Request) (A, error)

	// Retrieve finds the authenticator referenced by the request. The boolean
	// is false when the request carries none or it is malformed.
	Retrieve(ctx context.Context, r *http.Request) (A, bool, error)

	// Init persists a freshly created authenticator and returns the value
	// that Embed attaches to a response (cookie, token string, ...).
	Init(ctx context.Context, a A, r *http.Request) (any, error)

	// Embed attaches a value produced by Init to the response.
	Embed(ctx context.Context, value any, resp *Response, r *http.Request) (*Response, error)

	// Touch refreshes the last-used bookkeeping. The boolean reports whether
	// the authenticator was mutated and therefore needs an Update.
	Touch(a A) (A, bool)

	// Update persists authenticator mutations and returns the possibly
	// modified response.
	Update(ctx context.Context, a A, resp *Response, r *http.Request) (*Response, error)

	// Renew invalidates the authenticator and embeds a replacement for the
	// same login info into the response.
	Renew(ctx context.Context, a A, resp *Response, r *http.Request) (*Response, error)

	// Discard removes the authenticator from any backing store and strips
	// its representation from the response.
	Discard(ctx context.Context, a A, resp *Response, r *http.Request) (*Response, error)
}
