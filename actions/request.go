package actions

import (
	"net/http"

	"warden/authn"
)

// SecuredRequest is a request that passed the secured action. Both the
// identity and the (touched) authenticator are always present.
type SecuredRequest[I authn.Identity, A authn.Authenticator] struct {
	*http.Request

	Identity      I
	Authenticator A

	env *Environment[I, A]
}

// Renew replaces the authenticator and marks resp so the pipeline does not
// update the old one afterwards.
func (r *SecuredRequest[I, A]) Renew(resp *authn.Response) (*authn.Response, error) {
	out, err := r.env.renew(r.Context(), r.Authenticator, resp, r.Request)
	if err != nil {
		return nil, err
	}
	return out.Mark(authn.DirectiveRenew), nil
}

// Discard removes the authenticator and marks resp so the pipeline does
// not update it afterwards.
func (r *SecuredRequest[I, A]) Discard(resp *authn.Response) (*authn.Response, error) {
	out, err := r.env.discard(r.Context(), r.Authenticator, resp, r.Request)
	if err != nil {
		return nil, err
	}
	return out.Mark(authn.DirectiveDiscard), nil
}

// UserAwareRequest is a request that passed the user-aware action. The
// identity and authenticator are present only when a valid authenticator
// was found or created; the identity may be missing even then.
type UserAwareRequest[I authn.Identity, A authn.Authenticator] struct {
	*http.Request

	identity         I
	hasIdentity      bool
	authenticator    A
	hasAuthenticator bool

	env *Environment[I, A]
}

// Identity returns the identity, if any
func (r *UserAwareRequest[I, A]) Identity() (I, bool) {
	return r.identity, r.hasIdentity
}

// Authenticator returns the authenticator, if any
func (r *UserAwareRequest[I, A]) Authenticator() (A, bool) {
	return r.authenticator, r.hasAuthenticator
}

// Renew replaces the authenticator and marks resp. Without an
// authenticator resp is returned unchanged.
func (r *UserAwareRequest[I, A]) Renew(resp *authn.Response) (*authn.Response, error) {
	if !r.hasAuthenticator {
		return resp, nil
	}
	out, err := r.env.renew(r.Context(), r.authenticator, resp, r.Request)
	if err != nil {
		return nil, err
	}
	return out.Mark(authn.DirectiveRenew), nil
}

// Discard removes the authenticator and marks resp. Without an
// authenticator resp is returned unchanged.
func (r *UserAwareRequest[I, A]) Discard(resp *authn.Response) (*authn.Response, error) {
	if !r.hasAuthenticator {
		return resp, nil
	}
	out, err := r.env.discard(r.Context(), r.authenticator, resp, r.Request)
	if err != nil {
		return nil, err
	}
	return out.Mark(authn.DirectiveDiscard), nil
}
