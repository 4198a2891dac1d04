package actions

import (
	"errors"
	"net/http"

	"warden/authn"
	"warden/events"
)

// Unsecured grants access only to anonymous requests, e.g. a login or
// sign-up page. An authenticated identity is rejected as not authorized.
type Unsecured[I authn.Identity, A authn.Authenticator] struct {
	env          *Environment[I, A]
	errorHandler NotAuthorizedHandler
}

// WithErrorHandler returns a copy using h for denials
func (u *Unsecured[I, A]) WithErrorHandler(h NotAuthorizedHandler) *Unsecured[I, A] {
	c := *u
	c.errorHandler = h
	return &c
}

// Recover translates authn.ErrNotAuthorized returned by a handler body into
// the error handler's response. Any other error is returned as is.
func (u *Unsecured[I, A]) Recover(r *http.Request, err error) (*authn.Response, error) {
	if errors.Is(err, authn.ErrNotAuthorized) {
		return u.errorHandler.OnNotAuthorized(r.Context(), r)
	}
	return nil, err
}

// HandleUnsecured runs block for an anonymous request. A leftover
// authenticator without identity is discarded after block ran.
func HandleUnsecured[I authn.Identity, A authn.Authenticator, T any](
	u *Unsecured[I, A],
	r *http.Request,
	block func(*http.Request) (HandlerResult[T], error),
) (HandlerResult[T], error) {
	ctx := r.Context()
	env := u.env

	auth, err := env.authenticate(ctx, r)
	if err != nil {
		return HandlerResult[T]{}, err
	}

	switch {
	case auth.state != nil && auth.hasIdentity:
		env.publish(ctx, events.NewNotAuthorized(auth.identity, r))
		return handleBlock(ctx, env, r, auth.state, func(A) (HandlerResult[T], error) {
			resp, err := u.errorHandler.OnNotAuthorized(ctx, r)
			return Result[T](resp), err
		})

	case auth.state != nil:
		result, err := block(r)
		if err != nil {
			return result, err
		}
		if result.Response == nil {
			result.Response = authn.NewResponse()
		}
		result.Response, err = env.discard(ctx, auth.state.current(), result.Response, r)
		return result, err

	default:
		return block(r)
	}
}

// UnsecuredFunc is a handler body for Unsecured.Handler. It writes to resp
// and returns the response to send; returning nil sends resp.
type UnsecuredFunc func(resp *authn.Response, r *http.Request) (*authn.Response, error)

// Handler adapts fn to an http.Handler
func (u *Unsecured[I, A]) Handler(fn UnsecuredFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, err := HandleUnsecured(u, r, func(req *http.Request) (HandlerResult[struct{}], error) {
			return runFunc(func(resp *authn.Response) (*authn.Response, error) { return fn(resp, req) })
		})
		u.env.send(w, r, result.Response, err, u.Recover)
	})
}
