package actions

import (
	"context"
	"errors"
	"net/http"

	"warden/authn"
	"warden/authz"
	"warden/events"
)

// Secured grants access only to requests with a valid authenticator, a
// known identity and, if a policy is attached, a positive authorization.
type Secured[I authn.Identity, A authn.Authenticator] struct {
	env           *Environment[I, A]
	authorization authz.Authorization[I, A]
	errorHandler  SecuredErrorHandler
}

// WithAuthorization returns a copy guarded by the policy
func (s *Secured[I, A]) WithAuthorization(authorization authz.Authorization[I, A]) *Secured[I, A] {
	c := *s
	c.authorization = authorization
	return &c
}

// WithErrorHandler returns a copy using h for denials
func (s *Secured[I, A]) WithErrorHandler(h SecuredErrorHandler) *Secured[I, A] {
	c := *s
	c.errorHandler = h
	return &c
}

// Recover translates authn.ErrNotAuthenticated and authn.ErrNotAuthorized
// returned by a handler body into the error handler's response. Any other
// error is returned as is.
func (s *Secured[I, A]) Recover(r *http.Request, err error) (*authn.Response, error) {
	switch {
	case errors.Is(err, authn.ErrNotAuthenticated):
		return s.errorHandler.OnNotAuthenticated(r.Context(), r)
	case errors.Is(err, authn.ErrNotAuthorized):
		return s.errorHandler.OnNotAuthorized(r.Context(), r)
	}
	return nil, err
}

func (s *Secured[I, A]) isAuthorized(ctx context.Context, identity I, authenticator A, r *http.Request) (bool, error) {
	if s.authorization == nil {
		return true, nil
	}
	ok, err := s.authorization.IsAuthorized(ctx, identity, authenticator, r)
	if err != nil {
		return false, err
	}
	s.env.Metrics.RecordAuthorization(ok)
	return ok, nil
}

// HandleSecured runs block for an authenticated and authorized request.
// Denied requests get the error handler's response and block is not run.
// Errors returned by block skip the authenticator reconciliation.
func HandleSecured[I authn.Identity, A authn.Authenticator, T any](
	s *Secured[I, A],
	r *http.Request,
	block func(*SecuredRequest[I, A]) (HandlerResult[T], error),
) (HandlerResult[T], error) {
	ctx := r.Context()
	env := s.env

	auth, err := env.authenticate(ctx, r)
	if err != nil {
		return HandlerResult[T]{}, err
	}

	switch {
	case auth.state != nil && auth.hasIdentity:
		authorized, err := s.isAuthorized(ctx, auth.identity, auth.state.current(), r)
		if err != nil {
			return HandlerResult[T]{}, err
		}

		if authorized {
			env.publish(ctx, events.NewAuthenticated(auth.identity, r))
			return handleBlock(ctx, env, r, auth.state, func(a A) (HandlerResult[T], error) {
				return block(&SecuredRequest[I, A]{Request: r, Identity: auth.identity, Authenticator: a, env: env})
			})
		}

		// the session is still real, so it gets the usual bookkeeping
		env.publish(ctx, events.NewNotAuthorized(auth.identity, r))
		return handleBlock(ctx, env, r, auth.state, func(A) (HandlerResult[T], error) {
			resp, err := s.errorHandler.OnNotAuthorized(ctx, r)
			return Result[T](resp), err
		})

	case auth.state != nil:
		env.publish(ctx, events.NewNotAuthenticated(r))
		resp, err := s.errorHandler.OnNotAuthenticated(ctx, r)
		if err != nil {
			return HandlerResult[T]{}, err
		}
		resp, err = env.discard(ctx, auth.state.current(), resp, r)
		return Result[T](resp), err

	case auth.rejected:
		env.publish(ctx, events.NewNotAuthenticated(r))
		resp, err := s.errorHandler.OnNotAuthorized(ctx, r)
		return Result[T](resp), err

	default:
		env.publish(ctx, events.NewNotAuthenticated(r))
		resp, err := s.errorHandler.OnNotAuthenticated(ctx, r)
		return Result[T](resp), err
	}
}

// SecuredFunc is a handler body for Secured.Handler. It writes to resp and
// returns the response to send; returning nil sends resp.
type SecuredFunc[I authn.Identity, A authn.Authenticator] func(resp *authn.Response, r *SecuredRequest[I, A]) (*authn.Response, error)

// Handler adapts fn to an http.Handler
func (s *Secured[I, A]) Handler(fn SecuredFunc[I, A]) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, err := HandleSecured(s, r, func(req *SecuredRequest[I, A]) (HandlerResult[struct{}], error) {
			return runFunc(func(resp *authn.Response) (*authn.Response, error) { return fn(resp, req) })
		})
		s.env.send(w, r, result.Response, err, s.Recover)
	})
}
