package actions

import (
	"net/http"

	"warden/authn"
)

// UserAware always grants access and lets the handler body branch on the
// optional identity itself.
type UserAware[I authn.Identity, A authn.Authenticator] struct {
	env *Environment[I, A]
}

// HandleUserAware runs block with whatever identity the request carries. A
// valid authenticator is reconciled as usual; an invalid one is hidden from
// block and discarded afterwards.
func HandleUserAware[I authn.Identity, A authn.Authenticator, T any](
	u *UserAware[I, A],
	r *http.Request,
	block func(*UserAwareRequest[I, A]) (HandlerResult[T], error),
) (HandlerResult[T], error) {
	ctx := r.Context()
	env := u.env

	auth, err := env.authenticate(ctx, r)
	if err != nil {
		return HandlerResult[T]{}, err
	}

	anonymous := &UserAwareRequest[I, A]{Request: r, env: env}

	switch {
	case auth.state != nil && auth.state.current().IsValid():
		return handleBlock(ctx, env, r, auth.state, func(a A) (HandlerResult[T], error) {
			return block(&UserAwareRequest[I, A]{
				Request:          r,
				identity:         auth.identity,
				hasIdentity:      auth.hasIdentity,
				authenticator:    a,
				hasAuthenticator: true,
				env:              env,
			})
		})

	case auth.state != nil:
		result, err := block(anonymous)
		if err != nil {
			return result, err
		}
		if result.Response == nil {
			result.Response = authn.NewResponse()
		}
		result.Response, err = env.discard(ctx, auth.state.current(), result.Response, r)
		return result, err

	default:
		return block(anonymous)
	}
}

// UserAwareFunc is a handler body for UserAware.Handler. It writes to resp
// and returns the response to send; returning nil sends resp.
type UserAwareFunc[I authn.Identity, A authn.Authenticator] func(resp *authn.Response, r *UserAwareRequest[I, A]) (*authn.Response, error)

// Handler adapts fn to an http.Handler. Errors returned by fn become a 500.
func (u *UserAware[I, A]) Handler(fn UserAwareFunc[I, A]) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, err := HandleUserAware(u, r, func(req *UserAwareRequest[I, A]) (HandlerResult[struct{}], error) {
			return runFunc(func(resp *authn.Response) (*authn.Response, error) { return fn(resp, req) })
		})
		u.env.send(w, r, result.Response, err, nil)
	})
}
