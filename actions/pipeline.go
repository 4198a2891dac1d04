package actions

import (
	"context"
	"errors"
	"net/http"

	"warden/authn"
	"warden/observability/logging"
)

// authenticatorState tags the authenticator of a request by where it came
// from, which decides how it is reconciled with the response.
type authenticatorState[A authn.Authenticator] interface {
	current() A
}

// initialized is an authenticator retrieved from the request. touched is
// set once Touch reported a mutation that still has to be persisted.
type initialized[A authn.Authenticator] struct {
	authenticator A
	touched       bool
}

func (s initialized[A]) current() A { return s.authenticator }

// freshlyCreated is an authenticator minted after a request provider
// succeeded. It is neither persisted nor embedded yet.
type freshlyCreated[A authn.Authenticator] struct {
	authenticator A
}

func (s freshlyCreated[A]) current() A { return s.authenticator }

// authentication is the classification of a request
type authentication[I authn.Identity, A authn.Authenticator] struct {
	// state is nil when no authenticator was found or created
	state authenticatorState[A]

	identity    I
	hasIdentity bool

	// rejected is set when a request provider refused the request's
	// credentials with authn.ErrNotAuthorized
	rejected bool
}

// authenticate classifies the request. A valid retrieved authenticator has
// its identity looked up, an invalid one never does. Without an
// authenticator the request providers are tried and, on success, a fresh
// authenticator is created for the login info. A provider rejecting the
// request leaves it anonymous and marks it as rejected.
func (e *Environment[I, A]) authenticate(ctx context.Context, r *http.Request) (authentication[I, A], error) {
	var result authentication[I, A]

	a, found, err := e.Authenticators.Retrieve(ctx, r)
	if err = e.authenticatorErr(authn.OpRetrieve, nil, err); err != nil {
		return result, err
	}

	if found {
		result.state = initialized[A]{authenticator: a}
		if !a.IsValid() {
			e.logger(ctx).Debug("Invalid authenticator found", "login_info", a.LoginInfo().String())
			return result, nil
		}
		result.identity, result.hasIdentity, err = e.retrieveIdentity(ctx, a.LoginInfo())
		return result, err
	}

	info, ok, err := e.authenticateWithProviders(ctx, r)
	if errors.Is(err, authn.ErrNotAuthorized) {
		e.logger(ctx).Info("Request provider rejected the request", logging.Err(err))
		result.rejected = true
		return result, nil
	}
	if err != nil || !ok {
		return result, err
	}

	result.identity, result.hasIdentity, err = e.retrieveIdentity(ctx, info)
	if err != nil {
		return result, err
	}

	created, err := e.Authenticators.Create(ctx, info, r)
	if err = e.authenticatorErr(authn.OpCreate, &info, err); err != nil {
		return result, err
	}
	result.state = freshlyCreated[A]{authenticator: created}
	return result, nil
}

// handleBlock runs block with the request's authenticator and reconciles
// the authenticator with the result. A retrieved authenticator is touched
// first and block receives the touched value.
func handleBlock[I authn.Identity, A authn.Authenticator, T any](
	ctx context.Context,
	e *Environment[I, A],
	r *http.Request,
	state authenticatorState[A],
	block func(A) (HandlerResult[T], error),
) (HandlerResult[T], error) {
	if s, ok := state.(initialized[A]); ok {
		s.authenticator, s.touched = e.Authenticators.Touch(s.authenticator)
		state = s
	}

	result, err := block(state.current())
	if err != nil {
		return result, err
	}
	return reconcile(ctx, e, r, state, result)
}

// reconcile applies the authenticator bookkeeping for a handler result:
//
//   - a response carrying a renew or discard directive is left alone
//   - a touched retrieved authenticator is updated
//   - an untouched retrieved authenticator needs nothing
//   - a freshly created authenticator is initialized and embedded
func reconcile[I authn.Identity, A authn.Authenticator, T any](
	ctx context.Context,
	e *Environment[I, A],
	r *http.Request,
	state authenticatorState[A],
	result HandlerResult[T],
) (HandlerResult[T], error) {
	if result.Response == nil {
		result.Response = authn.NewResponse()
	}
	if result.Response.Directive() != authn.DirectiveNone {
		return result, nil
	}

	switch s := state.(type) {
	case initialized[A]:
		if !s.touched {
			return result, nil
		}
		info := s.authenticator.LoginInfo()
		resp, err := e.Authenticators.Update(ctx, s.authenticator, result.Response, r)
		if err = e.authenticatorErr(authn.OpUpdate, &info, err); err != nil {
			return result, err
		}
		result.Response = resp

	case freshlyCreated[A]:
		info := s.authenticator.LoginInfo()
		value, err := e.Authenticators.Init(ctx, s.authenticator, r)
		if err = e.authenticatorErr(authn.OpInit, &info, err); err != nil {
			return result, err
		}
		resp, err := e.Authenticators.Embed(ctx, value, result.Response, r)
		if err = e.authenticatorErr(authn.OpEmbed, &info, err); err != nil {
			return result, err
		}
		result.Response = resp
	}

	return result, nil
}
