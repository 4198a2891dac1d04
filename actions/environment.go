// Package actions runs HTTP handlers behind the authentication pipeline.
//
// Each request is classified by the authenticator it carries (or the one a
// request provider creates for it) and handed to one of three action
// flavors: Secured grants only authenticated and authorized identities,
// Unsecured grants only anonymous requests and UserAware always grants.
// After the handler ran, the pipeline reconciles the authenticator with the
// response so that at most one store mutation happens per request and a
// renew or discard issued by the handler is never overwritten.
package actions

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"warden/authn"
	"warden/events"
	"warden/observability/logging"
	"warden/observability/metrics"
)

// Environment bundles the collaborators of the pipeline for one identity
// and authenticator type.
type Environment[I authn.Identity, A authn.Authenticator] struct {
	// Identities resolves login infos to identities
	Identities authn.IdentityService[I]

	// Authenticators manages the authenticator lifecycle
	Authenticators authn.AuthenticatorService[A]

	// RequestProviders are tried when the request carries no authenticator
	RequestProviders []authn.RequestProvider

	// Events receives access events; nil drops them
	Events events.Publisher

	// Logger is optional
	Logger *logging.Logger

	// Metrics is optional
	Metrics *metrics.Collector
}

// Secured returns a secured action using the default error handler
func (e *Environment[I, A]) Secured() *Secured[I, A] {
	return &Secured[I, A]{env: e, errorHandler: DefaultErrorHandler{}}
}

// Unsecured returns an unsecured action using the default error handler
func (e *Environment[I, A]) Unsecured() *Unsecured[I, A] {
	return &Unsecured[I, A]{env: e, errorHandler: DefaultErrorHandler{}}
}

// UserAware returns a user-aware action
func (e *Environment[I, A]) UserAware() *UserAware[I, A] {
	return &UserAware[I, A]{env: e}
}

func (e *Environment[I, A]) logger(ctx context.Context) *logging.Logger {
	base := e.Logger
	if base == nil {
		base = logging.Discard()
	}
	return base.WithContext(ctx).WithModule("actions")
}

func (e *Environment[I, A]) publish(ctx context.Context, ev events.Event) {
	if e.Events == nil {
		return
	}
	e.Events.Publish(ctx, ev)
}

// authenticatorErr records the outcome of an authenticator service call and
// makes sure failures surface as *authn.AuthenticatorError.
func (e *Environment[I, A]) authenticatorErr(op string, info *authn.LoginInfo, err error) error {
	e.Metrics.RecordAuthenticatorOperation(e.Authenticators.ID(), op, err == nil)
	if err == nil || authn.IsAuthenticatorError(err) {
		return err
	}
	return authn.NewAuthenticatorError(op, e.Authenticators.ID(), info, err)
}

func (e *Environment[I, A]) retrieveIdentity(ctx context.Context, info authn.LoginInfo) (I, bool, error) {
	identity, ok, err := e.Identities.Retrieve(ctx, info)
	if err != nil {
		var zero I
		return zero, false, fmt.Errorf("failed to retrieve identity for %s: %w", info, err)
	}
	if !ok {
		e.logger(ctx).Debug("No identity for login info", "login_info", info.String())
	}
	return identity, ok, nil
}

// authenticateWithProviders tries the request providers in order until one
// yields a login info. Provider failures count as "no credentials", except
// authn.ErrNotAuthorized which stops the chain and is returned.
func (e *Environment[I, A]) authenticateWithProviders(ctx context.Context, r *http.Request) (authn.LoginInfo, bool, error) {
	logger := e.logger(ctx)

	for _, p := range e.RequestProviders {
		info, ok, err := p.Authenticate(ctx, r)
		switch {
		case errors.Is(err, authn.ErrNotAuthorized):
			e.Metrics.RecordRequestProvider(p.ID(), metrics.OutcomeError)
			return authn.LoginInfo{}, false, err
		case err != nil:
			e.Metrics.RecordRequestProvider(p.ID(), metrics.OutcomeError)
			logger.Info("Request provider authentication failed", "provider", p.ID(), logging.Err(err))
			continue
		case !ok:
			e.Metrics.RecordRequestProvider(p.ID(), metrics.OutcomeNotFound)
			continue
		}

		e.Metrics.RecordRequestProvider(p.ID(), metrics.OutcomeFound)
		logger.Debug("Request provider authenticated", "provider", p.ID(), "login_info", info.String())
		return info, true, nil
	}

	return authn.LoginInfo{}, false, nil
}

func (e *Environment[I, A]) discard(ctx context.Context, a A, resp *authn.Response, r *http.Request) (*authn.Response, error) {
	info := a.LoginInfo()
	out, err := e.Authenticators.Discard(ctx, a, resp, r)
	if err = e.authenticatorErr(authn.OpDiscard, &info, err); err != nil {
		return nil, err
	}
	e.logger(ctx).Debug("Authenticator discarded", "login_info", info.String())
	return out, nil
}

func (e *Environment[I, A]) renew(ctx context.Context, a A, resp *authn.Response, r *http.Request) (*authn.Response, error) {
	info := a.LoginInfo()
	out, err := e.Authenticators.Renew(ctx, a, resp, r)
	if err = e.authenticatorErr(authn.OpRenew, &info, err); err != nil {
		return nil, err
	}
	return out, nil
}
