// Package authn holds the authentication model shared by every other package:
// login infos, identities, authenticators and the collaborator contracts the
// request pipeline consumes (IdentityService, AuthenticatorService and
// RequestProvider).
//
// An authenticator proves that a request belongs to a previously
// authenticated identity. Its lifecycle is owned by an AuthenticatorService:
//
//	Create -> Init -> Embed          (first authentication)
//	Retrieve -> Touch -> Update      (every following request)
//	Renew / Discard                  (explicitly requested by a handler)
//
// Outgoing responses are buffered in a Response so that the service can
// attach cookies or headers after the handler has produced its result. A
// handler that renews or discards the authenticator marks the Response with
// the matching Directive; the pipeline then never runs its generic Update
// pass for that request.
package authn
