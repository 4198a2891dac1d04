package authn

import "context"

type contextKey string

const (
	identityContextKey  contextKey = "authn:identity"
	loginInfoContextKey contextKey = "authn:login_info"
)

// ContextWithIdentity adds an identity to a context
func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	ctx = context.WithValue(ctx, identityContextKey, identity)
	return context.WithValue(ctx, loginInfoContextKey, identity.LoginInfo())
}

// IdentityFromContext extracts the identity from the context
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(Identity)
	return identity, ok
}

// LoginInfoFromContext extracts the login info of the identity in the context
func LoginInfoFromContext(ctx context.Context) (LoginInfo, bool) {
	info, ok := ctx.Value(loginInfoContextKey).(LoginInfo)
	return info, ok
}
