package authn

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated means no usable identity could be established for
	// the request. Handlers return it to get the "not authenticated" response.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotAuthorized means an identity was established but the
	// authorization policy rejected it.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrInvalidCredentials is returned by request providers when the
	// presented credentials do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Authenticator service operations named in AuthenticatorError
const (
	OpCreate   = "create"
	OpRetrieve = "retrieve"
	OpInit     = "init"
	OpEmbed    = "embed"
	OpUpdate   = "update"
	OpRenew    = "renew"
	OpDiscard  = "discard"
)

// AuthenticatorError is a backing-store or backend failure of an
// AuthenticatorService. It is never an authentication outcome: the request
// could not be completed at all.
type AuthenticatorError struct {
	// Op is the failed operation (OpCreate, OpUpdate, ...)
	Op string

	// Service is the ID of the failing AuthenticatorService
	Service string

	// LoginInfo is the affected login info, if known
	LoginInfo *LoginInfo

	// Err is the underlying cause
	Err error
}

// NewAuthenticatorError creates an AuthenticatorError; info may be nil
func NewAuthenticatorError(op, service string, info *LoginInfo, err error) *AuthenticatorError {
	return &AuthenticatorError{Op: op, Service: service, LoginInfo: info, Err: err}
}

func (e *AuthenticatorError) Error() string {
	msg := fmt.Sprintf("[%s] could not %s authenticator", e.Service, e.Op)
	if e.LoginInfo != nil {
		msg += " for login info " + e.LoginInfo.String()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthenticatorError) Unwrap() error {
	return e.Err
}

// ProfileRetrievalError is a provider failure while fetching a profile. The
// pipeline treats it like any other failed authentication attempt.
type ProfileRetrievalError struct {
	Provider string
	Err      error
}

func (e *ProfileRetrievalError) Error() string {
	return fmt.Sprintf("[%s] could not retrieve profile: %v", e.Provider, e.Err)
}

func (e *ProfileRetrievalError) Unwrap() error {
	return e.Err
}

// IsAuthenticatorError reports whether err is or wraps an AuthenticatorError
func IsAuthenticatorError(err error) bool {
	var ae *AuthenticatorError
	return errors.As(err, &ae)
}
