// Package basic authenticates requests carrying HTTP Basic credentials.
package basic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"warden/authn"
	"warden/observability/logging"
)

// ID is the provider ID of login infos produced by this provider
const ID = "basic"

// CredentialsVerifier checks a username and password
type CredentialsVerifier interface {
	Verify(ctx context.Context, username, password string) (bool, error)
}

// Provider implements authn.RequestProvider for Basic authentication
type Provider struct {
	verifier CredentialsVerifier
	logger   *logging.Logger
}

var _ authn.RequestProvider = (*Provider)(nil)

// New creates a Basic auth provider; logger may be nil
func New(verifier CredentialsVerifier, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Provider{
		verifier: verifier,
		logger:   logger.WithModule("providers.basic"),
	}
}

// ID implements authn.RequestProvider
func (p *Provider) ID() string {
	return ID
}

// Authenticate implements authn.RequestProvider
func (p *Provider) Authenticate(ctx context.Context, r *http.Request) (authn.LoginInfo, bool, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return authn.LoginInfo{}, false, nil
	}

	valid, err := p.verifier.Verify(ctx, username, password)
	if err != nil {
		return authn.LoginInfo{}, false, fmt.Errorf("failed to verify credentials for %s: %w", username, err)
	}
	if !valid {
		p.logger.WithContext(ctx).Debug("Invalid Basic credentials", "username", username)
		return authn.LoginInfo{}, false, fmt.Errorf("%w for user %s", authn.ErrInvalidCredentials, username)
	}

	return authn.LoginInfo{ProviderID: ID, ProviderKey: username}, true, nil
}

// StaticCredentials verifies against a fixed set of bcrypt password hashes
// keyed by username
type StaticCredentials map[string][]byte

// ParseStaticCredentials parses "username:bcrypt-hash" entries
func ParseStaticCredentials(entries []string) (StaticCredentials, error) {
	creds := make(StaticCredentials, len(entries))
	for _, entry := range entries {
		username, hash, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok || username == "" || hash == "" {
			return nil, fmt.Errorf("invalid credentials entry %q: expected username:hash", entry)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("invalid bcrypt hash for user %s: %w", username, err)
		}
		creds[username] = []byte(hash)
	}
	return creds, nil
}

// compareHash is swapped in tests
var compareHash = bcrypt.CompareHashAndPassword

// unknownUserHash is compared against for unknown usernames so that they
// take as long as known ones
var unknownUserHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("unknown user"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("basic: failed to generate placeholder hash: %v", err))
	}
	return hash
})

// Verify implements CredentialsVerifier
func (s StaticCredentials) Verify(_ context.Context, username, password string) (bool, error) {
	hash, known := s[username]
	if !known {
		hash = unknownUserHash()
	}

	err := compareHash(hash, []byte(password))
	switch {
	case err == nil:
		return known, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}
