// Package bearer authenticates requests carrying an OpenID Connect ID
// token in the Authorization header.
package bearer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/exp/slices"

	"warden/authn"
	"warden/observability/logging"
)

// ID is the provider ID of login infos produced by this provider
const ID = "bearer"

// Config holds Bearer provider configuration
type Config struct {
	// Issuer is the token issuer URL
	Issuer string

	// ClientID must appear as audience or authorized party of the token
	ClientID string
}

// Provider implements authn.RequestProvider for Bearer ID tokens
type Provider struct {
	verifier *oidc.IDTokenVerifier
	clientID string
	logger   *logging.Logger
}

var _ authn.RequestProvider = (*Provider)(nil)

// audiences unmarshals the audience claim, which is either a string or an array
type audiences []string

func (a *audiences) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = []string{single}
		return nil
	}

	var multiple []string
	if err := json.Unmarshal(data, &multiple); err == nil {
		*a = multiple
		return nil
	}

	return errors.New("invalid audience claim format")
}

// New discovers the issuer and creates a Bearer provider
func New(ctx context.Context, config Config, logger *logging.Logger) (*Provider, error) {
	if config.Issuer == "" {
		return nil, errors.New("bearer authentication enabled but no issuer provided")
	}
	if config.ClientID == "" {
		return nil, errors.New("bearer authentication enabled but no client ID provided")
	}

	provider, err := oidc.NewProvider(ctx, config.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OIDC provider for bearer: %w", err)
	}

	// audience is checked against aud and azp below
	verifier := provider.Verifier(&oidc.Config{
		ClientID:          config.ClientID,
		SkipClientIDCheck: true,
	})
	return NewWithVerifier(verifier, config.ClientID, logger), nil
}

// NewWithVerifier creates a Bearer provider from an existing verifier. The
// verifier should skip its own client ID check.
func NewWithVerifier(verifier *oidc.IDTokenVerifier, clientID string, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Provider{
		verifier: verifier,
		clientID: clientID,
		logger:   logger.WithModule("providers.bearer"),
	}
}

// ID implements authn.RequestProvider
func (p *Provider) ID() string {
	return ID
}

// Authenticate implements authn.RequestProvider. A token that fails
// verification is invalid credentials; a valid token issued to another
// client is not authorized and stops the request.
func (p *Provider) Authenticate(ctx context.Context, r *http.Request) (authn.LoginInfo, bool, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return authn.LoginInfo{}, false, nil
	}
	logger := p.logger.WithContext(ctx)

	idToken, err := p.verifier.Verify(ctx, token)
	if err != nil {
		logger.Debug("Bearer token verification failed", logging.Err(err))
		return authn.LoginInfo{}, false, fmt.Errorf("%w: %v", authn.ErrInvalidCredentials, err)
	}

	var claims struct {
		Subject string    `json:"sub"`
		Azp     string    `json:"azp,omitempty"`
		Aud     audiences `json:"aud,omitempty"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return authn.LoginInfo{}, false, fmt.Errorf("%w: failed to parse claims: %v", authn.ErrInvalidCredentials, err)
	}

	if claims.Azp != p.clientID && !slices.Contains(claims.Aud, p.clientID) {
		logger.Info("Bearer token audience mismatch",
			"expected_client_id", p.clientID,
			"aud", []string(claims.Aud),
			"azp", claims.Azp,
		)
		return authn.LoginInfo{}, false, fmt.Errorf("%w: token issued for another client", authn.ErrNotAuthorized)
	}
	if claims.Subject == "" {
		return authn.LoginInfo{}, false, fmt.Errorf("%w: token has no subject", authn.ErrInvalidCredentials)
	}

	logger.Debug("Bearer token valid", "subject", claims.Subject)
	return authn.LoginInfo{ProviderID: ID, ProviderKey: claims.Subject}, true, nil
}
