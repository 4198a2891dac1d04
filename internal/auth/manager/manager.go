// Package manager builds the request providers enabled in the configuration.
package manager

import (
	"context"
	"crypto/x509"
	"fmt"

	"warden/authn"
	"warden/internal/config"
	"warden/observability/logging"
	"warden/providers/basic"
	"warden/providers/bearer"
	"warden/providers/clientcert"
)

// Manager holds the enabled request providers
type Manager struct {
	logger    *logging.Logger
	providers []authn.RequestProvider
}

// NewManager creates a new authentication manager
func NewManager(providers []authn.RequestProvider, logger *logging.Logger) *Manager {
	return &Manager{
		providers: providers,
		logger:    logger.WithModule("auth.manager"),
	}
}

// Providers returns the enabled request providers
func (m *Manager) Providers() []authn.RequestProvider {
	return m.providers
}

// Names returns the IDs of the enabled request providers
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.providers))
	for _, p := range m.providers {
		names = append(names, p.ID())
	}
	return names
}

// NewManagerFromConfig creates a Manager with the request providers enabled
// in cfg. authCAs verifies client certificates and may be nil, in which case
// the configured CA paths are loaded.
func NewManagerFromConfig(ctx context.Context, cfg *config.Config, authCAs *x509.CertPool, logger *logging.Logger) (*Manager, error) {
	logger = logger.WithModule("auth.factory")
	var providers []authn.RequestProvider

	if cfg.Auth.MTLS.Enabled {
		p, err := clientcert.New(clientcert.Config{
			CAs:           authCAs,
			CAPaths:       cfg.Auth.MTLS.CAPaths,
			AllowDNSNames: cfg.Auth.MTLS.AllowDNSNames,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mTLS provider: %w", err)
		}
		providers = append(providers, p)
		logger.Info("mTLS authentication enabled")
	}

	if cfg.Auth.Bearer.Enabled {
		p, err := bearer.New(ctx, bearer.Config{
			Issuer:   cfg.Auth.Bearer.Issuer,
			ClientID: cfg.Auth.Bearer.ClientID,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Bearer provider: %w", err)
		}
		providers = append(providers, p)
		logger.Info("Bearer authentication enabled", "issuer", cfg.Auth.Bearer.Issuer)
	}

	if cfg.Auth.Basic.Enabled {
		credentials, err := basic.ParseStaticCredentials(cfg.Auth.Basic.Users)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Basic provider: %w", err)
		}
		providers = append(providers, basic.New(credentials, logger))
		logger.Info("Basic authentication enabled", "users", len(credentials))
	}

	if len(providers) == 0 {
		logger.Warn("No authentication methods enabled, only existing sessions are accepted")
	}

	return NewManager(providers, logger), nil
}
