// Package clientcert authenticates requests by their verified TLS client
// certificate.
package clientcert

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"warden/authn"
	"warden/observability/logging"
)

// ID is the provider ID of login infos produced by this provider
const ID = "mtls"

// Config holds client certificate provider configuration
type Config struct {
	// CAs verifies client certificates; takes precedence over CAPaths
	CAs *x509.CertPool

	// CAPaths lists PEM files with CA certificates for client verification
	CAPaths []string

	// AllowDNSNames uses the first DNS SAN when the common name is empty
	AllowDNSNames bool
}

// Provider implements authn.RequestProvider for TLS client certificates
type Provider struct {
	authCAs       *x509.CertPool
	allowDNSNames bool
	logger        *logging.Logger
	now           func() time.Time
}

var _ authn.RequestProvider = (*Provider)(nil)

// New creates a client certificate provider; logger may be nil
func New(config Config, logger *logging.Logger) (*Provider, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithModule("providers.clientcert")

	authCAs := config.CAs
	if authCAs == nil {
		if len(config.CAPaths) == 0 {
			return nil, errors.New("mTLS authentication enabled but no CA paths provided")
		}

		authCAs = x509.NewCertPool()
		for _, caPath := range config.CAPaths {
			logger.Debug("Loading CA certificate", "path", caPath)

			caCert, err := os.ReadFile(caPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read mTLS CA certificate %s: %w", caPath, err)
			}
			if !authCAs.AppendCertsFromPEM(caCert) {
				return nil, fmt.Errorf("failed to parse mTLS CA certificate %s", caPath)
			}
		}
	}

	return &Provider{
		authCAs:       authCAs,
		allowDNSNames: config.AllowDNSNames,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// ID implements authn.RequestProvider
func (p *Provider) ID() string {
	return ID
}

// Authenticate implements authn.RequestProvider. The leaf certificate is
// verified against the configured CAs, with the remaining presented
// certificates as intermediates.
func (p *Provider) Authenticate(ctx context.Context, r *http.Request) (authn.LoginInfo, bool, error) {
	if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
		return authn.LoginInfo{}, false, nil
	}
	logger := p.logger.WithContext(ctx)

	leaf := r.TLS.PeerCertificates[0]
	intermediates := x509.NewCertPool()
	for _, cert := range r.TLS.PeerCertificates[1:] {
		intermediates.AddCert(cert)
	}

	_, err := leaf.Verify(x509.VerifyOptions{
		Roots:         p.authCAs,
		Intermediates: intermediates,
		CurrentTime:   p.now(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	})
	if err != nil {
		logger.Info("Client certificate verification failed", logging.Err(err))
		return authn.LoginInfo{}, false, fmt.Errorf("%w: %v", authn.ErrInvalidCredentials, err)
	}

	subject := leaf.Subject.CommonName
	if subject == "" && p.allowDNSNames && len(leaf.DNSNames) > 0 {
		subject = leaf.DNSNames[0]
		logger.Debug("Using DNS name as subject", "dns_name", subject)
	}
	if subject == "" {
		return authn.LoginInfo{}, false, fmt.Errorf("%w: certificate has no common name", authn.ErrInvalidCredentials)
	}

	logger.Debug("Client certificate verified", "subject", subject)
	return authn.LoginInfo{ProviderID: ID, ProviderKey: subject}, true, nil
}
