// Package tls builds the server TLS configuration of wardend.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"warden/observability/logging"
)

// Config holds the TLS configuration
type Config struct {
	// Logger is the logger to use
	Logger *logging.Logger

	// RootCAPath is the path to the CA certificate accepted for client
	// certificates when no AuthCAFiles are configured
	RootCAPath string

	// AuthCAFiles is a list of paths to CA certificates for client verification
	AuthCAFiles []string

	// CertPath is the path to the server certificate
	CertPath string

	// KeyPath is the path to the server key
	KeyPath string

	// AuthCAs is the certificate pool for client verification, populated by
	// GetTLSConfig
	AuthCAs *x509.CertPool
}

// GetTLSConfig creates a TLS configuration for the server. Client
// certificates are requested but optional; the mTLS request provider decides
// what a presented certificate is worth.
func (c *Config) GetTLSConfig() (*tls.Config, error) {
	logger := c.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger.Debug("Initializing TLS configuration")

	if c.CertPath == "" || c.KeyPath == "" {
		return nil, errors.New("TLS certificate and key paths are required")
	}
	cert, err := tls.LoadX509KeyPair(c.CertPath, c.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS key pair: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	switch {
	case len(c.AuthCAFiles) > 0:
		if c.AuthCAs, err = LoadCertPool(c.AuthCAFiles...); err != nil {
			return nil, err
		}
		logger.Debug("Auth CA files loaded for mTLS", "files", c.AuthCAFiles)
	case c.RootCAPath != "":
		if c.AuthCAs, err = LoadCertPool(c.RootCAPath); err != nil {
			return nil, err
		}
		logger.Warn("No auth CA files provided, verifying client certificates with the root CA")
	}

	if c.AuthCAs != nil {
		tlsConfig.ClientCAs = c.AuthCAs
		tlsConfig.ClientAuth = tls.VerifyClientCertIfGiven
	}

	logger.Info("TLS configuration successful", "client_certificates", c.AuthCAs != nil)
	return tlsConfig, nil
}

// LoadCertPool reads PEM encoded certificates into a new pool
func LoadCertPool(paths ...string) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	for _, path := range paths {
		pem, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("failed to parse CA file: %s", path)
		}
	}
	return pool, nil
}
