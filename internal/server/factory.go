package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"

	"warden/authz/spicedb"
	"warden/events"
	"warden/internal/auth/manager"
	"warden/internal/config"
	"warden/internal/identity"
	"warden/internal/proxy/router"
	"warden/internal/session"
	tlsconfig "warden/internal/tls"
	"warden/observability"
	"warden/observability/logging"
	"warden/repository"
	"warden/repository/memory"
	redisrepo "warden/repository/redis"
)

// sessionKeyPrefix namespaces wardend sessions in Redis
const sessionKeyPrefix = "warden:session"

// NewFromConfig creates a new server from configuration
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	obs, err := observability.NewProvider(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	logger := obs.Logger

	bus := events.NewBus(logger)
	stopObserving := obs.Observe(bus)

	var tlsCfg *tls.Config
	var authCAs *x509.CertPool
	if cfg.TLS.Enabled {
		tlsSetup := &tlsconfig.Config{
			Logger:      logger,
			RootCAPath:  cfg.TLS.CAPath,
			AuthCAFiles: cfg.Auth.MTLS.CAPaths,
			CertPath:    cfg.TLS.CertPath,
			KeyPath:     cfg.TLS.KeyPath,
		}
		if tlsCfg, err = tlsSetup.GetTLSConfig(); err != nil {
			return nil, fmt.Errorf("failed to create TLS configuration: %w", err)
		}
		authCAs = tlsSetup.AuthCAs
	}

	authManager, err := manager.NewManagerFromConfig(ctx, cfg, authCAs, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize authentication manager: %w", err)
	}

	// closers are released in reverse order on shutdown, or right away
	// when the setup fails
	var closers []namedCloser
	defer func() {
		if err != nil {
			closeAll(closers, logger)
		}
	}()

	repo, repoCloser, err := newSessionRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	closers = append(closers, namedCloser{"session store", repoCloser})

	identities, err := identity.NewService(cfg.Auth.AllowedPrincipals)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize identity service: %w", err)
	}

	authorizer, spicedbClient, err := newAuthorizer(cfg, logger, obs)
	if err != nil {
		return nil, err
	}
	if spicedbClient != nil {
		closers = append(closers, namedCloser{"spicedb client", spicedbClient})
	}

	env := &router.Environment{
		Identities: identities,
		Authenticators: session.New(session.Config{
			CookieName:   cfg.Session.CookieName,
			CookieSecure: cfg.Session.CookieSecure,
			MaxAge:       cfg.Session.MaxAge,
			IdleTimeout:  cfg.Session.IdleTimeout,
			Sliding:      cfg.Session.Sliding,
		}, repo, logger),
		RequestProviders: authManager.Providers(),
		Events:           bus,
		Logger:           logger,
		Metrics:          obs.Metrics,
	}

	proxyRouter, err := router.New(router.Config{
		UpstreamURL:     cfg.Upstream.URL,
		UpstreamTimeout: cfg.Upstream.Timeout,
		SessionCookie:   cfg.Session.CookieName,
		Rules:           router.FromConfig(cfg.Rules),
	}, env, authorizer, logger, obs.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize router: %w", err)
	}

	logger.Info("Proxy configured",
		"upstream", logging.RedactURL(cfg.Upstream.URL),
		"rules", len(cfg.Rules),
		"providers", authManager.Names(),
		"session_store", cfg.Session.Store,
	)

	srv := New(Config{
		Address:         cfg.Server.Address,
		MetricsAddress:  cfg.Metrics.Address,
		TLSConfig:       tlsCfg,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, obs.Middleware(proxyRouter), obs.MetricsHandler(), logger)

	srv.OnStop(func() {
		stopObserving()
		bus.Close()
	})
	srv.OnStop(func() { closeAll(closers, logger) })

	return srv, nil
}

// newSessionRepository opens the configured session store. The returned
// closer stops the memory store's cleanup or closes the redis client.
func newSessionRepository(ctx context.Context, cfg *config.Config, logger *logging.Logger) (repository.Repository[session.Session], io.Closer, error) {
	switch cfg.Session.Store {
	case "redis":
		client, err := redisrepo.NewClient(ctx, redisrepo.Config{
			Addr:     cfg.Session.Redis.Addr,
			Password: cfg.Session.Redis.Password,
			DB:       cfg.Session.Redis.DB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize session store: %w", err)
		}
		return redisrepo.New[session.Session](client, sessionKeyPrefix, logger), client, nil
	default:
		repo := memory.New[session.Session]()
		if cfg.Session.CleanupInterval > 0 {
			repo.StartCleanup(cfg.Session.CleanupInterval)
		}
		return repo, repo, nil
	}
}

// newAuthorizer connects to SpiceDB when it is the configured authorizer
func newAuthorizer(cfg *config.Config, logger *logging.Logger, obs *observability.Provider) (*spicedb.Authorizer, *spicedb.Client, error) {
	if cfg.Authz.Type != "spicedb" {
		return nil, nil, nil
	}

	spicedbConfig := spicedb.Config{
		Endpoint:     cfg.Authz.SpiceDB.Endpoint,
		Insecure:     cfg.Authz.SpiceDB.Insecure,
		Token:        cfg.Authz.SpiceDB.Token,
		ResourceType: cfg.Authz.SpiceDB.ResourceType,
		ResourceID:   cfg.Authz.SpiceDB.ResourceID,
		SubjectType:  cfg.Authz.SpiceDB.SubjectType,
	}
	client, err := spicedb.NewClient(spicedbConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create SpiceDB client: %w", err)
	}
	logger.Info("SpiceDB authorization enabled",
		"endpoint", cfg.Authz.SpiceDB.Endpoint,
		"insecure", cfg.Authz.SpiceDB.Insecure,
	)
	return spicedb.New(spicedbConfig, client, logger, obs.Metrics), client, nil
}

type namedCloser struct {
	name string
	io.Closer
}

func closeAll(closers []namedCloser, logger *logging.Logger) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			logger.Warn("Failed to close resource", "name", closers[i].name, logging.Err(err))
		}
	}
}
