package config

import (
	"net/url"
	"time"
)

// Rule actions
const (
	ActionAllow     = "allow"
	ActionDeny      = "deny"
	ActionSecured   = "secured"
	ActionUnsecured = "unsecured"
	ActionUserAware = "useraware"
	ActionLogout    = "logout"
)

// Config represents the complete application configuration
type Config struct {
	// Server holds HTTP server configuration
	Server struct {
		// Address is the address to listen on
		Address string
		// ShutdownTimeout is the maximum time to wait for a graceful shutdown
		ShutdownTimeout time.Duration
	}

	// Metrics holds metrics server configuration
	Metrics struct {
		Address string
	}

	// TLS holds TLS configuration
	TLS struct {
		Enabled  bool
		CertPath string
		KeyPath  string
		// CAPath is the path to the CA certificate for client verification
		CAPath string
	}

	// Upstream holds configuration for the upstream service
	Upstream struct {
		URL *url.URL
		// Timeout bounds the wait for upstream response headers
		Timeout time.Duration
	}

	// Session holds the session cookie authenticator configuration
	Session struct {
		CookieName   string
		CookieSecure bool
		// MaxAge is the absolute session lifetime
		MaxAge time.Duration
		// IdleTimeout ends sessions unused for this long; zero disables it
		IdleTimeout time.Duration
		// Sliding refreshes the last use on every request
		Sliding bool
		// Store is either "memory" or "redis"
		Store string
		// CleanupInterval is the sweep period of the memory store
		CleanupInterval time.Duration
		Redis struct {
			Addr     string
			Password string
			DB       int
		}
	}

	// Auth holds request provider configuration
	Auth struct {
		Basic struct {
			Enabled bool
			// Users holds username:bcrypt-hash entries
			Users []string
		}

		MTLS struct {
			Enabled bool
			// CAPaths is a list of paths to CA certificates for client verification
			CAPaths       []string
			AllowDNSNames bool
		}

		Bearer struct {
			Enabled  bool
			Issuer   string
			ClientID string
		}

		// AllowedPrincipals restricts which login infos map to an identity
		AllowedPrincipals []string
	}

	// Authz holds authorization configuration
	Authz struct {
		// Type is the authorizer used for rule permissions (none, spicedb)
		Type string

		SpiceDB struct {
			Endpoint     string
			Insecure     bool
			Token        string
			ResourceType string
			ResourceID   string
			SubjectType  string
		}
	}

	// Observability holds observability configuration
	Observability struct {
		LogLevel  string
		LogFormat string
	}

	// Rules holds route rules configuration
	Rules []Rule
}

// Rule defines a routing rule for the proxy
type Rule struct {
	// Name is a unique identifier for the rule
	Name string `mapstructure:"name"`

	// Action is one of allow, deny, secured, unsecured, useraware or logout
	Action string `mapstructure:"action"`

	// Paths is a list of URL paths this rule applies to
	Paths []string `mapstructure:"paths"`

	// MatchPrefix matches the path prefix instead of the exact path
	MatchPrefix bool `mapstructure:"match_prefix"`

	// Methods is a list of HTTP methods this rule applies to (empty = all methods)
	Methods []string `mapstructure:"methods"`

	// Permission is checked against the authorizer for "secured" rules.
	// Empty means any authenticated identity is accepted.
	Permission string `mapstructure:"permission"`

	// Resource is the resource identifier for permission checks.
	// If empty, the default resource from configuration is used.
	Resource string `mapstructure:"resource"`

	// Redirect is where "logout" rules send the client afterwards
	Redirect string `mapstructure:"redirect"`
}
