package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads the configuration from all sources and returns the merged result
func Load(configPath string) (*Config, error) {
	v := viper.New()

	Settings.PopulateViperDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	config, err := fromViper(v)
	if err != nil {
		return nil, err
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

func fromViper(v *viper.Viper) (*Config, error) {
	config := &Config{}
	var err error

	config.Server.Address = v.GetString("SERVER_ADDR")
	if config.Server.ShutdownTimeout, err = duration(v, "SHUTDOWN_TIMEOUT"); err != nil {
		return nil, err
	}
	config.Metrics.Address = v.GetString("METRICS_ADDR")

	config.TLS.Enabled = v.GetBool("TLS_ENABLED")
	config.TLS.CertPath = v.GetString("TLS_CERT_PATH")
	config.TLS.KeyPath = v.GetString("TLS_KEY_PATH")
	config.TLS.CAPath = v.GetString("TLS_CA_PATH")

	if raw := v.GetString("UPSTREAM_URL"); raw != "" {
		if config.Upstream.URL, err = url.Parse(raw); err != nil {
			return nil, fmt.Errorf("invalid upstream URL: %w", err)
		}
	}
	if config.Upstream.Timeout, err = duration(v, "UPSTREAM_TIMEOUT"); err != nil {
		return nil, err
	}

	config.Session.CookieName = v.GetString("SESSION_COOKIE_NAME")
	config.Session.CookieSecure = v.GetBool("SESSION_COOKIE_SECURE")
	if config.Session.MaxAge, err = duration(v, "SESSION_MAX_AGE"); err != nil {
		return nil, err
	}
	if config.Session.IdleTimeout, err = duration(v, "SESSION_IDLE_TIMEOUT"); err != nil {
		return nil, err
	}
	config.Session.Sliding = v.GetBool("SESSION_SLIDING")
	config.Session.Store = strings.ToLower(v.GetString("SESSION_STORE"))
	if config.Session.CleanupInterval, err = duration(v, "SESSION_CLEANUP_INTERVAL"); err != nil {
		return nil, err
	}
	config.Session.Redis.Addr = v.GetString("SESSION_REDIS_ADDR")
	config.Session.Redis.Password = v.GetString("SESSION_REDIS_PASSWORD")
	config.Session.Redis.DB = v.GetInt("SESSION_REDIS_DB")

	config.Auth.Basic.Enabled = v.GetBool("AUTH_BASIC_ENABLED")
	config.Auth.Basic.Users = v.GetStringSlice("AUTH_BASIC_USERS")

	config.Auth.MTLS.Enabled = v.GetBool("AUTH_MTLS_ENABLED")
	config.Auth.MTLS.CAPaths = v.GetStringSlice("AUTH_MTLS_CA_PATHS")
	config.Auth.MTLS.AllowDNSNames = v.GetBool("AUTH_MTLS_ALLOW_DNS_NAMES")

	config.Auth.Bearer.Enabled = v.GetBool("AUTH_BEARER_ENABLED")
	config.Auth.Bearer.Issuer = v.GetString("AUTH_BEARER_ISSUER")
	config.Auth.Bearer.ClientID = v.GetString("AUTH_BEARER_CLIENT_ID")

	config.Auth.AllowedPrincipals = v.GetStringSlice("AUTH_ALLOWED_PRINCIPALS")

	config.Authz.Type = strings.ToLower(v.GetString("AUTHZ_TYPE"))
	config.Authz.SpiceDB.Endpoint = v.GetString("AUTHZ_SPICEDB_ENDPOINT")
	config.Authz.SpiceDB.Insecure = v.GetBool("AUTHZ_SPICEDB_INSECURE")
	config.Authz.SpiceDB.Token = v.GetString("AUTHZ_SPICEDB_TOKEN")
	config.Authz.SpiceDB.ResourceType = v.GetString("AUTHZ_SPICEDB_RESOURCE_TYPE")
	config.Authz.SpiceDB.ResourceID = v.GetString("AUTHZ_SPICEDB_RESOURCE_ID")
	config.Authz.SpiceDB.SubjectType = v.GetString("AUTHZ_SPICEDB_SUBJECT_TYPE")

	config.Observability.LogLevel = v.GetString("LOG_LEVEL")
	config.Observability.LogFormat = v.GetString("LOG_FORMAT")

	if err := v.UnmarshalKey("rules", &config.Rules); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}

	return config, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", strings.ToLower(strings.ReplaceAll(key, "_", " ")), err)
	}
	return d, nil
}

// validateConfig performs validation on the loaded configuration
func validateConfig(cfg *Config) error {
	if cfg.Upstream.URL == nil || cfg.Upstream.URL.Host == "" {
		return fmt.Errorf("upstream URL is required")
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertPath == "" {
			return fmt.Errorf("TLS certificate path is required when TLS is enabled")
		}
		if cfg.TLS.KeyPath == "" {
			return fmt.Errorf("TLS key path is required when TLS is enabled")
		}
		if err := fileExists("TLS certificate", cfg.TLS.CertPath); err != nil {
			return err
		}
		if err := fileExists("TLS key", cfg.TLS.KeyPath); err != nil {
			return err
		}
	}

	if err := validateSessionConfig(cfg); err != nil {
		return err
	}
	if err := validateAuthConfig(cfg); err != nil {
		return err
	}
	if err := validateAuthzConfig(cfg); err != nil {
		return err
	}
	return validateRules(cfg)
}

func validateSessionConfig(cfg *Config) error {
	if cfg.Session.CookieName == "" {
		return fmt.Errorf("session cookie name is required")
	}
	if cfg.Session.MaxAge <= 0 {
		return fmt.Errorf("session max age must be positive")
	}
	if cfg.Session.IdleTimeout < 0 {
		return fmt.Errorf("session idle timeout must not be negative")
	}
	switch cfg.Session.Store {
	case "memory":
		if cfg.Session.CleanupInterval <= 0 {
			return fmt.Errorf("session cleanup interval must be positive")
		}
	case "redis":
		if cfg.Session.Redis.Addr == "" {
			return fmt.Errorf("redis address is required for the redis session store")
		}
	default:
		return fmt.Errorf("unknown session store: '%s'", cfg.Session.Store)
	}
	return nil
}

// validateAuthConfig validates request provider configuration
func validateAuthConfig(cfg *Config) error {
	if cfg.Auth.Basic.Enabled && len(cfg.Auth.Basic.Users) == 0 {
		return fmt.Errorf("at least one user is required when Basic authentication is enabled")
	}

	if cfg.Auth.MTLS.Enabled {
		if !cfg.TLS.Enabled {
			return fmt.Errorf("TLS must be enabled for mTLS authentication")
		}
		if len(cfg.Auth.MTLS.CAPaths) == 0 {
			return fmt.Errorf("at least one CA path is required when mTLS is enabled")
		}
		for _, caPath := range cfg.Auth.MTLS.CAPaths {
			if err := fileExists("mTLS CA", caPath); err != nil {
				return err
			}
		}
	}

	if cfg.Auth.Bearer.Enabled {
		if cfg.Auth.Bearer.Issuer == "" {
			return fmt.Errorf("bearer issuer is required when Bearer is enabled")
		}
		if cfg.Auth.Bearer.ClientID == "" {
			return fmt.Errorf("bearer client ID is required when Bearer is enabled")
		}
	}

	return nil
}

// validateAuthzConfig validates authorization configuration
func validateAuthzConfig(cfg *Config) error {
	switch cfg.Authz.Type {
	case "none", "":
	case "spicedb":
		if cfg.Authz.SpiceDB.Endpoint == "" {
			return fmt.Errorf("SpiceDB endpoint is required when using SpiceDB authorization")
		}
		if cfg.Authz.SpiceDB.Token == "" {
			return fmt.Errorf("SpiceDB token is required when using SpiceDB authorization")
		}
	default:
		return fmt.Errorf("unknown authorizer type: '%s'", cfg.Authz.Type)
	}
	return nil
}

func validateRules(cfg *Config) error {
	names := make(map[string]bool, len(cfg.Rules))
	for i, rule := range cfg.Rules {
		if rule.Name == "" {
			return fmt.Errorf("rule %d has no name", i)
		}
		if names[rule.Name] {
			return fmt.Errorf("duplicate rule name: '%s'", rule.Name)
		}
		names[rule.Name] = true

		if len(rule.Paths) == 0 {
			return fmt.Errorf("rule '%s' has no paths", rule.Name)
		}

		switch rule.Action {
		case ActionAllow, ActionDeny, ActionUnsecured, ActionUserAware, ActionLogout:
			if rule.Permission != "" {
				return fmt.Errorf("rule '%s': permission is only supported by secured rules", rule.Name)
			}
		case ActionSecured:
			if rule.Permission != "" && cfg.Authz.Type != "spicedb" {
				return fmt.Errorf("rule '%s': permission requires an authorizer", rule.Name)
			}
			if rule.Permission != "" && rule.Resource == "" && cfg.Authz.SpiceDB.ResourceID == "" {
				return fmt.Errorf("rule '%s': no resource and no default SpiceDB resource ID", rule.Name)
			}
		default:
			return fmt.Errorf("rule '%s': unknown action '%s'", rule.Name, rule.Action)
		}
	}
	return nil
}

func fileExists(what, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s file not found: %s", what, path)
	}
	return nil
}
