package config

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by wardend
const EnvPrefix = "WARDEN"

// SettingType represents the type of a setting
type SettingType string

const (
	// String type for string settings
	String SettingType = "string"
	// Bool type for boolean settings
	Bool SettingType = "bool"
	// Int type for integer settings
	Int SettingType = "int"
	// Duration type for duration settings
	Duration SettingType = "duration"
	// StringSlice type for string slice settings
	StringSlice SettingType = "stringSlice"
)

// Setting defines a configuration setting
type Setting struct {
	// Name is the viper key of the setting
	Name string
	// Short is a short description of the setting
	Short string
	// Type is the type of the setting
	Type SettingType
	// Default is the default value of the setting
	Default interface{}
}

// Env returns the environment variable for the setting
func (s Setting) Env() string {
	return EnvPrefix + "_" + s.Name
}

// SettingList is a list of settings
type SettingList []Setting

// PopulateViperDefaults sets default values for all settings in Viper
func (sl SettingList) PopulateViperDefaults(v *viper.Viper) {
	for _, s := range sl {
		v.SetDefault(s.Name, s.Default)
	}
}

// WriteUsage prints every setting with its environment variable and default
func (sl SettingList) WriteUsage(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIABLE\tTYPE\tDEFAULT\tDESCRIPTION")
	for _, s := range sl {
		def := fmt.Sprint(s.Default)
		if slice, ok := s.Default.([]string); ok {
			def = strings.Join(slice, ",")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Env(), s.Type, def, s.Short)
	}
	return tw.Flush()
}

// Settings defines all application settings
var Settings = SettingList{
	// Server
	{Name: "SERVER_ADDR", Short: "Address on which the proxy listens", Type: String, Default: ":8000"},
	{Name: "METRICS_ADDR", Short: "Address on which the metrics server listens", Type: String, Default: ":9090"},
	{Name: "SHUTDOWN_TIMEOUT", Short: "Maximum time to wait for graceful shutdown", Type: Duration, Default: "30s"},

	// TLS
	{Name: "TLS_ENABLED", Short: "Enable TLS for the proxy", Type: Bool, Default: false},
	{Name: "TLS_CERT_PATH", Short: "Path to TLS certificate file", Type: String, Default: ""},
	{Name: "TLS_KEY_PATH", Short: "Path to TLS key file", Type: String, Default: ""},
	{Name: "TLS_CA_PATH", Short: "Path to CA certificate file for client verification", Type: String, Default: ""},

	// Upstream
	{Name: "UPSTREAM_URL", Short: "URL of the upstream service", Type: String, Default: ""},
	{Name: "UPSTREAM_TIMEOUT", Short: "Timeout for upstream response headers", Type: Duration, Default: "30s"},

	// Sessions
	{Name: "SESSION_COOKIE_NAME", Short: "Name of the session cookie", Type: String, Default: "warden_session"},
	{Name: "SESSION_COOKIE_SECURE", Short: "Send the session cookie over HTTPS only", Type: Bool, Default: true},
	{Name: "SESSION_MAX_AGE", Short: "Absolute session lifetime", Type: Duration, Default: "12h"},
	{Name: "SESSION_IDLE_TIMEOUT", Short: "Session idle timeout, 0 disables it", Type: Duration, Default: "30m"},
	{Name: "SESSION_SLIDING", Short: "Refresh the session on every request", Type: Bool, Default: true},
	{Name: "SESSION_STORE", Short: "Session store (memory, redis)", Type: String, Default: "memory"},
	{Name: "SESSION_CLEANUP_INTERVAL", Short: "How often the memory store drops expired sessions", Type: Duration, Default: "1m"},
	{Name: "SESSION_REDIS_ADDR", Short: "Redis address of the session store", Type: String, Default: "localhost:6379"},
	{Name: "SESSION_REDIS_PASSWORD", Short: "Redis password of the session store", Type: String, Default: ""},
	{Name: "SESSION_REDIS_DB", Short: "Redis database of the session store", Type: Int, Default: 0},

	// Authentication
	{Name: "AUTH_BASIC_ENABLED", Short: "Enable Basic authentication", Type: Bool, Default: false},
	{Name: "AUTH_BASIC_USERS", Short: "Space separated username:bcrypt-hash entries", Type: StringSlice, Default: []string{}},
	{Name: "AUTH_MTLS_ENABLED", Short: "Enable client certificate authentication", Type: Bool, Default: false},
	{Name: "AUTH_MTLS_CA_PATHS", Short: "Space separated CA certificate paths for client verification", Type: StringSlice, Default: []string{}},
	{Name: "AUTH_MTLS_ALLOW_DNS_NAMES", Short: "Use the first DNS name of certificates without common name", Type: Bool, Default: false},
	{Name: "AUTH_BEARER_ENABLED", Short: "Enable Bearer ID token authentication", Type: Bool, Default: false},
	{Name: "AUTH_BEARER_ISSUER", Short: "Bearer token issuer", Type: String, Default: ""},
	{Name: "AUTH_BEARER_CLIENT_ID", Short: "Bearer token client ID", Type: String, Default: ""},
	{Name: "AUTH_ALLOWED_PRINCIPALS", Short: "Space separated provider:key or provider:* entries, empty allows all", Type: StringSlice, Default: []string{}},

	// Authorization
	{Name: "AUTHZ_TYPE", Short: "Authorizer for rule permissions (none, spicedb)", Type: String, Default: "none"},
	{Name: "AUTHZ_SPICEDB_ENDPOINT", Short: "SpiceDB endpoint", Type: String, Default: "localhost:50051"},
	{Name: "AUTHZ_SPICEDB_INSECURE", Short: "Use insecure connection to SpiceDB", Type: Bool, Default: false},
	{Name: "AUTHZ_SPICEDB_TOKEN", Short: "SpiceDB preshared key", Type: String, Default: ""},
	{Name: "AUTHZ_SPICEDB_RESOURCE_TYPE", Short: "SpiceDB resource type", Type: String, Default: "instance"},
	{Name: "AUTHZ_SPICEDB_RESOURCE_ID", Short: "Default SpiceDB resource ID", Type: String, Default: ""},
	{Name: "AUTHZ_SPICEDB_SUBJECT_TYPE", Short: "SpiceDB subject type", Type: String, Default: "user"},

	// Observability
	{Name: "LOG_LEVEL", Short: "Logging level", Type: String, Default: "info"},
	{Name: "LOG_FORMAT", Short: "Logging format (json, text, console)", Type: String, Default: "json"},
}
