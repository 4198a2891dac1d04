package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warden.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_DefaultsAndEnvironment(t *testing.T) {
	t.Setenv("WARDEN_UPSTREAM_URL", "http://backend:8080")
	t.Setenv("WARDEN_SESSION_IDLE_TIMEOUT", "5m")
	t.Setenv("WARDEN_AUTH_BASIC_ENABLED", "true")
	t.Setenv("WARDEN_AUTH_BASIC_USERS", "alice:hash1 bob:hash2")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Address != ":8000" || cfg.Metrics.Address != ":9090" {
		t.Errorf("unexpected addresses: %q %q", cfg.Server.Address, cfg.Metrics.Address)
	}
	if cfg.Upstream.URL.Host != "backend:8080" {
		t.Errorf("Upstream.URL = %v", cfg.Upstream.URL)
	}
	if cfg.Session.IdleTimeout != 5*time.Minute || cfg.Session.MaxAge != 12*time.Hour {
		t.Errorf("unexpected session timeouts: %v %v", cfg.Session.IdleTimeout, cfg.Session.MaxAge)
	}
	if cfg.Session.CleanupInterval != time.Minute {
		t.Errorf("Session.CleanupInterval = %v, want 1m", cfg.Session.CleanupInterval)
	}
	if cfg.Session.Store != "memory" || cfg.Session.CookieName != "warden_session" {
		t.Errorf("unexpected session store config: %+v", cfg.Session)
	}
	if got := cfg.Auth.Basic.Users; len(got) != 2 || got[1] != "bob:hash2" {
		t.Errorf("Basic.Users = %v", got)
	}
	if cfg.Authz.Type != "none" {
		t.Errorf("Authz.Type = %q", cfg.Authz.Type)
	}
}

func TestLoad_Rules(t *testing.T) {
	path := writeConfig(t, `
UPSTREAM_URL: http://backend:8080
AUTHZ_TYPE: spicedb
AUTHZ_SPICEDB_TOKEN: secret
AUTHZ_SPICEDB_RESOURCE_ID: main
rules:
  - name: public
    action: allow
    paths: ["/public"]
    match_prefix: true
  - name: admin
    action: secured
    paths: ["/admin"]
    methods: ["GET", "POST"]
    permission: admin
  - name: logout
    action: logout
    paths: ["/logout"]
    redirect: /
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Rules) != 3 {
		t.Fatalf("got %d rules, want 3", len(cfg.Rules))
	}
	if r := cfg.Rules[0]; r.Action != ActionAllow || !r.MatchPrefix || r.Paths[0] != "/public" {
		t.Errorf("unexpected rule: %+v", r)
	}
	if r := cfg.Rules[1]; r.Permission != "admin" || len(r.Methods) != 2 {
		t.Errorf("unexpected rule: %+v", r)
	}
	if r := cfg.Rules[2]; r.Redirect != "/" {
		t.Errorf("unexpected rule: %+v", r)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		rules   string
		wantErr string
	}{
		{
			name:    "missing upstream",
			env:     map[string]string{},
			wantErr: "upstream URL is required",
		},
		{
			name:    "unknown store",
			env:     map[string]string{"WARDEN_SESSION_STORE": "disk"},
			wantErr: "unknown session store",
		},
		{
			name:    "basic without users",
			env:     map[string]string{"WARDEN_AUTH_BASIC_ENABLED": "true"},
			wantErr: "at least one user",
		},
		{
			name:    "mtls without tls",
			env:     map[string]string{"WARDEN_AUTH_MTLS_ENABLED": "true"},
			wantErr: "TLS must be enabled",
		},
		{
			name:    "bearer without issuer",
			env:     map[string]string{"WARDEN_AUTH_BEARER_ENABLED": "true"},
			wantErr: "bearer issuer is required",
		},
		{
			name:    "unknown authorizer",
			env:     map[string]string{"WARDEN_AUTHZ_TYPE": "opa"},
			wantErr: "unknown authorizer type",
		},
		{
			name:    "bad duration",
			env:     map[string]string{"WARDEN_SESSION_MAX_AGE": "forever"},
			wantErr: "invalid session max age",
		},
		{
			name:    "memory store without cleanup",
			env:     map[string]string{"WARDEN_SESSION_CLEANUP_INTERVAL": "0s"},
			wantErr: "cleanup interval must be positive",
		},
		{
			name:    "permission without authorizer",
			rules:   "rules:\n  - {name: a, action: secured, paths: [/a], permission: view}\n",
			wantErr: "permission requires an authorizer",
		},
		{
			name:    "permission on allow rule",
			rules:   "rules:\n  - {name: a, action: allow, paths: [/a], permission: view}\n",
			wantErr: "only supported by secured rules",
		},
		{
			name:    "unknown action",
			rules:   "rules:\n  - {name: a, action: auth, paths: [/a]}\n",
			wantErr: "unknown action",
		},
		{
			name:    "duplicate rule",
			rules:   "rules:\n  - {name: a, action: allow, paths: [/a]}\n  - {name: a, action: deny, paths: [/b]}\n",
			wantErr: "duplicate rule name",
		},
		{
			name:    "rule without paths",
			rules:   "rules:\n  - {name: a, action: allow}\n",
			wantErr: "has no paths",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.name != "missing upstream" {
				t.Setenv("WARDEN_UPSTREAM_URL", "http://backend:8080")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.rules != "" {
				path = writeConfig(t, tt.rules)
			}

			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestSettings_WriteUsage(t *testing.T) {
	var buf bytes.Buffer
	if err := Settings.WriteUsage(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"WARDEN_SERVER_ADDR", "WARDEN_SESSION_STORE", "memory"} {
		if !strings.Contains(out, want) {
			t.Errorf("usage misses %q", want)
		}
	}
}
