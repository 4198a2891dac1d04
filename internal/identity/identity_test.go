package identity

import (
	"context"
	"testing"

	"warden/authn"
)

func TestService_Retrieve(t *testing.T) {
	alice := authn.LoginInfo{ProviderID: "basic", ProviderKey: "alice"}
	bob := authn.LoginInfo{ProviderID: "basic", ProviderKey: "bob"}
	svc := authn.LoginInfo{ProviderID: "mtls", ProviderKey: "billing"}

	tests := []struct {
		name    string
		allowed []string
		info    authn.LoginInfo
		want    bool
	}{
		{"empty list allows all", nil, bob, true},
		{"empty login info", nil, authn.LoginInfo{}, false},
		{"listed principal", []string{"basic:alice"}, alice, true},
		{"unlisted principal", []string{"basic:alice"}, bob, false},
		{"provider wildcard", []string{"basic:alice", "mtls:*"}, svc, true},
		{"wildcard is per provider", []string{"mtls:*"}, alice, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewService(tt.allowed)
			if err != nil {
				t.Fatalf("NewService failed: %v", err)
			}
			p, ok, err := s.Retrieve(context.Background(), tt.info)
			if err != nil {
				t.Fatalf("Retrieve failed: %v", err)
			}
			if ok != tt.want {
				t.Fatalf("Retrieve() found = %v, want %v", ok, tt.want)
			}
			if ok && (p.LoginInfo() != tt.info || p.Subject() != tt.info.ProviderKey) {
				t.Errorf("unexpected principal %+v", p)
			}
		})
	}
}

func TestNewService_InvalidEntries(t *testing.T) {
	for _, entry := range []string{"alice", ":alice", "basic:"} {
		if _, err := NewService([]string{entry}); err == nil {
			t.Errorf("NewService(%q) succeeded, want error", entry)
		}
	}
}
