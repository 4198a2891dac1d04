// Package identity maps authenticated login infos to wardend principals.
package identity

import (
	"context"
	"fmt"
	"strings"

	"warden/authn"
)

// Principal is the identity forwarded upstream
type Principal struct {
	Info authn.LoginInfo
}

// LoginInfo implements authn.Identity
func (p Principal) LoginInfo() authn.LoginInfo {
	return p.Info
}

// Subject returns the provider key of the principal
func (p Principal) Subject() string {
	return p.Info.ProviderKey
}

const wildcard = "*"

// Service resolves login infos against an allow list. Without entries
// every login info is a principal.
type Service struct {
	principals map[authn.LoginInfo]bool
	providers  map[string]bool
}

// NewService parses "provider:key" and "provider:*" entries
func NewService(allowed []string) (*Service, error) {
	s := &Service{
		principals: make(map[authn.LoginInfo]bool),
		providers:  make(map[string]bool),
	}
	for _, entry := range allowed {
		provider, key, ok := strings.Cut(entry, ":")
		if !ok || provider == "" || key == "" {
			return nil, fmt.Errorf("invalid principal entry '%s', expected provider:key", entry)
		}
		if key == wildcard {
			s.providers[provider] = true
			continue
		}
		s.principals[authn.LoginInfo{ProviderID: provider, ProviderKey: key}] = true
	}
	return s, nil
}

// Retrieve implements authn.IdentityService
func (s *Service) Retrieve(_ context.Context, info authn.LoginInfo) (Principal, bool, error) {
	if !s.allows(info) {
		return Principal{}, false, nil
	}
	return Principal{Info: info}, true, nil
}

func (s *Service) allows(info authn.LoginInfo) bool {
	if info.IsZero() {
		return false
	}
	if len(s.principals) == 0 && len(s.providers) == 0 {
		return true
	}
	return s.providers[info.ProviderID] || s.principals[info]
}
