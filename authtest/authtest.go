// Package authtest provides call-counting fakes of the authn collaborators
// for testing code built on the actions pipeline.
package authtest

import (
	"context"
	"net/http"
	"sync"

	"warden/authn"
)

// OpTouch names Touch in call counts
const OpTouch = "touch"

// Marker headers written by the fake AuthenticatorService
const (
	EmbedHeader   = "X-Test-Embed"
	UpdateHeader  = "X-Test-Update"
	RenewHeader   = "X-Test-Renew"
	DiscardHeader = "X-Test-Discard"
)

// Identity is a minimal identity
type Identity struct {
	Info authn.LoginInfo
	Name string
}

// LoginInfo implements authn.Identity
func (i Identity) LoginInfo() authn.LoginInfo {
	return i.Info
}

// Authenticator is a storable authenticator whose validity is set directly
type Authenticator struct {
	AuthID  string
	Info    authn.LoginInfo
	Valid   bool
	Touches int
}

// LoginInfo implements authn.Authenticator
func (a Authenticator) LoginInfo() authn.LoginInfo {
	return a.Info
}

// IsValid implements authn.Authenticator
func (a Authenticator) IsValid() bool {
	return a.Valid
}

// ID implements authn.StorableAuthenticator
func (a Authenticator) ID() string {
	return a.AuthID
}

type counter struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *counter) inc(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[op]++
}

// Calls returns how often op was invoked
func (c *counter) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// AuthenticatorService is a fake authn.AuthenticatorService that counts
// calls and leaves a marker header on every response it touches.
type AuthenticatorService struct {
	counter

	// Current is returned by Retrieve when Found is set
	Current Authenticator
	Found   bool

	// TouchMutates makes Touch report a mutation
	TouchMutates bool

	// Errors fails the named operation with an AuthenticatorError
	Errors map[string]error

	seenMu   sync.Mutex
	lastSeen Authenticator
}

var _ authn.AuthenticatorService[Authenticator] = (*AuthenticatorService)(nil)

// ID implements authn.AuthenticatorService
func (s *AuthenticatorService) ID() string {
	return "fake"
}

func (s *AuthenticatorService) fail(op string, a *Authenticator) error {
	s.inc(op)
	if a != nil {
		s.seenMu.Lock()
		s.lastSeen = *a
		s.seenMu.Unlock()
	}
	err, ok := s.Errors[op]
	if !ok {
		return nil
	}
	var info *authn.LoginInfo
	if a != nil {
		li := a.Info
		info = &li
	}
	return authn.NewAuthenticatorError(op, s.ID(), info, err)
}

// LastSeen returns the authenticator passed to the most recent call
func (s *AuthenticatorService) LastSeen() Authenticator {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	return s.lastSeen
}

// Create implements authn.AuthenticatorService
func (s *AuthenticatorService) Create(_ context.Context, info authn.LoginInfo, _ *http.Request) (Authenticator, error) {
	if err := s.fail(authn.OpCreate, nil); err != nil {
		return Authenticator{}, err
	}
	return Authenticator{AuthID: "new-" + info.ProviderKey, Info: info, Valid: true}, nil
}

// Retrieve implements authn.AuthenticatorService
func (s *AuthenticatorService) Retrieve(_ context.Context, _ *http.Request) (Authenticator, bool, error) {
	if err := s.fail(authn.OpRetrieve, nil); err != nil {
		return Authenticator{}, false, err
	}
	return s.Current, s.Found, nil
}

// Init implements authn.AuthenticatorService
func (s *AuthenticatorService) Init(_ context.Context, a Authenticator, _ *http.Request) (any, error) {
	if err := s.fail(authn.OpInit, &a); err != nil {
		return nil, err
	}
	return "token:" + a.AuthID, nil
}

// Embed implements authn.AuthenticatorService
func (s *AuthenticatorService) Embed(_ context.Context, value any, resp *authn.Response, _ *http.Request) (*authn.Response, error) {
	if err := s.fail(authn.OpEmbed, nil); err != nil {
		return nil, err
	}
	v, _ := value.(string)
	resp.Header().Set(EmbedHeader, v)
	return resp, nil
}

// Touch implements authn.AuthenticatorService
func (s *AuthenticatorService) Touch(a Authenticator) (Authenticator, bool) {
	s.inc(OpTouch)
	if !s.TouchMutates {
		return a, false
	}
	a.Touches++
	return a, true
}

// Update implements authn.AuthenticatorService
func (s *AuthenticatorService) Update(_ context.Context, a Authenticator, resp *authn.Response, _ *http.Request) (*authn.Response, error) {
	if err := s.fail(authn.OpUpdate, &a); err != nil {
		return nil, err
	}
	resp.Header().Set(UpdateHeader, a.AuthID)
	return resp, nil
}

// Renew implements authn.AuthenticatorService
func (s *AuthenticatorService) Renew(_ context.Context, a Authenticator, resp *authn.Response, _ *http.Request) (*authn.Response, error) {
	if err := s.fail(authn.OpRenew, &a); err != nil {
		return nil, err
	}
	resp.Header().Set(RenewHeader, "renewed-"+a.AuthID)
	return resp, nil
}

// Discard implements authn.AuthenticatorService
func (s *AuthenticatorService) Discard(_ context.Context, a Authenticator, resp *authn.Response, _ *http.Request) (*authn.Response, error) {
	if err := s.fail(authn.OpDiscard, &a); err != nil {
		return nil, err
	}
	resp.Header().Set(DiscardHeader, a.AuthID)
	return resp, nil
}

// IdentityService is a fake authn.IdentityService backed by a map
type IdentityService struct {
	counter

	Identities map[authn.LoginInfo]Identity
	Err        error
}

var _ authn.IdentityService[Identity] = (*IdentityService)(nil)

// NewIdentityService returns a service knowing the given identities
func NewIdentityService(identities ...Identity) *IdentityService {
	s := &IdentityService{Identities: make(map[authn.LoginInfo]Identity)}
	for _, id := range identities {
		s.Identities[id.Info] = id
	}
	return s
}

// Retrieve implements authn.IdentityService
func (s *IdentityService) Retrieve(_ context.Context, info authn.LoginInfo) (Identity, bool, error) {
	s.inc("retrieve")
	if s.Err != nil {
		return Identity{}, false, s.Err
	}
	id, ok := s.Identities[info]
	return id, ok, nil
}

// RequestProvider is a fake authn.RequestProvider
type RequestProvider struct {
	counter

	Name  string
	Info  authn.LoginInfo
	Found bool
	Err   error
}

var _ authn.RequestProvider = (*RequestProvider)(nil)

// ID implements authn.RequestProvider
func (p *RequestProvider) ID() string {
	return p.Name
}

// Authenticate implements authn.RequestProvider
func (p *RequestProvider) Authenticate(_ context.Context, _ *http.Request) (authn.LoginInfo, bool, error) {
	p.inc("authenticate")
	if p.Err != nil {
		return authn.LoginInfo{}, false, p.Err
	}
	return p.Info, p.Found, nil
}
