// Package session implements the cookie session authenticator of wardend.
// Sessions live in a repository; the cookie only carries the session ID.
package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"warden/authn"
	"warden/observability/logging"
	"warden/repository"
)

// ServiceID names the session service in errors and logs
const ServiceID = "session"

// Session is a server side session
type Session struct {
	authn.Expiration
	Key  string          `json:"id"`
	Info authn.LoginInfo `json:"loginInfo"`
}

// ID implements authn.StorableAuthenticator
func (s Session) ID() string {
	return s.Key
}

// LoginInfo implements authn.Authenticator
func (s Session) LoginInfo() authn.LoginInfo {
	return s.Info
}

// IsValid implements authn.Authenticator
func (s Session) IsValid() bool {
	return s.ValidAt(time.Now())
}

// Config holds the cookie and lifetime settings
type Config struct {
	CookieName   string
	CookiePath   string
	CookieSecure bool
	MaxAge       time.Duration
	IdleTimeout  time.Duration
	Sliding      bool
}

// Service implements authn.AuthenticatorService for sessions
type Service struct {
	config Config
	repo   repository.Repository[Session]
	logger *logging.Logger
	now    func() time.Time
}

var _ authn.AuthenticatorService[Session] = (*Service)(nil)

// New creates a session service storing sessions in repo
func New(config Config, repo repository.Repository[Session], logger *logging.Logger) *Service {
	if config.CookiePath == "" {
		config.CookiePath = "/"
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		config: config,
		repo:   repo,
		logger: logger.WithModule("session"),
		now:    time.Now,
	}
}

// ID implements authn.AuthenticatorService
func (s *Service) ID() string {
	return ServiceID
}

// Create implements authn.AuthenticatorService
func (s *Service) Create(_ context.Context, info authn.LoginInfo, _ *http.Request) (Session, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return Session{}, authn.NewAuthenticatorError(authn.OpCreate, ServiceID, &info, err)
	}
	now := s.now()
	return Session{
		Expiration: authn.Expiration{
			LastUsed:    now,
			ExpiresAt:   now.Add(s.config.MaxAge),
			IdleTimeout: s.config.IdleTimeout,
		},
		Key:  id.String(),
		Info: info,
	}, nil
}

// Retrieve implements authn.AuthenticatorService
func (s *Service) Retrieve(ctx context.Context, r *http.Request) (Session, bool, error) {
	cookie, err := r.Cookie(s.config.CookieName)
	if err != nil || cookie.Value == "" {
		return Session{}, false, nil
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		s.logger.WithContext(ctx).Debug("Ignoring malformed session cookie")
		return Session{}, false, nil
	}

	session, ok, err := s.repo.Find(ctx, cookie.Value)
	if err != nil {
		return Session{}, false, authn.NewAuthenticatorError(authn.OpRetrieve, ServiceID, nil, err)
	}
	return session, ok, nil
}

// Init implements authn.AuthenticatorService; the embeddable value is the
// session cookie
func (s *Service) Init(ctx context.Context, session Session, _ *http.Request) (any, error) {
	if _, err := s.repo.Add(ctx, session); err != nil {
		return nil, authn.NewAuthenticatorError(authn.OpInit, ServiceID, &session.Info, err)
	}
	s.logger.WithContext(ctx).Debug("Session created",
		"session", logging.MaskID(session.Key),
		"login_info", session.Info.String(),
	)
	return s.cookie(session.Key, session.ExpiresAt), nil
}

// Embed implements authn.AuthenticatorService
func (s *Service) Embed(_ context.Context, value any, resp *authn.Response, _ *http.Request) (*authn.Response, error) {
	cookie, ok := value.(*http.Cookie)
	if !ok {
		return resp, authn.NewAuthenticatorError(authn.OpEmbed, ServiceID, nil, fmt.Errorf("unexpected value of type %T", value))
	}
	http.SetCookie(resp, cookie)
	return resp, nil
}

// Touch implements authn.AuthenticatorService
func (s *Service) Touch(session Session) (Session, bool) {
	if !s.config.Sliding {
		return session, false
	}
	session.Expiration = session.Touched(s.now())
	return session, true
}

// Update implements authn.AuthenticatorService
func (s *Service) Update(ctx context.Context, session Session, resp *authn.Response, _ *http.Request) (*authn.Response, error) {
	if _, err := s.repo.Update(ctx, session); err != nil {
		return resp, authn.NewAuthenticatorError(authn.OpUpdate, ServiceID, &session.Info, err)
	}
	return resp, nil
}

// Renew implements authn.AuthenticatorService
func (s *Service) Renew(ctx context.Context, session Session, resp *authn.Response, r *http.Request) (*authn.Response, error) {
	if err := s.repo.Remove(ctx, session.Key); err != nil {
		return resp, authn.NewAuthenticatorError(authn.OpRenew, ServiceID, &session.Info, err)
	}

	renewed, err := s.Create(ctx, session.Info, r)
	if err != nil {
		return resp, err
	}
	value, err := s.Init(ctx, renewed, r)
	if err != nil {
		return resp, err
	}
	return s.Embed(ctx, value, resp, r)
}

// Discard implements authn.AuthenticatorService
func (s *Service) Discard(ctx context.Context, session Session, resp *authn.Response, _ *http.Request) (*authn.Response, error) {
	if err := s.repo.Remove(ctx, session.Key); err != nil {
		return resp, authn.NewAuthenticatorError(authn.OpDiscard, ServiceID, &session.Info, err)
	}
	expired := s.cookie("", time.Unix(0, 0))
	expired.MaxAge = -1
	http.SetCookie(resp, expired)
	return resp, nil
}

func (s *Service) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     s.config.CookieName,
		Value:    value,
		Path:     s.config.CookiePath,
		Expires:  expires,
		Secure:   s.config.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
