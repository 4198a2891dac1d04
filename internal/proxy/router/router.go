// Package router maps the configured rules to actions and forwards the
// requests they let through to the upstream service.
package router

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"warden/actions"
	"warden/authn"
	"warden/authz/spicedb"
	"warden/events"
	"warden/internal/config"
	"warden/internal/httputils"
	"warden/internal/identity"
	"warden/internal/session"
	"warden/observability/logging"
	"warden/observability/metrics"
)

// Headers describing the authenticated principal to the upstream service.
// Incoming values are always stripped.
const (
	HeaderProvider = "X-Warden-Provider"
	HeaderSubject  = "X-Warden-Subject"
)

// Environment is the pipeline environment the router runs its actions in
type Environment = actions.Environment[identity.Principal, session.Session]

// Rule defines a routing rule
type Rule struct {
	Name        string
	Action      string
	Paths       []string
	MatchPrefix bool
	Methods     []string
	Permission  string
	Resource    string
	Redirect    string
}

// Router is a proxy router that implements routing rules and authentication/authorization
type Router struct {
	*mux.Router
	target        *httputil.ReverseProxy
	env           *Environment
	authorizer    *spicedb.Authorizer
	sessionCookie string
	rules         []Rule
	logger        *logging.Logger
	metrics       *metrics.Collector
}

// Config holds router configuration
type Config struct {
	// UpstreamURL is the URL of the upstream service
	UpstreamURL *url.URL

	// UpstreamTimeout bounds the wait for upstream response headers
	UpstreamTimeout time.Duration

	// SessionCookie is removed from requests before they are forwarded
	SessionCookie string

	// Rules is the list of routing rules
	Rules []Rule
}

// New creates a new router. authorizer may be nil when no rule requires a
// permission; logger and collector may be nil.
func New(config Config, env *Environment, authorizer *spicedb.Authorizer, logger *logging.Logger, collector *metrics.Collector) (*Router, error) {
	if config.UpstreamURL == nil {
		return nil, errors.New("upstream URL is required")
	}
	for _, rule := range config.Rules {
		if rule.Permission != "" && authorizer == nil {
			return nil, fmt.Errorf("rule '%s' requires permission '%s' but no authorizer is configured", rule.Name, rule.Permission)
		}
	}

	if logger == nil {
		logger = logging.Discard()
	}

	r := &Router{
		Router:        mux.NewRouter(),
		target:        httputil.NewSingleHostReverseProxy(config.UpstreamURL),
		env:           env,
		authorizer:    authorizer,
		sessionCookie: config.SessionCookie,
		rules:         config.Rules,
		logger:        logger.WithModule("proxy.router"),
		metrics:       collector,
	}

	r.target.Transport = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ResponseHeaderTimeout: config.UpstreamTimeout,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	r.target.ErrorHandler = r.upstreamError

	if err := r.setupRoutes(); err != nil {
		return nil, err
	}
	return r, nil
}

// setupRoutes configures routes based on rules
func (r *Router) setupRoutes() error {
	for _, rule := range r.rules {
		r.logger.Debug("Setting up route",
			"name", rule.Name,
			"action", rule.Action,
			"paths", rule.Paths,
			"methods", rule.Methods,
		)

		handler, err := r.handlerFor(rule)
		if err != nil {
			return err
		}
		handler = r.recordMatch(rule, handler)

		for _, path := range rule.Paths {
			var route *mux.Route
			if rule.MatchPrefix {
				route = r.PathPrefix(path)
			} else {
				route = r.Path(path)
			}
			if len(rule.Methods) > 0 {
				route = route.Methods(rule.Methods...)
			}
			route.Name(rule.Name).Handler(handler)
		}
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.logger.WithContext(req.Context()).Warn("Request received for undefined route", "path", req.URL.Path)
		http.Error(w, "404 page not found", http.StatusNotFound)
	})
	return nil
}

func (r *Router) handlerFor(rule Rule) (http.Handler, error) {
	switch rule.Action {
	case config.ActionAllow:
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.forward(w, req, nil)
		}), nil

	case config.ActionDeny:
		return http.HandlerFunc(r.deny), nil

	case config.ActionSecured:
		secured := r.env.Secured()
		if rule.Permission != "" {
			secured = secured.WithAuthorization(
				spicedb.Permission[identity.Principal, session.Session](r.authorizer, rule.Permission, rule.Resource),
			)
		}
		return secured.Handler(func(resp *authn.Response, req *actions.SecuredRequest[identity.Principal, session.Session]) (*authn.Response, error) {
			r.forward(resp, req.Request, &req.Identity)
			return resp, nil
		}), nil

	case config.ActionUnsecured:
		return r.env.Unsecured().Handler(func(resp *authn.Response, req *http.Request) (*authn.Response, error) {
			r.forward(resp, req, nil)
			return resp, nil
		}), nil

	case config.ActionUserAware:
		return r.env.UserAware().Handler(func(resp *authn.Response, req *actions.UserAwareRequest[identity.Principal, session.Session]) (*authn.Response, error) {
			var principal *identity.Principal
			if p, ok := req.Identity(); ok {
				principal = &p
			}
			r.forward(resp, req.Request, principal)
			return resp, nil
		}), nil

	case config.ActionLogout:
		return r.env.UserAware().Handler(func(resp *authn.Response, req *actions.UserAwareRequest[identity.Principal, session.Session]) (*authn.Response, error) {
			return r.logout(resp, req, rule.Redirect)
		}), nil

	default:
		return nil, fmt.Errorf("rule '%s': unknown action '%s'", rule.Name, rule.Action)
	}
}

func (r *Router) recordMatch(rule Rule, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.logger.WithContext(req.Context()).Debug("Rule matched",
			"rule", rule.Name,
			"action", rule.Action,
			"path", req.URL.Path,
			"method", req.Method,
		)
		r.metrics.RecordRuleMatch(rule.Name, rule.Action)
		next.ServeHTTP(w, req)
	})
}

func (r *Router) deny(w http.ResponseWriter, req *http.Request) {
	resp, err := actions.DefaultErrorHandler{}.OnNotAuthorized(req.Context(), req)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	if err := resp.Send(w); err != nil {
		r.logger.WithContext(req.Context()).Debug("Failed to write response", logging.Err(err))
	}
}

func (r *Router) logout(resp *authn.Response, req *actions.UserAwareRequest[identity.Principal, session.Session], redirect string) (*authn.Response, error) {
	ctx := req.Context()
	if p, ok := req.Identity(); ok && r.env.Events != nil {
		r.env.Events.Publish(ctx, events.NewLogout(p, req.Request))
	}

	resp, err := req.Discard(resp)
	if err != nil {
		return nil, err
	}

	if redirect != "" {
		http.Redirect(resp, req.Request, redirect, http.StatusSeeOther)
	} else {
		resp.WriteHeader(http.StatusNoContent)
	}
	return resp, nil
}

// forward proxies req upstream, describing principal in the identity headers
func (r *Router) forward(w http.ResponseWriter, req *http.Request, principal *identity.Principal) {
	ctx := req.Context()
	if principal != nil {
		ctx = authn.ContextWithIdentity(ctx, *principal)
	}

	out := req.Clone(ctx)
	out.Header.Del(HeaderProvider)
	out.Header.Del(HeaderSubject)
	r.stripSessionCookie(out)
	if principal != nil {
		out.Header.Set(HeaderProvider, principal.Info.ProviderID)
		out.Header.Set(HeaderSubject, principal.Subject())
	}

	start := time.Now()
	wrapper := httputils.NewResponseWriter(w)
	r.target.ServeHTTP(wrapper, out)
	r.metrics.RecordUpstreamRequest(req.Method, wrapper.StatusCode, time.Since(start))
}

func (r *Router) stripSessionCookie(req *http.Request) {
	if r.sessionCookie == "" {
		return
	}
	cookies := req.Cookies()
	req.Header.Del("Cookie")
	for _, c := range cookies {
		if c.Name != r.sessionCookie {
			req.AddCookie(c)
		}
	}
}

func (r *Router) upstreamError(w http.ResponseWriter, req *http.Request, err error) {
	attrs := []any{logging.Err(err), "path", req.URL.Path}
	if info, ok := authn.LoginInfoFromContext(req.Context()); ok {
		attrs = append(attrs, "login_info", info.String())
	}
	r.logger.WithContext(req.Context()).Error("Upstream request failed", attrs...)
	http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
}

// FromConfig converts configuration rules
func FromConfig(rules []config.Rule) []Rule {
	out := make([]Rule, len(rules))
	for i, rule := range rules {
		out[i] = Rule{
			Name:        rule.Name,
			Action:      strings.ToLower(rule.Action),
			Paths:       rule.Paths,
			MatchPrefix: rule.MatchPrefix,
			Methods:     rule.Methods,
			Permission:  rule.Permission,
			Resource:    rule.Resource,
			Redirect:    rule.Redirect,
		}
	}
	return out
}
