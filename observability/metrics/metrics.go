package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"warden/events"
)

// Common label names for consistent metrics
const (
	LabelRule     = "rule"
	LabelAction   = "action"
	LabelStatus   = "status"
	LabelMethod   = "method"
	LabelPath     = "path"
	LabelProvider = "provider"
	LabelService  = "service"
	LabelOp       = "op"
	LabelKind     = "kind"
	LabelOutcome  = "outcome"
	LabelSuccess  = "success"
)

// Provider outcomes
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

var (
	// RequestsTotal counts all HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	// RequestDuration tracks the duration of HTTP requests
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warden_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	// EventsTotal counts published authentication events by kind
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_events_total",
			Help: "Total number of published authentication events",
		},
		[]string{LabelKind},
	)

	// AuthenticatorOperationsTotal counts authenticator service calls
	AuthenticatorOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_authenticator_operations_total",
			Help: "Total number of authenticator service operations",
		},
		[]string{LabelService, LabelOp, LabelSuccess},
	)

	// RequestProviderTotal counts request provider attempts by outcome
	RequestProviderTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_request_provider_total",
			Help: "Total number of request provider authentication attempts",
		},
		[]string{LabelProvider, LabelOutcome},
	)

	// AuthorizationTotal counts authorization checks by outcome
	AuthorizationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_authorization_total",
			Help: "Total number of authorization checks",
		},
		[]string{LabelSuccess},
	)

	// RuleMatchTotal counts proxy rule matches by rule name and action
	RuleMatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_rule_match_total",
			Help: "Total number of rule matches",
		},
		[]string{LabelRule, LabelAction},
	)

	// UpstreamRequestsTotal counts proxied requests by upstream status
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_upstream_requests_total",
			Help: "Total number of requests forwarded upstream",
		},
		[]string{LabelMethod, LabelStatus},
	)

	// UpstreamDuration tracks the duration of upstream requests
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warden_upstream_request_duration_seconds",
			Help:    "Duration of upstream requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{LabelMethod},
	)
)

// Collector provides methods for recording metrics. A nil *Collector is
// valid and records nothing.
type Collector struct{}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{}
}

// RecordRequest records metrics for an HTTP request
func (c *Collector) RecordRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordEvent records a published event
func (c *Collector) RecordEvent(kind events.Kind) {
	if c == nil {
		return
	}
	EventsTotal.WithLabelValues(kind.String()).Inc()
}

// RecordAuthenticatorOperation records an authenticator service call
func (c *Collector) RecordAuthenticatorOperation(service, op string, success bool) {
	if c == nil {
		return
	}
	AuthenticatorOperationsTotal.WithLabelValues(service, op, boolToString(success)).Inc()
}

// RecordRequestProvider records a request provider attempt
func (c *Collector) RecordRequestProvider(provider, outcome string) {
	if c == nil {
		return
	}
	RequestProviderTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordAuthorization records an authorization check
func (c *Collector) RecordAuthorization(success bool) {
	if c == nil {
		return
	}
	AuthorizationTotal.WithLabelValues(boolToString(success)).Inc()
}

// RecordRuleMatch records a rule match
func (c *Collector) RecordRuleMatch(ruleName, action string) {
	if c == nil {
		return
	}
	RuleMatchTotal.WithLabelValues(ruleName, action).Inc()
}

// RecordUpstreamRequest records a request forwarded upstream
func (c *Collector) RecordUpstreamRequest(method string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	UpstreamRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	UpstreamDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// Subscribe counts every event published on bus. The returned function
// removes the subscription.
func (c *Collector) Subscribe(bus *events.Bus) func() {
	return bus.Subscribe(events.Any, func(_ context.Context, e events.Event) {
		c.RecordEvent(e.Kind)
	})
}

// Handler returns an HTTP handler for exposing metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// boolToString converts a boolean to a string representation
func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
