// Package observability bundles the logger and metrics collector and
// provides the request observation middleware.
package observability

import (
	"context"
	"net/http"
	"time"

	"warden/events"
	"warden/internal/httputils"
	"warden/observability/logging"
	"warden/observability/metrics"
)

// TraceHeader carries the trace ID of a request
const TraceHeader = "X-Trace-ID"

// Provider provides observability capabilities
type Provider struct {
	Logger  *logging.Logger
	Metrics *metrics.Collector
}

// NewProvider creates a new observability provider
func NewProvider(level, format string) (*Provider, error) {
	logger, err := logging.NewLogger(level, format)
	if err != nil {
		return nil, err
	}

	return &Provider{
		Logger:  logger,
		Metrics: metrics.NewCollector(),
	}, nil
}

// Observe records every event published on bus and logs denials at debug
// level. The returned function removes both subscriptions.
func (p *Provider) Observe(bus *events.Bus) func() {
	logger := p.Logger.WithModule("events")
	stopMetrics := p.Metrics.Subscribe(bus)
	stopLog := bus.Subscribe(events.Access, func(_ context.Context, e events.Event) {
		if e.Kind == events.Authenticated {
			return
		}
		attrs := []any{"kind", e.Kind.String()}
		if e.Request != nil {
			attrs = append(attrs, "method", e.Request.Method, "path", e.Request.URL.Path)
		}
		if e.Identity != nil {
			attrs = append(attrs, "login_info", e.Identity.LoginInfo().String())
		}
		logger.Debug("Access denied", attrs...)
	})

	return func() {
		stopMetrics()
		stopLog()
	}
}

// Middleware creates an HTTP middleware for request observation
func (p *Provider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ctx := r.Context()
		traceID := r.Header.Get(TraceHeader)
		if traceID == "" {
			traceID = logging.TraceIDFromContext(ctx)
		}
		if traceID == "" {
			traceID = logging.NewTraceID()
		}
		spanID := logging.NewSpanID()
		ctx = logging.ContextWithTraceID(ctx, traceID)
		ctx = logging.ContextWithSpanID(ctx, spanID)

		logger := p.Logger.With(logging.TraceIDKey, traceID, logging.SpanIDKey, spanID)
		ctx = logging.ContextWithLogger(ctx, logger)

		wrapper := httputils.NewResponseWriter(w)
		wrapper.Header().Set(TraceHeader, traceID)

		logger.Debug("Request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		r = r.WithContext(ctx)
		next.ServeHTTP(wrapper, r)

		duration := time.Since(startTime)
		p.Metrics.RecordRequest(r.Method, r.URL.Path, wrapper.StatusCode, duration)

		logger.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.StatusCode,
			"duration_ms", duration.Milliseconds(),
			"bytes_written", wrapper.BytesWritten,
		)
	})
}

// MetricsHandler returns an HTTP handler for exposing metrics
func (p *Provider) MetricsHandler() http.Handler {
	return metrics.Handler()
}
