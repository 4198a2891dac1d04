package observability

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"warden/observability/logging"
	"warden/observability/metrics"
)

func TestMiddleware_PropagatesTraceID(t *testing.T) {
	var buf bytes.Buffer
	p := &Provider{
		Logger:  logging.New(slog.NewJSONHandler(&buf, nil)),
		Metrics: metrics.NewCollector(),
	}

	var seen string
	h := p.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.TraceIDFromContext(r.Context())
		if logging.LoggerFromContext(r.Context()) == nil {
			t.Error("request logger missing from context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	r := httptest.NewRequest("GET", "/things", nil)
	r.Header.Set(TraceHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if seen != "abc-123" {
		t.Errorf("trace id in context = %q, want abc-123", seen)
	}
	if got := rec.Header().Get(TraceHeader); got != "abc-123" {
		t.Errorf("trace header = %q, want abc-123", got)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
	if !strings.Contains(buf.String(), `"status":418`) {
		t.Errorf("completion log missing status: %s", buf.String())
	}
}

func TestMiddleware_GeneratesTraceID(t *testing.T) {
	p := &Provider{Logger: logging.Discard()}

	h := p.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Header().Get(TraceHeader) == "" {
		t.Error("trace header not generated")
	}
}
