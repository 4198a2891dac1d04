package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"warden/events"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("failed to read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestCollector_Subscribe(t *testing.T) {
	c := NewCollector()
	bus := events.NewBus(nil)
	unsubscribe := c.Subscribe(bus)

	denied := EventsTotal.WithLabelValues(events.NotAuthorized.String())
	logout := EventsTotal.WithLabelValues(events.Logout.String())
	deniedBefore := counterValue(t, denied)
	logoutBefore := counterValue(t, logout)

	bus.Publish(context.Background(), events.NewNotAuthorized(nil, nil))
	bus.Publish(context.Background(), events.NewNotAuthorized(nil, nil))
	bus.Publish(context.Background(), events.NewLogout(nil, nil))
	bus.Wait()

	if got := counterValue(t, denied) - deniedBefore; got != 2 {
		t.Errorf("not_authorized delta = %v, want 2", got)
	}
	if got := counterValue(t, logout) - logoutBefore; got != 1 {
		t.Errorf("logout delta = %v, want 1", got)
	}

	unsubscribe()
	bus.Publish(context.Background(), events.NewLogout(nil, nil))
	bus.Wait()
	if got := counterValue(t, logout) - logoutBefore; got != 1 {
		t.Errorf("logout delta after unsubscribe = %v, want 1", got)
	}
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	c.RecordRequest("GET", "/", 200, time.Millisecond)
	c.RecordEvent(events.Login)
	c.RecordAuthenticatorOperation("session", "update", true)
	c.RecordRequestProvider("basic", OutcomeFound)
	c.RecordAuthorization(false)
	c.RecordRuleMatch("api", "secured")
}

func TestHandler_ExposesWardenMetrics(t *testing.T) {
	NewCollector().RecordRequestProvider("basic", OutcomeNotFound)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "warden_request_provider_total") {
		t.Error("metrics output is missing warden_request_provider_total")
	}
}
