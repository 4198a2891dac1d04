package events

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"golang.org/x/text/language"

	"warden/authn"
)

type user struct{ info authn.LoginInfo }

func (u user) LoginInfo() authn.LoginInfo { return u.info }

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]Kind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func TestKind_Lineage(t *testing.T) {
	tests := []struct {
		kind Kind
		want []Kind
	}{
		{Any, []Kind{Any}},
		{Access, []Kind{Access, Any}},
		{NotAuthorized, []Kind{NotAuthorized, Access, Any}},
		{Login, []Kind{Login, Lifecycle, Any}},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			got := tt.kind.Lineage()
			if len(got) != len(tt.want) {
				t.Fatalf("Lineage() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Lineage() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestBus_DeliversToAncestorSubscribers(t *testing.T) {
	bus := NewBus(nil)

	var exact, access, lifecycle, all recorder
	bus.Subscribe(NotAuthorized, exact.handle)
	bus.Subscribe(Access, access.handle)
	bus.Subscribe(Lifecycle, lifecycle.handle)
	bus.Subscribe(Any, all.handle)

	r := httptest.NewRequest("GET", "/", nil)
	id := user{authn.LoginInfo{ProviderID: "test", ProviderKey: "1"}}
	bus.Publish(context.Background(), NewNotAuthorized(id, r))
	bus.Publish(context.Background(), NewLogin(id, r))
	bus.Wait()

	if got := exact.kinds(); len(got) != 1 || got[0] != NotAuthorized {
		t.Errorf("exact subscriber got %v", got)
	}
	if got := access.kinds(); len(got) != 1 || got[0] != NotAuthorized {
		t.Errorf("access subscriber got %v", got)
	}
	if got := lifecycle.kinds(); len(got) != 1 || got[0] != Login {
		t.Errorf("lifecycle subscriber got %v", got)
	}
	if got := all.kinds(); len(got) != 2 {
		t.Errorf("root subscriber got %v, want 2 events", got)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)

	var rec recorder
	unsubscribe := bus.Subscribe(Logout, rec.handle)
	unsubscribe()
	unsubscribe()

	bus.Publish(context.Background(), NewLogout(nil, nil))
	bus.Wait()

	if got := rec.kinds(); len(got) != 0 {
		t.Errorf("unsubscribed handler got %v", got)
	}
}

func TestBus_SubscriberPanicIsIsolated(t *testing.T) {
	bus := NewBus(nil)

	var rec recorder
	bus.Subscribe(Any, func(context.Context, Event) { panic("boom") })
	bus.Subscribe(Any, rec.handle)

	bus.Publish(context.Background(), NewNotAuthenticated(nil))
	bus.Wait()

	if got := rec.kinds(); len(got) != 1 {
		t.Errorf("healthy subscriber got %v, want one event", got)
	}
}

func TestBus_DeliveryIgnoresRequestCancellation(t *testing.T) {
	bus := NewBus(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var errs []error
	var mu sync.Mutex
	bus.Subscribe(Any, func(ctx context.Context, _ Event) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, ctx.Err())
	})

	bus.Publish(ctx, NewSignUp(nil, nil))
	bus.Wait()

	if len(errs) != 1 || errs[0] != nil {
		t.Errorf("subscriber context errors = %v, want [nil]", errs)
	}
}

func TestBus_ConcurrentPublishAndSubscribe(t *testing.T) {
	bus := NewBus(nil)

	var rec recorder
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			bus.Subscribe(Authenticated, func(context.Context, Event) {})
		}()
		go func() {
			defer wg.Done()
			bus.Publish(context.Background(), NewAuthenticated(nil, nil))
		}()
	}
	bus.Subscribe(Authenticated, rec.handle)
	wg.Wait()

	bus.Publish(context.Background(), NewAuthenticated(nil, nil))
	bus.Wait()

	if got := rec.kinds(); len(got) != 1 {
		t.Errorf("late subscriber got %d events, want 1", len(got))
	}
}

func TestBus_Close(t *testing.T) {
	bus := NewBus(nil)

	var rec recorder
	bus.Subscribe(Any, rec.handle)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(context.Background(), NewAuthenticated(nil, nil))
		}()
	}
	bus.Close()
	wg.Wait()

	delivered := len(rec.kinds())
	bus.Publish(context.Background(), NewLogout(nil, nil))
	bus.Wait()

	if got := len(rec.kinds()); got != delivered {
		t.Errorf("event delivered after Close: %d events, had %d", got, delivered)
	}
}

func TestRequestLang(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if got := RequestLang(r); got != language.Und {
		t.Errorf("RequestLang() without header = %v, want und", got)
	}

	r.Header.Set("Accept-Language", "de-CH, fr;q=0.9, en;q=0.8")
	if got := RequestLang(r); got != language.MustParse("de-CH") {
		t.Errorf("RequestLang() = %v, want de-CH", got)
	}
	if got := RequestLang(nil); got != language.Und {
		t.Errorf("RequestLang(nil) = %v, want und", got)
	}
}
