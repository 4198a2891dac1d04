package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"warden/authn"
	"warden/repository"
)

type session struct {
	authn.Expiration
	SessionID string
	Info      authn.LoginInfo
}

func (s session) ID() string { return s.SessionID }
func (s session) LoginInfo() authn.LoginInfo { return s.Info }
func (s session) IsValid() bool { return s.ValidAt(time.Now()) }

func TestRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := New[session]()
	repo.now = func() time.Time { return now }

	s := session{
		SessionID:  "s1",
		Info:       authn.LoginInfo{ProviderID: "basic", ProviderKey: "alice"},
		Expiration: authn.Expiration{LastUsed: now, ExpiresAt: now.Add(time.Hour), IdleTimeout: 10 * time.Minute},
	}

	if _, err := repo.Update(ctx, s); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Update of unknown session err = %v, want ErrNotFound", err)
	}

	if _, err := repo.Add(ctx, s); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	got, ok, err := repo.Find(ctx, "s1")
	if err != nil || !ok || got.Info != s.Info {
		t.Fatalf("Find = %+v, %v, %v", got, ok, err)
	}

	// idle timeout elapses without an update
	now = now.Add(11 * time.Minute)
	if _, ok, _ := repo.Find(ctx, "s1"); ok {
		t.Error("session found after idle timeout")
	}
	if repo.Len() != 0 {
		t.Errorf("expired entry not dropped, Len = %d", repo.Len())
	}

	s.LastUsed = now
	repo.Add(ctx, s)
	now = now.Add(5 * time.Minute)
	s.LastUsed = now
	if _, err := repo.Update(ctx, s); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	now = now.Add(9 * time.Minute)
	if _, ok, _ := repo.Find(ctx, "s1"); !ok {
		t.Error("touched session expired early")
	}

	if err := repo.Remove(ctx, "s1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok, _ := repo.Find(ctx, "s1"); ok {
		t.Error("session found after Remove")
	}
	if err := repo.Remove(ctx, "s1"); err != nil {
		t.Errorf("second Remove failed: %v", err)
	}
}

func TestRepository_Sweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := New[session]()
	repo.now = func() time.Time { return now }

	for id, ttl := range map[string]time.Duration{"short": time.Minute, "long": time.Hour} {
		repo.Add(ctx, session{
			SessionID:  id,
			Expiration: authn.Expiration{LastUsed: now, ExpiresAt: now.Add(ttl)},
		})
	}

	if removed := repo.Sweep(); removed != 0 {
		t.Errorf("Sweep removed %d live entries", removed)
	}

	now = now.Add(2 * time.Minute)
	if removed := repo.Sweep(); removed != 1 {
		t.Errorf("Sweep removed %d entries, want 1", removed)
	}
	if repo.Len() != 1 {
		t.Errorf("Len = %d, want 1", repo.Len())
	}
	if _, ok, _ := repo.Find(ctx, "long"); !ok {
		t.Error("live entry swept")
	}
}

func TestRepository_StartCleanup(t *testing.T) {
	ctx := context.Background()
	repo := New[session]()

	for i := 0; i < 100; i++ {
		now := time.Now()
		repo.Add(ctx, session{
			SessionID:  fmt.Sprintf("s%d", i),
			Expiration: authn.Expiration{LastUsed: now, ExpiresAt: now.Add(time.Millisecond)},
		})
	}

	repo.StartCleanup(5 * time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for repo.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if repo.Len() != 0 {
		t.Errorf("expired entries left after cleanup: %d", repo.Len())
	}

	if err := repo.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if err := New[session]().Close(); err != nil {
		t.Errorf("Close without cleanup failed: %v", err)
	}
}

func TestRepository_FindKeepsReplacedEntry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := New[session]()
	repo.now = func() time.Time { return now }

	repo.Add(ctx, session{
		SessionID:  "s1",
		Expiration: authn.Expiration{LastUsed: now, ExpiresAt: now.Add(time.Minute)},
	})
	now = now.Add(2 * time.Minute)

	// the entry is replaced between the read and the write lock in Find
	replaced := false
	repo.now = func() time.Time {
		if !replaced {
			replaced = true
			repo.Add(ctx, session{
				SessionID:  "s1",
				Expiration: authn.Expiration{LastUsed: now, ExpiresAt: now.Add(time.Hour)},
			})
		}
		return now
	}

	if _, ok, _ := repo.Find(ctx, "s1"); ok {
		t.Error("expired entry returned")
	}
	if !replaced {
		t.Fatal("clock not consulted")
	}
	if _, ok, _ := repo.Find(ctx, "s1"); !ok {
		t.Error("replacement deleted together with the expired entry")
	}
}
