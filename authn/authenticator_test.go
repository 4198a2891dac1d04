package authn

import (
	"testing"
	"time"
)

func TestExpiration_ExpiredIsNeverValid(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		expiresAt   time.Time
		lastUsed    time.Time
		idleTimeout time.Duration
	}{
		{"exactly at expiry", now, now, 0},
		{"past expiry", now.Add(-time.Minute), now, 0},
		{"past expiry with idle timeout not elapsed", now.Add(-time.Second), now, time.Hour},
		{"past expiry with idle timeout elapsed", now.Add(-time.Second), now.Add(-2 * time.Hour), time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Expiration{LastUsed: tt.lastUsed, ExpiresAt: tt.expiresAt, IdleTimeout: tt.idleTimeout}
			if !e.IsExpired(now) {
				t.Errorf("IsExpired() = false, want true")
			}
			if e.ValidAt(now) {
				t.Errorf("ValidAt() = true, want false")
			}
		})
	}
}

func TestExpiration_IdleTimeout(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	expiresAt := now.Add(24 * time.Hour)

	tests := []struct {
		name     string
		lastUsed time.Time
		idle     time.Duration
		want     bool
	}{
		{"no idle timeout configured", now.Add(-100 * time.Hour), 0, true},
		{"inside idle window", now.Add(-10 * time.Minute), 30 * time.Minute, true},
		{"exactly at idle boundary", now.Add(-30 * time.Minute), 30 * time.Minute, false},
		{"idle window elapsed", now.Add(-time.Hour), 30 * time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Expiration{LastUsed: tt.lastUsed, ExpiresAt: expiresAt, IdleTimeout: tt.idle}
			if got := e.ValidAt(now); got != tt.want {
				t.Errorf("ValidAt() = %v, want %v", got, tt.want)
			}
			if e.IsExpired(now) {
				t.Errorf("IsExpired() = true, want false")
			}
		})
	}
}

func TestExpiration_TouchedAndTTL(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e := Expiration{
		LastUsed:    now.Add(-20 * time.Minute),
		ExpiresAt:   now.Add(time.Hour),
		IdleTimeout: 30 * time.Minute,
	}

	if got := e.TTL(now); got != 10*time.Minute {
		t.Errorf("TTL() = %v, want %v", got, 10*time.Minute)
	}

	touched := e.Touched(now)
	if !touched.LastUsed.Equal(now) {
		t.Errorf("Touched().LastUsed = %v, want %v", touched.LastUsed, now)
	}
	if !e.LastUsed.Equal(now.Add(-20 * time.Minute)) {
		t.Error("Touched() modified the receiver")
	}
	if got := touched.TTL(now); got != 30*time.Minute {
		t.Errorf("TTL() after touch = %v, want %v", got, 30*time.Minute)
	}

	expired := Expiration{ExpiresAt: now.Add(-time.Minute)}
	if got := expired.TTL(now); got != 0 {
		t.Errorf("TTL() of expired = %v, want 0", got)
	}
}

func TestLoginInfo(t *testing.T) {
	a := LoginInfo{ProviderID: "test", ProviderKey: "1"}
	b := LoginInfo{ProviderID: "test", ProviderKey: "1"}
	if a != b {
		t.Error("structurally equal login infos compare unequal")
	}
	if a.String() != "test:1" {
		t.Errorf("String() = %q, want %q", a.String(), "test:1")
	}
	if a.IsZero() || !(LoginInfo{}).IsZero() {
		t.Error("IsZero() mismatch")
	}
}
