package authn

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResponse_Send(t *testing.T) {
	resp := NewResponse()
	http.SetCookie(resp, &http.Cookie{Name: "session", Value: "abc"})
	resp.Header().Set("Content-Type", "text/plain")
	resp.WriteHeader(http.StatusTeapot)
	if _, err := resp.Write([]byte("short and stout")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	rec := httptest.NewRecorder()
	if err := resp.Send(rec); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if rec.Body.String() != "short and stout" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if got := rec.Header().Get("Set-Cookie"); got != "session=abc" {
		t.Errorf("Set-Cookie = %q, want %q", got, "session=abc")
	}
}

func TestResponse_Directive(t *testing.T) {
	resp := NewResponse()
	if resp.Directive() != DirectiveNone {
		t.Fatalf("new response directive = %v, want none", resp.Directive())
	}
	if resp.Mark(DirectiveDiscard).Directive() != DirectiveDiscard {
		t.Errorf("directive = %v, want discard", resp.Directive())
	}
	if resp.StatusCode() != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode())
	}
}

func TestAuthenticatorError(t *testing.T) {
	cause := errors.New("connection refused")
	info := LoginInfo{ProviderID: "basic-auth", ProviderKey: "alice"}
	err := error(NewAuthenticatorError(OpUpdate, "session", &info, cause))

	want := "[session] could not update authenticator for login info basic-auth:alice: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}
	if !IsAuthenticatorError(err) {
		t.Error("IsAuthenticatorError() = false")
	}
	if IsAuthenticatorError(ErrNotAuthenticated) {
		t.Error("IsAuthenticatorError(ErrNotAuthenticated) = true")
	}

	noInfo := NewAuthenticatorError(OpRetrieve, "session", nil, nil)
	if noInfo.Error() != "[session] could not retrieve authenticator" {
		t.Errorf("Error() = %q", noInfo.Error())
	}
}
