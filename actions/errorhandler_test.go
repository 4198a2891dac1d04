package actions

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDefaultErrorHandler_Negotiation(t *testing.T) {
	tests := []struct {
		name        string
		accept      string
		contentType string
		contains    string
	}{
		{"no preference", "", "application/json", `"success":false`},
		{"wildcard", "*/*", "application/json", `"success":false`},
		{"browser", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8", "text/html", "<h1>Unauthorized</h1>"},
		{"xml", "application/xml", "application/xml", "<success>false</success>"},
		{"plain text", "text/plain", "text/plain", "Authentication required"},
		{"unsupported", "image/png", "application/json", `"message"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.accept != "" {
				r.Header.Set("Accept", tt.accept)
			}

			resp, err := DefaultErrorHandler{}.OnNotAuthenticated(context.Background(), r)
			if err != nil {
				t.Fatalf("OnNotAuthenticated failed: %v", err)
			}
			if resp.StatusCode() != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", resp.StatusCode())
			}
			if ct := resp.Header().Get("Content-Type"); !strings.HasPrefix(ct, tt.contentType) {
				t.Errorf("content type = %q, want %s", ct, tt.contentType)
			}
			if body := string(resp.Body()); !strings.Contains(body, tt.contains) {
				t.Errorf("body %q does not contain %q", body, tt.contains)
			}
		})
	}
}

func TestDefaultErrorHandler_JSONShape(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	resp, err := DefaultErrorHandler{}.OnNotAuthorized(context.Background(), r)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode() != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode())
	}

	var body map[string]any
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		t.Fatalf("invalid json %q: %v", resp.Body(), err)
	}
	if body["success"] != false || body["message"] != "Access denied" {
		t.Errorf("body = %v", body)
	}
}

func TestDefaultErrorHandler_XMLIsWellFormed(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Accept", "application/xml")
	resp, err := DefaultErrorHandler{}.OnNotAuthorized(context.Background(), r)
	if err != nil {
		t.Fatal(err)
	}

	var body xmlError
	if err := xml.Unmarshal(resp.Body(), &body); err != nil {
		t.Fatalf("invalid xml %q: %v", resp.Body(), err)
	}
	if body.Success || body.Message != "Access denied" {
		t.Errorf("body = %+v", body)
	}
}

func TestLocalize(t *testing.T) {
	tests := []struct {
		acceptLanguage string
		key            string
		want           string
	}{
		{"", msgNotAuthenticated, "Authentication required"},
		{"de-CH, en;q=0.5", msgNotAuthenticated, "Anmeldung erforderlich"},
		{"fr", msgNotAuthorized, "Accès refusé"},
		{"ja", msgNotAuthorized, "Access denied"},
	}

	for _, tt := range tests {
		t.Run(tt.acceptLanguage, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.Header.Set("Accept-Language", tt.acceptLanguage)
			if got := localize(r, tt.key); got != tt.want {
				t.Errorf("localize = %q, want %q", got, tt.want)
			}
		})
	}
}
