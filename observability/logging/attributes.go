package logging

import (
	"log/slog"
	"net/url"
	"strings"
)

// RedactedURL wraps a url.URL for logging without exposing sensitive information
type RedactedURL struct {
	url *url.URL
}

// LogValue implements slog.LogValuer to avoid revealing passwords
func (u RedactedURL) LogValue() slog.Value {
	if u.url == nil {
		return slog.StringValue("")
	}
	return slog.StringValue(u.url.Redacted())
}

// RedactURL returns a safely loggable URL value
func RedactURL(url *url.URL) RedactedURL {
	return RedactedURL{url: url}
}

// RedactedStringURL is a string containing a URL for safe logging
type RedactedStringURL string

// LogValue implements slog.LogValuer to avoid revealing passwords
func (s RedactedStringURL) LogValue() slog.Value {
	u, err := url.Parse(string(s))
	if err != nil {
		return slog.StringValue(string(s))
	}
	return slog.StringValue(u.Redacted())
}

// RedactStringURL returns a safely loggable URL string
func RedactStringURL(s string) slog.LogValuer {
	return RedactedStringURL(s)
}

// MaskedID is an opaque identifier (session ID, token ID) of which only a
// short prefix is logged.
type MaskedID string

// LogValue implements slog.LogValuer
func (m MaskedID) LogValue() slog.Value {
	s := string(m)
	if len(s) <= 8 {
		return slog.StringValue(strings.Repeat("*", len(s)))
	}
	return slog.StringValue(s[:8] + "...")
}

// MaskID returns a loggable value that hides most of the identifier
func MaskID(id string) slog.LogValuer {
	return MaskedID(id)
}
