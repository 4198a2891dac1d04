package actions

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"html/template"
	"net/http"

	"github.com/elnormous/contenttype"

	"warden/authn"
)

// NotAuthenticatedHandler produces the response for requests without a
// usable identity
type NotAuthenticatedHandler interface {
	OnNotAuthenticated(ctx context.Context, r *http.Request) (*authn.Response, error)
}

// NotAuthorizedHandler produces the response for identities rejected by the
// authorization policy
type NotAuthorizedHandler interface {
	OnNotAuthorized(ctx context.Context, r *http.Request) (*authn.Response, error)
}

// SecuredErrorHandler handles both denials of a secured action
type SecuredErrorHandler interface {
	NotAuthenticatedHandler
	NotAuthorizedHandler
}

// NotAuthenticatedFunc adapts a function to a NotAuthenticatedHandler
type NotAuthenticatedFunc func(ctx context.Context, r *http.Request) (*authn.Response, error)

// OnNotAuthenticated calls f
func (f NotAuthenticatedFunc) OnNotAuthenticated(ctx context.Context, r *http.Request) (*authn.Response, error) {
	return f(ctx, r)
}

// NotAuthorizedFunc adapts a function to a NotAuthorizedHandler
type NotAuthorizedFunc func(ctx context.Context, r *http.Request) (*authn.Response, error)

// OnNotAuthorized calls f
func (f NotAuthorizedFunc) OnNotAuthorized(ctx context.Context, r *http.Request) (*authn.Response, error) {
	return f(ctx, r)
}

// ErrorHandlers combines two handlers into a SecuredErrorHandler; a nil
// handler falls back to DefaultErrorHandler
func ErrorHandlers(notAuthenticated NotAuthenticatedHandler, notAuthorized NotAuthorizedHandler) SecuredErrorHandler {
	if notAuthenticated == nil {
		notAuthenticated = DefaultErrorHandler{}
	}
	if notAuthorized == nil {
		notAuthorized = DefaultErrorHandler{}
	}
	return errorHandlers{notAuthenticated, notAuthorized}
}

type errorHandlers struct {
	NotAuthenticatedHandler
	NotAuthorizedHandler
}

// DefaultErrorHandler answers 401 and 403 with a localized message in the
// representation the client accepts: HTML, JSON, XML or plain text. JSON is
// used when the client states no preference.
type DefaultErrorHandler struct{}

// OnNotAuthenticated implements NotAuthenticatedHandler
func (DefaultErrorHandler) OnNotAuthenticated(_ context.Context, r *http.Request) (*authn.Response, error) {
	return errorResponse(r, http.StatusUnauthorized, localize(r, msgNotAuthenticated))
}

// OnNotAuthorized implements NotAuthorizedHandler
func (DefaultErrorHandler) OnNotAuthorized(_ context.Context, r *http.Request) (*authn.Response, error) {
	return errorResponse(r, http.StatusForbidden, localize(r, msgNotAuthorized))
}

var (
	jsonMediaType = contenttype.NewMediaType("application/json")
	htmlMediaType = contenttype.NewMediaType("text/html")
	xmlMediaType  = contenttype.NewMediaType("application/xml")
	textMediaType = contenttype.NewMediaType("text/plain")

	// JSON first so that */* resolves to it
	errorMediaTypes = []contenttype.MediaType{jsonMediaType, htmlMediaType, xmlMediaType, textMediaType}
)

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Status}}</title></head>
<body><h1>{{.Status}}</h1><p>{{.Message}}</p></body>
</html>
`))

type jsonError struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type xmlError struct {
	XMLName xml.Name `xml:"error"`
	Success bool     `xml:"success"`
	Message string   `xml:"message"`
}

// negotiate picks the error representation for the request's Accept header
func negotiate(r *http.Request) contenttype.MediaType {
	if r.Header.Get("Accept") == "" {
		return jsonMediaType
	}
	mt, _, err := contenttype.GetAcceptableMediaType(r, errorMediaTypes)
	if err != nil {
		return jsonMediaType
	}
	return mt
}

func sameType(a, b contenttype.MediaType) bool {
	return a.Type == b.Type && a.Subtype == b.Subtype
}

func errorResponse(r *http.Request, status int, message string) (*authn.Response, error) {
	resp := authn.NewResponse()
	mt := negotiate(r)

	var err error
	switch {
	case sameType(mt, htmlMediaType):
		resp.Header().Set("Content-Type", "text/html; charset=utf-8")
		resp.WriteHeader(status)
		err = errorPage.Execute(resp, struct {
			Status  string
			Message string
		}{http.StatusText(status), message})
	case sameType(mt, xmlMediaType):
		resp.Header().Set("Content-Type", "application/xml; charset=utf-8")
		resp.WriteHeader(status)
		if _, err = resp.Write([]byte(xml.Header)); err == nil {
			err = xml.NewEncoder(resp).Encode(xmlError{Message: message})
		}
	case sameType(mt, textMediaType):
		resp.Header().Set("Content-Type", "text/plain; charset=utf-8")
		resp.WriteHeader(status)
		_, err = resp.Write([]byte(message))
	default:
		resp.Header().Set("Content-Type", "application/json")
		resp.WriteHeader(status)
		err = json.NewEncoder(resp).Encode(jsonError{Message: message})
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}
