package authn

import (
	"bytes"
	"net/http"
)

// Directive tells the pipeline that a handler already settled the
// authenticator for this response.
type Directive int

const (
	// DirectiveNone leaves reconciliation to the pipeline
	DirectiveNone Directive = iota

	// DirectiveRenew marks a response that carries a renewed authenticator
	DirectiveRenew

	// DirectiveDiscard marks a response whose authenticator was discarded
	DirectiveDiscard
)

// String returns the directive name
func (d Directive) String() string {
	switch d {
	case DirectiveRenew:
		return "renew"
	case DirectiveDiscard:
		return "discard"
	default:
		return "none"
	}
}

// Response is a buffered outgoing HTTP response. It implements
// http.ResponseWriter so handlers can use the usual helpers, while
// authenticator services can still add cookies or headers afterwards.
type Response struct {
	status    int
	header    http.Header
	body      bytes.Buffer
	directive Directive
}

// NewResponse creates an empty response with status 200
func NewResponse() *Response {
	return &Response{
		status: http.StatusOK,
		header: make(http.Header),
	}
}

// Header returns the response headers
func (r *Response) Header() http.Header {
	return r.header
}

// WriteHeader sets the status code
func (r *Response) WriteHeader(code int) {
	r.status = code
}

// Write appends to the buffered body
func (r *Response) Write(b []byte) (int, error) {
	return r.body.Write(b)
}

// StatusCode returns the status code
func (r *Response) StatusCode() int {
	return r.status
}

// Body returns the buffered body
func (r *Response) Body() []byte {
	return r.body.Bytes()
}

// Directive returns the authenticator directive carried by the response
func (r *Response) Directive() Directive {
	return r.directive
}

// Mark sets the authenticator directive and returns the response
func (r *Response) Mark(d Directive) *Response {
	r.directive = d
	return r
}

// Send writes the buffered response to w
func (r *Response) Send(w http.ResponseWriter) error {
	dst := w.Header()
	for k, v := range r.header {
		dst[k] = append([]string(nil), v...)
	}
	w.WriteHeader(r.status)
	_, err := w.Write(r.body.Bytes())
	return err
}
