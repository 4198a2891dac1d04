// Package events publishes authentication lifecycle events.
//
// Event kinds form a small explicit tree rooted at Any:
//
//	Any
//	├── Lifecycle: SignUp, Login, Logout
//	└── Access:    Authenticated, NotAuthenticated, NotAuthorized
//
// A subscriber of a kind receives events of that kind and of every kind
// below it, so subscribing to Any observes everything.
package events

import (
	"net/http"
	"time"

	"golang.org/x/text/language"

	"warden/authn"
)

// Kind tags an event
type Kind int

const (
	// Any is the root of all kinds
	Any Kind = iota
	// Lifecycle groups sign-up, login and logout
	Lifecycle
	// Access groups the per-request access decisions
	Access

	SignUp
	Login
	Logout
	Authenticated
	NotAuthenticated
	NotAuthorized
)

var kindNames = map[Kind]string{
	Any:              "any",
	Lifecycle:        "lifecycle",
	Access:           "access",
	SignUp:           "sign_up",
	Login:            "login",
	Logout:           "logout",
	Authenticated:    "authenticated",
	NotAuthenticated: "not_authenticated",
	NotAuthorized:    "not_authorized",
}

var parents = map[Kind]Kind{
	Lifecycle:        Any,
	Access:           Any,
	SignUp:           Lifecycle,
	Login:            Lifecycle,
	Logout:           Lifecycle,
	Authenticated:    Access,
	NotAuthenticated: Access,
	NotAuthorized:    Access,
}

// String returns the kind name
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Parent returns the direct ancestor; Any has none
func (k Kind) Parent() (Kind, bool) {
	p, ok := parents[k]
	return p, ok
}

// Lineage returns k followed by all of its ancestors up to Any
func (k Kind) Lineage() []Kind {
	lineage := []Kind{k}
	for p, ok := k.Parent(); ok; p, ok = p.Parent() {
		lineage = append(lineage, p)
	}
	return lineage
}

// Event is one published lifecycle notification
type Event struct {
	// Kind is the event kind
	Kind Kind

	// Identity is the affected identity, nil for NotAuthenticated
	Identity authn.Identity

	// Request is the request the event was raised for
	Request *http.Request

	// Lang is the preferred language of the request
	Lang language.Tag

	// Time is when the event was raised
	Time time.Time
}

func newEvent(kind Kind, identity authn.Identity, r *http.Request) Event {
	return Event{
		Kind:     kind,
		Identity: identity,
		Request:  r,
		Lang:     RequestLang(r),
		Time:     time.Now(),
	}
}

// NewSignUp creates a SignUp event
func NewSignUp(identity authn.Identity, r *http.Request) Event {
	return newEvent(SignUp, identity, r)
}

// NewLogin creates a Login event
func NewLogin(identity authn.Identity, r *http.Request) Event {
	return newEvent(Login, identity, r)
}

// NewLogout creates a Logout event
func NewLogout(identity authn.Identity, r *http.Request) Event {
	return newEvent(Logout, identity, r)
}

// NewAuthenticated creates an Authenticated event
func NewAuthenticated(identity authn.Identity, r *http.Request) Event {
	return newEvent(Authenticated, identity, r)
}

// NewNotAuthenticated creates a NotAuthenticated event
func NewNotAuthenticated(r *http.Request) Event {
	return newEvent(NotAuthenticated, nil, r)
}

// NewNotAuthorized creates a NotAuthorized event
func NewNotAuthorized(identity authn.Identity, r *http.Request) Event {
	return newEvent(NotAuthorized, identity, r)
}

// RequestLang returns the most preferred language of the request's
// Accept-Language header, or language.Und when there is none.
func RequestLang(r *http.Request) language.Tag {
	if r == nil {
		return language.Und
	}
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return language.Und
	}
	return tags[0]
}
