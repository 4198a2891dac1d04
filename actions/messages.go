package actions

import (
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys of the default error handler
const (
	msgNotAuthenticated = "not_authenticated"
	msgNotAuthorized    = "not_authorized"
)

var supportedLanguages = []language.Tag{
	language.English,
	language.German,
	language.French,
}

var (
	languageMatcher = language.NewMatcher(supportedLanguages)
	messages        = newCatalog()
)

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	set := func(tag language.Tag, key, msg string) {
		if err := b.SetString(tag, key, msg); err != nil {
			panic(err)
		}
	}

	set(language.English, msgNotAuthenticated, "Authentication required")
	set(language.English, msgNotAuthorized, "Access denied")
	set(language.German, msgNotAuthenticated, "Anmeldung erforderlich")
	set(language.German, msgNotAuthorized, "Zugriff verweigert")
	set(language.French, msgNotAuthenticated, "Authentification requise")
	set(language.French, msgNotAuthorized, "Accès refusé")

	return b
}

// localize renders key in the best language of the request's
// Accept-Language header, English if nothing matches
func localize(r *http.Request, key string) string {
	tags, _, _ := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	_, idx, _ := languageMatcher.Match(tags...)
	p := message.NewPrinter(supportedLanguages[idx], message.Catalog(messages))
	return p.Sprintf(key)
}
