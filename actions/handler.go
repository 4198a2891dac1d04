package actions

import (
	"net/http"

	"warden/authn"
	"warden/observability/logging"
)

// recoverFunc maps a handler error to a response, returning the error
// unchanged when it cannot
type recoverFunc func(r *http.Request, err error) (*authn.Response, error)

func runFunc(fn func(*authn.Response) (*authn.Response, error)) (HandlerResult[struct{}], error) {
	resp := authn.NewResponse()
	out, err := fn(resp)
	if err != nil {
		return HandlerResult[struct{}]{}, err
	}
	if out == nil {
		out = resp
	}
	return Result[struct{}](out), nil
}

// send writes the pipeline outcome. Errors the flavor cannot recover from,
// authenticator service failures included, become a 500.
func (e *Environment[I, A]) send(w http.ResponseWriter, r *http.Request, resp *authn.Response, err error, translate recoverFunc) {
	logger := e.logger(r.Context())

	if err != nil && translate != nil {
		resp, err = translate(r, err)
	}
	if err != nil {
		logger.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			logging.Err(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if resp == nil {
		resp = authn.NewResponse()
	}

	if err := resp.Send(w); err != nil {
		logger.Debug("Failed to write response", logging.Err(err))
	}
}
