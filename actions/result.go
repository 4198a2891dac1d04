package actions

import "warden/authn"

// HandlerResult is what a handler body produces: the response to send and
// optional data for callers that compose handlers.
type HandlerResult[T any] struct {
	Response *authn.Response
	Data     *T
}

// Result wraps a response without data
func Result[T any](resp *authn.Response) HandlerResult[T] {
	return HandlerResult[T]{Response: resp}
}

// ResultWithData wraps a response and data
func ResultWithData[T any](resp *authn.Response, data T) HandlerResult[T] {
	return HandlerResult[T]{Response: resp, Data: &data}
}
