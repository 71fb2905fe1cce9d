// Package httpx provides the HTTP middleware stages that guard every
// request: claims decoding, token verification, CSRF double-submit
// checks, role authorization, and rate limiting. Handlers downstream
// read the resolved Principal from the request context.
package httpx

import "net/http"

// Middleware wraps an http.Handler with additional behaviour.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares to h so that the first middleware listed is
// the outermost, i.e. the first to see the request.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
