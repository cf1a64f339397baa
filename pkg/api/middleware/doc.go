// Package middleware holds the HTTP middleware of the corridor API.
//
// Every middleware has the shape func(http.Handler) http.Handler so it can be
// passed to mux.Router.Use or wrapped by hand. The API server composes them as
//
//	request id > recovery > logging > security headers > CORS > rate limit > body limit
//
// with Metrics installed on the router so it can label requests by route
// template. Errors written here use the same JSON body as the API handlers,
// see WriteError.
package middleware
