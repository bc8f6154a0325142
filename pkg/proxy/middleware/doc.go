// Package middleware provides the HTTP middleware shared by every route.
//
// The server applies them outermost first:
//
//	handler = CORS(RequestID(Logging(Recovery(mux))))
//
// CORS answers preflight requests before anything else runs. RequestID
// tags the context so Logging and Recovery can correlate their lines.
// Recovery sits innermost so it can still write an error envelope when a
// handler panics before committing a response.
//
// AuthMiddleware and MetricsMiddleware are applied per route: the inbound
// token guards /v1 only, and metrics are labelled with the registered route.
package middleware
