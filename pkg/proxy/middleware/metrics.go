package middleware

import "net/http"

// RequestObserver counts completed requests. The metrics collector
// implements it.
type RequestObserver interface {
	ObserveRequest(route string, status int)
}

// MetricsMiddleware reports the final status of each request under a fixed
// route label. Labels come from the registered route rather than the raw
// path so unknown paths cannot grow the series set.
func MetricsMiddleware(route string, observer RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if observer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := wrapResponseWriter(w)
			next.ServeHTTP(rw, r)
			observer.ObserveRequest(route, rw.statusCode)
		})
	}
}
