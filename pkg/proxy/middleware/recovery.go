package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"ferryhq/ferry/pkg/proxy"
	"ferryhq/ferry/pkg/proxy/types"
)

// RecoveryMiddleware turns a handler panic into a 500 error envelope. When
// the response is already committed, as with a stream in flight, nothing
// more is written and the connection is left to close. http.ErrAbortHandler
// is re-raised.
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := wrapResponseWriter(w)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.ErrorContext(r.Context(), "panic in handler",
					"error", rec,
					"request_id", GetRequestID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"committed", rw.written,
					"stack", string(debug.Stack()),
				)
				if rw.written {
					return
				}
				_ = proxy.WriteErrorResponse(rw, types.NewServerError(
					"An internal error occurred. Please try again later.",
				))
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
