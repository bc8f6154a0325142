package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"ferryhq/ferry/pkg/proxy"
	"ferryhq/ferry/pkg/proxy/types"
)

// AuthMiddleware requires the configured inbound token on every request it
// wraps. The Authorization header may carry it bare or as "Bearer <token>".
// An empty token disables the check.
func AuthMiddleware(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	want := []byte(token)

	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(proxy.ExtractToken(r))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				logger.WarnContext(r.Context(), "rejected inbound token",
					"request_id", GetRequestID(r.Context()),
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"present", len(got) > 0,
				)
				_ = proxy.WriteErrorResponse(w, types.NewErrorResponse(
					"Missing or invalid authorization token.",
					types.ErrorTypeAuthentication,
					"",
					types.CodeInvalidToken,
				))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
