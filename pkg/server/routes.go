package server

import (
	"net/http"

	"ferryhq/ferry/pkg/proxy/handlers"
	"ferryhq/ferry/pkg/proxy/middleware"
	"ferryhq/ferry/pkg/telemetry/health"
)

// routes registers every endpoint. Each known path also gets a catch-all
// pattern so a wrong method is answered with a 405 envelope instead of the
// mux's plain-text default.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.AuthMiddleware(s.cfg.Server.AuthToken, s.logger)

	s.handle(mux, http.MethodPost, handlers.RouteChatCompletions, auth(s.chat))
	s.handle(mux, http.MethodGet, handlers.RouteModels, auth(handlers.ModelsHandler(s.cfg.Translation.Model)))
	s.handle(mux, http.MethodGet, RouteHealth, s.health.LivenessHandler())
	s.handle(mux, http.MethodGet, RouteReady, s.health.ReadinessHandler())
	s.handle(mux, http.MethodGet, RouteVersion, health.VersionHandler(s.build.Version, s.build.Commit, s.build.BuildTime))

	if s.metrics != nil {
		mux.Handle(http.MethodGet+" "+s.cfg.Telemetry.Metrics.Path, s.metrics.Handler())
	}

	mux.Handle("/", s.observe(RouteUnmatched, handlers.NotFoundHandler()))
	return mux
}

func (s *Server) handle(mux *http.ServeMux, method, path string, h http.Handler) {
	allow := method
	if method == http.MethodGet {
		allow = "GET, HEAD"
	}
	mux.Handle(method+" "+path, s.observe(path, h))
	mux.Handle(path, s.observe(path, handlers.MethodNotAllowedHandler(allow)))
}

func (s *Server) observe(route string, h http.Handler) http.Handler {
	if s.metrics == nil {
		return h
	}
	return middleware.MetricsMiddleware(route, s.metrics)(h)
}
