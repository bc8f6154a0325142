// Package server assembles the gateway's HTTP surface and runs it.
//
// Routes:
//
//	POST /v1/chat/completions   chat completions, JSON or SSE
//	GET  /v1/models             the advertised model
//	GET  /health                liveness
//	GET  /ready                 readiness from the backend probe
//	GET  /version               build information
//	GET  <metrics path>         Prometheus exposition, when enabled
//
// Unknown paths get a 404 error envelope and known paths requested with
// the wrong method a 405. When server.auth_token is set, the /v1 routes
// require it.
//
//	srv, err := server.New(server.Options{Config: cfg, Chat: chat, Health: checker})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx)
package server
