// Package health serves the liveness, readiness and version endpoints.
//
// Liveness (/health) only says the process is up. Readiness (/ready) runs
// every registered CheckFunc with a per-check timeout and answers 503 when
// any of them fails. The gateway registers the backend probe's cached
// result as the "backend" check, so readiness never calls the backend
// inline:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("backend", probe.Check)
//	mux.Handle("GET /ready", checker.ReadinessHandler())
//
// Method filtering is left to the router.
package health
