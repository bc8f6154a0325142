// Package metrics exposes gateway metrics to Prometheus.
//
// # Metrics
//
// With the default namespace "ferry" and subsystem "gateway":
//
//   - ferry_gateway_requests_total{route,status}
//   - ferry_gateway_request_duration_seconds{route,mode}
//   - ferry_gateway_backend_calls_total{step,outcome}
//   - ferry_gateway_backend_call_duration_seconds{step}
//   - ferry_gateway_backend_up
//   - ferry_gateway_challenge_solve_duration_seconds
//   - ferry_gateway_challenge_attempts
//   - ferry_gateway_challenge_results_total{result}
//   - ferry_gateway_challenge_queue_depth
//   - ferry_gateway_stream_chunks_total
//   - ferry_gateway_stream_terminations_total{reason}
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	pool := challenge.NewPool(challenge.PoolConfig{Observer: collector})
//	mux.Handle("/metrics", collector.Handler())
//
// Labels are bounded: routes are registered patterns, steps and outcomes
// are fixed sets.
package metrics
