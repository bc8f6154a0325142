// Package telemetry groups the gateway's observability packages.
//
//   - logging: slog construction, runtime level changes, secret redaction
//   - metrics: Prometheus collectors for requests, backend calls, the
//     challenge solver and stream terminations
//   - tracing: OpenTelemetry spans exported over OTLP gRPC
//   - health: liveness, readiness and version endpoints
//
// Each subpackage is configured from the telemetry section of config.Config
// and is inert when disabled there.
package telemetry
