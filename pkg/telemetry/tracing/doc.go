// Package tracing provides OpenTelemetry tracing for the gateway.
//
// One span covers each chat completion request (gateway.chat_completion)
// and one covers each backend step (backend.challenge, backend.solve,
// backend.exchange, backend.conversation). Spans are exported over OTLP
// gRPC when telemetry.tracing.enabled is set; otherwise New returns a
// tracer whose spans are noops.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
// Incoming W3C traceparent headers are honoured through HTTPMiddleware.
// Sampling is always, never or ratio, each wrapped in ParentBased.
package tracing
