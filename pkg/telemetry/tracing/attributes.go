package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set on gateway spans. Backend step spans set their own
// backend.* keys.
const (
	AttrRequestID   = "ferry.request_id"
	AttrModel       = "ferry.model"
	AttrStream      = "ferry.stream"
	AttrMessages    = "ferry.messages"
	AttrHistoryMode = "ferry.history_mode"
	AttrReason      = "ferry.stream.reason"
	AttrChunks      = "ferry.stream.chunks"
	AttrErrorType   = "ferry.error.type"
)

// SetRequestAttributes records the shape of an inbound chat request.
func SetRequestAttributes(span trace.Span, requestID, model string, stream bool, messages int) {
	span.SetAttributes(
		attribute.String(AttrRequestID, requestID),
		attribute.String(AttrModel, model),
		attribute.Bool(AttrStream, stream),
		attribute.Int(AttrMessages, messages),
	)
}

// SetResultAttributes records how a relayed or collected stream ended.
func SetResultAttributes(span trace.Span, reason string, chunks int) {
	span.SetAttributes(
		attribute.String(AttrReason, reason),
		attribute.Int(AttrChunks, chunks),
	)
}

// SetErrorType records the error envelope type returned to the client.
func SetErrorType(span trace.Span, errorType string) {
	span.SetAttributes(attribute.String(AttrErrorType, errorType))
}
