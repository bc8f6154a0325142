package middleware

type contextKey string

const (
	// RequestIDKey stores the request ID.
	RequestIDKey contextKey = "request_id"

	// StartTimeKey stores the time the request entered the gateway.
	StartTimeKey contextKey = "start_time"
)
