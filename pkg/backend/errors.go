package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Backend call steps, used in errors, logs, metrics and span names.
const (
	StepChallenge    = "challenge"
	StepSolve        = "solve"
	StepExchange     = "exchange"
	StepConversation = "conversation"
	StepStream       = "stream"
)

// maxBodyExcerpt bounds the backend body kept on a RejectedError.
const maxBodyExcerpt = 2048

// RejectedError is returned when the backend refuses a call: a 4xx response,
// a 5xx response once retries are exhausted, or an unexpected content type.
type RejectedError struct {
	// Step is the backend call that was rejected
	Step string

	// StatusCode is the HTTP status returned by the backend
	StatusCode int

	// Body is an excerpt of the backend response, kept for logs only
	Body string

	// Reason describes a rejection not expressed by the status code
	Reason string
}

// NewRejectedError builds a RejectedError, truncating the body excerpt.
func NewRejectedError(step string, statusCode int, body []byte) *RejectedError {
	if len(body) > maxBodyExcerpt {
		body = body[:maxBodyExcerpt]
	}
	return &RejectedError{Step: step, StatusCode: statusCode, Body: string(body)}
}

// Error implements the error interface.
func (e *RejectedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("backend rejected %s call (status %d): %s", e.Step, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("backend rejected %s call (status %d)", e.Step, e.StatusCode)
}

// Transient reports whether the rejection was a server-side failure worth retrying.
func (e *RejectedError) Transient() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// TimeoutError is returned when a backend call exceeds its own timeout.
type TimeoutError struct {
	// Step is the backend call that timed out
	Step string

	// Timeout is the configured timeout duration
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("backend %s call timed out after %s", e.Step, e.Timeout)
}

// TransportError is a network failure talking to the backend (connection
// refused or reset, proxy failure, broken body).
type TransportError struct {
	Step  string
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("backend %s call failed: %v", e.Step, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// TruncatedError is returned by EventStream.Next when the feed ends without a
// completion marker.
type TruncatedError struct {
	// Events is the number of events decoded before the feed ended
	Events int

	// Cause is the read error that ended the feed, nil on a clean EOF
	Cause error
}

// Error implements the error interface.
func (e *TruncatedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("backend stream truncated after %d events: %v", e.Events, e.Cause)
	}
	return fmt.Sprintf("backend stream truncated after %d events", e.Events)
}

// Unwrap returns the underlying error for error chain support.
func (e *TruncatedError) Unwrap() error {
	return e.Cause
}

// TranslationError is returned when a backend payload has an unexpected shape.
type TranslationError struct {
	// Step is the backend call whose payload failed to decode
	Step string

	// Payload is the offending payload, logged in full
	Payload string

	// Cause is the underlying decode error
	Cause error
}

// Error implements the error interface.
func (e *TranslationError) Error() string {
	return fmt.Sprintf("unexpected backend %s payload: %v", e.Step, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// IsTransient reports whether err is worth retrying for a challenge or
// exchange call.
func IsTransient(err error) bool {
	var (
		rejected  *RejectedError
		timeout   *TimeoutError
		transport *TransportError
	)
	switch {
	case errors.As(err, &rejected):
		return rejected.Transient()
	case errors.As(err, &timeout):
		return true
	case errors.As(err, &transport):
		return true
	default:
		return false
	}
}

// Outcome classifies err for metrics and span attributes.
func Outcome(err error) string {
	var (
		rejected    *RejectedError
		timeout     *TimeoutError
		transport   *TransportError
		truncated   *TruncatedError
		translation *TranslationError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.As(err, &rejected):
		return "rejected"
	case errors.As(err, &timeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &transport):
		return "transport"
	case errors.As(err, &truncated):
		return "truncated"
	case errors.As(err, &translation):
		return "translation"
	default:
		return "error"
	}
}
