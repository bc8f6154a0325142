package proxy

import (
	"context"
	"errors"

	"ferryhq/ferry/pkg/backend"
	"ferryhq/ferry/pkg/challenge"
	"ferryhq/ferry/pkg/proxy/types"
	"ferryhq/ferry/pkg/translator"
)

// RequestError represents a request parsing or validation error.
// Message is what the client sees; Err carries the decode failure for logs.
type RequestError struct {
	Message string
	Code    string
	Param   string
	Err     error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// ToErrorResponse converts a RequestError to a MalformedRequest envelope.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	return types.NewMalformedRequestError(e.Message, e.Param, e.Code)
}

// HandleError converts err to the client-facing error envelope. It is the
// only place where gateway failures are mapped to the error taxonomy.
//
// Messages are generic; backend status codes, bodies and decode failures
// stay in the logs. Example usage:
//
//	if err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse()
	}

	var inputErr *translator.InputError
	if errors.As(err, &inputErr) {
		return types.NewMalformedRequestError(inputErr.Message, inputErr.Param, types.CodeInvalidValue)
	}

	var unsolvable *challenge.UnsolvableError
	if errors.As(err, &unsolvable) {
		return types.NewErrorResponse(
			"The backend challenge could not be solved.",
			types.ErrorTypeChallengeUnsolvable,
			"",
			types.CodeBackendError,
		)
	}

	var translationErr *backend.TranslationError
	if errors.As(err, &translationErr) {
		return types.NewErrorResponse(
			"The backend returned a response the gateway could not interpret.",
			types.ErrorTypeTranslation,
			"",
			types.CodeInternalError,
		)
	}

	var truncatedErr *backend.TruncatedError
	if errors.As(err, &truncatedErr) {
		return types.NewErrorResponse(
			"The backend closed the response before it was complete.",
			types.ErrorTypeStreamTruncated,
			"",
			types.CodeBackendError,
		)
	}

	var rejectedErr *backend.RejectedError
	if errors.As(err, &rejectedErr) {
		return types.NewErrorResponse(
			"The backend rejected the request.",
			types.ErrorTypeBackendRejected,
			"",
			types.CodeBackendError,
		)
	}

	var (
		timeoutErr   *backend.TimeoutError
		transportErr *backend.TransportError
	)
	if errors.As(err, &timeoutErr) || errors.As(err, &transportErr) || errors.Is(err, context.DeadlineExceeded) {
		return types.NewErrorResponse(
			"The backend did not respond in time.",
			types.ErrorTypeBackendTimeout,
			"",
			types.CodeBackendTimeout,
		)
	}

	return types.NewServerError("An internal error occurred. Please try again later.")
}
