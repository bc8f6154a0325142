package types

import "net/http"

// ErrorResponse is the OpenAI-style error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one error.
type ErrorDetail struct {
	// Message is human-readable and never contains backend text.
	Message string `json:"message"`

	// Type is the error class. Gateway failures use the taxonomy names below.
	Type string `json:"type"`

	// Param names the offending request field, if any.
	Param string `json:"param,omitempty"`

	// Code is a machine-readable detail code.
	Code string `json:"code,omitempty"`
}

// Error types. The first six are the gateway's failure taxonomy.
const (
	ErrorTypeMalformedRequest    = "MalformedRequest"
	ErrorTypeChallengeUnsolvable = "ChallengeUnsolvable"
	ErrorTypeBackendRejected     = "BackendRejected"
	ErrorTypeBackendTimeout      = "BackendTimeout"
	ErrorTypeStreamTruncated     = "StreamTruncated"
	ErrorTypeTranslation         = "InternalTranslationError"

	ErrorTypeAuthentication   = "authentication_error"
	ErrorTypeNotFound         = "not_found"
	ErrorTypeMethodNotAllowed = "method_not_allowed"
	ErrorTypeServerError      = "server_error"
	ErrorTypeUnavailable      = "service_unavailable"
)

// Error codes.
const (
	CodeMissingField    = "missing_field"
	CodeInvalidValue    = "invalid_value"
	CodeInvalidJSON     = "invalid_json"
	CodeRequestTooLarge = "request_too_large"
	CodeInvalidToken    = "invalid_token"
	CodeBackendError    = "backend_error"
	CodeBackendTimeout  = "backend_timeout"
	CodeInternalError   = "internal_error"
)

// NewErrorResponse creates an error envelope.
func NewErrorResponse(message, errorType, param, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Param:   param,
			Code:    code,
		},
	}
}

// NewMalformedRequestError creates a 400 envelope.
func NewMalformedRequestError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeMalformedRequest, param, code)
}

// NewServerError creates a 500 envelope.
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, "", CodeInternalError)
}

// HTTPStatusCode returns the HTTP status for the error type.
func (e *ErrorDetail) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeMalformedRequest:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrorTypeChallengeUnsolvable, ErrorTypeBackendRejected, ErrorTypeStreamTruncated:
		return http.StatusBadGateway
	case ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	case ErrorTypeBackendTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
