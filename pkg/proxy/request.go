package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"ferryhq/ferry/pkg/proxy/types"
	"ferryhq/ferry/pkg/translator"
)

const (
	// DefaultMaxRequestBodySize is the request body limit when none is configured (10MB).
	DefaultMaxRequestBodySize = 10 * 1024 * 1024

	// AuthorizationHeader carries the optional inbound token.
	AuthorizationHeader = "Authorization"

	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseChatCompletionRequest reads and validates a chat completion body of at
// most maxBytes bytes (DefaultMaxRequestBodySize when maxBytes <= 0).
//
// Every failure is a *RequestError.
func ParseChatCompletionRequest(r *http.Request, maxBytes int64) (*types.ChatCompletionRequest, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestBodySize
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return nil, &RequestError{
			Message: "failed to read request body",
			Code:    types.CodeInvalidValue,
			Param:   "body",
		}
	}

	if int64(len(body)) > maxBytes {
		return nil, &RequestError{
			Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBytes),
			Code:    types.CodeRequestTooLarge,
			Param:   "body",
		}
	}

	var req types.ChatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &RequestError{
			Message: "request body is not valid JSON",
			Code:    types.CodeInvalidJSON,
			Param:   "body",
			Err:     err,
		}
	}

	if err := ValidateChatCompletionRequest(&req); err != nil {
		return nil, err
	}

	return &req, nil
}

// ValidateChatCompletionRequest checks the request shape. Conversation rules
// such as "at least one user message" are enforced by the translator.
func ValidateChatCompletionRequest(req *types.ChatCompletionRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &RequestError{Message: err.Error(), Code: types.CodeInvalidValue}
	}

	fe := fieldErrs[0]
	param := fieldParam(fe.Namespace())

	switch fe.Tag() {
	case "required":
		return &RequestError{
			Message: fmt.Sprintf("%s is required", param),
			Code:    types.CodeMissingField,
			Param:   param,
		}
	case "min":
		return &RequestError{
			Message: fmt.Sprintf("%s must not be empty", param),
			Code:    types.CodeMissingField,
			Param:   param,
		}
	case "oneof":
		return &RequestError{
			Message: fmt.Sprintf("%s must be one of: %s", param, fe.Param()),
			Code:    types.CodeInvalidValue,
			Param:   param,
		}
	default:
		return &RequestError{
			Message: fmt.Sprintf("%s failed the %q constraint", param, fe.Tag()),
			Code:    types.CodeInvalidValue,
			Param:   param,
		}
	}
}

// fieldParam strips the root struct name from a validator namespace, turning
// "ChatCompletionRequest.messages[0].role" into "messages[0].role".
func fieldParam(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

// MessageText reduces a message content to text. Strings are returned as-is;
// arrays of content parts contribute their text parts, joined by newlines.
// Other part types, such as images, are ignored.
func MessageText(content interface{}) (string, error) {
	switch c := content.(type) {
	case string:
		return c, nil
	case []interface{}:
		var texts []string
		for _, raw := range c {
			part, ok := raw.(map[string]interface{})
			if !ok {
				return "", errors.New("content parts must be objects")
			}
			if part["type"] != "text" {
				continue
			}
			text, ok := part["text"].(string)
			if !ok {
				return "", errors.New("text content part has no text")
			}
			texts = append(texts, text)
		}
		return strings.Join(texts, "\n"), nil
	default:
		return "", errors.New("content must be a string or an array of content parts")
	}
}

// ConversationMessages converts validated request messages for the
// translator, reducing each content to text.
func ConversationMessages(msgs []types.Message) ([]translator.Message, error) {
	out := make([]translator.Message, 0, len(msgs))
	for i, msg := range msgs {
		text, err := MessageText(msg.Content)
		if err != nil {
			return nil, &RequestError{
				Message: err.Error(),
				Code:    types.CodeInvalidValue,
				Param:   fmt.Sprintf("messages[%d].content", i),
			}
		}
		out = append(out, translator.Message{Role: msg.Role, Content: text})
	}
	return out, nil
}

// ExtractToken returns the inbound token from the Authorization header,
// accepting both "Bearer <token>" and the bare token.
func ExtractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get(AuthorizationHeader))
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return header
}
