package proxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ferryhq/ferry/pkg/proxy/types"
)

func TestParseChatCompletionRequest(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantParam string
		wantCode  string
	}{
		{
			name: "valid request with string content",
			body: `{"model":"gpt-3.5-turbo","messages":[{"role":"user","content":"Hello!"}],"stream":true}`,
		},
		{
			name: "model is optional",
			body: `{"messages":[{"role":"user","content":"Hello"}]}`,
		},
		{
			name: "sampling parameters accepted",
			body: `{"messages":[{"role":"user","content":"Hello"}],"temperature":0.7,"max_tokens":100}`,
		},
		{
			name:      "empty request body",
			body:      ``,
			wantErr:   true,
			wantParam: "body",
			wantCode:  types.CodeInvalidJSON,
		},
		{
			name:      "invalid JSON",
			body:      `{"messages":`,
			wantErr:   true,
			wantParam: "body",
			wantCode:  types.CodeInvalidJSON,
		},
		{
			name:      "missing messages",
			body:      `{"model":"gpt-3.5-turbo"}`,
			wantErr:   true,
			wantParam: "messages",
			wantCode:  types.CodeMissingField,
		},
		{
			name:      "empty messages",
			body:      `{"messages":[]}`,
			wantErr:   true,
			wantParam: "messages",
			wantCode:  types.CodeMissingField,
		},
		{
			name:      "unknown role",
			body:      `{"messages":[{"role":"tool","content":"x"}]}`,
			wantErr:   true,
			wantParam: "messages[0].role",
			wantCode:  types.CodeInvalidValue,
		},
		{
			name:      "missing content",
			body:      `{"messages":[{"role":"user"}]}`,
			wantErr:   true,
			wantParam: "messages[0].content",
			wantCode:  types.CodeMissingField,
		},
		{
			name:      "invalid temperature",
			body:      `{"messages":[{"role":"user","content":"Hello"}],"temperature":3}`,
			wantErr:   true,
			wantParam: "temperature",
			wantCode:  types.CodeInvalidValue,
		},
		{
			name:      "more than one choice",
			body:      `{"messages":[{"role":"user","content":"Hello"}],"n":2}`,
			wantErr:   true,
			wantParam: "n",
			wantCode:  types.CodeInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			got, err := ParseChatCompletionRequest(req, 0)

			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseChatCompletionRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if got == nil {
					t.Fatal("ParseChatCompletionRequest() returned nil without error")
				}
				return
			}

			var reqErr *RequestError
			if !errors.As(err, &reqErr) {
				t.Fatalf("error type = %T, want *RequestError", err)
			}
			if reqErr.Param != tt.wantParam {
				t.Errorf("Param = %q, want %q", reqErr.Param, tt.wantParam)
			}
			if reqErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", reqErr.Code, tt.wantCode)
			}
		})
	}
}

func TestParseChatCompletionRequest_TooLarge(t *testing.T) {
	body, err := json.Marshal(types.ChatCompletionRequest{
		Messages: []types.Message{{Role: "user", Content: strings.Repeat("a", 512)}},
	})
	if err != nil {
		t.Fatalf("Failed to marshal test body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))

	_, err = ParseChatCompletionRequest(req, 256)

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected *RequestError, got %v", err)
	}
	if reqErr.Code != types.CodeRequestTooLarge {
		t.Errorf("Code = %q, want %q", reqErr.Code, types.CodeRequestTooLarge)
	}
}

func TestParseChatCompletionRequest_DecodeErrorHidden(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions",
		strings.NewReader(`{"messages":"Hello"}`))

	_, err := ParseChatCompletionRequest(req, 0)

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected *RequestError, got %v", err)
	}
	if reqErr.Message != "request body is not valid JSON" {
		t.Errorf("Message = %q", reqErr.Message)
	}

	envelope := reqErr.ToErrorResponse()
	if strings.Contains(envelope.Error.Message, "Go struct") || strings.Contains(envelope.Error.Message, "unmarshal") {
		t.Errorf("client message leaks decoder detail: %q", envelope.Error.Message)
	}

	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) {
		t.Errorf("decode cause not kept for logs: %v", err)
	}
}

func TestMessageText(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "string", raw: `"Hello"`, want: "Hello"},
		{name: "whitespace kept", raw: `"  two  spaces\n"`, want: "  two  spaces\n"},
		{name: "single text part", raw: `[{"type":"text","text":"Hello"}]`, want: "Hello"},
		{
			name: "images ignored",
			raw:  `[{"type":"text","text":"What is this?"},{"type":"image_url","image_url":{"url":"https://example.com/a.png"}},{"type":"text","text":"Be brief."}]`,
			want: "What is this?\nBe brief.",
		},
		{name: "only images", raw: `[{"type":"image_url","image_url":{"url":"x"}}]`, want: ""},
		{name: "number", raw: `42`, wantErr: true},
		{name: "non-object part", raw: `["Hello"]`, wantErr: true},
		{name: "text part without text", raw: `[{"type":"text"}]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var content interface{}
			if err := json.Unmarshal([]byte(tt.raw), &content); err != nil {
				t.Fatalf("bad fixture: %v", err)
			}

			got, err := MessageText(content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MessageText() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("MessageText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConversationMessages(t *testing.T) {
	msgs := []types.Message{
		{Role: "system", Content: "Be terse"},
		{Role: "user", Content: []interface{}{map[string]interface{}{"type": "text", "text": "Hi"}}},
	}

	got, err := ConversationMessages(msgs)
	if err != nil {
		t.Fatalf("ConversationMessages() error = %v", err)
	}
	if len(got) != 2 || got[0].Content != "Be terse" || got[1].Content != "Hi" || got[1].Role != "user" {
		t.Errorf("ConversationMessages() = %+v", got)
	}

	_, err = ConversationMessages([]types.Message{{Role: "user", Content: 1.5}})
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Param != "messages[0].content" {
		t.Errorf("expected RequestError on messages[0].content, got %v", err)
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer sk-123", "sk-123"},
		{"bearer  sk-123 ", "sk-123"},
		{"sk-123", "sk-123"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
		if tt.header != "" {
			req.Header.Set(AuthorizationHeader, tt.header)
		}
		if got := ExtractToken(req); got != tt.want {
			t.Errorf("ExtractToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
