package proxy

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"ferryhq/ferry/pkg/proxy/types"
)

func BenchmarkParseChatCompletionRequest(b *testing.B) {
	body := []byte(`{"model":"gpt-3.5-turbo","messages":[{"role":"system","content":"Be terse"},{"role":"user","content":"Hello, world!"}],"stream":true}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))

		if _, err := ParseChatCompletionRequest(req, 0); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkWriteSSEChunk(b *testing.B) {
	reason := types.FinishReasonStop
	chunk := &types.ChatCompletionChunk{
		ID:      "chatcmpl-0123456789abcdef",
		Object:  types.ObjectChatCompletionChunk,
		Created: 1700000000,
		Model:   "gpt-3.5-turbo",
		Choices: []types.StreamChoice{{Delta: types.Delta{Content: "Hello"}, FinishReason: &reason}},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := WriteSSEChunk(httptest.NewRecorder(), chunk); err != nil {
			b.Fatal(err)
		}
	}
}
