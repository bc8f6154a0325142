package chatgpt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ferryhq/ferry/pkg/backend"
)

const (
	testRequirementsPath = "/backend-anon/sentinel/chat-requirements"
	testExchangePath     = "/backend-anon/sentinel/exchange"
	testConversationPath = "/backend-anon/conversation"
)

func newTestClient(t *testing.T, srv *httptest.Server, mutate func(*Config)) *Client {
	t.Helper()

	cfg := Config{
		BaseURL:           srv.URL,
		RequirementsPath:  testRequirementsPath,
		ConversationPath:  testConversationPath,
		ChallengeTimeout:  time.Second,
		ExchangeTimeout:   time.Second,
		StreamTimeout:     time.Second,
		StreamIdleTimeout: time.Second,
		HTTPClient:        srv.Client(),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func assistantFrame(id, text, status string) string {
	b, _ := json.Marshal(map[string]any{
		"message": map[string]any{
			"id":      id,
			"author":  map[string]any{"role": "assistant"},
			"content": map[string]any{"content_type": "text", "parts": []string{text}},
			"status":  status,
		},
		"conversation_id": "c1",
		"error":           nil,
	})
	return string(b)
}

func writeSSE(w http.ResponseWriter, lines ...string) {
	for _, line := range lines {
		fmt.Fprintf(w, "data: %s\n\n", line)
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func sseHandler(lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		writeSSE(w, lines...)
	}
}

func collect(t *testing.T, stream backend.EventStream) ([]backend.Event, error) {
	t.Helper()

	var events []backend.Event
	for {
		ev, err := stream.Next(context.Background())
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}

func openTestConversation(t *testing.T, handler http.HandlerFunc) backend.EventStream {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv, nil)
	stream, err := c.OpenConversation(context.Background(), backend.Attempt{DeviceID: "d", Credential: backend.Credential{Token: "t"}},
		backend.Conversation{Turns: []backend.Turn{{Role: backend.RoleUser, Content: "Hi"}}})
	require.NoError(t, err)
	t.Cleanup(func() { stream.Close() })
	return stream
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{BaseURL: "not a url", RequirementsPath: "/r", ConversationPath: "/c"})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "https://chat.openai.com"})
	assert.Error(t, err)
}

func TestFetchChallenge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, testRequirementsPath, r.URL.Path)
		assert.Equal(t, "device-1", r.Header.Get("oai-device-id"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "en-US", r.Header.Get("oai-language"))
		assert.NotEmpty(t, r.Header.Get("Origin"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"persona":"chatgpt-noauth","token":"req-token","proofofwork":{"required":true,"seed":"0.42","difficulty":"0fffff"}}`)
	}))
	defer srv.Close()

	ch, err := newTestClient(t, srv, nil).FetchChallenge(context.Background(), "device-1")
	require.NoError(t, err)

	assert.Equal(t, "req-token", ch.RequirementsToken)
	assert.True(t, ch.ProofRequired)
	assert.Equal(t, "0.42", ch.Puzzle.Seed)
	assert.Equal(t, "0fffff", ch.Puzzle.Difficulty)
}

func TestFetchChallenge_NoProofOfWork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"token":"req-token","proofofwork":{"required":false}}`)
	}))
	defer srv.Close()

	ch, err := newTestClient(t, srv, nil).FetchChallenge(context.Background(), "d")
	require.NoError(t, err)
	assert.False(t, ch.ProofRequired)
}

func TestFetchChallenge_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "forbidden",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "unusual activity", http.StatusForbidden)
			},
			check: func(t *testing.T, err error) {
				var rejected *backend.RejectedError
				require.ErrorAs(t, err, &rejected)
				assert.Equal(t, http.StatusForbidden, rejected.StatusCode)
				assert.Contains(t, rejected.Body, "unusual activity")
				assert.False(t, backend.IsTransient(err))
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			check: func(t *testing.T, err error) {
				var rejected *backend.RejectedError
				require.ErrorAs(t, err, &rejected)
				assert.True(t, backend.IsTransient(err))
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `<html>blocked</html>`)
			},
			check: func(t *testing.T, err error) {
				var translation *backend.TranslationError
				require.ErrorAs(t, err, &translation)
				assert.Equal(t, "<html>blocked</html>", translation.Payload)
			},
		},
		{
			name: "missing token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"proofofwork":{"required":true,"seed":"s","difficulty":"0f"}}`)
			},
			check: func(t *testing.T, err error) {
				var translation *backend.TranslationError
				require.ErrorAs(t, err, &translation)
			},
		},
		{
			name: "missing difficulty",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"token":"t","proofofwork":{"required":true,"seed":"s"}}`)
			},
			check: func(t *testing.T, err error) {
				var translation *backend.TranslationError
				require.ErrorAs(t, err, &translation)
			},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.Copy(io.Discard, r.Body)
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			check: func(t *testing.T, err error) {
				var timeout *backend.TimeoutError
				require.ErrorAs(t, err, &timeout)
				assert.Equal(t, backend.StepChallenge, timeout.Step)
				assert.True(t, backend.IsTransient(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := newTestClient(t, srv, func(cfg *Config) { cfg.ChallengeTimeout = 50 * time.Millisecond })
			_, err := c.FetchChallenge(context.Background(), "d")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestFetchChallenge_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := newTestClient(t, srv, nil)
	srv.Close()

	_, err := c.FetchChallenge(context.Background(), "d")

	var transport *backend.TransportError
	require.ErrorAs(t, err, &transport)
	assert.True(t, backend.IsTransient(err))
}

func TestFetchChallenge_ParentCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		waitForDisconnect(r)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(t, srv, nil).FetchChallenge(ctx, "d")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, backend.IsTransient(err))
}

func TestExchangeCredential_WithoutEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected backend call to %s", r.URL.Path)
	}))
	defer srv.Close()

	cred, err := newTestClient(t, srv, nil).ExchangeCredential(context.Background(), "d",
		&backend.Challenge{RequirementsToken: "req-token"}, "proof")
	require.NoError(t, err)
	assert.Equal(t, "req-token", cred.Token)
}

func TestExchangeCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testExchangePath, r.URL.Path)
		assert.Equal(t, "device-1", r.Header.Get("oai-device-id"))
		assert.Equal(t, "proof", r.Header.Get("openai-sentinel-proof-token"))

		var body exchangeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "req-token", body.Token)
		assert.Equal(t, "proof", body.ProofOfWork)

		fmt.Fprint(w, `{"token":"credential"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, func(cfg *Config) { cfg.ExchangePath = testExchangePath })
	cred, err := c.ExchangeCredential(context.Background(), "device-1",
		&backend.Challenge{RequirementsToken: "req-token"}, "proof")
	require.NoError(t, err)
	assert.Equal(t, "credential", cred.Token)
}

func TestExchangeCredential_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, func(cfg *Config) { cfg.ExchangePath = testExchangePath })
	_, err := c.ExchangeCredential(context.Background(), "d", &backend.Challenge{RequirementsToken: "t"}, "")

	var rejected *backend.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, backend.StepExchange, rejected.Step)
}

func TestOpenConversation_Request(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testConversationPath, r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.Equal(t, "device-1", r.Header.Get("oai-device-id"))
		assert.Equal(t, "credential", r.Header.Get("openai-sentinel-chat-requirements-token"))
		assert.Equal(t, "gAAAAABproof", r.Header.Get("openai-sentinel-proof-token"))

		var body conversationRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "next", body.Action)
		assert.Equal(t, "text-davinci-002-render-sha", body.Model)
		assert.True(t, body.HistoryAndTrainingDisabled)
		assert.Equal(t, "primary_assistant", body.ConversationMode.Kind)
		assert.NotEmpty(t, body.ParentMessageID)
		assert.NotEmpty(t, body.WebsocketRequestID)
		if assert.Len(t, body.Messages, 2) {
			assert.Equal(t, "user", body.Messages[0].Author.Role)
			assert.Equal(t, []string{"Be terse\nHi"}, body.Messages[0].Content.Parts)
			assert.Equal(t, "assistant", body.Messages[1].Author.Role)
			assert.NotEqual(t, body.Messages[0].ID, body.Messages[1].ID)
		}

		sseHandler(doneMarker)(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	stream, err := c.OpenConversation(context.Background(),
		backend.Attempt{DeviceID: "device-1", Credential: backend.Credential{Token: "credential"}, ProofToken: "gAAAAABproof"},
		backend.Conversation{Turns: []backend.Turn{
			{Role: backend.RoleUser, Content: "Be terse\nHi"},
			{Role: backend.RoleAssistant, Content: "Hello"},
		}})
	require.NoError(t, err)
	defer stream.Close()

	events, err := collect(t, stream)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []backend.Event{{Type: backend.EventDone}}, events)
}

func TestOpenConversation_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
	}{
		{
			name: "forbidden",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
			status: http.StatusForbidden,
		},
		{
			name: "json instead of event stream",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"detail":"nope"}`)
			},
			status: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newTestClient(t, srv, nil).OpenConversation(context.Background(), backend.Attempt{}, backend.Conversation{})

			var rejected *backend.RejectedError
			require.ErrorAs(t, err, &rejected)
			assert.Equal(t, tt.status, rejected.StatusCode)
			assert.Equal(t, backend.StepConversation, rejected.Step)
		})
	}
}

func TestOpenConversation_HeaderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		waitForDisconnect(r)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, func(cfg *Config) { cfg.StreamTimeout = 50 * time.Millisecond })
	_, err := c.OpenConversation(context.Background(), backend.Attempt{}, backend.Conversation{})

	var timeout *backend.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, backend.StepConversation, timeout.Step)
}

func TestOpenConversation_StreamOutlivesHeaderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, assistantFrame("m1", "Hel", "in_progress"))
		time.Sleep(150 * time.Millisecond)
		writeSSE(w, assistantFrame("m1", "Hello", statusFinished), doneMarker)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, func(cfg *Config) { cfg.StreamTimeout = 50 * time.Millisecond })
	stream, err := c.OpenConversation(context.Background(), backend.Attempt{}, backend.Conversation{})
	require.NoError(t, err)
	defer stream.Close()

	events, err := collect(t, stream)
	assert.ErrorIs(t, err, io.EOF)
	assert.Len(t, events, 4)
}

func TestEventStream_CumulativeToDelta(t *testing.T) {
	stream := openTestConversation(t, sseHandler(
		assistantFrame("m1", "Hel", "in_progress"),
		assistantFrame("m1", "Hel", "in_progress"),
		assistantFrame("m1", "Hello", statusFinished),
		doneMarker,
	))

	events, err := collect(t, stream)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []backend.Event{
		{Type: backend.EventDelta, MessageID: "m1", Text: "Hel"},
		{Type: backend.EventDelta, MessageID: "m1", Text: "lo"},
		{Type: backend.EventComplete, MessageID: "m1"},
		{Type: backend.EventDone},
	}, events)
}

func TestEventStream_IgnoresSideChannel(t *testing.T) {
	userEcho := `{"message":{"id":"u1","author":{"role":"user"},"content":{"content_type":"text","parts":["Hi"]},"status":"finished_successfully"}}`
	codeBlock := `{"message":{"id":"m0","author":{"role":"assistant"},"content":{"content_type":"code","text":"x"},"status":"in_progress"}}`

	stream := openTestConversation(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keep-alive\n\nevent: delta\n")
		writeSSE(w,
			`{"type":"moderation","moderation_response":{"flagged":false}}`,
			`{"type":"title_generation","title":"Greeting"}`,
			userEcho,
			codeBlock,
			assistantFrame("m1", "Hi", statusFinished),
			doneMarker,
		)
	})

	events, err := collect(t, stream)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []backend.Event{
		{Type: backend.EventDelta, MessageID: "m1", Text: "Hi"},
		{Type: backend.EventComplete, MessageID: "m1"},
		{Type: backend.EventDone},
	}, events)
}

func TestEventStream_CompleteWithoutDone(t *testing.T) {
	stream := openTestConversation(t, sseHandler(assistantFrame("m1", "Hi there!", statusFinished)))

	events, err := collect(t, stream)
	assert.ErrorIs(t, err, io.EOF)
	assert.Len(t, events, 2)
}

func TestEventStream_Truncated(t *testing.T) {
	stream := openTestConversation(t, sseHandler(assistantFrame("m1", "Hel", "in_progress")))

	events, err := collect(t, stream)

	var truncated *backend.TruncatedError
	require.ErrorAs(t, err, &truncated)
	assert.Equal(t, 1, truncated.Events)
	assert.Len(t, events, 1)

	// The error is sticky.
	_, err = stream.Next(context.Background())
	assert.ErrorAs(t, err, &truncated)
}

func TestEventStream_BackendError(t *testing.T) {
	stream := openTestConversation(t, sseHandler(`{"message":null,"conversation_id":"c1","error":"Something went wrong"}`))

	events, err := collect(t, stream)
	assert.ErrorIs(t, err, io.EOF)
	require.Len(t, events, 1)
	assert.Equal(t, backend.EventError, events[0].Type)
	assert.Contains(t, events[0].Detail, "Something went wrong")
}

func TestEventStream_TranslationErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"invalid json", `{"message":`},
		{"part is not a string", `{"message":{"id":"m1","author":{"role":"assistant"},"content":{"content_type":"text","parts":[{"asset":"x"}]},"status":"in_progress"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := openTestConversation(t, sseHandler(tt.frame))

			_, err := stream.Next(context.Background())

			var translation *backend.TranslationError
			require.ErrorAs(t, err, &translation)
			assert.Equal(t, tt.frame, translation.Payload)
		})
	}
}

func TestEventStream_IdleTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, assistantFrame("m1", "Hel", "in_progress"))
		waitForDisconnect(r)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, func(cfg *Config) { cfg.StreamIdleTimeout = 50 * time.Millisecond })
	stream, err := c.OpenConversation(context.Background(), backend.Attempt{}, backend.Conversation{})
	require.NoError(t, err)
	defer stream.Close()

	_, err = stream.Next(context.Background())
	require.NoError(t, err)

	_, err = stream.Next(context.Background())
	var timeout *backend.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, backend.StepStream, timeout.Step)
}

func TestEventStream_CloseReleasesBackend(t *testing.T) {
	gone := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, assistantFrame("m1", "Hel", "in_progress"))
		waitForDisconnect(r)
		close(gone)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	stream, err := c.OpenConversation(context.Background(), backend.Attempt{}, backend.Conversation{})
	require.NoError(t, err)

	_, err = stream.Next(context.Background())
	require.NoError(t, err)

	require.NoError(t, stream.Close())
	assert.NoError(t, stream.Close())

	select {
	case <-gone:
	case <-time.After(2 * time.Second):
		t.Fatal("backend request still open after Close")
	}
}

func TestEventStream_ContextCancelled(t *testing.T) {
	stream := openTestConversation(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w)
		waitForDisconnect(r)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := stream.Next(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDelta_RewrittenText(t *testing.T) {
	s := &eventStream{emitted: map[string]string{}}

	assert.Equal(t, "héllo", s.delta("m", "héllo"))
	assert.Equal(t, " wörld", s.delta("m", "hÉllo wörld"))
	assert.Equal(t, "", s.delta("m", "hÉllo"))
	assert.Equal(t, "other", s.delta("n", "other"))
}

func TestBrowserHeaders(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := newTestClient(t, srv, func(cfg *Config) { cfg.UserAgent = "test-agent" })

	assert.Equal(t, "test-agent", c.headers.Get("User-Agent"))
	assert.Equal(t, srv.URL, c.headers.Get("Origin"))
	assert.Equal(t, srv.URL+"/", c.headers.Get("Referer"))
	assert.True(t, strings.Contains(c.headers.Get("Sec-Ch-Ua"), `v="123"`))
}

// waitForDisconnect blocks until the client hangs up. net/http only watches
// the connection for a close after the request body has been read to EOF.
func waitForDisconnect(r *http.Request) {
	io.Copy(io.Discard, r.Body)
	<-r.Context().Done()
}
